// Package summary talks to the code summarization service.
//
// The service receives source code and answers with a process flow, either
// as the payload itself or wrapped in a {"text": "..."} envelope. [Client]
// returns the raw response body; turning it into a flow is the job of
// flow.Normalize.
//
//	c := summary.NewClient(summary.DefaultURL)
//	raw, err := c.Summarize(ctx, code)
//	f, err := flow.Normalize(raw)
//
// Every failure is a coded NETWORK_ERROR (or EMPTY_INPUT for blank code)
// whose user message is shown verbatim.
package summary
