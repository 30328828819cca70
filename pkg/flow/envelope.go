package flow

import "regexp"

// envelopeField is the string field a summarization service response uses to
// carry its textual answer.
const envelopeField = "text"

// fencedJSON matches a ```json ... ``` block and captures its body.
var fencedJSON = regexp.MustCompile("(?is)```json\\s*(.*?)\\s*```")

// unwrapEnvelope reports whether v is a service envelope and, if so, returns
// the text that should be parsed as the payload. An object is an envelope when
// it has a string "text" field and no "phases" field.
func unwrapEnvelope(v any) (string, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	if _, has := obj["phases"]; has {
		return "", false
	}
	text, ok := obj[envelopeField].(string)
	if !ok {
		return "", false
	}
	return ExtractFenced(text), true
}

// ExtractFenced returns the body of the first ```json fenced block in text,
// or text unchanged when no such block exists.
func ExtractFenced(text string) string {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return text
}
