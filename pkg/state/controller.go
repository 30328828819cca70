package state

import (
	"sync"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/phaseflow/pkg/errors"
	"github.com/matzehuels/phaseflow/pkg/flow"
	"github.com/matzehuels/phaseflow/pkg/graph"
	"github.com/matzehuels/phaseflow/pkg/layout"
)

// Policy decides what happens to expand state when a new flow is applied.
type Policy int

const (
	// ResetOnChange collapses every node whenever a new flow is applied.
	ResetOnChange Policy = iota
	// PreserveByID re-expands nodes whose id still exists and can toggle.
	PreserveByID
)

// String returns the policy name used in configuration.
func (p Policy) String() string {
	if p == PreserveByID {
		return "preserve"
	}
	return "reset"
}

// ParsePolicy maps "reset" or "preserve" to a Policy. Empty means reset.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "reset":
		return ResetOnChange, nil
	case "preserve":
		return PreserveByID, nil
	}
	return ResetOnChange, errs.New(errs.ErrCodeInvalidInput, "unknown expand policy %q (must be reset or preserve)", s)
}

// Ticket identifies one summarization request started with [Controller.Begin].
type Ticket uint64

// ErrBusy is returned by [Controller.Begin] while another request is pending.
var ErrBusy = errs.New(errs.ErrCodeBusy, "a request is already in progress")

// Controller drives a [Store] from user submissions.
//
// It keeps the last successfully validated flow; a failed submission records
// an error message and leaves flow and graph untouched. Methods are safe to
// call from multiple goroutines so network completions can arrive off the
// event loop.
type Controller struct {
	mu      sync.Mutex
	flow    flow.ProcessFlow
	store   *Store
	input   string
	errMsg  string
	busy    bool
	current Ticket
	next    Ticket

	policy Policy
	layout []layout.Option
	logger *log.Logger
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithPolicy sets the expand policy. Default is [ResetOnChange].
func WithPolicy(p Policy) ControllerOption {
	return func(c *Controller) { c.policy = p }
}

// WithLayout passes options to every [layout.Build] call.
func WithLayout(opts ...layout.Option) ControllerOption {
	return func(c *Controller) { c.layout = append(c.layout, opts...) }
}

// WithLogger sets a logger for debug output.
func WithLogger(l *log.Logger) ControllerOption {
	return func(c *Controller) { c.logger = l }
}

// NewController returns a controller showing an empty flow.
func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{flow: flow.Empty()}
	for _, opt := range opts {
		opt(c)
	}
	c.store = NewStore(layout.Build(c.flow, c.layout...))
	return c
}

// =============================================================================
// Submissions
// =============================================================================

// SubmitJSON normalizes raw and, on success, lays it out and replaces the
// graph. On failure the error message is recorded and the previous graph
// stays. Any pending request becomes stale.
func (c *Controller) SubmitJSON(raw string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = raw
	c.invalidate()
	return c.apply(raw)
}

// Begin starts a summarization request and returns its ticket.
// It fails with [ErrBusy] while a previous request is still pending.
func (c *Controller) Begin() (Ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return 0, ErrBusy
	}
	c.next++
	c.current = c.next
	c.busy = true
	c.debug("request started", "ticket", c.current)
	return c.current, nil
}

// Complete delivers the outcome of the request identified by t. A ticket that
// is no longer current is ignored and Complete returns false. Otherwise the
// busy flag clears and either reqErr is recorded verbatim or raw is applied
// like [Controller.SubmitJSON]. The returned error is reqErr or the
// validation error.
func (c *Controller) Complete(t Ticket, raw string, reqErr error) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.busy || t != c.current {
		c.debug("stale response dropped", "ticket", t, "current", c.current)
		return false, nil
	}
	c.busy = false
	if reqErr != nil {
		c.errMsg = errs.UserMessage(reqErr)
		return true, reqErr
	}
	return true, c.apply(raw)
}

// Cancel abandons the pending request, if any.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidate()
}

// Upload replaces the editor text with the contents of an uploaded file.
// The content is sent to the summarizer by the caller, not parsed here. Any
// pending request becomes stale.
func (c *Controller) Upload(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = content
	c.errMsg = ""
	c.invalidate()
}

// SetInput replaces the editor text without submitting it.
func (c *Controller) SetInput(s string) {
	c.mu.Lock()
	c.input = s
	c.mu.Unlock()
}

// SetError records a message to show inline, e.g. for a rejected upload.
func (c *Controller) SetError(err error) {
	c.mu.Lock()
	c.errMsg = errs.UserMessage(err)
	c.mu.Unlock()
}

// =============================================================================
// View state
// =============================================================================

// Toggle dispatches a toggle on the current store.
func (c *Controller) Toggle(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Toggle(id)
}

// Dispatch forwards a to the current store.
func (c *Controller) Dispatch(a Action) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Dispatch(a)
}

// Graph returns the current graph including expand state.
func (c *Controller) Graph() graph.Graph {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Graph()
}

// Flow returns the last successfully applied flow.
func (c *Controller) Flow() flow.ProcessFlow {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flow
}

// Expanded returns the ids of expanded nodes.
func (c *Controller) Expanded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Expanded()
}

// Input returns the current editor text.
func (c *Controller) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// Err returns the message of the last failure, or "" after a success.
func (c *Controller) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// Busy reports whether a request is pending.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// =============================================================================
// Internal
// =============================================================================

// apply must be called with c.mu held.
func (c *Controller) apply(raw string) error {
	f, err := flow.Normalize(raw)
	if err != nil {
		c.errMsg = errs.UserMessage(err)
		c.debug("submission rejected", "err", err)
		return err
	}

	prev := c.store.Expanded()
	c.flow = f
	c.store = NewStore(layout.Build(f, c.layout...))
	if c.policy == PreserveByID && len(prev) > 0 {
		c.store.Restore(prev)
	}
	c.errMsg = ""
	c.debug("flow applied", "phases", f.Len(), "nodes", len(c.store.Nodes()))
	return nil
}

// invalidate must be called with c.mu held.
func (c *Controller) invalidate() {
	if c.busy {
		c.debug("pending request invalidated", "ticket", c.current)
	}
	c.busy = false
	c.current = 0
}

func (c *Controller) debug(msg string, kv ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, kv...)
	}
}
