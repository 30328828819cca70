package state

// Action is a message the [Store] reducer understands.
type Action interface {
	action()
}

// Toggle flips the Expanded flag of the node with NodeID.
type Toggle struct {
	NodeID string
}

// Collapse clears Expanded on every node.
type Collapse struct{}

// Restore sets Expanded on the listed nodes that exist and can toggle, and
// clears it everywhere else.
type Restore struct {
	NodeIDs []string
}

func (Toggle) action()   {}
func (Collapse) action() {}
func (Restore) action()  {}
