package pipeline

// ControlState is the state of the control-flow resolver.
type ControlState int

const (
	// ControlNormal means fetch proceeds sequentially.
	ControlNormal ControlState = iota
	// ControlBranchDetected means decode issued a branch this tick.
	ControlBranchDetected
	// ControlBranchResolving means the branch is in execute and fetch waits.
	ControlBranchResolving
	// ControlFlushPending means a taken branch redirected fetch this tick.
	ControlFlushPending
)

// String returns the state name.
func (s ControlState) String() string {
	switch s {
	case ControlBranchDetected:
		return "BranchDetected"
	case ControlBranchResolving:
		return "BranchResolving"
	case ControlFlushPending:
		return "FlushPending"
	default:
		return "Normal"
	}
}

// Redirect is the outcome of advancing the resolver at the start of a tick.
type Redirect struct {
	// Flush is set when a taken branch must squash the younger latches.
	Flush bool
	// Target is the address fetch continues from when Flush is set.
	Target uint32
	// Resolved is set on the tick a branch outcome is consumed.
	Resolved bool
}

// ControlResolver tracks an in-flight branch from decode to resolution.
// Only one branch is in flight at a time; decode holds any further branch
// until the resolver returns to ControlNormal.
type ControlResolver struct {
	state ControlState
}

// NewControlResolver creates a resolver in the normal state.
func NewControlResolver() *ControlResolver {
	return &ControlResolver{}
}

// State returns the current state.
func (c *ControlResolver) State() ControlState {
	return c.state
}

// Busy reports whether a branch is in flight.
func (c *ControlResolver) Busy() bool {
	return c.state != ControlNormal
}

// SuppressesFetch reports whether fetch must insert a bubble this tick.
func (c *ControlResolver) SuppressesFetch() bool {
	return c.state == ControlBranchResolving
}

// Detect records that decode issued a branch or jump.
func (c *ControlResolver) Detect() {
	if c.state == ControlNormal {
		c.state = ControlBranchDetected
	}
}

// Advance steps the state machine at the start of a tick. exmem is the latch
// Execute produced on the previous tick.
func (c *ControlResolver) Advance(exmem *Latch) Redirect {
	switch c.state {
	case ControlBranchDetected:
		c.state = ControlBranchResolving
	case ControlBranchResolving:
		if exmem.BranchTaken {
			c.state = ControlFlushPending
			return Redirect{Flush: true, Target: exmem.ALUResult, Resolved: true}
		}
		c.state = ControlNormal
		return Redirect{Resolved: true}
	case ControlFlushPending:
		c.state = ControlNormal
	}

	return Redirect{}
}

// Reset returns the resolver to the normal state.
func (c *ControlResolver) Reset() {
	c.state = ControlNormal
}
