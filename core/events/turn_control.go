package events

// KindInterruptRequested identifies a user request to stop the current turn.
const KindInterruptRequested Kind = "turn_control.interrupt_requested"

// InterruptRequested asks the orchestrator to preempt whatever it is doing.
// Source names where the request came from (notification action, signal,
// keyboard).
type InterruptRequested struct {
	Base
	Source string
}

func NewInterruptRequested(source string) InterruptRequested {
	return InterruptRequested{Base: NewBase(KindInterruptRequested), Source: source}
}
