package events

const (
	KindStateChanged  Kind = "turn_state.changed"
	KindTurnStarted   Kind = "turn_state.started"
	KindTurnCompleted Kind = "turn_state.completed"
	KindTurnCancelled Kind = "turn_state.cancelled"
)

// StateChanged reports an orchestrator state transition.
type StateChanged struct {
	Base
	From string
	To   string
}

func NewStateChanged(from, to string) StateChanged {
	return StateChanged{Base: NewBase(KindStateChanged), From: from, To: to}
}

// TurnStarted marks a turn that passed the wake phrase gate.
type TurnStarted struct {
	Base
	TurnID string
	Prompt string
}

func NewTurnStarted(turnID, prompt string) TurnStarted {
	return TurnStarted{Base: NewBase(KindTurnStarted), TurnID: turnID, Prompt: prompt}
}

// TurnCompleted marks a turn that ran to its natural end.
type TurnCompleted struct {
	Base
	TurnID string
}

func NewTurnCompleted(turnID string) TurnCompleted {
	return TurnCompleted{Base: NewBase(KindTurnCompleted), TurnID: turnID}
}

// TurnCancelled marks a turn stopped by an interrupt.
type TurnCancelled struct {
	Base
	TurnID string
}

func NewTurnCancelled(turnID string) TurnCancelled {
	return TurnCancelled{Base: NewBase(KindTurnCancelled), TurnID: turnID}
}
