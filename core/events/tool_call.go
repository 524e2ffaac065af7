package events

// KindToolCallsExecuted identifies the end of tool effect dispatch for a turn.
const KindToolCallsExecuted Kind = "tool_call.executed"

// ToolCallsExecuted summarises one dispatch of tool effects.
type ToolCallsExecuted struct {
	Base
	TurnID   string
	Executed int
	Failed   int
	Ignored  int
}

func NewToolCallsExecuted(turnID string, executed, failed, ignored int) ToolCallsExecuted {
	return ToolCallsExecuted{
		Base:     NewBase(KindToolCallsExecuted),
		TurnID:   turnID,
		Executed: executed,
		Failed:   failed,
		Ignored:  ignored,
	}
}
