package conversations

// Role describes who a message in the backend's conversation is from.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message is a single message returned by the backend. Content is nil when
// the backend sent null or omitted it.
type Message struct {
	Role    Role
	Content *string
}

// History is the backend's reply to a single prompt.
//
// A nil *History means there is no usable reply.
type History struct {
	Messages []Message
}

type UserMessage struct{ Content string }

type SystemMessage struct{ Content string }

type AssistantMessage struct{ Content string }

// ToolMessage carries a capability invocation the backend wants executed.
type ToolMessage struct{ Content string }

// Typed returns the role specific view of the message.
func (m Message) Typed() any {
	content := ""
	if m.Content != nil {
		content = *m.Content
	}

	switch m.Role {
	case RoleUser:
		return UserMessage{Content: content}
	case RoleSystem:
		return SystemMessage{Content: content}
	case RoleAssistant:
		return AssistantMessage{Content: content}
	case RoleTool:
		return ToolMessage{Content: content}
	default:
		return nil
	}
}

// Reply is the part of a [History] the assistant acts on.
type Reply struct {
	// LastAssistant is the last assistant message, nil when the history has
	// none.
	LastAssistant *AssistantMessage
	// ToolCalls are all tool messages with content, in history order.
	ToolCalls []ToolMessage
}

// Text is what should be spoken, empty for a no-op reply.
func (r Reply) Text() string {
	if r.LastAssistant == nil {
		return ""
	}
	return r.LastAssistant.Content
}

// IsEmpty reports whether the reply has nothing to say.
func (r Reply) IsEmpty() bool { return r.Text() == "" }

// Partition splits the history into the last assistant message and the
// content-bearing tool messages in a single pass.
func (h *History) Partition() Reply {
	reply := Reply{}
	if h == nil {
		return reply
	}

	for _, message := range h.Messages {
		switch typed := message.Typed().(type) {
		case AssistantMessage:
			reply.LastAssistant = &typed
		case ToolMessage:
			if typed.Content != "" {
				reply.ToolCalls = append(reply.ToolCalls, typed)
			}
		}
	}
	return reply
}
