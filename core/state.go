package orchestration

// State is the orchestrator's position in the listen, respond, listen cycle.
type State string

const (
	// StateIdle is the state before Run and after it returns.
	StateIdle State = "idle"
	// StateListening waits for a final transcript with the recognizer armed.
	StateListening State = "listening"
	// StateCapturing stops the recognizer and checks the wake phrase.
	StateCapturing State = "capturing"
	// StateDispatching collects metadata and waits for the backend.
	StateDispatching State = "dispatching"
	// StateSpeaking plays the reply while its tool effects run.
	StateSpeaking State = "speaking"
	// StateInterrupting tears the current turn down.
	StateInterrupting State = "interrupting"
)

func (s State) String() string { return string(s) }
