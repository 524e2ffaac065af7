package orchestration

import "github.com/koscakluka/lola/core/events"

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

// emit hands event to the observer. A panicking observer is logged and
// otherwise ignored.
func (o *Orchestrator) emit(event events.Event) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("event observer panicked", "event", event.Kind(), "panic", recovered)
		}
	}()
	o.observer(event)
}
