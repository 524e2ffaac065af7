// Package events defines the typed events exchanged with the turn
// orchestrator.
//
// Input events are consumed by the orchestrator's single event loop:
//
//   - TranscriptReceived (user_input.transcript_received): a final
//     recognition result.
//   - InterruptRequested (turn_control.interrupt_requested): the user asked
//     to stop the current turn, usually from a notification action.
//
// Lifecycle events are emitted to observers:
//
//   - StateChanged (turn_state.changed): the orchestrator moved to a new
//     state.
//   - TurnStarted (turn_state.started): a wake phrase matched and a turn
//     began.
//   - TurnCompleted (turn_state.completed): the turn ran to completion.
//   - TurnCancelled (turn_state.cancelled): the turn was interrupted.
//   - SpeechStarted (assistant_speech.started): a reply started playing.
//   - ToolCallsExecuted (tool_call.executed): tool effects of a reply were
//     dispatched.
package events
