package model

import "strings"

type EventType string

const (
	SagaStartedEvent       EventType = "SagaStartedEvent"
	SagaEndedEvent         EventType = "SagaEndedEvent"
	SagaAbortedEvent       EventType = "SagaAbortedEvent"
	SagaTimeoutEvent       EventType = "SagaTimeoutEvent"
	TxStartedEvent         EventType = "TxStartedEvent"
	TxEndedEvent           EventType = "TxEndedEvent"
	TxAbortedEvent         EventType = "TxAbortedEvent"
	TxCompensatedEvent     EventType = "TxCompensatedEvent"
	SagaPausedEvent        EventType = "SagaPausedEvent"
	SagaContinuedEvent     EventType = "SagaContinuedEvent"
	SagaAutoContinuedEvent EventType = "SagaAutoContinuedEvent"
)

var eventTypes = map[string]EventType{
	strings.ToLower(string(SagaStartedEvent)):       SagaStartedEvent,
	strings.ToLower(string(SagaEndedEvent)):         SagaEndedEvent,
	strings.ToLower(string(SagaAbortedEvent)):       SagaAbortedEvent,
	strings.ToLower(string(SagaTimeoutEvent)):       SagaTimeoutEvent,
	strings.ToLower(string(TxStartedEvent)):         TxStartedEvent,
	strings.ToLower(string(TxEndedEvent)):           TxEndedEvent,
	strings.ToLower(string(TxAbortedEvent)):         TxAbortedEvent,
	strings.ToLower(string(TxCompensatedEvent)):     TxCompensatedEvent,
	strings.ToLower(string(SagaPausedEvent)):        SagaPausedEvent,
	strings.ToLower(string(SagaContinuedEvent)):     SagaContinuedEvent,
	strings.ToLower(string(SagaAutoContinuedEvent)): SagaAutoContinuedEvent,
}

// PauseClassEventTypes are the types that toggle the paused state of a saga.
var PauseClassEventTypes = []EventType{SagaPausedEvent, SagaContinuedEvent, SagaAutoContinuedEvent}

func (t EventType) String() string { return string(t) }

// ParseEventType is case-insensitive. Returns ("", false) for unknown input.
func ParseEventType(s string) (EventType, bool) {
	t, ok := eventTypes[strings.ToLower(strings.TrimSpace(s))]
	return t, ok
}

func (t EventType) Valid() bool {
	_, ok := eventTypes[strings.ToLower(string(t))]
	return ok
}

func (t EventType) IsPauseClass() bool {
	return t == SagaPausedEvent || t == SagaContinuedEvent || t == SagaAutoContinuedEvent
}
