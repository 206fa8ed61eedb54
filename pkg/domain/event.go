package domain

import (
	"time"
)

type EventKind string

const (
	EventOpened   EventKind = "opened"
	EventClosed   EventKind = "closed"
	EventRecorded EventKind = "recorded"
)

// Event is published after every successful state change.
type Event struct {
	Kind        EventKind      `json:"kind"`
	Status      RegisterStatus `json:"status"`
	Transaction *Transaction   `json:"transaction,omitempty"`
	At          time.Time      `json:"at"`
}
