package model

import "time"

// Quote is a single fetched index value.
type Quote struct {
	Symbol     string
	Value      float64
	ObservedAt time.Time
}

// State is what display sinks render. Nil fields mean nothing has been fetched yet.
type State struct {
	LatestValue *float64
	LastUpdated *time.Time
}

// Snapshot is a point-in-time copy of the state and the history buffer (oldest first).
type Snapshot struct {
	State
	History []float64
}
