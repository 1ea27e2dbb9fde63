package model

// Trigger indicates what started a fetch cycle.
type Trigger string

const (
	TriggerScheduled Trigger = "SCHEDULED"
	TriggerManual    Trigger = "MANUAL"
	TriggerStartup   Trigger = "STARTUP"
)
