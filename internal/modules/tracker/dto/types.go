package dto

import "time"

// EventInput is a browser trigger. Nil fields are not part of the update.
type EventInput struct {
	Kind          string
	WindowExists  *bool
	WindowFocused *bool
	URL           *string
	Title         *string
	Audible       *bool
	Idle          *string
	LastInputAt   *time.Time
}

type StateOutput struct {
	SessionStart  time.Time
	ActiveDomain  string
	ActiveTitle   string
	WindowFocused bool
	Audible       bool
	Idle          string
	Attributed    Attribution
}

// Attribution is what the last tick credited, if anything.
type Attribution struct {
	Domain  string
	Seconds int64
}
