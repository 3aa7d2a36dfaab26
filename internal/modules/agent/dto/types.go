package dto

import "time"

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

// MappingInput sets a category override; Clear removes it.
type MappingInput struct {
	Domain   string
	Category string
	Clear    bool
}

type SignInInput struct {
	Token string
	UID   string
	Email string
	Name  string
	Photo string
}

type UserOutput struct {
	UID   string
	Email string
	Name  string
}

type FlushOutput struct {
	RunID      string
	NoIdentity bool
	Buckets    int
	Flushed    int
	Skipped    int
	Failed     int
	Seconds    int64
}

type StatusOutput struct {
	SignedIn       bool
	UID            string
	Email          string
	ActiveDomain   string
	ActiveTitle    string
	SessionStart   time.Time
	Idle           string
	Audible        bool
	PendingBuckets int
	PendingSeconds int64
	Overrides      int
	LastFlushAt    time.Time
	LastFlush      FlushOutput
}
