package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	apperrors "analyzeit/internal/platform/errors"
)

const (
	IdleActive = "active"
	IdleIdle   = "idle"
	IdleLocked = "locked"
)

const (
	EventTabActivated = "tab_activated"
	EventTabUpdated   = "tab_updated"
	EventWindowFocus  = "window_focus"
	EventIdleState    = "idle_state"
	EventAlarm        = "alarm"
)

func ValidEventKind(kind string) bool {
	switch kind {
	case EventTabActivated, EventTabUpdated, EventWindowFocus, EventIdleState, EventAlarm:
		return true
	}
	return false
}

func ValidIdleState(state string) bool {
	switch state {
	case IdleActive, IdleIdle, IdleLocked:
		return true
	}
	return false
}

// State is the running session: the domain being credited and since when.
type State struct {
	SessionStart time.Time
	ActiveDomain string
	ActiveTitle  string
}

// Snapshot is the latest browser view pushed by events.
type Snapshot struct {
	WindowExists  bool
	WindowFocused bool
	TabURL        string
	TabTitle      string
	Audible       bool
	Idle          string
	LastInputAt   time.Time
}

// NewSnapshot starts focused with no tab, so the first tab event is enough
// to begin crediting time.
func NewSnapshot() Snapshot {
	return Snapshot{WindowExists: true, WindowFocused: true}
}

// Event is a partial snapshot update; nil fields leave the snapshot as is.
type Event struct {
	Kind          string
	WindowExists  *bool
	WindowFocused *bool
	TabURL        *string
	TabTitle      *string
	Audible       *bool
	Idle          *string
	LastInputAt   *time.Time
}

func (s Snapshot) Apply(event Event) Snapshot {
	if event.WindowExists != nil {
		s.WindowExists = *event.WindowExists
	}
	if event.WindowFocused != nil {
		s.WindowFocused = *event.WindowFocused
		if s.WindowFocused {
			s.WindowExists = true
		}
	}
	if event.TabURL != nil {
		s.TabURL = *event.TabURL
		if event.TabTitle == nil {
			s.TabTitle = ""
		}
	}
	if event.TabTitle != nil {
		s.TabTitle = *event.TabTitle
	}
	if event.Audible != nil {
		s.Audible = *event.Audible
	}
	if event.Idle != nil {
		s.Idle = *event.Idle
	}
	if event.LastInputAt != nil {
		s.LastInputAt = *event.LastInputAt
	}
	return s
}

// UserActive reports whether the user counts as present at now. An explicit
// idle state wins; otherwise the last input time is compared to threshold.
func (s Snapshot) UserActive(now time.Time, threshold time.Duration) bool {
	if s.Idle != "" {
		return s.Idle == IdleActive
	}
	if s.LastInputAt.IsZero() || threshold <= 0 {
		return true
	}
	return now.Sub(s.LastInputAt) < threshold
}

// Evaluate returns the domain that should be credited from now on, or "".
func (s Snapshot) Evaluate(now time.Time, threshold time.Duration) (string, string) {
	if !s.WindowExists || !s.WindowFocused {
		return "", ""
	}
	if !s.UserActive(now, threshold) && !s.Audible {
		return "", ""
	}
	domain, err := DomainFromURL(s.TabURL)
	if err != nil {
		return "", ""
	}
	return domain, s.TabTitle
}

// DomainFromURL extracts the lowercased host of an http(s) URL without a
// leading "www.".
func DomainFromURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty url", apperrors.ErrUnsupportedURL)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrUnsupportedURL, err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q", apperrors.ErrUnsupportedURL, parsed.Scheme)
	}
	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return "", fmt.Errorf("%w: missing host", apperrors.ErrUnsupportedURL)
	}
	return host, nil
}
