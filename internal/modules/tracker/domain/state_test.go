package domain

import (
	"errors"
	"testing"
	"time"

	apperrors "analyzeit/internal/platform/errors"
)

func TestDomainFromURL(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"https://www.GitHub.com/user/repo": "github.com",
		"http://localhost:3000/":           "localhost",
		"https://mail.google.com/u/0":      "mail.google.com",
		"https://wwwx.example.com":         "wwwx.example.com",
	}
	for raw, want := range cases {
		got, err := DomainFromURL(raw)
		if err != nil || got != want {
			t.Fatalf("%s: expected %s, got %s (%v)", raw, want, got, err)
		}
	}
	for _, raw := range []string{"", "file:///tmp/a.html", "chrome-extension://abc/dashboard/index.html", "chrome://newtab", "https://"} {
		if _, err := DomainFromURL(raw); !errors.Is(err, apperrors.ErrUnsupportedURL) {
			t.Fatalf("%q: expected unsupported url, got %v", raw, err)
		}
	}
}

func TestSnapshotApplyMergesPartialEvents(t *testing.T) {
	t.Parallel()

	url := "https://github.com"
	title := "GitHub"
	snapshot := NewSnapshot().Apply(Event{TabURL: &url, TabTitle: &title})
	unfocused := false
	snapshot = snapshot.Apply(Event{WindowFocused: &unfocused})
	if snapshot.TabURL != url || snapshot.TabTitle != title || snapshot.WindowFocused {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}

	other := "https://news.ycombinator.com"
	snapshot = snapshot.Apply(Event{TabURL: &other})
	if snapshot.TabTitle != "" {
		t.Fatalf("expected title reset on url change without title, got %q", snapshot.TabTitle)
	}
}

func TestSnapshotEvaluate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 19, 14, 0, 0, 0, time.UTC)
	threshold := 300 * time.Second
	base := NewSnapshot()
	base.TabURL = "https://github.com"

	if got, _ := base.Evaluate(now, threshold); got != "github.com" {
		t.Fatalf("expected github.com, got %q", got)
	}

	idle := base
	idle.Idle = IdleIdle
	if got, _ := idle.Evaluate(now, threshold); got != "" {
		t.Fatalf("expected idle suppression, got %q", got)
	}
	idle.Audible = true
	if got, _ := idle.Evaluate(now, threshold); got != "github.com" {
		t.Fatalf("expected audible exception, got %q", got)
	}

	stale := base
	stale.LastInputAt = now.Add(-threshold)
	if got, _ := stale.Evaluate(now, threshold); got != "" {
		t.Fatalf("expected stale input classified idle, got %q", got)
	}
	stale.LastInputAt = now.Add(-threshold + time.Second)
	if got, _ := stale.Evaluate(now, threshold); got != "github.com" {
		t.Fatalf("expected recent input active, got %q", got)
	}

	unfocused := base
	unfocused.WindowFocused = false
	unfocused.Audible = true
	if got, _ := unfocused.Evaluate(now, threshold); got != "" {
		t.Fatalf("expected unfocused window to clear domain, got %q", got)
	}

	extension := base
	extension.TabURL = "chrome-extension://abc/index.html"
	if got, _ := extension.Evaluate(now, threshold); got != "" {
		t.Fatalf("expected extension page to clear domain, got %q", got)
	}
}
