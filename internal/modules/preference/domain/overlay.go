package domain

import (
	"strings"
	"sync"
	"time"
)

// Preference is one user override as stored remotely.
type Preference struct {
	Domain    string
	Category  string
	UpdatedAt time.Time
}

// Overlay is the in-memory domain to category override map.
type Overlay struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewOverlay() *Overlay {
	return &Overlay{entries: map[string]string{}}
}

func NormalizeDomain(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func (o *Overlay) Get(domain string) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	category, ok := o.entries[NormalizeDomain(domain)]
	return category, ok
}

// Set stores an override; an empty category removes it.
func (o *Overlay) Set(domain, category string) {
	domain = NormalizeDomain(domain)
	o.mu.Lock()
	defer o.mu.Unlock()
	if category == "" {
		delete(o.entries, domain)
		return
	}
	o.entries[domain] = category
}

// Replace swaps the whole mapping.
func (o *Overlay) Replace(prefs []Preference) {
	next := make(map[string]string, len(prefs))
	for _, pref := range prefs {
		domain := NormalizeDomain(pref.Domain)
		if domain == "" || pref.Category == "" {
			continue
		}
		next[domain] = pref.Category
	}
	o.mu.Lock()
	o.entries = next
	o.mu.Unlock()
}

func (o *Overlay) Reset() {
	o.mu.Lock()
	o.entries = map[string]string{}
	o.mu.Unlock()
}

func (o *Overlay) Snapshot() map[string]string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]string, len(o.entries))
	for domain, category := range o.entries {
		out[domain] = category
	}
	return out
}
