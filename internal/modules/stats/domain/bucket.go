package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "analyzeit/internal/platform/errors"
)

const (
	KeyPrefix  = "stats_"
	dateLayout = "2006-01-02"
)

// Bucket holds the seconds accumulated during one local hour, by category.
type Bucket map[string]*CategoryStats

type CategoryStats struct {
	TotalSeconds int64                 `json:"total_category_time"`
	Sites        map[string]*SiteStats `json:"sites"`
}

type SiteStats struct {
	Seconds int64  `json:"seconds"`
	Title   string `json:"title"`
	Domain  string `json:"domain"`
}

// Add credits seconds to the category and the site inside it. The site title
// is derived once, when the site entry is created.
func (b Bucket) Add(category, domain string, seconds int64) {
	cat, ok := b[category]
	if !ok {
		cat = &CategoryStats{Sites: map[string]*SiteStats{}}
		b[category] = cat
	}
	if cat.Sites == nil {
		cat.Sites = map[string]*SiteStats{}
	}
	cat.TotalSeconds += seconds

	key := SiteKey(domain)
	site, ok := cat.Sites[key]
	if !ok {
		site = &SiteStats{Title: BrandName(domain), Domain: domain}
		cat.Sites[key] = site
	}
	site.Seconds += seconds
}

// Subtract removes flushed seconds. Sites and categories that drop to zero
// are removed; a category is also removed once its total is used up.
func (b Bucket) Subtract(flushed Bucket) {
	for name, sent := range flushed {
		cat, ok := b[name]
		if !ok || sent == nil {
			continue
		}
		if cat == nil {
			delete(b, name)
			continue
		}
		cat.TotalSeconds -= sent.TotalSeconds
		for key, site := range sent.Sites {
			local, ok := cat.Sites[key]
			if !ok || site == nil {
				continue
			}
			if local == nil {
				delete(cat.Sites, key)
				continue
			}
			local.Seconds -= site.Seconds
			if local.Seconds <= 0 {
				delete(cat.Sites, key)
			}
		}
		if cat.TotalSeconds <= 0 {
			delete(b, name)
		}
	}
}

func (b Bucket) TotalSeconds() int64 {
	var total int64
	for _, cat := range b {
		if cat != nil {
			total += cat.TotalSeconds
		}
	}
	return total
}

// BucketKey identifies one local calendar hour.
type BucketKey struct {
	Date string
	Hour int
}

func KeyFor(t time.Time) BucketKey {
	return BucketKey{Date: t.Format(dateLayout), Hour: t.Hour()}
}

func (k BucketKey) String() string {
	return fmt.Sprintf("%s%s_%02d", KeyPrefix, k.Date, k.Hour)
}

func (k BucketKey) HourLabel() string {
	return fmt.Sprintf("%02d", k.Hour)
}

func ParseKey(raw string) (BucketKey, error) {
	rest, ok := strings.CutPrefix(raw, KeyPrefix)
	if !ok {
		return BucketKey{}, fmt.Errorf("%w: %q", apperrors.ErrMalformedKey, raw)
	}
	date, hourRaw, ok := strings.Cut(rest, "_")
	if !ok || len(hourRaw) != 2 {
		return BucketKey{}, fmt.Errorf("%w: %q", apperrors.ErrMalformedKey, raw)
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return BucketKey{}, fmt.Errorf("%w: %q", apperrors.ErrMalformedKey, raw)
	}
	hour, err := strconv.Atoi(hourRaw)
	if err != nil || hour < 0 || hour > 23 {
		return BucketKey{}, fmt.Errorf("%w: %q", apperrors.ErrMalformedKey, raw)
	}
	return BucketKey{Date: date, Hour: hour}, nil
}

// Segment is the part of a duration that falls inside one local hour.
type Segment struct {
	Key     BucketKey
	Seconds int64
}

// SplitByHour spreads seconds starting at start across the local hours they
// cover.
func SplitByHour(start time.Time, seconds int64, loc *time.Location) []Segment {
	if seconds <= 0 {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}
	cursor := start.In(loc).Truncate(time.Second)
	end := cursor.Add(time.Duration(seconds) * time.Second)
	var out []Segment
	remaining := seconds
	for remaining > 0 {
		hourStart := time.Date(cursor.Year(), cursor.Month(), cursor.Day(), cursor.Hour(), 0, 0, 0, loc)
		next := hourStart.Add(time.Hour)
		if !next.After(cursor) {
			next = cursor.Add(time.Hour)
		}
		boundary := next
		if end.Before(boundary) {
			boundary = end
		}
		part := int64(boundary.Sub(cursor) / time.Second)
		if part <= 0 || part > remaining {
			part = remaining
		}
		out = appendSegment(out, KeyFor(cursor), part)
		remaining -= part
		cursor = cursor.Add(time.Duration(part) * time.Second)
	}
	return out
}

func appendSegment(out []Segment, key BucketKey, seconds int64) []Segment {
	if n := len(out); n > 0 && out[n-1].Key == key {
		out[n-1].Seconds += seconds
		return out
	}
	return append(out, Segment{Key: key, Seconds: seconds})
}
