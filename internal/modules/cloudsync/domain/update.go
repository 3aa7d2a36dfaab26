package domain

import (
	"fmt"
	"sort"
	"strings"
)

// SitesPerUpdate bounds the sites one update carries. Each site adds four
// clauses to the increment request, and twenty keeps it well inside the 4KB
// expression limit.
const SitesPerUpdate = 20

// PendingBucket is one local hour waiting to be pushed.
type PendingBucket struct {
	Key        string
	Date       string
	Hour       int
	Categories []CategoryTotals
}

type CategoryTotals struct {
	Name         string
	TotalSeconds int64
	Sites        []SiteTotals
}

type SiteTotals struct {
	Key     string
	Domain  string
	Title   string
	Seconds int64
}

// Update is the additive change one bucket makes to the daily aggregate.
type Update struct {
	Date         string
	Hour         string
	TotalSeconds int64
	Daily        map[string]int64
	Hourly       map[string]int64
	Sites        map[string]SiteDelta
}

// SiteDelta increments Seconds; the string fields are overwritten.
type SiteDelta struct {
	Seconds  int64
	Domain   string
	Title    string
	Category string
}

// FieldNames maps a category to its daily counter and its hourly key. A
// category called "total" is renamed so it never lands on the document's own
// totalSeconds counter or the hour's total.
func FieldNames(category string) (daily, hourly string) {
	switch category {
	case "Social Media":
		return "socialSeconds", "socialMedia"
	case "Utilities":
		return "utilitySeconds", "utilities"
	}
	lower := strings.ToLower(category)
	if lower == "total" {
		lower = "totalCategory"
	}
	return lower + "Seconds", lower
}

// SplitBucket cuts a bucket into parts carrying at most maxSites distinct
// sites each. Every category entry of a site travels in the same part. A
// category's seconds not covered by its sites ride on the part holding its
// last site, or on the final part when it has none. Part totals sum to the
// bucket's totals, so each part can be pushed and settled on its own.
func SplitBucket(bucket PendingBucket, maxSites int) []PendingBucket {
	keySet := map[string]struct{}{}
	for _, cat := range bucket.Categories {
		for _, site := range cat.Sites {
			keySet[site.Key] = struct{}{}
		}
	}
	if maxSites <= 0 || len(keySet) <= maxSites {
		return []PendingBucket{bucket}
	}
	keys := make([]string, 0, len(keySet))
	for key := range keySet {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	partOf := make(map[string]int, len(keys))
	for i, key := range keys {
		partOf[key] = i / maxSites
	}
	count := (len(keys) + maxSites - 1) / maxSites

	parts := make([]PendingBucket, count)
	for i := range parts {
		parts[i] = PendingBucket{Key: bucket.Key, Date: bucket.Date, Hour: bucket.Hour}
	}
	for _, cat := range bucket.Categories {
		shares := make([]CategoryTotals, count)
		last := count - 1
		if len(cat.Sites) > 0 {
			last = 0
		}
		for _, site := range cat.Sites {
			i := partOf[site.Key]
			shares[i].Sites = append(shares[i].Sites, site)
			shares[i].TotalSeconds += site.Seconds
			last = max(last, i)
		}
		var credited int64
		for i := range shares {
			if i != last {
				credited += shares[i].TotalSeconds
			}
		}
		shares[last].TotalSeconds = max(shares[last].TotalSeconds, cat.TotalSeconds-credited)
		for i, share := range shares {
			if len(share.Sites) == 0 && (i != last || share.TotalSeconds == 0) {
				continue
			}
			share.Name = cat.Name
			parts[i].Categories = append(parts[i].Categories, share)
		}
	}
	return parts
}

// BuildUpdate folds a bucket into one update. It reports false when the
// bucket holds no positive totals.
func BuildUpdate(bucket PendingBucket) (Update, bool) {
	update := Update{
		Date:   bucket.Date,
		Hour:   fmt.Sprintf("%02d", bucket.Hour),
		Daily:  map[string]int64{},
		Hourly: map[string]int64{},
		Sites:  map[string]SiteDelta{},
	}
	// share tracks which category credited a site most, for sites that moved
	// category within the hour.
	share := map[string]int64{}
	for _, cat := range bucket.Categories {
		if cat.TotalSeconds <= 0 {
			continue
		}
		daily, hourly := FieldNames(cat.Name)
		update.TotalSeconds += cat.TotalSeconds
		update.Daily[daily] += cat.TotalSeconds
		update.Hourly[hourly] += cat.TotalSeconds
		for _, site := range cat.Sites {
			if site.Key == "" {
				continue
			}
			delta := update.Sites[site.Key]
			delta.Seconds += site.Seconds
			delta.Domain = site.Domain
			delta.Title = site.Title
			if site.Seconds >= share[site.Key] {
				share[site.Key] = site.Seconds
				delta.Category = cat.Name
			}
			update.Sites[site.Key] = delta
		}
	}
	if update.TotalSeconds <= 0 {
		return Update{}, false
	}
	return update, true
}

// Result summarizes one flush run.
type Result struct {
	RunID      string
	NoIdentity bool
	Buckets    int
	Flushed    int
	Skipped    int
	Failed     int
	Seconds    int64
}
