package dto

import "time"

type AccumulateInput struct {
	Domain     string
	Seconds    int64
	OccurredAt time.Time
}

type AccumulateOutput struct {
	Category string
	Keys     []string
}

type BucketOutput struct {
	Key        string
	Date       string
	Hour       int
	Categories []CategoryOutput
}

// SettleInput names the seconds of a bucket that reached the remote.
type SettleInput struct {
	Key        string
	Categories []CategoryOutput
}

type CategoryOutput struct {
	Name         string
	TotalSeconds int64
	Sites        []SiteOutput
}

type SiteOutput struct {
	Key     string
	Domain  string
	Title   string
	Seconds int64
}

type DaySummaryOutput struct {
	Date         string
	TotalSeconds int64
	Categories   []CategoryTotal
	Sites        []SiteSummary
}

type CategoryTotal struct {
	Name    string
	Seconds int64
}

type SiteSummary struct {
	Key      string
	Domain   string
	Title    string
	Category string
	Seconds  int64
}
