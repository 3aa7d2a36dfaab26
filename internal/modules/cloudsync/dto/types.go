package dto

type FlushOutput struct {
	RunID      string
	NoIdentity bool
	Buckets    int
	Flushed    int
	Skipped    int
	Failed     int
	Seconds    int64
}
