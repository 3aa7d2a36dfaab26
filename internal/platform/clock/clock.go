package clock

import "time"

// Clock abstracts time to keep usecases deterministic in tests.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

// Now keeps the monotonic reading so elapsed-time math survives wall clock jumps.
func (SystemClock) Now() time.Time {
	return time.Now()
}
