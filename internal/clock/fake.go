package clock

import "time"

// FakeClock reports a fixed instant that tests move forward explicitly, so
// created_at and updated_at stamps come out deterministic.
type FakeClock struct {
	current time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{current: start.UTC()}
}

func (f *FakeClock) Now() time.Time {
	return f.current
}

// Advance moves the clock forward. Tests use it to give successive ledger
// rows distinct timestamps.
func (f *FakeClock) Advance(d time.Duration) {
	f.current = f.current.Add(d)
}
