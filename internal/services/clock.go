package services

import (
	"time"
)

// Clock abstracts the source of "now" so reminder timing and the daily
// dedup check are deterministic in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by the real wall clock.
func SystemClock() Clock { return systemClock{} }
