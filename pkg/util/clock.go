package util

import "time"

// Clock abstracts wall time so deadline checks are testable.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant. Tests use it to pin
// order expiration and operator deadlines.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }
