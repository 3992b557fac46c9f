package application

import "time"

// Clock interface supaya gampang ditest
type Clock interface {
	Now() time.Time
}

// SystemClock reports wall-clock time in UTC; stored timestamps are UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always reports T.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }
