package service

import "time"

// Clock supplies the current time.  Services never read the wall clock
// directly.
type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now().UTC()
}

func orSystem(c Clock) Clock {
	if c == nil {
		return SystemClock
	}
	return c
}
