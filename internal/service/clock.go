package service

import "time"

// Clock returns the current time. Services truncate it to milliseconds in
// UTC so stored timestamps compare the same way in every dialect.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC().Truncate(time.Millisecond)
	}
	return c().UTC().Truncate(time.Millisecond)
}
