package services

import "time"

// systemNow is the default clock: UTC, truncated to the microsecond precision
// the database keeps, so values read back compare equal to those written.
func systemNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
