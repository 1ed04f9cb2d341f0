package library

import (
	"fmt"
	"strconv"
	"time"
)

// Clock reports the current time of day in minutes since midnight and the
// current weekday numbered 1 (Sunday) through 7 (Saturday).
type Clock interface {
	Now() (minutes int, weekday int)
}

// SystemClock reads the local wall clock at hour precision: 09:45 reads as
// 540, the start of the hour.
type SystemClock struct{}

func (SystemClock) Now() (int, int) {
	return clockReading(time.Now())
}

func clockReading(t time.Time) (int, int) {
	return t.Hour() * 60, int(t.Weekday()) + 1
}

// FixedClock always reports the same instant.
type FixedClock struct {
	Minutes int
	Weekday int
}

func (c FixedClock) Now() (int, int) { return c.Minutes, c.Weekday }

// OverrideClock reads Base on every call and replaces the parts that are
// set: the time of day when FixMinutes is true, the weekday when Weekday is
// non-zero.
type OverrideClock struct {
	Base       Clock
	Minutes    int
	FixMinutes bool
	Weekday    int
}

func (c OverrideClock) Now() (int, int) {
	minutes, weekday := c.Base.Now()
	if c.FixMinutes {
		minutes = c.Minutes
	}
	if c.Weekday != 0 {
		weekday = c.Weekday
	}
	return minutes, weekday
}

// ParseClockTime converts an HHMM string into minutes since midnight.
// The first two characters are hours, the rest are minutes.
func ParseClockTime(s string) (int, error) {
	if len(s) < 3 {
		return 0, fmt.Errorf("invalid clock time %q: want HHMM", s)
	}
	hours, err := strconv.Atoi(s[:2])
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	minutes, err := strconv.Atoi(s[2:])
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	if hours < 0 || minutes < 0 {
		return 0, fmt.Errorf("invalid clock time %q: negative component", s)
	}
	return hours*60 + minutes, nil
}

// FormatClockTime renders minutes since midnight as HHMM.
func FormatClockTime(minutes int) string {
	return fmt.Sprintf("%02d%02d", minutes/60, minutes%60)
}

// WeekdayName names a weekday numbered 1 (Sunday) through 7 (Saturday). Zero,
// as used by OpenDays, means every day.
func WeekdayName(d int) string {
	switch {
	case d == 0:
		return "every day"
	case d < 1 || d > 7:
		return "day " + strconv.Itoa(d)
	}
	return time.Weekday(d - 1).String()
}

// IsOpen reports whether lib accepts visitors at the given minute of day and
// weekday. A library with a zero length window is never open.
func IsOpen(lib Library, minutes, weekday int) bool {
	md := lib.Metadata
	if md.OpenDays != 0 && md.OpenDays != weekday {
		return false
	}
	if md.Span() == 0 {
		return false
	}
	return md.StartAt <= minutes && minutes <= md.EndAt
}

// Available filters libraries down to the ones open right now, keeping their
// order. The boolean is false when nothing is open.
func Available(libraries []Library, clock Clock) ([]Library, bool) {
	minutes, weekday := clock.Now()

	var open []Library
	for _, lib := range libraries {
		if IsOpen(lib, minutes, weekday) {
			open = append(open, lib)
		}
	}
	if len(open) == 0 {
		return nil, false
	}
	return open, true
}
