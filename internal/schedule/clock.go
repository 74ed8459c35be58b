package schedule

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidTime is wrapped by every time-string validation failure.
var ErrInvalidTime = errors.New("invalid time")

var (
	clock12Pattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s*([AaPp][Mm])$`)
	clock24Pattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

// ParseClock parses a wall-clock string into a 24-hour hour and minute.
// Accepts "H:MM AM/PM" (case-insensitive) and "HH:MM".
func ParseClock(s string) (hour, minute int, err error) {
	s = strings.TrimSpace(s)

	if m := clock12Pattern.FindStringSubmatch(s); m != nil {
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
		if hour < 1 || hour > 12 {
			return 0, 0, fmt.Errorf("%w %q: hour must be between 1 and 12", ErrInvalidTime, s)
		}
		if minute > 59 {
			return 0, 0, fmt.Errorf("%w %q: minute must be between 0 and 59", ErrInvalidTime, s)
		}
		pm := strings.EqualFold(m[3], "pm")
		switch {
		case pm && hour != 12:
			hour += 12
		case !pm && hour == 12:
			hour = 0
		}
		return hour, minute, nil
	}

	if m := clock24Pattern.FindStringSubmatch(s); m != nil {
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
		if hour > 23 {
			return 0, 0, fmt.Errorf("%w %q: hour must be between 0 and 23", ErrInvalidTime, s)
		}
		if minute > 59 {
			return 0, 0, fmt.Errorf("%w %q: minute must be between 0 and 59", ErrInvalidTime, s)
		}
		return hour, minute, nil
	}

	return 0, 0, fmt.Errorf("%w %q: expected H:MM AM/PM or HH:MM", ErrInvalidTime, s)
}

// ValidateTimes checks a whole batch of time strings. Every bad entry is reported.
func ValidateTimes(times []string) error {
	if len(times) == 0 {
		return fmt.Errorf("%w: at least one time is required", ErrInvalidTime)
	}
	var errs []error
	for _, t := range times {
		if _, _, err := ParseClock(t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FormatClock renders a 24-hour hour/minute in the 12-hour display form.
func FormatClock(hour, minute int) string {
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	h := hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, minute, suffix)
}
