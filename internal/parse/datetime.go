package parse

import (
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order; ISO first, then the common statement
// formats (day-first before month-first, matching the bank exports seen).
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
	"01/02/2006",
	"02/01/06",
	"2/1/06",
	"Jan 2 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"02 Jan 2006",
}

// ParseDate tries the known layouts, ISO first.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseClock reads "H:MM", "HH:MM" or "HH:MM:SS".
func parseClock(s string) (hour, min, sec int, ok bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, false
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, 0, 0, false
		}
		nums[i] = n
	}
	hour, min = nums[0], nums[1]
	if len(nums) == 3 {
		sec = nums[2]
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 || sec < 0 || sec > 59 {
		return 0, 0, 0, false
	}
	return hour, min, sec, true
}

// ResolveDateTime combines the raw date and time strings a strategy
// captured into one concrete timestamp. The policy is default-to-now: an
// absent or unparsable date falls back to now's date, an absent time to
// now's clock, so the result is never zero.
func ResolveDateTime(dateText, timeText string, now time.Time) time.Time {
	now = now.UTC()

	date, haveDate := ParseDate(dateText)
	if !haveDate {
		date = now
	}

	hour, min, sec, haveTime := parseClock(timeText)
	if !haveTime {
		if haveDate {
			// Explicit date, no time: midnight of that date.
			hour, min, sec = 0, 0, 0
		} else {
			hour, min, sec = now.Hour(), now.Minute(), now.Second()
		}
	}

	return time.Date(date.Year(), date.Month(), date.Day(), hour, min, sec, 0, time.UTC)
}
