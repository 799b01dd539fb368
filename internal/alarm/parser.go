// Package alarm turns spoken time expressions into scheduled alarms and
// fires them against the wall clock.
package alarm

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"smart-assistant/internal/state"
)

// labelFormat is the machine-comparable alarm form the scheduler matches
// against the clock, minute-and-period granularity
const labelFormat = "03:04 PM"

var (
	relativeMinutes = regexp.MustCompile(`in (\d+) minute`)
	relativeHours   = regexp.MustCompile(`in (\d+) hour`)
	absoluteTime    = regexp.MustCompile(`(\d{1,2})(?::(\d{2}))?\s*(am|pm)?`)
)

// ParseRequest extracts an alarm time from a spoken request. It handles
// relative forms ("in 10 minutes", "in 2 hours") and absolute forms
// ("5 pm", "7:30", "17:30"). An absolute time already passed today rolls
// to tomorrow. Returns false when no time could be understood.
//
// A bare hour with no AM/PM is read as AM/as-spoken unless that hour is
// already behind the current one, in which case the PM variant is tried;
// when the spoken hour equals the current hour exactly the as-spoken
// reading is kept and, being passed, rolls a full day.
func ParseRequest(text string, now time.Time) (state.Alarm, bool) {
	text = strings.ToLower(text)

	if target, ok := parseRelative(text, now); ok {
		return makeAlarm(target), true
	}

	if target, ok := parseAbsolute(text, now); ok {
		return makeAlarm(target), true
	}

	return state.Alarm{}, false
}

func parseRelative(text string, now time.Time) (time.Time, bool) {
	minMatch := relativeMinutes.FindStringSubmatch(text)
	hrMatch := relativeHours.FindStringSubmatch(text)
	if minMatch == nil && hrMatch == nil {
		return time.Time{}, false
	}

	var mins, hrs int
	if minMatch != nil {
		mins, _ = strconv.Atoi(minMatch[1])
	}
	if hrMatch != nil {
		hrs, _ = strconv.Atoi(hrMatch[1])
	}

	target := now.Add(time.Duration(hrs)*time.Hour + time.Duration(mins)*time.Minute)
	return target.Truncate(time.Minute), true
}

func parseAbsolute(text string, now time.Time) (time.Time, bool) {
	// only treat bare numbers as times inside an alarm-ish request
	if !strings.Contains(text, "alarm") && !strings.Contains(text, "wake") && !strings.Contains(text, "set") {
		return time.Time{}, false
	}

	matches := absoluteTime.FindAllStringSubmatch(text, -1)
	var match []string
	for _, m := range matches {
		if m[1] != "" {
			match = m
		}
	}
	if match == nil {
		return time.Time{}, false
	}

	h, _ := strconv.Atoi(match[1])
	m := 0
	if match[2] != "" {
		m, _ = strconv.Atoi(match[2])
	}
	period := match[3]

	switch {
	case h > 12:
		// already 24-hour form
	case period == "pm" && h != 12:
		h += 12
	case period == "am" && h == 12:
		h = 0
	case period == "":
		if now.Hour() > h {
			h += 12
		}
	}

	if h > 23 || m > 59 {
		return time.Time{}, false
	}

	target := time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, now.Location())
	if !target.After(now) {
		target = target.Add(24 * time.Hour)
	}
	return target, true
}

// makeAlarm builds the stored pair: the machine label the scheduler
// matches and the user-facing display variant
func makeAlarm(target time.Time) state.Alarm {
	label := target.Format(labelFormat)
	display := strings.TrimPrefix(label, "0")
	return state.Alarm{Label: label, Display: display}
}
