// ABOUTME: RRULE-like recurrence rule parsing and formatting.
// ABOUTME: Malformed parts are silently replaced with defaults rather than rejected.
package recurrence

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Frequency is the base repetition unit of a rule.
type Frequency string

const (
	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
	Yearly  Frequency = "YEARLY"
)

// Rule is a parsed recurrence rule.
type Rule struct {
	Freq     Frequency
	Interval int
	ByDay    []time.Weekday
	Until    *time.Time
	Count    int
}

var weekdayCodes = map[string]time.Weekday{
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
	"SU": time.Sunday,
}

var codeForWeekday = map[time.Weekday]string{
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
	time.Sunday:    "SU",
}

const untilLayout = "20060102T150405Z"

// Parse reads an RRULE string such as "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE".
// An optional "RRULE:" prefix is accepted and keys are case-insensitive.
// Unknown keys are ignored; a missing or unknown FREQ becomes WEEKLY and a
// missing or invalid INTERVAL becomes 1.
func Parse(s string) Rule {
	r := Rule{Freq: Weekly, Interval: 1}

	s = strings.TrimSpace(s)
	if len(s) >= 6 && strings.EqualFold(s[:6], "RRULE:") {
		s = s[6:]
	}

	for _, part := range strings.Split(s, ";") {
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		val = strings.TrimSpace(val)

		switch key {
		case "FREQ":
			switch f := Frequency(strings.ToUpper(val)); f {
			case Daily, Weekly, Monthly, Yearly:
				r.Freq = f
			}
		case "INTERVAL":
			if n, err := strconv.Atoi(val); err == nil && n >= 1 {
				r.Interval = n
			}
		case "BYDAY":
			r.ByDay = parseByDay(val)
		case "UNTIL":
			if t, ok := parseUntil(val); ok {
				r.Until = &t
			}
		case "COUNT":
			if n, err := strconv.Atoi(val); err == nil && n >= 1 {
				r.Count = n
			}
		}
	}

	return r
}

// parseByDay reads a comma list of weekday codes. Ordinal prefixes such as
// "1MO" or "-1FR" are reduced to the bare weekday. The result is deduplicated
// and ordered Monday first.
func parseByDay(val string) []time.Weekday {
	seen := make(map[time.Weekday]bool)
	var days []time.Weekday
	for _, tok := range strings.Split(val, ",") {
		tok = strings.ToUpper(strings.TrimSpace(tok))
		if len(tok) < 2 {
			continue
		}
		wd, ok := weekdayCodes[tok[len(tok)-2:]]
		if !ok || seen[wd] {
			continue
		}
		seen[wd] = true
		days = append(days, wd)
	}
	sortWeekdays(days)
	return days
}

// parseUntil accepts UTC and floating date-times, bare dates, and RFC3339.
// A bare date covers the whole UTC day.
func parseUntil(val string) (time.Time, bool) {
	for _, layout := range []string{untilLayout, "20060102T150405", time.RFC3339} {
		if t, err := time.Parse(layout, val); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse("20060102", val); err == nil {
		return t.Add(24*time.Hour - time.Nanosecond), true
	}
	return time.Time{}, false
}

// mondayIndex returns 0 for Monday through 6 for Sunday.
func mondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

func sortWeekdays(days []time.Weekday) {
	sort.Slice(days, func(i, j int) bool {
		return mondayIndex(days[i]) < mondayIndex(days[j])
	})
}

// String renders the rule in canonical RRULE form.
func (r Rule) String() string {
	freq := r.Freq
	if freq == "" {
		freq = Weekly
	}
	parts := []string{"FREQ=" + string(freq)}
	if r.Interval > 1 {
		parts = append(parts, "INTERVAL="+strconv.Itoa(r.Interval))
	}
	if len(r.ByDay) > 0 {
		days := append([]time.Weekday(nil), r.ByDay...)
		sortWeekdays(days)
		codes := make([]string, 0, len(days))
		for _, d := range days {
			codes = append(codes, codeForWeekday[d])
		}
		parts = append(parts, "BYDAY="+strings.Join(codes, ","))
	}
	if r.Until != nil {
		parts = append(parts, "UNTIL="+r.Until.UTC().Format(untilLayout))
	}
	if r.Count > 0 {
		parts = append(parts, "COUNT="+strconv.Itoa(r.Count))
	}
	return strings.Join(parts, ";")
}

func (r Rule) hasDay(wd time.Weekday) bool {
	for _, d := range r.ByDay {
		if d == wd {
			return true
		}
	}
	return false
}
