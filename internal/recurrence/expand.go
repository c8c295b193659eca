// ABOUTME: Occurrence generation for recurrence rules within a visible window.
// ABOUTME: Pure date arithmetic; occurrences keep the series start's clock time and location.
package recurrence

import (
	"time"
)

// DefaultMaxOccurrences caps Expand when the caller passes max <= 0.
const DefaultMaxOccurrences = 500

// maxPeriods bounds how many periods Expand walks, so a series that never
// reaches the window still terminates.
const maxPeriods = 100000

// Window is a half-open visible range [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t lies in the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// Overlaps reports whether [start, start+d) intersects the window. A zero
// duration is treated as an instant.
func (w Window) Overlaps(start time.Time, d time.Duration) bool {
	if d <= 0 {
		return w.Contains(start)
	}
	return start.Before(w.To) && start.Add(d).After(w.From)
}

// ExpandString parses rule and expands it. See Expand.
func ExpandString(start time.Time, d time.Duration, rule string, w Window, max int) []time.Time {
	return Expand(start, d, Parse(rule), w, max)
}

// Expand returns the start times, ascending, of occurrences of the series
// beginning at start whose span [occ, occ+d) intersects w.
//
// COUNT is counted from the series start, not from the window. UNTIL is
// inclusive. At most max occurrences are returned.
func Expand(start time.Time, d time.Duration, r Rule, w Window, max int) []time.Time {
	if max <= 0 {
		max = DefaultMaxOccurrences
	}
	if r.Interval < 1 {
		r.Interval = 1
	}
	if r.Freq == "" {
		r.Freq = Weekly
	}
	if d < 0 {
		d = 0
	}
	if !w.To.After(w.From) {
		return nil
	}

	g := newGenerator(start, r)

	first := 0
	if r.Count == 0 {
		first = g.skipTo(w.From.Add(-d))
	}

	var out []time.Time
	seen := 0
	for k := first; k < first+maxPeriods; k++ {
		for _, occ := range g.period(k) {
			if occ.Before(start) {
				continue
			}
			if r.Until != nil && occ.After(*r.Until) {
				return out
			}
			seen++
			if r.Count > 0 && seen > r.Count {
				return out
			}
			if !occ.Before(w.To) {
				return out
			}
			if w.Overlaps(occ, d) {
				out = append(out, occ)
				if len(out) >= max {
					return out
				}
			}
		}
	}
	return out
}

// generator produces the candidate occurrences of one period at a time.
// Period k is the k-th repetition (k*Interval units) after the period that
// contains the series start.
type generator struct {
	start time.Time
	rule  Rule
	// base is the first day of the period containing start, as a UTC date.
	base time.Time
}

func newGenerator(start time.Time, r Rule) *generator {
	day := dateOf(start)
	var base time.Time
	switch r.Freq {
	case Daily:
		base = day
	case Weekly:
		base = day.AddDate(0, 0, -mondayIndex(day.Weekday()))
	case Monthly:
		base = time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		base = time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	r.ByDay = normalizeDays(r.ByDay)
	return &generator{start: start, rule: r, base: base}
}

// normalizeDays returns a Monday-first copy of days without duplicates.
func normalizeDays(days []time.Weekday) []time.Weekday {
	if len(days) == 0 {
		return nil
	}
	seen := make(map[time.Weekday]bool, len(days))
	out := make([]time.Weekday, 0, len(days))
	for _, wd := range days {
		if wd < time.Sunday || wd > time.Saturday || seen[wd] {
			continue
		}
		seen[wd] = true
		out = append(out, wd)
	}
	sortWeekdays(out)
	return out
}

// skipTo returns a period index whose candidates all precede t's period by at
// least one period, or 0. Walking from there cannot miss an occurrence at or
// after t.
func (g *generator) skipTo(t time.Time) int {
	target := dateOf(t.In(g.start.Location()))
	if !target.After(g.base) {
		return 0
	}
	var units int
	switch g.rule.Freq {
	case Daily:
		units = daysBetween(g.base, target)
	case Weekly:
		units = daysBetween(g.base, target) / 7
	case Monthly:
		units = (target.Year()-g.base.Year())*12 + int(target.Month()-g.base.Month())
	default:
		units = target.Year() - g.base.Year()
	}
	k := units/g.rule.Interval - 1
	if k < 0 {
		return 0
	}
	return k
}

// period returns the candidates of period k in ascending order.
func (g *generator) period(k int) []time.Time {
	step := k * g.rule.Interval
	switch g.rule.Freq {
	case Daily:
		day := g.base.AddDate(0, 0, step)
		if len(g.rule.ByDay) > 0 && !g.rule.hasDay(day.Weekday()) {
			return nil
		}
		return []time.Time{g.at(day)}

	case Weekly:
		weekStart := g.base.AddDate(0, 0, 7*step)
		days := g.rule.ByDay
		if len(days) == 0 {
			days = []time.Weekday{g.start.Weekday()}
		}
		out := make([]time.Time, 0, len(days))
		for _, wd := range days {
			out = append(out, g.at(weekStart.AddDate(0, 0, mondayIndex(wd))))
		}
		return out

	case Monthly:
		monthStart := g.base.AddDate(0, step, 0)
		if len(g.rule.ByDay) == 0 {
			dom := g.start.Day()
			if dom > daysIn(monthStart.Year(), monthStart.Month()) {
				return nil
			}
			return []time.Time{g.at(time.Date(monthStart.Year(), monthStart.Month(), dom, 0, 0, 0, 0, time.UTC))}
		}
		return g.matchingDays(monthStart, daysIn(monthStart.Year(), monthStart.Month()))

	default:
		year := g.base.Year() + step
		month := g.start.Month()
		if len(g.rule.ByDay) == 0 {
			dom := g.start.Day()
			if dom > daysIn(year, month) {
				return nil
			}
			return []time.Time{g.at(time.Date(year, month, dom, 0, 0, 0, 0, time.UTC))}
		}
		monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		return g.matchingDays(monthStart, daysIn(year, month))
	}
}

// matchingDays returns every day of the month starting at monthStart whose
// weekday is listed in BYDAY.
func (g *generator) matchingDays(monthStart time.Time, n int) []time.Time {
	var out []time.Time
	for i := 0; i < n; i++ {
		day := monthStart.AddDate(0, 0, i)
		if g.rule.hasDay(day.Weekday()) {
			out = append(out, g.at(day))
		}
	}
	return out
}

// at places the series start's clock time on a calendar day.
func (g *generator) at(day time.Time) time.Time {
	s := g.start
	return time.Date(day.Year(), day.Month(), day.Day(), s.Hour(), s.Minute(), s.Second(), s.Nanosecond(), s.Location())
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
