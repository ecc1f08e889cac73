package domain

import (
	"fmt"
	"strings"
	"time"
)

const windowLayout = "2006-01-02T15:04:05Z"

// Window is the interval a digest run covers. Both bounds are UTC and whole
// seconds; End is the last second that belongs to the window.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// ContainsDay reports whether t's UTC calendar day lies within the UTC days
// spanned by the window.
func (w Window) ContainsDay(t time.Time) bool {
	d := StartOfDayUTC(t)
	return !d.Before(StartOfDayUTC(w.Start)) && !d.After(StartOfDayUTC(w.End))
}

func (w Window) StartISO() string { return w.Start.UTC().Format(windowLayout) }
func (w Window) EndISO() string   { return w.End.UTC().Format(windowLayout) }

func (w Window) String() string {
	return w.StartISO() + ".." + w.EndISO()
}

func (w Window) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`{"start":%q,"end":%q}`, w.StartISO(), w.EndISO())), nil
}

type Scope string

const (
	ScopeDaily   Scope = "daily"
	ScopeWeekly  Scope = "weekly"
	ScopeDay     Scope = "day"
	ScopeWeek    Scope = "week"
	ScopeMonth   Scope = "month"
	ScopeQuarter Scope = "quarter"
	ScopeYear    Scope = "year"
)

func ParseScope(s string) (Scope, error) {
	switch scope := Scope(strings.ToLower(strings.TrimSpace(s))); scope {
	case ScopeDaily, ScopeWeekly, ScopeDay, ScopeWeek, ScopeMonth, ScopeQuarter, ScopeYear:
		return scope, nil
	}
	return "", fmt.Errorf("unknown scope %q (want day, week, month, quarter, year, daily or weekly)", s)
}

// ResolveWindow computes the window for scope around the reference instant,
// using calendar days of loc. It has no dependency on the wall clock.
func ResolveWindow(ref time.Time, scope Scope, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.UTC
	}
	local := ref.Truncate(time.Second).In(loc)
	y, m, d := local.Date()

	var start, next time.Time
	switch scope {
	case ScopeDaily:
		back := 1
		if local.Weekday() == time.Monday {
			back = 3
		}
		start = time.Date(y, m, d-back, 0, 0, 0, 0, loc)
		next = time.Date(y, m, d, 0, 0, 0, 0, loc)
	case ScopeWeekly:
		start = time.Date(y, m, d-7, 0, 0, 0, 0, loc)
		next = time.Date(y, m, d, 0, 0, 0, 0, loc)
	case ScopeDay:
		start = time.Date(y, m, d, 0, 0, 0, 0, loc)
		next = time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	case ScopeWeek:
		offset := int(local.Weekday()+6) % 7
		start = time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
		next = time.Date(y, m, d-offset+7, 0, 0, 0, 0, loc)
	case ScopeMonth:
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
		next = time.Date(y, m+1, 1, 0, 0, 0, 0, loc)
	case ScopeQuarter:
		qm := time.Month((int(m)-1)/3*3 + 1)
		start = time.Date(y, qm, 1, 0, 0, 0, 0, loc)
		next = time.Date(y, qm+3, 1, 0, 0, 0, 0, loc)
	case ScopeYear:
		start = time.Date(y, 1, 1, 0, 0, 0, 0, loc)
		next = time.Date(y+1, 1, 1, 0, 0, 0, 0, loc)
	default:
		return Window{}, fmt.Errorf("unknown scope %q", scope)
	}
	return Window{
		Start: start.UTC(),
		End:   next.Add(-time.Second).UTC(),
	}, nil
}

func StartOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDayUTC compares calendar days, not instants.
func SameDayUTC(a, b time.Time) bool {
	return StartOfDayUTC(a).Equal(StartOfDayUTC(b))
}

const (
	dateMedWithWeekday = "Mon, Jan 2, 2006"
	dateShortNoYear    = "Mon, Jan 02"
)

// FormatDateRange renders a span for titles and vacation lines.
func FormatDateRange(start, end time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	s := start.In(loc)
	e := end.In(loc)
	sy, sm, sd := s.Date()
	ey, em, ed := e.Date()
	switch {
	case sy == ey && sm == em && sd == ed:
		return "on " + s.Format(dateMedWithWeekday)
	case sy == ey:
		return s.Format(dateShortNoYear) + " to " + e.Format(dateMedWithWeekday)
	default:
		return s.Format(dateMedWithWeekday) + " to " + e.Format(dateMedWithWeekday)
	}
}
