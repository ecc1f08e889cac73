package domain

import (
	"testing"
	"time"
	_ "time/tzdata"
)

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load location %s: %v", name, err)
	}
	return loc
}

func TestResolveWindow(t *testing.T) {
	toronto := mustLocation(t, "America/Toronto")

	tests := []struct {
		name      string
		ref       time.Time
		scope     Scope
		wantStart string
		wantEnd   string
	}{
		{
			name:      "daily on tuesday spans monday",
			ref:       time.Date(2024, 1, 16, 15, 4, 5, 999, time.UTC),
			scope:     ScopeDaily,
			wantStart: "2024-01-15T05:00:00Z",
			wantEnd:   "2024-01-16T04:59:59Z",
		},
		{
			name:      "daily on monday spans the weekend",
			ref:       time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC),
			scope:     ScopeDaily,
			wantStart: "2024-01-12T05:00:00Z",
			wantEnd:   "2024-01-15T04:59:59Z",
		},
		{
			name:      "weekly is the seven days ending yesterday",
			ref:       time.Date(2024, 1, 18, 12, 0, 0, 0, time.UTC),
			scope:     ScopeWeekly,
			wantStart: "2024-01-11T05:00:00Z",
			wantEnd:   "2024-01-18T04:59:59Z",
		},
		{
			name:      "calendar day",
			ref:       time.Date(2024, 1, 18, 12, 0, 0, 0, time.UTC),
			scope:     ScopeDay,
			wantStart: "2024-01-18T05:00:00Z",
			wantEnd:   "2024-01-19T04:59:59Z",
		},
		{
			name:      "calendar week starts monday",
			ref:       time.Date(2024, 1, 18, 12, 0, 0, 0, time.UTC),
			scope:     ScopeWeek,
			wantStart: "2024-01-15T05:00:00Z",
			wantEnd:   "2024-01-22T04:59:59Z",
		},
		{
			name:      "calendar week on sunday",
			ref:       time.Date(2024, 1, 21, 12, 0, 0, 0, time.UTC),
			scope:     ScopeWeek,
			wantStart: "2024-01-15T05:00:00Z",
			wantEnd:   "2024-01-22T04:59:59Z",
		},
		{
			name:      "month",
			ref:       time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC),
			scope:     ScopeMonth,
			wantStart: "2024-02-01T05:00:00Z",
			wantEnd:   "2024-03-01T04:59:59Z",
		},
		{
			name:      "quarter crossing daylight saving",
			ref:       time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC),
			scope:     ScopeQuarter,
			wantStart: "2024-04-01T04:00:00Z",
			wantEnd:   "2024-07-01T03:59:59Z",
		},
		{
			name:      "year",
			ref:       time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
			scope:     ScopeYear,
			wantStart: "2024-01-01T05:00:00Z",
			wantEnd:   "2025-01-01T04:59:59Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := ResolveWindow(tt.ref, tt.scope, toronto)
			if err != nil {
				t.Fatalf("ResolveWindow: %v", err)
			}
			if w.StartISO() != tt.wantStart || w.EndISO() != tt.wantEnd {
				t.Fatalf("window = %s..%s, want %s..%s", w.StartISO(), w.EndISO(), tt.wantStart, tt.wantEnd)
			}
			if w.Start.After(w.End) {
				t.Fatalf("start %s after end %s", w.Start, w.End)
			}
			if w.Start.Nanosecond() != 0 || w.End.Nanosecond() != 0 {
				t.Fatalf("window bounds carry sub-second parts: %v", w)
			}
		})
	}
}

func TestResolveWindowMondayStartsThreeDaysBefore(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	monday := time.Date(2024, 3, 4, 9, 30, 0, 0, loc)
	w, err := ResolveWindow(monday, ScopeDaily, loc)
	if err != nil {
		t.Fatalf("ResolveWindow: %v", err)
	}
	dayStart := time.Date(2024, 3, 4, 0, 0, 0, 0, loc)
	if got := dayStart.Sub(w.Start); got != 72*time.Hour {
		t.Fatalf("monday daily start is %s before the day, want 72h", got)
	}
}

func TestResolveWindowIsIdempotent(t *testing.T) {
	loc := mustLocation(t, "America/Toronto")
	ref := time.Date(2024, 11, 3, 7, 15, 0, 0, time.UTC)
	for _, scope := range []Scope{ScopeDaily, ScopeWeekly, ScopeDay, ScopeWeek, ScopeMonth, ScopeQuarter, ScopeYear} {
		a, err := ResolveWindow(ref, scope, loc)
		if err != nil {
			t.Fatalf("%s: %v", scope, err)
		}
		b, _ := ResolveWindow(ref, scope, loc)
		if !a.Start.Equal(b.Start) || !a.End.Equal(b.End) {
			t.Fatalf("%s: windows differ %v vs %v", scope, a, b)
		}
	}
}

func TestPresetWindowsEndBeforeNow(t *testing.T) {
	loc := mustLocation(t, "America/Toronto")
	now := time.Now()
	for _, scope := range []Scope{ScopeDaily, ScopeWeekly} {
		w, err := ResolveWindow(now, scope, loc)
		if err != nil {
			t.Fatalf("%s: %v", scope, err)
		}
		if !w.End.Before(now.UTC()) {
			t.Fatalf("%s window end %s is not before now %s", scope, w.End, now.UTC())
		}
	}
}

func TestParseScope(t *testing.T) {
	if s, err := ParseScope(" Month "); err != nil || s != ScopeMonth {
		t.Fatalf("ParseScope(Month) = %q, %v", s, err)
	}
	if _, err := ParseScope("fortnight"); err == nil {
		t.Fatal("expected error for unknown scope")
	}
}

func TestWindowContainsIsInclusive(t *testing.T) {
	w := Window{
		Start: time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 12, 23, 59, 59, 0, time.UTC),
	}
	if !w.Contains(w.Start) || !w.Contains(w.End) {
		t.Fatal("window bounds must be contained")
	}
	if w.Contains(w.End.Add(time.Second)) {
		t.Fatal("instant after end must not be contained")
	}
	if !w.ContainsDay(time.Date(2024, 1, 12, 23, 59, 59, 500, time.UTC)) {
		t.Fatal("day comparison must ignore the time of day")
	}
}

func TestFormatDateRange(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
		want       string
	}{
		{
			name:  "single day",
			start: time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
			end:   time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC),
			want:  "on Mon, Jan 15, 2024",
		},
		{
			name:  "same year",
			start: time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2024, 1, 14, 23, 59, 59, 0, time.UTC),
			want:  "Fri, Jan 12 to Sun, Jan 14, 2024",
		},
		{
			name:  "across years",
			start: time.Date(2023, 12, 30, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			want:  "Sat, Dec 30, 2023 to Tue, Jan 2, 2024",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDateRange(tt.start, tt.end, time.UTC); got != tt.want {
				t.Fatalf("FormatDateRange = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestItemID(t *testing.T) {
	id, number, err := ItemID("https://github.com/Acme/Widget/pull/12")
	if err != nil {
		t.Fatalf("ItemID: %v", err)
	}
	if id != "acme/widget#12" || number != 12 {
		t.Fatalf("ItemID = %q, %d", id, number)
	}
	if id, _, _ := ItemID("https://github.com/acme/widget/issues/7"); id != "acme/widget#7" {
		t.Fatalf("issue id = %q", id)
	}
	if _, _, err := ItemID("https://example.com/nothing"); err == nil {
		t.Fatal("expected error for non-github url")
	}
	if got := RepoFullName("https://github.com/acme/widget"); got != "acme/widget" {
		t.Fatalf("RepoFullName = %q", got)
	}
}
