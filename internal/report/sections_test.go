package report

import (
	"strings"
	"testing"
	"time"

	"devdigest/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestVacationStatus(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		r    domain.DateRange
		want string
	}{
		{"ended yesterday", domain.DateRange{Start: date(2024, 1, 10), End: date(2024, 1, 14)}, "past"},
		{"single day today", domain.DateRange{Start: date(2024, 1, 15), End: date(2024, 1, 15)}, "ongoing"},
		{"spans today", domain.DateRange{Start: date(2024, 1, 12), End: date(2024, 1, 19)}, "ongoing"},
		{"starts tomorrow", domain.DateRange{Start: date(2024, 1, 16), End: date(2024, 1, 19)}, "upcoming"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VacationStatus(tt.r, now, time.UTC); got != tt.want {
				t.Fatalf("VacationStatus = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVacations(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	vacancies := []domain.Vacancy{
		{Identity: "alice@acme.com", Ranges: []domain.DateRange{
			{Start: date(2024, 1, 15), End: date(2024, 1, 15)},
			{Start: date(2024, 1, 18), End: date(2024, 1, 19)},
		}},
	}
	doc := Vacations(NewDocument("t", "daily"), vacancies, now, time.UTC)
	want := "Vacations\n\n* alice@acme.com - *on Mon, Jan 15, 2024 (ongoing)*, Thu, Jan 18 to Fri, Jan 19, 2024 (upcoming)"
	if got := doc.Markdown(); got != want {
		t.Fatalf("Markdown = %q, want %q", got, want)
	}
	if len(doc.Summary) != 1 || !strings.HasPrefix(doc.Summary[0], "1 vacation status\nalice: ") {
		t.Fatalf("summary = %q", doc.Summary)
	}

	empty := Vacations(NewDocument("t", "daily"), nil, now, time.UTC)
	if empty.HasSection(SectionVacations) || len(empty.Summary) != 0 {
		t.Fatal("no vacancies must leave the document unchanged")
	}
}

func TestReleases(t *testing.T) {
	w := domain.Window{Start: date(2024, 1, 11), End: time.Date(2024, 1, 12, 23, 59, 59, 0, time.UTC)}
	repos := []domain.Repository{
		{Name: "widget", Releases: []domain.Release{
			{TagName: "v1.2.0", URL: "u2", PublishedAt: date(2024, 1, 12)},
			{TagName: "v1.1.0", URL: "u1", PublishedAt: date(2024, 1, 11)},
			{TagName: "v1.0.0", URL: "u0", PublishedAt: date(2024, 1, 2)},
		}},
		{Name: "gadget", Releases: []domain.Release{
			{TagName: "v0.1.0", URL: "g", PublishedAt: date(2024, 1, 12)},
		}},
		{Name: "quiet"},
	}
	doc := Releases(NewDocument("t", "daily"), ReleasesInWindow(repos, w))
	want := "3 Releases\n\n* 2 *widget* releases - [v1.2.0](u2), [v1.1.0](u1)\n* 1 *gadget* release - [v0.1.0](g)"
	if got := doc.Markdown(); got != want {
		t.Fatalf("Markdown = %q, want %q", got, want)
	}
	if doc.Summary[0] != "3 release(s)\nwidget: 2\ngadget: 1" {
		t.Fatalf("summary = %q", doc.Summary[0])
	}

	none := Releases(NewDocument("t", "daily"), []domain.Repository{{Name: "quiet"}})
	if none.HasSection(SectionReleases) {
		t.Fatal("no releases must skip the section")
	}
}

func TestJournals(t *testing.T) {
	w := domain.Window{Start: date(2024, 1, 11), End: time.Date(2024, 1, 12, 23, 59, 59, 0, time.UTC)}
	journals := map[string][]domain.JournalEntry{
		"Bob": {
			{PersonName: "Bob", Date: date(2024, 1, 11), Did: []string{"wrote tests"}, Doing: []string{"stale plan"}},
			{PersonName: "Bob", Date: date(2024, 1, 12), Did: []string{"fixed bug"}, Doing: []string{"release"}},
		},
		"Alice": {
			{PersonName: "Alice", Date: date(2024, 1, 11), Did: []string{"reviewed"}},
		},
		"Carl": {
			{PersonName: "Carl", Date: date(2024, 1, 12), Did: []string{" "}},
		},
	}
	doc := Journals(NewDocument("t", "daily"), journals, w, time.UTC)
	want := strings.Join([]string{
		"*JOURNALS*",
		"",
		"### Alice",
		"Did:",
		"* reviewed",
		"",
		"### Bob",
		"Did:",
		"* wrote tests",
		"* fixed bug",
		"Doing:",
		"* release",
	}, "\n")
	if got := doc.Markdown(); got != want {
		t.Fatalf("Markdown mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
	if doc.Summary[0] != "2 journal(s)\nAlice, Bob" {
		t.Fatalf("summary = %q", doc.Summary[0])
	}

	empty := Journals(NewDocument("t", "daily"), nil, w, time.UTC)
	if empty.HasSection(SectionJournals) {
		t.Fatal("no journals must skip the section")
	}
}

func TestTitle(t *testing.T) {
	w := domain.Window{Start: date(2024, 1, 15), End: time.Date(2024, 1, 15, 23, 59, 59, 0, time.UTC)}
	if got := Title("Previously", w, time.UTC); got != "Previously - on Mon, Jan 15, 2024" {
		t.Fatalf("Title = %q", got)
	}
}
