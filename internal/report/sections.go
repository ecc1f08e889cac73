package report

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"devdigest/internal/domain"
)

const (
	statusPast     = "past"
	statusOngoing  = "ongoing"
	statusUpcoming = "upcoming"
)

// VacationStatus classifies a range of whole days in loc relative to now.
func VacationStatus(r domain.DateRange, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	sy, sm, sd := r.Start.In(loc).Date()
	ey, em, ed := r.End.In(loc).Date()
	firstDay := time.Date(sy, sm, sd, 0, 0, 0, 0, loc)
	afterLastDay := time.Date(ey, em, ed+1, 0, 0, 0, 0, loc)
	switch {
	case !now.Before(afterLastDay):
		return statusPast
	case now.Before(firstDay):
		return statusUpcoming
	default:
		return statusOngoing
	}
}

var identitySplitRe = regexp.MustCompile(`[@.]`)

func shortIdentity(identity string) string {
	return identitySplitRe.Split(identity, 2)[0]
}

// Vacations adds the vacation section. Empty input leaves doc unchanged.
func Vacations(doc Document, vacancies []domain.Vacancy, now time.Time, loc *time.Location) Document {
	var nodes []Node
	var lines []string
	for _, v := range vacancies {
		if len(v.Ranges) == 0 {
			continue
		}
		parts := make([]string, 0, len(v.Ranges))
		for _, r := range v.Ranges {
			status := VacationStatus(r, now, loc)
			m := fmt.Sprintf("%s (%s)", domain.FormatDateRange(r.Start, r.End, loc), status)
			if status == statusOngoing {
				m = "*" + m + "*"
			}
			parts = append(parts, m)
		}
		ranges := strings.Join(parts, ", ")
		nodes = append(nodes, ListItem(0, v.Identity+" - "+ranges))
		lines = append(lines, shortIdentity(v.Identity)+": "+ranges)
	}
	if len(nodes) == 0 {
		return doc
	}
	nodes = append([]Node{Paragraph("Vacations"), Blank()}, nodes...)
	return doc.WithSection(SectionVacations, nodes,
		fmt.Sprintf("%d vacation status\n%s", len(lines), strings.Join(lines, "\n")))
}

// ReleasesInWindow keeps the releases published within w.
func ReleasesInWindow(repos []domain.Repository, w domain.Window) []domain.Repository {
	out := make([]domain.Repository, 0, len(repos))
	for _, r := range repos {
		var kept []domain.Release
		for _, rel := range r.Releases {
			if w.Contains(rel.PublishedAt) {
				kept = append(kept, rel)
			}
		}
		r.Releases = kept
		out = append(out, r)
	}
	return out
}

// Releases adds the release section from repositories whose release lists
// are already limited to the window. It is skipped when none has releases.
func Releases(doc Document, repos []domain.Repository) Document {
	total := 0
	var items []Node
	var lines []string
	for _, r := range repos {
		n := len(r.Releases)
		if n == 0 {
			continue
		}
		total += n
		links := make([]string, 0, n)
		for _, rel := range r.Releases {
			links = append(links, fmt.Sprintf("[%s](%s)", rel.TagName, rel.URL))
		}
		items = append(items, ListItem(0, fmt.Sprintf("%d *%s* %s - %s",
			n, r.Name, plural(n, "release", "releases"), strings.Join(links, ", "))))
		lines = append(lines, fmt.Sprintf("%s: %d", r.Name, n))
	}
	if total == 0 {
		return doc
	}
	nodes := append([]Node{Paragraph(fmt.Sprintf("%d Releases", total)), Blank()}, items...)
	return doc.WithSection(SectionReleases, nodes,
		fmt.Sprintf("%d release(s)\n%s", total, strings.Join(lines, "\n")))
}

// Journals adds one sub-section per person with what they did across the
// window and what they are doing on its last day.
func Journals(doc Document, journals map[string][]domain.JournalEntry, w domain.Window, loc *time.Location) Document {
	if loc == nil {
		loc = time.UTC
	}
	firstDay := w.Start.In(loc).Format(time.DateOnly)
	lastDay := w.End.In(loc).Format(time.DateOnly)

	names := make([]string, 0, len(journals))
	for name := range journals {
		names = append(names, name)
	}
	sort.Strings(names)

	var nodes []Node
	var people []string
	for _, name := range names {
		var did, doing []string
		for _, e := range journals[name] {
			day := e.Date.In(loc).Format(time.DateOnly)
			if day < firstDay || day > lastDay {
				continue
			}
			did = append(did, nonEmpty(e.Did)...)
			if day == lastDay {
				doing = append(doing, nonEmpty(e.Doing)...)
			}
		}
		if len(did) == 0 && len(doing) == 0 {
			continue
		}
		people = append(people, name)
		nodes = append(nodes, Blank(), Heading(3, name))
		if len(did) > 0 {
			nodes = append(nodes, Paragraph("Did:"))
			for _, d := range did {
				nodes = append(nodes, ListItem(0, d))
			}
		}
		if len(doing) > 0 {
			nodes = append(nodes, Paragraph("Doing:"))
			for _, d := range doing {
				nodes = append(nodes, ListItem(0, d))
			}
		}
	}
	if len(people) == 0 {
		return doc
	}
	nodes = append([]Node{Paragraph("*JOURNALS*")}, nodes...)
	return doc.WithSection(SectionJournals, nodes,
		fmt.Sprintf("%d journal(s)\n%s", len(people), strings.Join(people, ", ")))
}

func nonEmpty(items []string) []string {
	var out []string
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
