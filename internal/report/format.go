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
	iconDone   = "✔️"
	iconWIP    = "⚠️"
	iconReview = "👀"

	allDoneMarker = " (all done ✔️)"

	uncategorized = "UNCATEGORIZED"
	otherLabel    = "OTHERS"
)

var leadingTagRe = regexp.MustCompile(`(?i)^\s*\[(?:g2m|wip)\]`)

// TrimTitle strips a leading [g2m] or [wip] marker from a title.
func TrimTitle(title string) string {
	return strings.TrimSpace(leadingTagRe.ReplaceAllString(title, ""))
}

func isWIP(it domain.WorkItem) bool {
	return it.Draft || strings.Contains(strings.ToLower(it.Title), "[wip]")
}

func StateIcon(it domain.WorkItem) string {
	switch {
	case it.IsClosed():
		return iconDone
	case isWIP(it):
		return iconWIP
	default:
		return iconReview
	}
}

type stateCounts struct {
	done, wip, review int
}

func countStates(items []domain.WorkItem) stateCounts {
	var c stateCounts
	for _, it := range items {
		switch {
		case it.IsClosed():
			c.done++
		case isWIP(it):
			c.wip++
		default:
			c.review++
		}
	}
	return c
}

// AggregateStates renders the state breakdown appended to an item count.
func AggregateStates(items []domain.WorkItem) string {
	c := countStates(items)
	if c.done == len(items) {
		return allDoneMarker
	}
	var b strings.Builder
	if c.done > 0 {
		fmt.Fprintf(&b, "\n%s Done: %d", iconDone, c.done)
	}
	if c.wip > 0 {
		fmt.Fprintf(&b, "\n%s WIP: %d", iconWIP, c.wip)
	}
	if c.review > 0 {
		fmt.Fprintf(&b, "\n%s Needs review: %d", iconReview, c.review)
	}
	return b.String()
}

// Participants renders "(creator)" or "(c: creator, a: a1, a2)".
func Participants(it domain.WorkItem) string {
	seen := map[string]bool{}
	var assignees []string
	for _, a := range it.Assignees {
		if a == "" || a == it.Author || seen[a] {
			continue
		}
		seen[a] = true
		assignees = append(assignees, a)
	}
	if len(assignees) == 0 {
		return "(" + it.Author + ")"
	}
	sort.Strings(assignees)
	return fmt.Sprintf("(c: %s, a: %s)", it.Author, strings.Join(assignees, ", "))
}

func itemLink(it domain.WorkItem) string {
	kind := "Issue"
	if it.IsPR() {
		kind = "PR"
	}
	return fmt.Sprintf("[%s #%d](%s)", kind, it.Number, it.URL)
}

// FormatItem composes the top-level line of a work item.
func FormatItem(it domain.WorkItem) string {
	return strings.Join([]string{StateIcon(it), itemLink(it), TrimTitle(it.Title), Participants(it)}, " ")
}

// FormatSub composes the nested line of a linked issue.
func FormatSub(it domain.WorkItem) string {
	return itemLink(it) + " " + TrimTitle(it.Title)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// FormatActivity renders one activity summary line.
func FormatActivity(s domain.ActivitySummary) string {
	var noun string
	switch s.Kind {
	case domain.ActivityComment:
		noun = plural(s.Count, "comment", "comments")
	case domain.ActivityReview:
		noun = plural(s.Count, "review", "reviews")
	case domain.ActivityCommit:
		return fmt.Sprintf("[%d updated %s](%s)", s.Count, plural(s.Count, "commit", "commits"), s.RepresentativeURL)
	default:
		noun = string(s.Kind)
	}
	line := fmt.Sprintf("[%d %s](%s)", s.Count, noun, s.RepresentativeURL)
	if len(s.Actors) > 0 {
		line += " - (" + strings.Join(s.Actors, ", ") + ")"
	}
	return line
}

// CategoryLabel turns a "meta-" category topic into its heading label.
func CategoryLabel(category string) string {
	if category == "" {
		return uncategorized
	}
	return strings.ToUpper(strings.TrimPrefix(category, "meta-"))
}

func uniqueAuthors(items []domain.WorkItem) []string {
	seen := map[string]bool{}
	var out []string
	for _, it := range items {
		if it.Author != "" && !seen[it.Author] {
			seen[it.Author] = true
			out = append(out, it.Author)
		}
	}
	return out
}

// Title composes a digest title for the window, e.g. "Previously - on Mon, Jan 15, 2024".
func Title(prefix string, w domain.Window, loc *time.Location) string {
	return prefix + " - " + domain.FormatDateRange(w.Start, w.End, loc)
}
