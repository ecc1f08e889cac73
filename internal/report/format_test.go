package report

import (
	"testing"

	"devdigest/internal/domain"
)

func TestTrimTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"[WIP] Fix bug", "Fix bug"},
		{"[g2m] Ship it", "Ship it"},
		{"  [wip]Tidy up  ", "Tidy up"},
		{"Fix [wip] label handling", "Fix [wip] label handling"},
		{"[draft] Keep", "[draft] Keep"},
	}
	for _, tt := range tests {
		if got := TrimTitle(tt.in); got != tt.want {
			t.Errorf("TrimTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStateIcon(t *testing.T) {
	tests := []struct {
		name string
		item domain.WorkItem
		want string
	}{
		{"closed wins over wip", domain.WorkItem{State: domain.StateClosed, Draft: true}, iconDone},
		{"draft", domain.WorkItem{State: domain.StateOpen, Draft: true}, iconWIP},
		{"wip marker anywhere", domain.WorkItem{State: domain.StateOpen, Title: "Refactor [WIP] parser"}, iconWIP},
		{"open", domain.WorkItem{State: domain.StateOpen, Title: "Add feature"}, iconReview},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StateIcon(tt.item); got != tt.want {
				t.Fatalf("StateIcon = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAggregateStates(t *testing.T) {
	closed := domain.WorkItem{State: domain.StateClosed}
	wip := domain.WorkItem{State: domain.StateOpen, Draft: true}
	open := domain.WorkItem{State: domain.StateOpen}

	all := []domain.WorkItem{closed, closed, closed, closed, closed}
	if got := AggregateStates(all); got != " (all done ✔️)" {
		t.Fatalf("all closed = %q", got)
	}

	got := AggregateStates([]domain.WorkItem{closed, wip, open, open})
	want := "\n✔️ Done: 1\n⚠️ WIP: 1\n👀 Needs review: 2"
	if got != want {
		t.Fatalf("AggregateStates = %q, want %q", got, want)
	}

	if got := AggregateStates([]domain.WorkItem{open}); got != "\n👀 Needs review: 1" {
		t.Fatalf("zero buckets must be omitted, got %q", got)
	}

	closedDraft := domain.WorkItem{State: domain.StateClosed, Draft: true}
	if got := AggregateStates([]domain.WorkItem{closedDraft, open}); got != "\n✔️ Done: 1\n👀 Needs review: 1" {
		t.Fatalf("closed drafts must not count as wip, got %q", got)
	}
}

func TestParticipants(t *testing.T) {
	tests := []struct {
		name      string
		author    string
		assignees []string
		want      string
	}{
		{"creator only", "alice", nil, "(alice)"},
		{"self assigned", "alice", []string{"alice"}, "(alice)"},
		{"sorted and deduped", "alice", []string{"carol", "bob", "alice", "carol"}, "(c: alice, a: bob, carol)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Participants(domain.WorkItem{Author: tt.author, Assignees: tt.assignees})
			if got != tt.want {
				t.Fatalf("Participants = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatItem(t *testing.T) {
	pr := domain.WorkItem{
		Kind:   domain.KindPullRequest,
		Number: 12,
		URL:    "https://github.com/acme/widget/pull/12",
		Title:  "[g2m] Add export",
		State:  domain.StateOpen,
		Author: "alice",
	}
	want := "👀 [PR #12](https://github.com/acme/widget/pull/12) Add export (alice)"
	if got := FormatItem(pr); got != want {
		t.Fatalf("FormatItem = %q, want %q", got, want)
	}
	issue := domain.WorkItem{Kind: domain.KindIssue, Number: 3, URL: "u", Title: "Broken"}
	if got := FormatSub(issue); got != "[Issue #3](u) Broken" {
		t.Fatalf("FormatSub = %q", got)
	}
}

func TestFormatActivity(t *testing.T) {
	tests := []struct {
		s    domain.ActivitySummary
		want string
	}{
		{
			domain.ActivitySummary{Kind: domain.ActivityComment, Count: 2, Actors: []string{"bob", "carol"}, RepresentativeURL: "c"},
			"[2 comments](c) - (bob, carol)",
		},
		{
			domain.ActivitySummary{Kind: domain.ActivityReview, Count: 1, Actors: []string{"dave"}, RepresentativeURL: "r"},
			"[1 review](r) - (dave)",
		},
		{
			domain.ActivitySummary{Kind: domain.ActivityCommit, Count: 3, Actors: []string{"alice"}, RepresentativeURL: "p"},
			"[3 updated commits](p)",
		},
	}
	for _, tt := range tests {
		if got := FormatActivity(tt.s); got != tt.want {
			t.Errorf("FormatActivity(%s) = %q, want %q", tt.s.Kind, got, tt.want)
		}
	}
}

func TestCategoryLabel(t *testing.T) {
	if got := CategoryLabel("meta-api"); got != "API" {
		t.Fatalf("CategoryLabel = %q", got)
	}
	if got := CategoryLabel(""); got != "UNCATEGORIZED" {
		t.Fatalf("CategoryLabel(empty) = %q", got)
	}
}
