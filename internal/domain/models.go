package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedItem marks a fetched record that lacks a field the pipeline
// depends on. It aborts the run rather than silently dropping the record.
var ErrMalformedItem = errors.New("malformed item")

type ItemKind string

const (
	KindIssue       ItemKind = "Issue"
	KindPullRequest ItemKind = "PullRequest"
)

type ItemState string

const (
	StateOpen   ItemState = "open"
	StateClosed ItemState = "closed"
)

type ActivityKind string

const (
	ActivityComment ActivityKind = "comment"
	ActivityReview  ActivityKind = "review"
	ActivityCommit  ActivityKind = "commit"
)

// ActivityKinds is the fixed rendering order of activity summaries.
var ActivityKinds = []ActivityKind{ActivityComment, ActivityReview, ActivityCommit}

type RepoRef struct {
	Name   string
	URL    string
	Topics []string
}

// Repository is a repository pushed to within the window, with team and
// category derived from its topics.
type Repository struct {
	Name     string
	URL      string
	Topics   []string
	Team     string
	Category string
	Releases []Release
}

type Release struct {
	Repository  string
	TagName     string
	URL         string
	PublishedAt time.Time
}

// RawItem is an issue or pull request as returned by the project-tracking
// source, before classification.
type RawItem struct {
	Kind      ItemKind
	URL       string
	Title     string
	State     ItemState
	Draft     bool
	Author    string
	Assignees []string
	Body      string
	Labels    []string
	CreatedAt time.Time
	UpdatedAt time.Time
	ClosedAt  time.Time
	Repo      RepoRef

	// ClosingRefs holds URLs of issues the source itself reports as closed
	// by this pull request. HasClosingRefs distinguishes an empty structured
	// list from a source that does not provide one.
	ClosingRefs    []string
	HasClosingRefs bool

	// LinkedOnly marks an issue fetched only because an in-window pull
	// request closes it. Such an issue is shown nested under that pull
	// request, never on its own.
	LinkedOnly bool

	Comments      []ActivityRecord
	CommentsTotal int
	Reviews       []ActivityRecord
	ReviewsTotal  int
	CommitsTotal  int
}

// WorkItem is a classified issue or pull request. Team and Category are
// empty when undefined.
type WorkItem struct {
	ID           string
	Number       int
	Kind         ItemKind
	URL          string
	Title        string
	State        ItemState
	Draft        bool
	Author       string
	Assignees    []string
	Labels       []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ClosedAt     time.Time
	Repo         RepoRef
	Team         string
	Category     string
	LinkedIDs    []string
	ReleaseLabel string
	LinkedOnly   bool

	// ActivityTotals are lifetime counts reported by the source.
	ActivityTotals map[ActivityKind]int
	// Activity holds in-window summaries; absent kinds had no activity.
	Activity map[ActivityKind]ActivitySummary
}

func (w WorkItem) IsPR() bool {
	return w.Kind == KindPullRequest
}

func (w WorkItem) IsClosed() bool {
	return w.State == StateClosed
}

// WithActivity returns a copy of w carrying the given summary.
func (w WorkItem) WithActivity(s ActivitySummary) WorkItem {
	next := make(map[ActivityKind]ActivitySummary, len(w.Activity)+1)
	for k, v := range w.Activity {
		next[k] = v
	}
	next[s.Kind] = s
	w.Activity = next
	return w
}

// WithReleaseLabel returns a copy of w tagged with a release label.
func (w WorkItem) WithReleaseLabel(label string) WorkItem {
	w.ReleaseLabel = label
	return w
}

type ActivityRecord struct {
	Kind        ActivityKind
	ParentID    string
	AuthorLogin string
	URL         string
	Timestamp   time.Time
}

type ActivitySummary struct {
	Kind              ActivityKind
	Count             int
	TotalCount        int
	Actors            []string
	RepresentativeURL string
}

// DateRange is one unavailability span, inclusive of both days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

type Vacancy struct {
	Identity string
	Ranges   []DateRange
}

type JournalEntry struct {
	PersonName string
	Date       time.Time
	Did        []string
	Doing      []string
}

// ItemID builds the canonical "owner/repo#number" key from an issue or pull
// request URL such as https://github.com/owner/repo/pull/12.
func ItemID(htmlURL string) (string, int, error) {
	trimmed := strings.TrimSuffix(htmlURL, "/")
	idx := strings.Index(trimmed, "github.com/")
	if idx < 0 {
		return "", 0, fmt.Errorf("%w: unexpected url %q", ErrMalformedItem, htmlURL)
	}
	parts := strings.Split(trimmed[idx+len("github.com/"):], "/")
	if len(parts) < 4 || (parts[2] != "issues" && parts[2] != "pull") {
		return "", 0, fmt.Errorf("%w: unexpected url %q", ErrMalformedItem, htmlURL)
	}
	number, err := strconv.Atoi(parts[3])
	if err != nil {
		return "", 0, fmt.Errorf("%w: unexpected url %q", ErrMalformedItem, htmlURL)
	}
	return RepoItemID(parts[0]+"/"+parts[1], number), number, nil
}

func RepoItemID(fullName string, number int) string {
	return strings.ToLower(fullName) + "#" + strconv.Itoa(number)
}

// RepoFullName extracts "owner/repo" from a repository URL.
func RepoFullName(repoURL string) string {
	trimmed := strings.TrimSuffix(repoURL, "/")
	idx := strings.Index(trimmed, "github.com/")
	if idx < 0 {
		return ""
	}
	parts := strings.Split(trimmed[idx+len("github.com/"):], "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[0] + "/" + parts[1]
}
