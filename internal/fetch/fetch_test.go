package fetch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"devdigest/internal/domain"
)

type fakeItems struct {
	items    []domain.RawItem
	repos    []domain.Repository
	itemsErr error
}

func (f *fakeItems) SearchItems(ctx context.Context, w domain.Window) ([]domain.RawItem, error) {
	return f.items, f.itemsErr
}

func (f *fakeItems) SearchRepositories(ctx context.Context, w domain.Window) ([]domain.Repository, error) {
	return f.repos, nil
}

type fakeVacancies struct {
	after, before      time.Time
	blockUntilCanceled bool
}

func (f *fakeVacancies) Vacancies(ctx context.Context, after, before time.Time) ([]domain.Vacancy, error) {
	f.after, f.before = after, before
	if f.blockUntilCanceled {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return []domain.Vacancy{{Identity: "alice@example.com"}}, nil
}

type fakeJournals struct{}

func (fakeJournals) Journals(ctx context.Context, w domain.Window, loc *time.Location) (map[string][]domain.JournalEntry, error) {
	return map[string][]domain.JournalEntry{"Bob": {{PersonName: "Bob"}}}, nil
}

func window() domain.Window {
	return domain.Window{
		Start: time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 12, 23, 59, 59, 0, time.UTC),
	}
}

func TestCollectJoinsAllBranches(t *testing.T) {
	vac := &fakeVacancies{}
	after := time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)
	before := time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC)
	src := Sources{
		Items: &fakeItems{
			items: []domain.RawItem{{URL: "https://github.com/a/b/pull/1"}},
			repos: []domain.Repository{{Name: "b", Releases: []domain.Release{{TagName: "v1"}}}},
		},
		Vacancies: vac,
		Journals:  fakeJournals{},
	}
	res, err := Collect(context.Background(), src, Request{Window: window(), VacationAfter: after, VacationBefore: before})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(res.Items) != 1 || len(res.Repos) != 1 || len(res.Vacancies) != 1 || len(res.Journals) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !vac.after.Equal(after) || !vac.before.Equal(before) {
		t.Fatalf("vacancy bounds = %s..%s", vac.after, vac.before)
	}
	if got := FormatFetchSummary(res); got != "items=1 repos=1 releases=1 vacancies=1 journals=1" {
		t.Fatalf("summary = %q", got)
	}
}

func TestCollectOptionalSources(t *testing.T) {
	res, err := Collect(context.Background(), Sources{Items: &fakeItems{}}, Request{Window: window()})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if res.Vacancies != nil || res.Journals != nil {
		t.Fatalf("skipped branches must stay empty: %+v", res)
	}
	if _, err := Collect(context.Background(), Sources{}, Request{}); err == nil {
		t.Fatal("missing item source must fail")
	}
}

func TestCollectFailsFast(t *testing.T) {
	boom := errors.New("github down")
	src := Sources{
		Items:     &fakeItems{itemsErr: boom},
		Vacancies: &fakeVacancies{blockUntilCanceled: true},
	}
	_, err := Collect(context.Background(), src, Request{Window: window()})
	if !errors.Is(err, boom) {
		t.Fatalf("expected github failure, got %v", err)
	}
}

type fakeCommits struct {
	mu     sync.Mutex
	calls  []string
	byPR   map[string][]domain.ActivityRecord
	failOn string
}

func (f *fakeCommits) Commits(ctx context.Context, pr domain.WorkItem) ([]domain.ActivityRecord, error) {
	f.mu.Lock()
	f.calls = append(f.calls, pr.ID)
	f.mu.Unlock()
	if pr.ID == f.failOn {
		return nil, errors.New("commits unavailable")
	}
	return f.byPR[pr.ID], nil
}

func at(day, hour int) time.Time {
	return time.Date(2024, 1, day, hour, 0, 0, 0, time.UTC)
}

func enrichFixture() ([]domain.RawItem, []domain.WorkItem, *fakeCommits) {
	pr := domain.WorkItem{
		ID:        "a/b#1",
		Kind:      domain.KindPullRequest,
		State:     domain.StateOpen,
		CreatedAt: at(10, 9),
		UpdatedAt: at(12, 9),
		ActivityTotals: map[domain.ActivityKind]int{
			domain.ActivityComment: 2,
			domain.ActivityReview:  1,
			domain.ActivityCommit:  1,
		},
	}
	quiet := domain.WorkItem{
		ID:             "a/b#2",
		Kind:           domain.KindPullRequest,
		ActivityTotals: map[domain.ActivityKind]int{},
	}
	raw := []domain.RawItem{{
		Comments: []domain.ActivityRecord{
			{Kind: domain.ActivityComment, ParentID: "a/b#1", AuthorLogin: "carol", URL: "c2", Timestamp: at(12, 8)},
			{Kind: domain.ActivityComment, ParentID: "a/b#1", AuthorLogin: "dave", URL: "c1", Timestamp: at(9, 8)},
		},
		Reviews: []domain.ActivityRecord{
			{Kind: domain.ActivityReview, ParentID: "a/b#1", AuthorLogin: "erin", URL: "r1", Timestamp: at(11, 8)},
		},
	}}
	commits := &fakeCommits{byPR: map[string][]domain.ActivityRecord{
		"a/b#1": {{Kind: domain.ActivityCommit, ParentID: "a/b#1", AuthorLogin: "alice", URL: "k1", Timestamp: at(10, 9)}},
	}}
	return raw, []domain.WorkItem{pr, quiet}, commits
}

func TestEnrichAttachesAllKinds(t *testing.T) {
	raw, items, commits := enrichFixture()
	got, err := Enrich(context.Background(), commits, raw, items, window(), Skips{})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if len(commits.calls) != 1 || commits.calls[0] != "a/b#1" {
		t.Fatalf("only PRs reporting commits are fetched, calls = %v", commits.calls)
	}
	act := got[0].Activity
	if c := act[domain.ActivityComment]; c.Count != 1 || c.TotalCount != 2 || c.Actors[0] != "carol" {
		t.Fatalf("comments = %+v", c)
	}
	if r := act[domain.ActivityReview]; r.Count != 1 || r.RepresentativeURL != "r1" {
		t.Fatalf("reviews = %+v", r)
	}
	if k := act[domain.ActivityCommit]; k.Count != 1 {
		t.Fatalf("commit on the creation day must be accepted: %+v", k)
	}
	if len(got[1].Activity) != 0 {
		t.Fatalf("quiet PR must have no activity: %+v", got[1].Activity)
	}
	if items[0].Activity != nil {
		t.Fatal("input items must not be mutated")
	}
}

func TestEnrichHonorsSkips(t *testing.T) {
	raw, items, commits := enrichFixture()
	got, err := Enrich(context.Background(), commits, raw, items, window(), Skips{Comments: true, Commits: true})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if len(commits.calls) != 0 {
		t.Fatalf("skipped commits must not be fetched, calls = %v", commits.calls)
	}
	act := got[0].Activity
	if _, ok := act[domain.ActivityComment]; ok {
		t.Fatal("comments must be skipped")
	}
	if _, ok := act[domain.ActivityCommit]; ok {
		t.Fatal("commits must be skipped")
	}
	if _, ok := act[domain.ActivityReview]; !ok {
		t.Fatal("reviews must still be attached")
	}
}

func TestEnrichPropagatesCommitFailure(t *testing.T) {
	raw, items, commits := enrichFixture()
	commits.failOn = "a/b#1"
	if _, err := Enrich(context.Background(), commits, raw, items, window(), Skips{}); err == nil {
		t.Fatal("expected failure")
	}
}
