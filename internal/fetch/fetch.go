package fetch

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"devdigest/internal/domain"
)

// ItemSource is the project-tracking source of issues, pull requests and
// repositories.
type ItemSource interface {
	SearchItems(ctx context.Context, w domain.Window) ([]domain.RawItem, error)
	SearchRepositories(ctx context.Context, w domain.Window) ([]domain.Repository, error)
}

type CommitSource interface {
	Commits(ctx context.Context, pr domain.WorkItem) ([]domain.ActivityRecord, error)
}

type VacancySource interface {
	Vacancies(ctx context.Context, after, before time.Time) ([]domain.Vacancy, error)
}

type JournalSource interface {
	Journals(ctx context.Context, w domain.Window, loc *time.Location) (map[string][]domain.JournalEntry, error)
}

// Sources holds the collaborators of one run. Vacancies and Journals are
// optional; nil skips that branch.
type Sources struct {
	Items     ItemSource
	Vacancies VacancySource
	Journals  JournalSource
}

type Request struct {
	Window   domain.Window
	Location *time.Location
	// VacationAfter and VacationBefore bound the vacancy search.
	VacationAfter  time.Time
	VacationBefore time.Time
}

// FetchResult is the joined output of all top-level fetches.
type FetchResult struct {
	Items     []domain.RawItem
	Repos     []domain.Repository
	Vacancies []domain.Vacancy
	Journals  map[string][]domain.JournalEntry
}

// Collect runs the four top-level fetches concurrently. The first failure
// cancels the others and is returned; no partial result is produced.
func Collect(ctx context.Context, src Sources, req Request) (FetchResult, error) {
	if src.Items == nil {
		return FetchResult{}, fmt.Errorf("no item source configured")
	}

	var res FetchResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := src.Items.SearchItems(gctx, req.Window)
		if err != nil {
			return fmt.Errorf("fetching items: %w", err)
		}
		res.Items = items
		return nil
	})
	g.Go(func() error {
		repos, err := src.Items.SearchRepositories(gctx, req.Window)
		if err != nil {
			return fmt.Errorf("fetching repositories: %w", err)
		}
		res.Repos = repos
		return nil
	})
	if src.Vacancies != nil {
		g.Go(func() error {
			vacancies, err := src.Vacancies.Vacancies(gctx, req.VacationAfter, req.VacationBefore)
			if err != nil {
				return fmt.Errorf("fetching vacancies: %w", err)
			}
			res.Vacancies = vacancies
			return nil
		})
	}
	if src.Journals != nil {
		g.Go(func() error {
			journals, err := src.Journals.Journals(gctx, req.Window, req.Location)
			if err != nil {
				return fmt.Errorf("fetching journals: %w", err)
			}
			res.Journals = journals
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("fetch failed window=%s: %v", req.Window, err)
		return FetchResult{}, err
	}
	log.Printf("fetch complete window=%s %s", req.Window, FormatFetchSummary(res))
	return res, nil
}

// FormatFetchSummary returns a one-line count of what was fetched.
func FormatFetchSummary(res FetchResult) string {
	var releases int
	for _, r := range res.Repos {
		releases += len(r.Releases)
	}
	parts := []string{
		fmt.Sprintf("items=%d", len(res.Items)),
		fmt.Sprintf("repos=%d", len(res.Repos)),
		fmt.Sprintf("releases=%d", releases),
		fmt.Sprintf("vacancies=%d", len(res.Vacancies)),
		fmt.Sprintf("journals=%d", len(res.Journals)),
	}
	return strings.Join(parts, " ")
}
