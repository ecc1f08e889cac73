package fetch

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"devdigest/internal/activity"
	"devdigest/internal/domain"
)

// maxCommitFetches bounds in-flight commit listings; the source client
// paces the actual requests.
const maxCommitFetches = 8

type Skips struct {
	Comments bool
	Reviews  bool
	Commits  bool
}

func (s Skips) skips(kind domain.ActivityKind) bool {
	switch kind {
	case domain.ActivityComment:
		return s.Comments
	case domain.ActivityReview:
		return s.Reviews
	case domain.ActivityCommit:
		return s.Commits
	}
	return false
}

// Enrich attaches in-window activity summaries to items. Comment and review
// records come with the raw items; commits are listed per pull request that
// reports any. Skipped kinds are neither fetched nor attached.
func Enrich(ctx context.Context, commits CommitSource, raw []domain.RawItem, items []domain.WorkItem, w domain.Window, skip Skips) ([]domain.WorkItem, error) {
	records := map[domain.ActivityKind][]domain.ActivityRecord{}
	for _, r := range raw {
		records[domain.ActivityComment] = append(records[domain.ActivityComment], r.Comments...)
		records[domain.ActivityReview] = append(records[domain.ActivityReview], r.Reviews...)
	}

	if !skip.Commits && commits != nil {
		fetched, err := fetchCommits(ctx, commits, items)
		if err != nil {
			return nil, err
		}
		records[domain.ActivityCommit] = fetched
	}

	out := items
	for _, kind := range domain.ActivityKinds {
		if skip.skips(kind) {
			continue
		}
		summaries := activity.Aggregate(kind, records[kind], out, w)
		out = activity.Attach(out, summaries)
		log.Printf("activity kind=%s parents=%d records=%d", kind, len(summaries), len(records[kind]))
	}
	return out, nil
}

func fetchCommits(ctx context.Context, src CommitSource, items []domain.WorkItem) ([]domain.ActivityRecord, error) {
	var parents []domain.WorkItem
	for _, it := range items {
		if it.IsPR() && activity.NeedsFetch(it, domain.ActivityCommit) {
			parents = append(parents, it)
		}
	}
	perParent := make([][]domain.ActivityRecord, len(parents))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxCommitFetches)
	for i, pr := range parents {
		g.Go(func() error {
			recs, err := src.Commits(gctx, pr)
			if err != nil {
				return err
			}
			perParent[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []domain.ActivityRecord
	for _, recs := range perParent {
		all = append(all, recs...)
	}
	return all, nil
}
