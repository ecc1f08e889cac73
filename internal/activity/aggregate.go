package activity

import (
	"devdigest/internal/domain"
)

// NeedsFetch reports whether the source reported any lifetime activity of
// kind on parent. Parents without any are never enriched.
func NeedsFetch(parent domain.WorkItem, kind domain.ActivityKind) bool {
	return parent.ActivityTotals[kind] > 0
}

// Accept decides whether one activity record belongs to the window.
//
// Comments and reviews must fall inside the window. Commits are compared by
// calendar day and are also accepted when they share a day with the
// parent's creation or last update, or when the parent is closed, the
// commit is on or after the close day, and the close day is not before the
// last update day.
func Accept(kind domain.ActivityKind, rec domain.ActivityRecord, parent domain.WorkItem, w domain.Window) bool {
	if kind != domain.ActivityCommit {
		return w.Contains(rec.Timestamp)
	}
	committed := domain.StartOfDayUTC(rec.Timestamp)
	if w.ContainsDay(committed) {
		return true
	}
	if domain.SameDayUTC(committed, parent.CreatedAt) || domain.SameDayUTC(committed, parent.UpdatedAt) {
		return true
	}
	if parent.IsClosed() {
		closed := domain.StartOfDayUTC(parent.ClosedAt)
		updated := domain.StartOfDayUTC(parent.UpdatedAt)
		return !committed.Before(closed) && !closed.Before(updated)
	}
	return false
}

// Aggregate summarizes records of one kind per parent. Records are expected
// in the source's default (newest first) order. Parents without accepted
// records get no entry.
func Aggregate(kind domain.ActivityKind, records []domain.ActivityRecord, parents []domain.WorkItem, w domain.Window) map[string]domain.ActivitySummary {
	byParent := make(map[string][]domain.ActivityRecord)
	for _, rec := range records {
		byParent[rec.ParentID] = append(byParent[rec.ParentID], rec)
	}

	out := make(map[string]domain.ActivitySummary)
	for _, parent := range parents {
		if !NeedsFetch(parent, kind) {
			continue
		}
		var (
			count  int
			actors []string
			last   string
		)
		seen := map[string]bool{}
		for _, rec := range byParent[parent.ID] {
			if !Accept(kind, rec, parent, w) {
				continue
			}
			count++
			last = rec.URL
			if rec.AuthorLogin != "" && !seen[rec.AuthorLogin] {
				seen[rec.AuthorLogin] = true
				actors = append(actors, rec.AuthorLogin)
			}
		}
		if count == 0 {
			continue
		}
		out[parent.ID] = domain.ActivitySummary{
			Kind:              kind,
			Count:             count,
			TotalCount:        parent.ActivityTotals[kind],
			Actors:            actors,
			RepresentativeURL: last,
		}
	}
	return out
}

// Attach returns copies of items carrying their summaries.
func Attach(items []domain.WorkItem, summaries map[string]domain.ActivitySummary) []domain.WorkItem {
	out := make([]domain.WorkItem, len(items))
	for i, item := range items {
		if s, ok := summaries[item.ID]; ok {
			item = item.WithActivity(s)
		}
		out[i] = item
	}
	return out
}
