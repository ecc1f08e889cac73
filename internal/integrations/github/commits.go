package github

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"devdigest/internal/domain"
)

const commitsPageSize = 100

type commitItem struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Author  *actor `json:"author"`
	Commit  struct {
		Author struct {
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

// Commits lists the commits of one pull request, newest first.
func (c *Client) Commits(ctx context.Context, pr domain.WorkItem) ([]domain.ActivityRecord, error) {
	fullName := domain.RepoFullName(pr.Repo.URL)
	if fullName == "" {
		return nil, fmt.Errorf("%w: repository url %q of %s", domain.ErrMalformedItem, pr.Repo.URL, pr.ID)
	}

	var all []commitItem
	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/repos/%s/pulls/%d/commits?per_page=%d&page=%d",
			c.baseURL, fullName, pr.Number, commitsPageSize, page)
		var batch []commitItem
		if err := c.api.DoJSON(ctx, http.MethodGet, url, nil, &batch); err != nil {
			return nil, fmt.Errorf("listing commits of %s: %w", pr.ID, err)
		}
		all = append(all, batch...)
		if len(batch) < commitsPageSize {
			break
		}
	}
	log.Printf("github commits pr=%s count=%d", pr.ID, len(all))

	out := make([]domain.ActivityRecord, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		ci := all[i]
		out = append(out, domain.ActivityRecord{
			Kind:        domain.ActivityCommit,
			ParentID:    pr.ID,
			AuthorLogin: login(ci.Author),
			URL:         ci.HTMLURL,
			Timestamp:   ci.Commit.Author.Date,
		})
	}
	return out, nil
}
