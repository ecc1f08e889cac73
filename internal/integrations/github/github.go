package github

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"devdigest/internal/domain"
	"devdigest/internal/httpx"
)

const (
	searchPageSize = 100
	botExclusion   = "-author:app/dependabot"
)

// Client reads issues, pull requests, repositories and commits of one
// organization.
type Client struct {
	api     *httpx.Client
	baseURL string
	org     string
}

func NewClient(token, apiURL, org string, requestsPerSecond float64) *Client {
	headers := map[string]string{"Accept": "application/vnd.github+json"}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return &Client{
		api: httpx.New(httpx.Options{
			Service:           "GitHub",
			RequestsPerSecond: requestsPerSecond,
			Burst:             int(requestsPerSecond) + 1,
			Headers:           headers,
		}),
		baseURL: strings.TrimSuffix(apiURL, "/"),
		org:     org,
	}
}

const itemFields = `
  number
  url
  title
  state
  closed
  closedAt
  createdAt
  updatedAt
  body
  author { login }
  assignees(first: 20) { nodes { login } }
  labels(first: 20) { nodes { name } }
  repository { name url repositoryTopics(first: 20) { nodes { topic { name } } } }`

const activityFields = `totalCount nodes { author { login } url createdAt updatedAt }`

var itemsQuery = `query($q: String!, $cursor: String) {
  search(query: $q, type: ISSUE, first: ` + fmt.Sprint(searchPageSize) + `, after: $cursor) {
    pageInfo { hasNextPage endCursor }
    nodes {
      __typename
      ... on Issue {` + itemFields + `
        comments(first: 100, orderBy: {field: UPDATED_AT, direction: DESC}) { ` + activityFields + ` }
      }
      ... on PullRequest {` + itemFields + `
        isDraft
        comments(first: 100, orderBy: {field: UPDATED_AT, direction: DESC}) { ` + activityFields + ` }
        reviews(last: 100) { ` + activityFields + ` }
        commits { totalCount }
        closingIssuesReferences(first: 20) {
          nodes { __typename ` + itemFields + ` }
        }
      }
    }
  }
}`

var reposQuery = `query($q: String!, $cursor: String) {
  search(query: $q, type: REPOSITORY, first: ` + fmt.Sprint(searchPageSize) + `, after: $cursor) {
    pageInfo { hasNextPage endCursor }
    nodes {
      ... on Repository {
        name
        url
        repositoryTopics(first: 20) { nodes { topic { name } } }
        releases(first: 20, orderBy: {field: CREATED_AT, direction: DESC}) {
          nodes { tagName url publishedAt }
        }
      }
    }
  }
}`

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type searchResponse[T any] struct {
	Data struct {
		Search struct {
			PageInfo pageInfo `json:"pageInfo"`
			Nodes    []T      `json:"nodes"`
		} `json:"search"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

type actor struct {
	Login string `json:"login"`
}

type activityNode struct {
	Author    *actor    `json:"author"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type activityConnection struct {
	TotalCount int            `json:"totalCount"`
	Nodes      []activityNode `json:"nodes"`
}

type topicsConnection struct {
	Nodes []struct {
		Topic struct {
			Name string `json:"name"`
		} `json:"topic"`
	} `json:"nodes"`
}

func (t topicsConnection) names() []string {
	out := make([]string, 0, len(t.Nodes))
	for _, n := range t.Nodes {
		out = append(out, n.Topic.Name)
	}
	return out
}

type repositoryNode struct {
	Name             string           `json:"name"`
	URL              string           `json:"url"`
	RepositoryTopics topicsConnection `json:"repositoryTopics"`
	Releases         struct {
		Nodes []struct {
			TagName     string    `json:"tagName"`
			URL         string    `json:"url"`
			PublishedAt time.Time `json:"publishedAt"`
		} `json:"nodes"`
	} `json:"releases"`
}

type itemNode struct {
	Typename  string    `json:"__typename"`
	Number    int       `json:"number"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	IsDraft   bool      `json:"isDraft"`
	Closed    bool      `json:"closed"`
	ClosedAt  time.Time `json:"closedAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Body      string    `json:"body"`
	Author    *actor    `json:"author"`
	Assignees struct {
		Nodes []actor `json:"nodes"`
	} `json:"assignees"`
	Labels struct {
		Nodes []struct {
			Name string `json:"name"`
		} `json:"nodes"`
	} `json:"labels"`
	Repository repositoryNode     `json:"repository"`
	Comments   activityConnection `json:"comments"`
	Reviews    activityConnection `json:"reviews"`
	Commits    struct {
		TotalCount int `json:"totalCount"`
	} `json:"commits"`
	ClosingIssuesReferences *struct {
		Nodes []itemNode `json:"nodes"`
	} `json:"closingIssuesReferences"`
}

func searchQualifier(qualifier string, w domain.Window) string {
	return fmt.Sprintf("%s:%s..%s", qualifier, w.StartISO(), w.EndISO())
}

// SearchItems returns every issue and pull request of the organization
// updated within w, plus the issues those pull requests close.
func (c *Client) SearchItems(ctx context.Context, w domain.Window) ([]domain.RawItem, error) {
	q := fmt.Sprintf("org:%s %s %s", c.org, searchQualifier("updated", w), botExclusion)
	nodes, err := search[itemNode](ctx, c, itemsQuery, q, "item")
	if err != nil {
		return nil, fmt.Errorf("searching issues and pull requests: %w", err)
	}

	var items []domain.RawItem
	seen := make(map[string]bool)
	var closing []itemNode
	for _, n := range nodes {
		kind, ok := mapKind(n.Typename)
		if !ok {
			continue
		}
		if seen[n.URL] {
			continue
		}
		seen[n.URL] = true
		items = append(items, convertItem(n, kind))
		if n.ClosingIssuesReferences != nil {
			closing = append(closing, n.ClosingIssuesReferences.Nodes...)
		}
	}
	for _, n := range closing {
		if seen[n.URL] {
			continue
		}
		seen[n.URL] = true
		issue := convertItem(n, domain.KindIssue)
		issue.LinkedOnly = true
		items = append(items, issue)
	}
	log.Printf("github search items org=%s window=%s count=%d", c.org, w, len(items))
	return items, nil
}

// SearchRepositories returns repositories pushed to within w with their
// recent releases.
func (c *Client) SearchRepositories(ctx context.Context, w domain.Window) ([]domain.Repository, error) {
	q := fmt.Sprintf("org:%s %s", c.org, searchQualifier("pushed", w))
	nodes, err := search[repositoryNode](ctx, c, reposQuery, q, "repository")
	if err != nil {
		return nil, fmt.Errorf("searching repositories: %w", err)
	}

	repos := make([]domain.Repository, 0, len(nodes))
	for _, n := range nodes {
		if n.Name == "" {
			continue
		}
		repo := domain.Repository{
			Name:   n.Name,
			URL:    n.URL,
			Topics: n.RepositoryTopics.names(),
		}
		for _, rel := range n.Releases.Nodes {
			repo.Releases = append(repo.Releases, domain.Release{
				Repository:  n.Name,
				TagName:     rel.TagName,
				URL:         rel.URL,
				PublishedAt: rel.PublishedAt,
			})
		}
		repos = append(repos, repo)
	}
	log.Printf("github search repositories org=%s window=%s count=%d", c.org, w, len(repos))
	return repos, nil
}

func search[T any](ctx context.Context, c *Client, query, q, kind string) ([]T, error) {
	var all []T
	var cursor *string
	for page := 1; ; page++ {
		req := graphqlRequest{
			Query:     query,
			Variables: map[string]any{"q": q, "cursor": cursor},
		}
		var resp searchResponse[T]
		if err := c.api.DoJSON(ctx, http.MethodPost, c.baseURL+"/graphql", req, &resp); err != nil {
			return nil, err
		}
		if len(resp.Errors) > 0 {
			msgs := make([]string, len(resp.Errors))
			for i, e := range resp.Errors {
				msgs[i] = e.Message
			}
			return nil, fmt.Errorf("GitHub GraphQL errors: %s", strings.Join(msgs, "; "))
		}
		result := resp.Data.Search
		all = append(all, result.Nodes...)
		log.Printf("github search kind=%s page=%d count=%d", kind, page, len(result.Nodes))

		if !result.PageInfo.HasNextPage || result.PageInfo.EndCursor == "" {
			break
		}
		next := result.PageInfo.EndCursor
		cursor = &next
	}
	return all, nil
}

func convertItem(n itemNode, kind domain.ItemKind) domain.RawItem {
	item := domain.RawItem{
		Kind:      kind,
		URL:       n.URL,
		Title:     n.Title,
		State:     mapState(n.State, n.Closed),
		Draft:     n.IsDraft,
		Author:    login(n.Author),
		Body:      n.Body,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
		ClosedAt:  n.ClosedAt,
		Repo: domain.RepoRef{
			Name:   n.Repository.Name,
			URL:    n.Repository.URL,
			Topics: n.Repository.RepositoryTopics.names(),
		},
		CommentsTotal: n.Comments.TotalCount,
		ReviewsTotal:  n.Reviews.TotalCount,
		CommitsTotal:  n.Commits.TotalCount,
	}
	for _, a := range n.Assignees.Nodes {
		item.Assignees = append(item.Assignees, a.Login)
	}
	for _, l := range n.Labels.Nodes {
		item.Labels = append(item.Labels, l.Name)
	}

	parentID, _, _ := domain.ItemID(n.URL)
	item.Comments = activityRecords(domain.ActivityComment, parentID, n.Comments.Nodes)
	item.Reviews = activityRecords(domain.ActivityReview, parentID, reversed(n.Reviews.Nodes))

	if kind == domain.KindPullRequest && n.ClosingIssuesReferences != nil {
		item.HasClosingRefs = true
		for _, ref := range n.ClosingIssuesReferences.Nodes {
			item.ClosingRefs = append(item.ClosingRefs, ref.URL)
		}
	}
	return item
}

func activityRecords(kind domain.ActivityKind, parentID string, nodes []activityNode) []domain.ActivityRecord {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]domain.ActivityRecord, 0, len(nodes))
	for _, n := range nodes {
		ts := n.UpdatedAt
		if ts.IsZero() {
			ts = n.CreatedAt
		}
		out = append(out, domain.ActivityRecord{
			Kind:        kind,
			ParentID:    parentID,
			AuthorLogin: login(n.Author),
			URL:         n.URL,
			Timestamp:   ts,
		})
	}
	return out
}

// reversed turns oldest-first connections into newest-first order.
func reversed(nodes []activityNode) []activityNode {
	out := make([]activityNode, len(nodes))
	for i, n := range nodes {
		out[len(nodes)-1-i] = n
	}
	return out
}
