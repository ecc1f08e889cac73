package classify

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"devdigest/internal/domain"
)

const topicPrefix = "meta-"

// DefaultTeamTopics is the allow-list of repository topics that name an
// owning team.
var DefaultTeamTopics = []string{"meta-data", "meta-product", "meta-design", "meta-mobile"}

// closingRefRe matches GitHub closing keywords followed by an issue
// reference, optionally qualified with owner/repo.
var closingRefRe = regexp.MustCompile(`(?i)\b(?:close[sd]?|fix(?:e[sd])?|resolve[sd]?)\s*:?\s+([\w.-]+/[\w.-]+)?#(\d+)\b`)

type Options struct {
	IgnorePrefixes []string
	BotPrefixes    []string
	TeamTopics     []string
	// TeamFilter drops items owned by another team; items without a team
	// always pass.
	TeamFilter string
	// Labels keeps only items carrying at least one of these labels.
	Labels []string
}

type Result struct {
	Issues []domain.WorkItem
	PRs    []domain.WorkItem
}

// Items turns raw issue and pull request records into work items, dropping
// ignored projects, bot authors, stale pull requests and items owned by a
// team other than opts.TeamFilter.
func Items(raw []domain.RawItem, topicsByRepoURL map[string][]string, opts Options) (Result, error) {
	teamTopics := opts.TeamTopics
	if len(teamTopics) == 0 {
		teamTopics = DefaultTeamTopics
	}

	var res Result
	for _, r := range raw {
		if err := validate(r); err != nil {
			return Result{}, err
		}
		if IgnoredProject(r.Repo.Name, opts.IgnorePrefixes) {
			continue
		}
		if isBot(r.Author, opts.BotPrefixes) {
			continue
		}
		if r.Kind == domain.KindPullRequest && isStale(r) {
			continue
		}
		if len(opts.Labels) > 0 && !hasAnyLabel(r.Labels, opts.Labels) {
			continue
		}

		topics, ok := topicsByRepoURL[r.Repo.URL]
		if !ok {
			topics = r.Repo.Topics
		}
		team, category := DeriveTeamCategory(topics, teamTopics)
		if !TeamMatches(team, opts.TeamFilter) {
			continue
		}

		id, number, err := domain.ItemID(r.URL)
		if err != nil {
			return Result{}, err
		}
		item := domain.WorkItem{
			ID:        id,
			Number:    number,
			Kind:      r.Kind,
			URL:       r.URL,
			Title:     r.Title,
			State:     r.State,
			Draft:     r.Draft,
			Author:    r.Author,
			Assignees: append([]string(nil), r.Assignees...),
			Labels:    append([]string(nil), r.Labels...),
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
			ClosedAt:  r.ClosedAt,
			Repo: domain.RepoRef{
				Name:   r.Repo.Name,
				URL:    r.Repo.URL,
				Topics: append([]string(nil), topics...),
			},
			Team:       team,
			Category:   category,
			LinkedOnly: r.LinkedOnly,
			ActivityTotals: map[domain.ActivityKind]int{
				domain.ActivityComment: r.CommentsTotal,
				domain.ActivityReview:  r.ReviewsTotal,
				domain.ActivityCommit:  r.CommitsTotal,
			},
		}

		if r.Kind == domain.KindPullRequest {
			linked, err := LinkedIDs(r)
			if err != nil {
				return Result{}, err
			}
			item.LinkedIDs = linked
			res.PRs = append(res.PRs, item)
			continue
		}
		res.Issues = append(res.Issues, item)
	}
	return res, nil
}

// Repositories derives team and category for pushed repositories and applies
// the same project and team filters as Items.
func Repositories(repos []domain.Repository, opts Options) []domain.Repository {
	teamTopics := opts.TeamTopics
	if len(teamTopics) == 0 {
		teamTopics = DefaultTeamTopics
	}
	var out []domain.Repository
	for _, repo := range repos {
		if IgnoredProject(repo.Name, opts.IgnorePrefixes) {
			continue
		}
		team, category := DeriveTeamCategory(repo.Topics, teamTopics)
		if !TeamMatches(team, opts.TeamFilter) {
			continue
		}
		repo.Team = team
		repo.Category = category
		out = append(out, repo)
	}
	return out
}

// DeriveTeamCategory picks the owning team and the subject category from
// repository topics. Only "meta-" topics are considered. The team stays
// undefined when zero or exactly two team topics are present.
func DeriveTeamCategory(topics, teamTopics []string) (team, category string) {
	var teams, others []string
	for _, t := range topics {
		t = strings.ToLower(strings.TrimSpace(t))
		if !strings.HasPrefix(t, topicPrefix) {
			continue
		}
		if contains(teamTopics, t) {
			teams = append(teams, t)
		} else {
			others = append(others, t)
		}
	}
	// TODO: confirm with product whether three or more team topics should
	// also leave the team undefined.
	if len(teams) != 0 && len(teams) != 2 {
		team = strings.TrimPrefix(teams[0], topicPrefix)
	}
	if len(others) > 0 {
		category = others[0]
	}
	return team, category
}

// TeamMatches reports whether an item owned by team passes filter.
func TeamMatches(team, filter string) bool {
	if filter == "" || team == "" {
		return true
	}
	return strings.EqualFold(team, filter)
}

// LinkedIDs returns the ids of issues a pull request closes. The structured
// reference list wins over body parsing when the source supplies one.
func LinkedIDs(r domain.RawItem) ([]string, error) {
	var ids []string
	seen := map[string]bool{}
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if r.HasClosingRefs {
		for _, ref := range r.ClosingRefs {
			id, _, err := domain.ItemID(ref)
			if err != nil {
				return nil, fmt.Errorf("closing reference of %s: %w", r.URL, err)
			}
			add(id)
		}
		return ids, nil
	}

	repo := domain.RepoFullName(r.Repo.URL)
	for _, m := range closingRefRe.FindAllStringSubmatch(r.Body, -1) {
		target := repo
		if m[1] != "" {
			target = m[1]
		}
		number, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		add(domain.RepoItemID(target, number))
	}
	return ids, nil
}

// IgnoredProject reports whether a repository belongs to an ignored family.
func IgnoredProject(repoName string, prefixes []string) bool {
	name := strings.ToLower(repoName)
	for _, p := range prefixes {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func isBot(login string, prefixes []string) bool {
	login = strings.ToLower(login)
	for _, p := range prefixes {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && strings.HasPrefix(login, p) {
			return true
		}
	}
	return false
}

// isStale flags closed pull requests whose close day precedes their last
// update day; the search API resurrects these after deletion.
func isStale(r domain.RawItem) bool {
	if r.State != domain.StateClosed {
		return false
	}
	return domain.StartOfDayUTC(r.ClosedAt).Before(domain.StartOfDayUTC(r.UpdatedAt))
}

func validate(r domain.RawItem) error {
	switch {
	case r.URL == "":
		return fmt.Errorf("%w: item without url (title %q)", domain.ErrMalformedItem, r.Title)
	case r.Repo.Name == "" || r.Repo.URL == "":
		return fmt.Errorf("%w: %s has no repository", domain.ErrMalformedItem, r.URL)
	case r.Author == "":
		return fmt.Errorf("%w: %s has no author", domain.ErrMalformedItem, r.URL)
	case r.CreatedAt.IsZero() || r.UpdatedAt.IsZero():
		return fmt.Errorf("%w: %s has no timestamps", domain.ErrMalformedItem, r.URL)
	case r.State == domain.StateClosed && r.ClosedAt.IsZero():
		return fmt.Errorf("%w: %s is closed without closedAt", domain.ErrMalformedItem, r.URL)
	}
	return nil
}

func hasAnyLabel(labels, wanted []string) bool {
	for _, l := range labels {
		for _, w := range wanted {
			if strings.EqualFold(strings.TrimSpace(l), strings.TrimSpace(w)) {
				return true
			}
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
