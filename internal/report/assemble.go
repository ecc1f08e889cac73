package report

import (
	"fmt"
	"sort"
	"strings"

	"devdigest/internal/domain"
)

// Options is passed once into the assembler.
type Options struct {
	SkipComments bool
	SkipReviews  bool
	SkipCommits  bool
	// OnlyClosed keeps only closed items in the primary list.
	OnlyClosed bool
	// GroupByLabel sub-groups items of a project under their release label.
	GroupByLabel bool
}

func (o Options) skips(kind domain.ActivityKind) bool {
	switch kind {
	case domain.ActivityComment:
		return o.SkipComments
	case domain.ActivityReview:
		return o.SkipReviews
	case domain.ActivityCommit:
		return o.SkipCommits
	}
	return false
}

// PrimaryItems returns the items eligible for top-level display: every pull
// request plus every issue no pull request links to. Linked-only issues are
// never promoted, even when their pull request was filtered out.
func PrimaryItems(issues, prs []domain.WorkItem, onlyClosed bool) []domain.WorkItem {
	linked := map[string]bool{}
	for _, pr := range prs {
		for _, id := range pr.LinkedIDs {
			linked[id] = true
		}
	}
	var out []domain.WorkItem
	for _, pr := range prs {
		if !onlyClosed || pr.IsClosed() {
			out = append(out, pr)
		}
	}
	for _, is := range issues {
		if linked[is.ID] || is.LinkedOnly {
			continue
		}
		if !onlyClosed || is.IsClosed() {
			out = append(out, is)
		}
	}
	return out
}

// LoneRepos returns repositories with no primary items, in input order.
func LoneRepos(repos []domain.Repository, primary []domain.WorkItem) []domain.Repository {
	projects := map[string]bool{}
	for _, it := range primary {
		projects[it.Repo.Name] = true
	}
	var out []domain.Repository
	for _, r := range repos {
		if !projects[r.Name] {
			out = append(out, r)
		}
	}
	return out
}

// Assemble groups primary items by category and project and renders the
// digest body section into doc.
func Assemble(doc Document, repos []domain.Repository, issues, prs []domain.WorkItem, opts Options) Document {
	primary := PrimaryItems(issues, prs, opts.OnlyClosed)
	lone := LoneRepos(repos, primary)

	var nodes []Node
	var summary []string

	if len(lone) > 0 {
		loneNodes, loneSummary := loneRepoSection(lone)
		nodes = append(nodes, loneNodes...)
		summary = append(summary, loneSummary)
	}

	if len(primary) > 0 {
		header := fmt.Sprintf("%d PR/issues updates%s", len(primary), AggregateStates(primary))
		nodes = append(nodes, Paragraph(header))
		nodes = append(nodes, groupedItems(primary, issues, opts)...)
		summary = append(summary, header)
	}

	if len(nodes) == 0 {
		return doc
	}
	return doc.WithSection(SectionDigest, nodes, summary...)
}

func loneRepoSection(lone []domain.Repository) ([]Node, string) {
	byCategory := map[string][]domain.Repository{}
	var categories []string
	for _, r := range lone {
		label := CategoryLabel(r.Category)
		if _, ok := byCategory[label]; !ok {
			categories = append(categories, label)
		}
		byCategory[label] = append(byCategory[label], r)
	}
	sort.Strings(categories)

	nodes := []Node{Paragraph(fmt.Sprintf("%d Lone Repo updates", len(lone)))}
	var names []string
	for _, label := range categories {
		links := make([]string, 0, len(byCategory[label]))
		for _, r := range byCategory[label] {
			links = append(links, fmt.Sprintf("[%s](%s)", r.Name, r.URL))
			names = append(names, r.Name)
		}
		nodes = append(nodes, ListItem(0, label+" - "+strings.Join(links, ", ")))
	}
	nodes = append(nodes, Blank())
	return nodes, fmt.Sprintf("%d Lone Repo updates\n* %s", len(lone), strings.Join(names, "\n* "))
}

type projectGroup struct {
	name  string
	items []domain.WorkItem
}

type categoryGroup struct {
	label    string
	projects []*projectGroup
}

func groupByCategoryProject(items []domain.WorkItem) []*categoryGroup {
	var groups []*categoryGroup
	byLabel := map[string]*categoryGroup{}
	byProject := map[string]*projectGroup{}
	for _, it := range items {
		label := CategoryLabel(it.Category)
		cg, ok := byLabel[label]
		if !ok {
			cg = &categoryGroup{label: label}
			byLabel[label] = cg
			groups = append(groups, cg)
		}
		key := label + "\x00" + it.Repo.Name
		pg, ok := byProject[key]
		if !ok {
			pg = &projectGroup{name: it.Repo.Name}
			byProject[key] = pg
			cg.projects = append(cg.projects, pg)
		}
		pg.items = append(pg.items, it)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].label < groups[j].label })
	for _, cg := range groups {
		sort.SliceStable(cg.projects, func(i, j int) bool { return cg.projects[i].name < cg.projects[j].name })
	}
	return groups
}

func groupedItems(primary, issues []domain.WorkItem, opts Options) []Node {
	issuesByID := make(map[string]domain.WorkItem, len(issues))
	for _, is := range issues {
		issuesByID[is.ID] = is
	}
	nested := map[string]bool{}

	var nodes []Node
	for _, cg := range groupByCategoryProject(primary) {
		nodes = append(nodes, Blank(), Heading(1, cg.label))
		for _, pg := range cg.projects {
			heading := pg.name
			if authors := uniqueAuthors(pg.items); len(authors) > 0 {
				heading += " - (" + strings.Join(authors, ", ") + ")"
			}
			nodes = append(nodes, Heading(2, heading))

			if !opts.GroupByLabel {
				for _, it := range pg.items {
					nodes = append(nodes, itemNodes(it, issuesByID, nested, opts)...)
				}
				continue
			}
			for _, lg := range groupByLabel(pg.items) {
				nodes = append(nodes, Paragraph("`"+lg.name+"`"))
				for _, it := range lg.items {
					nodes = append(nodes, itemNodes(it, issuesByID, nested, opts)...)
				}
			}
		}
	}
	return nodes
}

func groupByLabel(items []domain.WorkItem) []*projectGroup {
	var out []*projectGroup
	byName := map[string]*projectGroup{}
	for _, it := range items {
		label := it.ReleaseLabel
		if label == "" {
			label = otherLabel
		}
		g, ok := byName[label]
		if !ok {
			g = &projectGroup{name: label}
			byName[label] = g
			out = append(out, g)
		}
		g.items = append(g.items, it)
	}
	return out
}

// itemNodes renders an item, the linked issues nested under it and its own
// activity. A linked issue is nested under the first pull request that
// references it only.
func itemNodes(it domain.WorkItem, issuesByID map[string]domain.WorkItem, nested map[string]bool, opts Options) []Node {
	nodes := []Node{ListItem(0, FormatItem(it))}
	for _, id := range it.LinkedIDs {
		sub, ok := issuesByID[id]
		if !ok || nested[id] {
			continue
		}
		nested[id] = true
		nodes = append(nodes, ListItem(1, FormatSub(sub)))
		nodes = append(nodes, activityNodes(sub, 2, opts)...)
	}
	return append(nodes, activityNodes(it, 1, opts)...)
}

func activityNodes(it domain.WorkItem, depth int, opts Options) []Node {
	var nodes []Node
	for _, kind := range domain.ActivityKinds {
		if opts.skips(kind) {
			continue
		}
		s, ok := it.Activity[kind]
		if !ok || s.Count == 0 {
			continue
		}
		nodes = append(nodes, ListItem(depth, FormatActivity(s)))
	}
	return nodes
}
