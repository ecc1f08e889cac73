package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"devdigest/internal/classify"
	"devdigest/internal/config"
	"devdigest/internal/domain"
	"devdigest/internal/fetch"
	"devdigest/internal/integrations/asana"
	"devdigest/internal/integrations/github"
	"devdigest/internal/integrations/llm"
	"devdigest/internal/integrations/notion"
	slackbot "devdigest/internal/integrations/slack"
	"devdigest/internal/render"
	"devdigest/internal/report"
	"devdigest/internal/storage/sqlite"
)

type Kind string

const (
	KindDaily  Kind = "daily"
	KindWeekly Kind = "weekly"
	KindRange  Kind = "range"
)

// Params describes one digest run.
type Params struct {
	Kind     Kind
	Ref      time.Time
	Team     string
	Scope    domain.Scope
	Labels   []string
	Raw      bool
	DryRun   bool
	Location *time.Location
}

type labeler interface {
	Label(ctx context.Context, items []domain.WorkItem) ([]domain.WorkItem, llm.LLMUsage, error)
}

type notifier interface {
	Notify(ctx context.Context, title, url string, summary []string) error
}

// Runner produces digests from its collaborators. Optional collaborators
// are nil when not configured.
type Runner struct {
	cfg       config.Config
	items     fetch.ItemSource
	commits   fetch.CommitSource
	vacancies fetch.VacancySource
	journals  fetch.JournalSource
	labeler   labeler
	notifier  notifier
	openStore func() (render.Store, func() error, error)
	out       io.Writer
	now       func() time.Time
}

func NewRunner(cfg config.Config, out io.Writer) *Runner {
	gh := github.NewClient(cfg.GitHubToken, cfg.GitHubAPIURL, cfg.GitHubOrg, cfg.GitHubRequestsPerSecond)
	r := &Runner{cfg: cfg, items: gh, commits: gh, out: out, now: time.Now}

	if cfg.AsanaConfigured() {
		r.vacancies = asana.NewClient(asana.Options{
			Token:             cfg.AsanaToken,
			APIURL:            cfg.AsanaAPIURL,
			Workspace:         cfg.AsanaWorkspace,
			Project:           cfg.AsanaProject,
			Section:           cfg.AsanaSection,
			RequestsPerMinute: cfg.AsanaRequestsPerMinute,
			Location:          cfg.Location,
		})
	}

	journals := make([]notion.Database, 0, len(cfg.NotionJournalDatabases))
	for _, db := range cfg.NotionJournalDatabases {
		journals = append(journals, notion.Database{Name: db.Name, ID: db.ID})
	}
	nc := notion.NewClient(notion.Options{
		Token:             cfg.NotionToken,
		APIURL:            cfg.NotionAPIURL,
		DatabaseID:        cfg.NotionDatabaseID,
		Journals:          journals,
		RequestsPerSecond: cfg.NotionRequestsPerSecond,
	})
	if cfg.JournalsConfigured() {
		r.journals = nc
	}

	if cfg.SlackConfigured() {
		r.notifier = slackbot.NewNotifier(cfg.SlackBotToken, cfg.SlackChannel, cfg.SlackAPIURL)
	}
	if cfg.LLMLabelsEnabled {
		r.labeler = llm.NewLabeler(cfg.AnthropicAPIKey, cfg.LLMModel)
	}

	r.openStore = func() (render.Store, func() error, error) {
		if cfg.PublishTarget == config.PublishSQLite {
			store, err := sqlite.Open(cfg.SQLitePath)
			if err != nil {
				return nil, nil, err
			}
			return store, store.Close, nil
		}
		return nc, func() error { return nil }, nil
	}
	return r
}

// rawDigest is the --raw output: everything the digest would be built from.
type rawDigest struct {
	Window    domain.Window                     `json:"window"`
	Repos     []domain.Repository              `json:"repos"`
	Releases  []domain.Repository              `json:"releases"`
	Issues    []domain.WorkItem                `json:"issues"`
	PRs       []domain.WorkItem                `json:"prs"`
	Vacancies []domain.Vacancy                 `json:"vacancies,omitempty"`
	Journals  map[string][]domain.JournalEntry `json:"journals,omitempty"`
}

// Run builds one digest and, unless Raw or DryRun is set, publishes it and
// announces it. The published URL is written to out.
func (r *Runner) Run(ctx context.Context, p Params) error {
	loc := p.Location
	if loc == nil {
		loc = r.cfg.Location
	}
	if loc == nil {
		loc = time.UTC
	}
	if !p.Raw && !p.DryRun {
		if err := r.cfg.CheckPublish(); err != nil {
			return err
		}
	}

	scope := p.Scope
	switch p.Kind {
	case KindDaily:
		scope = domain.ScopeDaily
	case KindWeekly:
		scope = domain.ScopeWeekly
	}
	w, err := domain.ResolveWindow(p.Ref, scope, loc)
	if err != nil {
		return err
	}
	title, tag := digestTitle(p, w, loc)
	log.Printf("digest start kind=%s title=%q window=%s", p.Kind, title, w)

	src := fetch.Sources{Items: r.items}
	req := fetch.Request{Window: w, Location: loc}
	if p.Kind != KindRange {
		src.Journals = r.journals
		if r.vacancies != nil {
			src.Vacancies = r.vacancies
			from := w.Start
			if p.Kind == KindDaily {
				y, m, d := p.Ref.In(loc).Date()
				from = time.Date(y, m, d, 0, 0, 0, 0, loc)
			}
			req.VacationAfter, req.VacationBefore = asana.LookAhead(from, p.Ref, loc)
		}
	}
	res, err := fetch.Collect(ctx, src, req)
	if err != nil {
		return err
	}

	opts := classify.Options{
		IgnorePrefixes: r.cfg.IgnoreProjectPrefixes,
		BotPrefixes:    r.cfg.BotLoginPrefixes,
		TeamTopics:     r.cfg.TeamTopics,
		TeamFilter:     p.Team,
		Labels:         p.Labels,
	}
	topics := make(map[string][]string, len(res.Repos))
	for _, repo := range res.Repos {
		topics[repo.URL] = repo.Topics
	}
	repos := classify.Repositories(res.Repos, opts)
	classified, err := classify.Items(res.Items, topics, opts)
	if err != nil {
		return err
	}

	skips := fetch.Skips{Comments: r.cfg.SkipComments, Reviews: r.cfg.SkipReviews, Commits: r.cfg.SkipCommits}
	all := append(append([]domain.WorkItem(nil), classified.Issues...), classified.PRs...)
	all, err = fetch.Enrich(ctx, r.commits, res.Items, all, w, skips)
	if err != nil {
		return err
	}

	groupByLabel := false
	if p.Kind == KindRange && r.labeler != nil {
		labeled, usage, err := r.labeler.Label(ctx, all)
		if err != nil {
			return fmt.Errorf("labeling items: %w", err)
		}
		log.Printf("llm release-label items=%d input_tokens=%d output_tokens=%d", len(labeled), usage.InputTokens, usage.OutputTokens)
		all = labeled
		groupByLabel = true
	}
	issues, prs := splitKinds(all)
	releases := report.ReleasesInWindow(repos, w)

	if p.Raw {
		enc := json.NewEncoder(r.out)
		return enc.Encode(rawDigest{
			Window:    w,
			Repos:     repos,
			Releases:  releases,
			Issues:    issues,
			PRs:       prs,
			Vacancies: res.Vacancies,
			Journals:  res.Journals,
		})
	}

	doc := report.NewDocument(title, tag)
	doc = report.Assemble(doc, repos, issues, prs, report.Options{
		SkipComments: r.cfg.SkipComments,
		SkipReviews:  r.cfg.SkipReviews,
		SkipCommits:  r.cfg.SkipCommits,
		OnlyClosed:   p.Kind == KindRange,
		GroupByLabel: groupByLabel,
	})
	doc = report.Releases(doc, releases)
	if p.Kind != KindRange {
		doc = report.Vacations(doc, res.Vacancies, r.now(), loc)
		doc = report.Journals(doc, res.Journals, w, loc)
	}
	md := doc.Markdown()

	if p.DryRun {
		_, err := fmt.Fprintln(r.out, md)
		return err
	}

	store, closeStore, err := r.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	page, err := render.Publish(ctx, store, render.PageMeta{Title: doc.Title, Tag: doc.Tag, Date: p.Ref.In(loc)}, render.Convert(md))
	if err != nil {
		return err
	}
	log.Printf("digest published title=%q url=%s", doc.Title, page.URL)

	if r.notifier != nil {
		if err := r.notifier.Notify(ctx, doc.Title, page.URL, doc.Summary); err != nil {
			return fmt.Errorf("announcing digest: %w", err)
		}
	}
	_, err = fmt.Fprintln(r.out, page.URL)
	return err
}

// digestTitle returns the title and publish tag of a run.
func digestTitle(p Params, w domain.Window, loc *time.Location) (string, string) {
	switch p.Kind {
	case KindDaily:
		return report.Title("Previously", w, loc), "daily"
	case KindWeekly:
		if p.Team == "" {
			return report.Title("Digest", w, loc), "weekly"
		}
		return report.Title(strings.ToUpper(p.Team)+" Digest", w, loc), "weekly-" + p.Team
	}
	return report.Title(strings.ToUpper(string(p.Scope))+" Digest", w, loc), "range"
}

func splitKinds(items []domain.WorkItem) (issues, prs []domain.WorkItem) {
	for _, it := range items {
		if it.IsPR() {
			prs = append(prs, it)
			continue
		}
		issues = append(issues, it)
	}
	return issues, prs
}
