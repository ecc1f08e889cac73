package asana

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"devdigest/internal/domain"
	"devdigest/internal/httpx"
)

const (
	searchLimit = 100
	dateLayout  = "2006-01-02"
	optFields   = "name,assignee.email,created_by.email,start_on,due_on,due_at,created_at"
)

// Client searches one workspace for vacation tasks.
type Client struct {
	api       *httpx.Client
	baseURL   string
	workspace string
	project   string
	section   string
	loc       *time.Location
}

type Options struct {
	Token     string
	APIURL    string
	Workspace string
	Project   string
	Section   string
	// RequestsPerMinute is the search budget; Asana allows 60.
	RequestsPerMinute int
	Location          *time.Location
}

func NewClient(opts Options) *Client {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Client{
		api: httpx.New(httpx.Options{
			Service:           "Asana",
			RequestsPerSecond: httpx.PerMinute(opts.RequestsPerMinute),
			Headers:           map[string]string{"Authorization": "Bearer " + opts.Token},
		}),
		baseURL:   strings.TrimSuffix(opts.APIURL, "/"),
		workspace: opts.Workspace,
		project:   opts.Project,
		section:   opts.Section,
		loc:       loc,
	}
}

type person struct {
	Email string `json:"email"`
}

type task struct {
	GID       string  `json:"gid"`
	Name      string  `json:"name"`
	Assignee  *person `json:"assignee"`
	CreatedBy *person `json:"created_by"`
	StartOn   string  `json:"start_on"`
	DueOn     string  `json:"due_on"`
	DueAt     string  `json:"due_at"`
	CreatedAt string  `json:"created_at"`
}

type searchResponse struct {
	Data []task `json:"data"`
}

// LookAhead returns the vacation search bounds for a digest run: from the
// given day through the Sunday of the reference day's week.
func LookAhead(from, ref time.Time, loc *time.Location) (after, before time.Time) {
	ref = ref.In(loc)
	offset := (7 - int(ref.Weekday())) % 7
	y, m, d := ref.Date()
	return from.In(loc), time.Date(y, m, d+offset, 0, 0, 0, 0, loc)
}

// Vacancies returns, per person, the vacation ranges due after `after` that
// start on or before `before`. People keep first-seen order.
func (c *Client) Vacancies(ctx context.Context, after, before time.Time) ([]domain.Vacancy, error) {
	afterDay := after.In(c.loc).Format(dateLayout)
	beforeDay := before.In(c.loc).Format(dateLayout)

	tasks, err := c.searchAll(ctx, afterDay)
	if err != nil {
		return nil, err
	}

	var order []string
	byIdentity := make(map[string][]domain.DateRange)
	seen := make(map[string]bool)
	for _, t := range tasks {
		if seen[t.GID] {
			continue
		}
		seen[t.GID] = true
		identity := taskIdentity(t)
		if identity == "" {
			continue
		}
		first := t.StartOn
		if first == "" {
			first = t.DueOn
		}
		if first > beforeDay {
			continue
		}
		r, err := c.dateRange(t)
		if err != nil {
			return nil, err
		}
		if _, ok := byIdentity[identity]; !ok {
			order = append(order, identity)
		}
		byIdentity[identity] = append(byIdentity[identity], r)
	}

	out := make([]domain.Vacancy, 0, len(order))
	for _, identity := range order {
		out = append(out, domain.Vacancy{Identity: identity, Ranges: byIdentity[identity]})
	}
	log.Printf("asana vacancies after=%s before=%s tasks=%d people=%d", afterDay, beforeDay, len(tasks), len(out))
	return out, nil
}

// taskIdentity names the person a vacation task is for: the assignee's
// email, then the creator's email, then the name before the separator of a
// "Jane Doe - vacation" style task name. Emails are lower-cased.
func taskIdentity(t task) string {
	for _, p := range []*person{t.Assignee, t.CreatedBy} {
		if p != nil && strings.TrimSpace(p.Email) != "" {
			return strings.ToLower(strings.TrimSpace(p.Email))
		}
	}
	name := t.Name
	for _, sep := range []string{" - ", ": "} {
		if i := strings.Index(name, sep); i >= 0 {
			name = name[:i]
			break
		}
	}
	return strings.TrimSpace(name)
}

func (c *Client) searchAll(ctx context.Context, afterDay string) ([]task, error) {
	var all []task
	var cursor, lastGID string
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("completed", "false")
		params.Set("is_subtask", "false")
		params.Set("sort_by", "created_at")
		params.Set("sort_ascending", "true")
		params.Set("opt_fields", optFields)
		params.Set("limit", fmt.Sprint(searchLimit))
		params.Set("due_on.after", afterDay)
		if c.project != "" {
			params.Set("projects.all", c.project)
		}
		if c.section != "" {
			params.Set("sections.any", c.section)
		}
		if cursor != "" {
			params.Set("created_at.after", cursor)
		}

		endpoint := fmt.Sprintf("%s/workspaces/%s/tasks/search?%s", c.baseURL, url.PathEscape(c.workspace), params.Encode())
		var resp searchResponse
		if err := c.api.DoJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
			return nil, fmt.Errorf("searching asana tasks: %w", err)
		}
		log.Printf("asana search page=%d count=%d", page, len(resp.Data))

		if len(resp.Data) == 0 {
			break
		}
		last := resp.Data[len(resp.Data)-1]
		if len(resp.Data) == 1 && last.GID == lastGID {
			break
		}
		all = append(all, resp.Data...)
		cursor, lastGID = last.CreatedAt, last.GID
	}
	return all, nil
}

// dateRange resolves start_on, due_at and due_on into whole days in the
// org zone. due_at wins over due_on when both are set.
func (c *Client) dateRange(t task) (domain.DateRange, error) {
	end, err := c.parseDay(t.DueAt, t.DueOn)
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("asana task %s: %w", t.GID, err)
	}
	start := end
	if t.StartOn != "" {
		start, err = c.parseDay("", t.StartOn)
		if err != nil {
			return domain.DateRange{}, fmt.Errorf("asana task %s: %w", t.GID, err)
		}
	}
	return domain.DateRange{Start: start, End: end}, nil
}

func (c *Client) parseDay(instant, day string) (time.Time, error) {
	if instant != "" {
		ts, err := time.Parse(time.RFC3339, instant)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid due_at %q: %w", instant, err)
		}
		return ts.In(c.loc), nil
	}
	if day == "" {
		return time.Time{}, fmt.Errorf("task has no due date")
	}
	ts, err := time.ParseInLocation(dateLayout, day, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", day, err)
	}
	return ts, nil
}
