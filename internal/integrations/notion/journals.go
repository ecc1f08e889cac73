package notion

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"devdigest/internal/domain"
)

type dateFilter struct {
	Property string `json:"property"`
	Date     struct {
		OnOrAfter string `json:"on_or_after"`
	} `json:"date"`
}

type queryRequest struct {
	Filter      dateFilter `json:"filter"`
	StartCursor string     `json:"start_cursor,omitempty"`
}

type journalPage struct {
	Properties struct {
		Name struct {
			Title []richText `json:"title"`
		} `json:"Name"`
		Date struct {
			Date *struct {
				Start string `json:"start"`
			} `json:"date"`
		} `json:"Date"`
		LastWorkday struct {
			RichText []richText `json:"rich_text"`
		} `json:"Last Workday"`
		Today struct {
			RichText []richText `json:"rich_text"`
		} `json:"Today"`
	} `json:"properties"`
}

type queryResponse struct {
	Results    []journalPage `json:"results"`
	HasMore    bool          `json:"has_more"`
	NextCursor string        `json:"next_cursor"`
}

// Journals reads entries dated on or after the window start from every
// journal database, grouped by the author's first name.
func (c *Client) Journals(ctx context.Context, w domain.Window, loc *time.Location) (map[string][]domain.JournalEntry, error) {
	if loc == nil {
		loc = time.UTC
	}
	out := make(map[string][]domain.JournalEntry)
	for _, db := range c.journals {
		pages, err := c.queryDatabase(ctx, db, w.StartISO())
		if err != nil {
			return nil, err
		}
		count := 0
		for _, p := range pages {
			entry, ok, err := journalEntry(p, loc)
			if err != nil {
				return nil, fmt.Errorf("journal %s: %w", db.Name, err)
			}
			if !ok {
				continue
			}
			out[entry.PersonName] = append(out[entry.PersonName], entry)
			count++
		}
		log.Printf("notion journals database=%q entries=%d", db.Name, count)
	}
	return out, nil
}

func (c *Client) queryDatabase(ctx context.Context, db Database, start string) ([]journalPage, error) {
	var all []journalPage
	req := queryRequest{}
	req.Filter.Property = "Date"
	req.Filter.Date.OnOrAfter = start
	for {
		var resp queryResponse
		url := fmt.Sprintf("%s/databases/%s/query", c.baseURL, db.ID)
		if err := c.api.DoJSON(ctx, http.MethodPost, url, req, &resp); err != nil {
			return nil, fmt.Errorf("querying journal %s: %w", db.Name, err)
		}
		all = append(all, resp.Results...)
		if !resp.HasMore || resp.NextCursor == "" {
			return all, nil
		}
		req.StartCursor = resp.NextCursor
	}
}

// journalEntry reports ok=false for rows without a name or date, which
// Notion creates for blank database rows.
func journalEntry(p journalPage, loc *time.Location) (domain.JournalEntry, bool, error) {
	name := strings.Fields(plain(p.Properties.Name.Title))
	if len(name) == 0 || p.Properties.Date.Date == nil || p.Properties.Date.Date.Start == "" {
		return domain.JournalEntry{}, false, nil
	}
	date, err := parseDate(p.Properties.Date.Date.Start, loc)
	if err != nil {
		return domain.JournalEntry{}, false, err
	}
	return domain.JournalEntry{
		PersonName: name[0],
		Date:       date,
		Did:        journalLines(plain(p.Properties.LastWorkday.RichText)),
		Doing:      journalLines(plain(p.Properties.Today.RichText)),
	}, true, nil
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	if len(s) == len(time.DateOnly) {
		return time.ParseInLocation(time.DateOnly, s, loc)
	}
	return time.Parse(time.RFC3339, s)
}

// journalLines splits a rich text block into items, dropping bullet
// markers.
func journalLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if _, after, ok := strings.Cut(line, "* "); ok {
			line = after
		}
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
