package notion

import (
	"strings"

	"devdigest/internal/httpx"
)

const notionVersion = "2022-06-28"

// Client talks to one Notion integration. It serves both journal reads and
// digest page writes.
type Client struct {
	api        *httpx.Client
	baseURL    string
	databaseID string
	journals   []Database
}

type Database struct {
	Name string
	ID   string
}

type Options struct {
	Token  string
	APIURL string
	// DatabaseID receives published digests.
	DatabaseID string
	// Journals are the databases read for journal entries.
	Journals          []Database
	RequestsPerSecond float64
}

func NewClient(opts Options) *Client {
	return &Client{
		api: httpx.New(httpx.Options{
			Service:           "Notion",
			RequestsPerSecond: opts.RequestsPerSecond,
			Headers: map[string]string{
				"Authorization":  "Bearer " + opts.Token,
				"Notion-Version": notionVersion,
			},
		}),
		baseURL:    strings.TrimSuffix(opts.APIURL, "/"),
		databaseID: opts.DatabaseID,
		journals:   opts.Journals,
	}
}

type richText struct {
	PlainText string `json:"plain_text"`
}

func plain(parts []richText) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.PlainText)
	}
	return b.String()
}
