package notion

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"devdigest/internal/render"
)

var _ render.Store = (*Client)(nil)

type textContent struct {
	Content string `json:"content"`
}

type titleText struct {
	Text textContent `json:"text"`
}

type selectOption struct {
	Name string `json:"name"`
}

type pageProperties struct {
	Digest struct {
		Title []titleText `json:"title"`
	} `json:"Digest"`
	Date struct {
		Type string `json:"type"`
		Date struct {
			Start string `json:"start"`
		} `json:"date"`
	} `json:"Date"`
	Tags struct {
		MultiSelect []selectOption `json:"multi_select"`
	} `json:"Tags"`
}

type pageParent struct {
	Type       string `json:"type"`
	DatabaseID string `json:"database_id"`
}

type createPageRequest struct {
	Parent     pageParent     `json:"parent"`
	Properties pageProperties `json:"properties"`
	Children   []render.Block `json:"children"`
}

type appendRequest struct {
	Children []render.Block `json:"children"`
}

type pageResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func newPageRequest(databaseID string, meta render.PageMeta, blocks []render.Block) createPageRequest {
	req := createPageRequest{
		Parent:   pageParent{Type: "database_id", DatabaseID: databaseID},
		Children: blocks,
	}
	if req.Children == nil {
		req.Children = []render.Block{}
	}
	date := meta.Date
	if date.IsZero() {
		date = time.Now()
	}
	req.Properties.Digest.Title = []titleText{{Text: textContent{Content: meta.Title}}}
	req.Properties.Date.Type = "date"
	req.Properties.Date.Date.Start = date.Format(time.DateOnly)
	if meta.Tag != "" {
		req.Properties.Tags.MultiSelect = []selectOption{{Name: meta.Tag}}
	} else {
		req.Properties.Tags.MultiSelect = []selectOption{}
	}
	return req
}

// CreatePage adds a digest row to the digest database with blocks as its
// body.
func (c *Client) CreatePage(ctx context.Context, meta render.PageMeta, blocks []render.Block) (render.Page, error) {
	if c.databaseID == "" {
		return render.Page{}, fmt.Errorf("notion database id is not configured")
	}
	var resp pageResponse
	if err := c.api.DoJSON(ctx, http.MethodPost, c.baseURL+"/pages", newPageRequest(c.databaseID, meta, blocks), &resp); err != nil {
		return render.Page{}, err
	}
	log.Printf("notion page created id=%s tag=%s blocks=%d", resp.ID, meta.Tag, len(blocks))
	return render.Page{ID: resp.ID, URL: resp.URL}, nil
}

func (c *Client) AppendBlocks(ctx context.Context, pageID string, blocks []render.Block) error {
	url := fmt.Sprintf("%s/blocks/%s/children", c.baseURL, pageID)
	if err := c.api.DoJSON(ctx, http.MethodPatch, url, appendRequest{Children: blocks}, nil); err != nil {
		return err
	}
	log.Printf("notion blocks appended page=%s blocks=%d", pageID, len(blocks))
	return nil
}
