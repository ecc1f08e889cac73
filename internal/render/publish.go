package render

import (
	"context"
	"fmt"
	"log"
	"time"
)

// MaxBlocksPerRequest is the document store's per-write block limit.
const MaxBlocksPerRequest = 100

type PageMeta struct {
	Title string
	Tag   string
	Date  time.Time
}

type Page struct {
	ID  string
	URL string
}

// Store is a document store that creates a page with an initial set of
// blocks and appends further blocks to it.
type Store interface {
	CreatePage(ctx context.Context, meta PageMeta, blocks []Block) (Page, error)
	AppendBlocks(ctx context.Context, pageID string, blocks []Block) error
}

// Chunk splits blocks into consecutive batches of at most size blocks.
func Chunk(blocks []Block, size int) [][]Block {
	if size <= 0 {
		size = MaxBlocksPerRequest
	}
	var out [][]Block
	for start := 0; start < len(blocks); start += size {
		end := start + size
		if end > len(blocks) {
			end = len(blocks)
		}
		out = append(out, blocks[start:end])
	}
	return out
}

// Publish creates the page with the first batch and appends the remaining
// batches in order. Any failing write aborts the publish.
func Publish(ctx context.Context, store Store, meta PageMeta, blocks []Block) (Page, error) {
	chunks := Chunk(blocks, MaxBlocksPerRequest)
	var first []Block
	if len(chunks) > 0 {
		first = chunks[0]
	}
	page, err := store.CreatePage(ctx, meta, first)
	if err != nil {
		return Page{}, fmt.Errorf("create page %q: %w", meta.Title, err)
	}
	log.Printf("publish created page=%s blocks=%d batches=%d", page.ID, len(blocks), len(chunks))
	for i := 1; i < len(chunks); i++ {
		if err := store.AppendBlocks(ctx, page.ID, chunks[i]); err != nil {
			return Page{}, fmt.Errorf("append batch %d/%d to %s: %w", i+1, len(chunks), page.ID, err)
		}
	}
	return page, nil
}
