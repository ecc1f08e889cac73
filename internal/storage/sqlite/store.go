package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"devdigest/internal/render"
)

var ErrDigestNotFound = errors.New("digest not found")

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS digests (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		tag         TEXT NOT NULL DEFAULT '',
		digest_date TEXT NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_digests_tag ON digests(tag);
	CREATE INDEX IF NOT EXISTS idx_digests_date ON digests(digest_date);

	CREATE TABLE IF NOT EXISTS digest_blocks (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		digest_id  TEXT NOT NULL,
		position   INTEGER NOT NULL,
		block_json TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_digest_blocks_position ON digest_blocks(digest_id, position);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Store keeps published digests in a local SQLite file. It is the
// offline alternative to the Notion digest database.
type Store struct {
	db   *sql.DB
	path string
}

var _ render.Store = (*Store)(nil)

func Open(path string) (*Store, error) {
	db, err := InitDB(path)
	if err != nil {
		return nil, fmt.Errorf("opening digest store %s: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type DigestRecord struct {
	ID        string
	Title     string
	Tag       string
	Date      string
	CreatedAt time.Time
}

func (s *Store) pageURL(id string) string {
	return fmt.Sprintf("sqlite://%s#%s", s.path, id)
}

func (s *Store) CreatePage(ctx context.Context, meta render.PageMeta, blocks []render.Block) (render.Page, error) {
	id := uuid.NewString()
	date := meta.Date
	if date.IsZero() {
		date = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return render.Page{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO digests (id, title, tag, digest_date) VALUES (?, ?, ?, ?)`,
		id, meta.Title, meta.Tag, date.Format(time.DateOnly),
	); err != nil {
		return render.Page{}, fmt.Errorf("inserting digest: %w", err)
	}
	if err := insertBlocks(ctx, tx, id, 0, blocks); err != nil {
		return render.Page{}, err
	}
	if err := tx.Commit(); err != nil {
		return render.Page{}, err
	}
	log.Printf("sqlite digest created id=%s tag=%s blocks=%d", id, meta.Tag, len(blocks))
	return render.Page{ID: id, URL: s.pageURL(id)}, nil
}

func (s *Store) AppendBlocks(ctx context.Context, pageID string, blocks []render.Block) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM digests WHERE id = ?`, pageID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", ErrDigestNotFound, pageID)
	}
	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM digest_blocks WHERE digest_id = ?`, pageID,
	).Scan(&next); err != nil {
		return err
	}
	if err := insertBlocks(ctx, tx, pageID, next, blocks); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Printf("sqlite digest appended id=%s blocks=%d", pageID, len(blocks))
	return nil
}

func insertBlocks(ctx context.Context, tx *sql.Tx, digestID string, start int, blocks []render.Block) error {
	if len(blocks) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO digest_blocks (digest_id, position, block_json) VALUES (?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, b := range blocks {
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("encoding block %d: %w", start+i, err)
		}
		if _, err := stmt.ExecContext(ctx, digestID, start+i, string(data)); err != nil {
			return fmt.Errorf("inserting block %d: %w", start+i, err)
		}
	}
	return nil
}

// Blocks returns a digest's blocks in publish order.
func (s *Store) Blocks(ctx context.Context, digestID string) ([]render.Block, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT block_json FROM digest_blocks WHERE digest_id = ? ORDER BY position`, digestID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []render.Block
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var b render.Block
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			return nil, fmt.Errorf("decoding block of %s: %w", digestID, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Digests lists stored digests, newest first. An empty tag lists all.
func (s *Store) Digests(ctx context.Context, tag string) ([]DigestRecord, error) {
	query := `SELECT id, title, tag, digest_date, created_at FROM digests`
	var args []any
	if tag != "" {
		query += ` WHERE tag = ?`
		args = append(args, tag)
	}
	query += ` ORDER BY digest_date DESC, created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DigestRecord
	for rows.Next() {
		var r DigestRecord
		if err := rows.Scan(&r.ID, &r.Title, &r.Tag, &r.Date, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
