package postbook

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	_ "modernc.org/sqlite"

	"github.com/eringen/postbook/feed"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = sql.ErrNoRows

// Store wraps a SQLite database holding the imported feed: the posts in
// book order and the author profile.
type Store struct {
	db *sql.DB
}

// Import records one feed import.
type Import struct {
	ID         string    `json:"id"`
	Posts      int       `json:"posts"`
	ImportedAt time.Time `json:"importedAt"`
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the preview read while an import writes; the busy timeout
	// makes writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
	`); err != nil {
		return nil, multierr.Append(err, db.Close())
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, multierr.Append(err, db.Close())
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    position INTEGER PRIMARY KEY,
    id TEXT NOT NULL UNIQUE,
    author_handle TEXT NOT NULL,
    author_name TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL,
    images TEXT NOT NULL DEFAULT '[]',
    likes INTEGER NOT NULL DEFAULT 0,
    reposts INTEGER NOT NULL DEFAULT 0,
    replies INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS profile (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    display_name TEXT NOT NULL,
    handle TEXT NOT NULL,
    bio TEXT NOT NULL,
    image TEXT NOT NULL,
    followers INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS imports (
    id TEXT PRIMARY KEY,
    posts INTEGER NOT NULL,
    imported_at TEXT NOT NULL
);
`)
	return err
}

// ReplaceFeed swaps the stored posts and profile for f in one transaction
// and returns the record of the import.
func (s *Store) ReplaceFeed(ctx context.Context, f *feed.Feed) (imp Import, err error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Import{}, err
	}
	imp = Import{ID: id.String(), Posts: len(f.Posts), ImportedAt: time.Now().UTC()}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Import{}, err
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); !errors.Is(rbErr, sql.ErrTxDone) {
			err = multierr.Append(err, rbErr)
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM posts`); err != nil {
		return Import{}, err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO posts (position, id, author_handle, author_name, content, images, likes, reposts, replies, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Import{}, err
	}
	defer stmt.Close()
	for i, p := range f.Posts {
		var images string
		if images, err = encodeRefs(p.Images); err != nil {
			return Import{}, fmt.Errorf("post %q: %w", p.ID, err)
		}
		created := ""
		if !p.CreatedAt.IsZero() {
			created = p.CreatedAt.UTC().Format(time.RFC3339Nano)
		}
		if _, err = stmt.ExecContext(ctx, i, p.ID, p.AuthorHandle, p.AuthorName, p.Content,
			images, p.Likes, p.Reposts, p.Replies, created); err != nil {
			return Import{}, fmt.Errorf("insert post %q: %w", p.ID, err)
		}
	}

	pr := f.Profile
	if _, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO profile (id, display_name, handle, bio, image, followers) VALUES (1, ?, ?, ?, ?, ?)`,
		pr.DisplayName, pr.Handle, pr.Bio, pr.ImageRef, pr.Followers); err != nil {
		return Import{}, err
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO imports (id, posts, imported_at) VALUES (?, ?, ?)`,
		imp.ID, imp.Posts, imp.ImportedAt.Format(time.RFC3339Nano)); err != nil {
		return Import{}, err
	}
	if err = tx.Commit(); err != nil {
		return Import{}, err
	}
	return imp, nil
}

// ListPosts returns every post in book order.
func (s *Store) ListPosts(ctx context.Context) ([]feed.Post, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, author_handle, author_name, content, images, likes, reposts, replies, created_at FROM posts ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []feed.Post
	for rows.Next() {
		var p feed.Post
		var images, created string
		if err := rows.Scan(&p.ID, &p.AuthorHandle, &p.AuthorName, &p.Content, &images, &p.Likes, &p.Reposts, &p.Replies, &created); err != nil {
			return nil, err
		}
		if p.Images, err = decodeRefs(images); err != nil {
			return nil, fmt.Errorf("post %q: %w", p.ID, err)
		}
		if created != "" {
			if p.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
				return nil, fmt.Errorf("post %q: %w", p.ID, err)
			}
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// GetProfile returns the stored author profile, or ErrNotFound before the
// first import.
func (s *Store) GetProfile(ctx context.Context) (feed.Profile, error) {
	var p feed.Profile
	err := s.db.QueryRowContext(ctx, `SELECT display_name, handle, bio, image, followers FROM profile WHERE id = 1`).
		Scan(&p.DisplayName, &p.Handle, &p.Bio, &p.ImageRef, &p.Followers)
	if err != nil {
		return feed.Profile{}, err
	}
	return p, nil
}

// LastImport returns the most recent import, or ErrNotFound.
func (s *Store) LastImport(ctx context.Context) (Import, error) {
	var imp Import
	var at string
	err := s.db.QueryRowContext(ctx, `SELECT id, posts, imported_at FROM imports ORDER BY rowid DESC LIMIT 1`).
		Scan(&imp.ID, &imp.Posts, &at)
	if err != nil {
		return Import{}, err
	}
	if imp.ImportedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
		return Import{}, err
	}
	return imp, nil
}

// LoadFeed returns the stored profile and posts. A store that never saw an
// import yields an empty feed.
func (s *Store) LoadFeed(ctx context.Context) (*feed.Feed, error) {
	profile, err := s.GetProfile(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	posts, err := s.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load posts: %w", err)
	}
	return &feed.Feed{Profile: profile, Posts: posts}, nil
}

// encodeRefs stores image refs as a JSON array so every ref, blank or
// not, comes back exactly as imported.
func encodeRefs(refs []string) (string, error) {
	if len(refs) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(refs)
	if err != nil {
		return "", fmt.Errorf("encode image refs: %w", err)
	}
	return string(data), nil
}

func decodeRefs(s string) ([]string, error) {
	var refs []string
	if err := json.Unmarshal([]byte(s), &refs); err != nil {
		return nil, fmt.Errorf("decode image refs: %w", err)
	}
	if len(refs) == 0 {
		return nil, nil
	}
	return refs, nil
}
