// Package feed holds the post and profile records produced by the upstream
// collector. The layout engine treats them as read-only input.
package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Post is one collected post in its final book order.
type Post struct {
	ID           string    `json:"id"`
	AuthorHandle string    `json:"author_handle"`
	AuthorName   string    `json:"author_name,omitempty"`
	Content      string    `json:"content"`
	Images       []string  `json:"images,omitempty"`
	Likes        int       `json:"likes"`
	Reposts      int       `json:"reposts"`
	Replies      int       `json:"replies"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasImages reports whether the post carries at least one image reference.
func (p Post) HasImages() bool {
	return len(p.Images) > 0
}

// Profile describes the account the book is made from.
type Profile struct {
	DisplayName string `json:"display_name"`
	Handle      string `json:"handle"`
	Bio         string `json:"bio,omitempty"`
	ImageRef    string `json:"image,omitempty"`
	Followers   int    `json:"followers"`
}

// Feed is the import envelope: one profile and its ordered posts.
type Feed struct {
	Profile Profile `json:"profile"`
	Posts   []Post  `json:"posts"`
}

// Decode reads a JSON feed from r and validates it.
func Decode(r io.Reader) (*Feed, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var f Feed
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate rejects records the layout engine does not accept: posts without
// an ID, duplicated IDs and negative engagement counts.
func (f *Feed) Validate() error {
	var errs []error
	if f.Profile.Followers < 0 {
		errs = append(errs, errors.New("profile: negative follower count"))
	}
	seen := make(map[string]struct{}, len(f.Posts))
	for i, p := range f.Posts {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			errs = append(errs, fmt.Errorf("post %d: missing id", i))
			continue
		}
		if _, ok := seen[id]; ok {
			errs = append(errs, fmt.Errorf("post %d: duplicate id %q", i, id))
		}
		seen[id] = struct{}{}
		if p.Likes < 0 || p.Reposts < 0 || p.Replies < 0 {
			errs = append(errs, fmt.Errorf("post %q: negative engagement count", id))
		}
	}
	return errors.Join(errs...)
}
