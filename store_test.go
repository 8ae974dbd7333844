package postbook

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/eringen/postbook/book"
	"github.com/eringen/postbook/feed"
	"github.com/eringen/postbook/layout"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "data", "test_book.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// sampleFeed returns n posts of twenty literal lines each; on the trade
// preset every one of them fills a page of its own.
func sampleFeed(n int) *feed.Feed {
	f := &feed.Feed{
		Profile: feed.Profile{DisplayName: "Ada Lovelace", Handle: "ada", Bio: "Notes on engines", Followers: 12345},
	}
	body := strings.TrimSuffix(strings.Repeat("a line of text\n", 20), "\n")
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := range n {
		f.Posts = append(f.Posts, feed.Post{
			ID:           fmt.Sprintf("post-%d", i),
			AuthorHandle: "ada",
			AuthorName:   "Ada Lovelace",
			Content:      body,
			Likes:        i * 10,
			CreatedAt:    start.Add(time.Duration(i) * time.Hour),
		})
	}
	return f
}

func TestNewStore(t *testing.T) {
	s := setupTestStore(t)
	if s.db == nil {
		t.Fatal("db should not be nil")
	}
}

func TestReplaceFeedAndListPosts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	f := sampleFeed(3)
	f.Posts[1].Images = []string{"a.jpg", "b.png"}
	f.Posts[2].CreatedAt = time.Time{}

	imp, err := s.ReplaceFeed(ctx, f)
	if err != nil {
		t.Fatalf("ReplaceFeed failed: %v", err)
	}
	if imp.ID == "" || imp.Posts != 3 {
		t.Fatalf("import = %+v, want an ID and 3 posts", imp)
	}

	got, err := s.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(posts) = %d, want 3", len(got))
	}
	for i, p := range got {
		if p.ID != f.Posts[i].ID {
			t.Errorf("posts[%d].ID = %q, want %q", i, p.ID, f.Posts[i].ID)
		}
		if p.Content != f.Posts[i].Content {
			t.Errorf("posts[%d].Content changed in the round trip", i)
		}
		if p.Likes != f.Posts[i].Likes {
			t.Errorf("posts[%d].Likes = %d, want %d", i, p.Likes, f.Posts[i].Likes)
		}
		if !p.CreatedAt.Equal(f.Posts[i].CreatedAt) {
			t.Errorf("posts[%d].CreatedAt = %v, want %v", i, p.CreatedAt, f.Posts[i].CreatedAt)
		}
	}
	if len(got[1].Images) != 2 || got[1].Images[0] != "a.jpg" || got[1].Images[1] != "b.png" {
		t.Errorf("posts[1].Images = %v, want [a.jpg b.png]", got[1].Images)
	}
	if got[0].Images != nil {
		t.Errorf("posts[0].Images = %v, want none", got[0].Images)
	}
}

func TestReplaceFeedReplacesEverything(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if _, err := s.ReplaceFeed(ctx, sampleFeed(5)); err != nil {
		t.Fatalf("first ReplaceFeed failed: %v", err)
	}
	second := sampleFeed(2)
	second.Profile.DisplayName = "Charles Babbage"
	if _, err := s.ReplaceFeed(ctx, second); err != nil {
		t.Fatalf("second ReplaceFeed failed: %v", err)
	}

	f, err := s.LoadFeed(ctx)
	if err != nil {
		t.Fatalf("LoadFeed failed: %v", err)
	}
	if len(f.Posts) != 2 {
		t.Errorf("len(posts) = %d, want 2", len(f.Posts))
	}
	if f.Profile.DisplayName != "Charles Babbage" {
		t.Errorf("DisplayName = %q, want %q", f.Profile.DisplayName, "Charles Babbage")
	}
	if f.Profile.Followers != 12345 {
		t.Errorf("Followers = %d, want 12345", f.Profile.Followers)
	}
}

func TestReplaceFeedDuplicateIDRollsBack(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if _, err := s.ReplaceFeed(ctx, sampleFeed(2)); err != nil {
		t.Fatalf("ReplaceFeed failed: %v", err)
	}
	bad := sampleFeed(3)
	bad.Posts[2].ID = bad.Posts[0].ID
	if _, err := s.ReplaceFeed(ctx, bad); err == nil {
		t.Fatal("expected an error for a duplicate post id")
	}

	posts, err := s.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("len(posts) = %d after a failed import, want the previous 2", len(posts))
	}
}

func TestEmptyStore(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if _, err := s.GetProfile(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProfile err = %v, want ErrNotFound", err)
	}
	if _, err := s.LastImport(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("LastImport err = %v, want ErrNotFound", err)
	}
	f, err := s.LoadFeed(ctx)
	if err != nil {
		t.Fatalf("LoadFeed failed: %v", err)
	}
	if len(f.Posts) != 0 || f.Profile.Handle != "" {
		t.Errorf("LoadFeed = %+v, want an empty feed", f)
	}
}

func TestLastImport(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if _, err := s.ReplaceFeed(ctx, sampleFeed(1)); err != nil {
		t.Fatalf("ReplaceFeed failed: %v", err)
	}
	want, err := s.ReplaceFeed(ctx, sampleFeed(4))
	if err != nil {
		t.Fatalf("ReplaceFeed failed: %v", err)
	}
	got, err := s.LastImport(ctx)
	if err != nil {
		t.Fatalf("LastImport failed: %v", err)
	}
	if got.ID != want.ID || got.Posts != 4 {
		t.Errorf("LastImport = %+v, want %+v", got, want)
	}
}

func TestImageRefsRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	tests := [][]string{
		nil,
		{"a.jpg"},
		{"a.jpg", "b.png"},
		{""},
		{" "},
		{"line\nbreak.jpg", " padded.png "},
	}
	f := sampleFeed(len(tests))
	for i, refs := range tests {
		f.Posts[i].Images = refs
	}
	if _, err := s.ReplaceFeed(ctx, f); err != nil {
		t.Fatalf("ReplaceFeed failed: %v", err)
	}
	got, err := s.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	for i, want := range tests {
		p := got[i]
		if len(p.Images) != len(want) {
			t.Errorf("post %d: Images = %q, want %q", i, p.Images, want)
			continue
		}
		for j := range want {
			if p.Images[j] != want[j] {
				t.Errorf("post %d: Images[%d] = %q, want %q", i, j, p.Images[j], want[j])
			}
		}
		if p.HasImages() != f.Posts[i].HasImages() {
			t.Errorf("post %d: HasImages = %v after reload, want %v", i, p.HasImages(), f.Posts[i].HasImages())
		}
	}
}

func TestStoredFeedPaginatesLikeTheFile(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	f := sampleFeed(3)
	f.Posts[0].Images = []string{" "}
	f.Posts[2].Images = []string{""}
	if _, err := s.ReplaceFeed(ctx, f); err != nil {
		t.Fatalf("ReplaceFeed failed: %v", err)
	}
	stored, err := s.LoadFeed(ctx)
	if err != nil {
		t.Fatalf("LoadFeed failed: %v", err)
	}
	for i := range f.Posts {
		want := layout.Trade.PostHeight(f.Posts[i])
		if got := layout.Trade.PostHeight(stored.Posts[i]); got != want {
			t.Errorf("post %d: height %v after reload, want %v", i, got, want)
		}
	}
	fromFile := book.Build(f.Posts, f.Profile, layout.Trade)
	fromStore := book.Build(stored.Posts, stored.Profile, layout.Trade)
	if len(fromFile.Pages) != len(fromStore.Pages) {
		t.Errorf("pages = %d from the store, want %d as from the file", len(fromStore.Pages), len(fromFile.Pages))
	}
}
