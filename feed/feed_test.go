package feed

import (
	"strings"
	"testing"
)

func TestDecode(t *testing.T) {
	input := `{
  "profile": {"display_name": "Ada", "handle": "ada", "followers": 1200},
  "posts": [
    {"id": "1", "author_handle": "ada", "content": "hello\nworld", "images": ["a.jpg"], "likes": 3, "reposts": 1, "replies": 0, "created_at": "2024-01-15T10:00:00Z"},
    {"id": "2", "author_handle": "ada", "content": "", "likes": 0, "reposts": 0, "replies": 0, "created_at": "2024-01-16T10:00:00Z"}
  ]
}`
	f, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if f.Profile.Handle != "ada" {
		t.Errorf("Handle = %q, want %q", f.Profile.Handle, "ada")
	}
	if len(f.Posts) != 2 {
		t.Fatalf("Posts count = %d, want 2", len(f.Posts))
	}
	if f.Posts[0].Content != "hello\nworld" {
		t.Errorf("Content = %q", f.Posts[0].Content)
	}
	if !f.Posts[0].HasImages() || f.Posts[1].HasImages() {
		t.Errorf("HasImages mismatch")
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"profile": {}, "posts": [], "extra": 1}`))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		feed    Feed
		wantErr string
	}{
		{"empty", Feed{}, ""},
		{"missing id", Feed{Posts: []Post{{ID: " "}}}, "missing id"},
		{"duplicate", Feed{Posts: []Post{{ID: "a"}, {ID: "a"}}}, "duplicate id"},
		{"negative likes", Feed{Posts: []Post{{ID: "a", Likes: -1}}}, "negative engagement"},
		{"negative followers", Feed{Profile: Profile{Followers: -5}}, "negative follower"},
	}
	for _, tt := range tests {
		err := tt.feed.Validate()
		if tt.wantErr == "" {
			if err != nil {
				t.Errorf("%s: unexpected error %v", tt.name, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("%s: error = %v, want containing %q", tt.name, err, tt.wantErr)
		}
	}
}
