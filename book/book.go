// Package book turns packed page layouts into the final, ordered pages of a
// printable book and groups them into facing spreads.
package book

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/postbook/feed"
	"github.com/eringen/postbook/layout"
	"github.com/eringen/postbook/views"
)

// ErrNotFound is returned for a page or spread index outside the book.
var ErrNotFound = errors.New("book: not found")

// Kind tells the pages of a book apart.
type Kind uint8

const (
	Cover Kind = iota
	Content
	Blank
	Closing
)

var kindNames = [...]string{"cover", "content", "blank", "closing"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// MarshalJSON encodes the kind by name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// Page is one physical page. Content is self-contained: it renders without
// any state beyond what it was built from.
type Page struct {
	Index   int                `json:"index"`
	Kind    Kind               `json:"kind"`
	Number  int                `json:"number,omitempty"`
	Layout  *layout.PageLayout `json:"layout,omitempty"`
	Content templ.Component    `json:"-"`
}

// Spread is a pair of facing pages. A nil side is empty.
type Spread struct {
	Index int   `json:"index"`
	Left  *Page `json:"-"`
	Right *Page `json:"-"`
}

// MarshalJSON encodes the spread by page index, -1 for an empty side.
func (s Spread) MarshalJSON() ([]byte, error) {
	side := func(p *Page) int {
		if p == nil {
			return -1
		}
		return p.Index
	}
	return json.Marshal(struct {
		Index int `json:"index"`
		Left  int `json:"left"`
		Right int `json:"right"`
	}{s.Index, side(s.Left), side(s.Right)})
}

// Source is everything page content is rendered from besides the layouts.
type Source struct {
	Posts   []feed.Post
	Profile feed.Profile
	// Images maps image refs, the profile's included, to img sources.
	Images map[string]string
}

// Assemble orders the final pages: cover, one page per layout, a blank
// filler when the layout count is odd, closing. Layouts are not copied;
// the pages point into the given slice.
func Assemble(layouts []layout.PageLayout, src Source) []Page {
	n := len(layouts)
	pages := make([]Page, 0, layout.TotalPages(n))
	pages = append(pages, Page{
		Kind:    Cover,
		Content: views.Cover(src.Profile, src.Images[src.Profile.ImageRef], len(src.Posts)),
	})
	for i := range layouts {
		pages = append(pages, Page{
			Index:   len(pages),
			Kind:    Content,
			Number:  i + 1,
			Layout:  &layouts[i],
			Content: views.ContentPage(i+1, layouts[i], src.Posts, src.Images),
		})
	}
	if n%2 == 1 {
		pages = append(pages, Page{Index: len(pages), Kind: Blank, Content: views.BlankPage()})
	}
	first, last := dateRange(src.Posts)
	pages = append(pages, Page{
		Index:   len(pages),
		Kind:    Closing,
		Content: views.ClosingPage(src.Profile, len(src.Posts), first, last),
	})
	return pages
}

// Spreads groups pages into facing pairs: the cover alone on the right, the
// interior pages two by two, the closing page alone on the left.
func Spreads(pages []Page) []Spread {
	if len(pages) == 0 {
		return nil
	}
	spreads := []Spread{{Right: &pages[0]}}
	last := len(pages) - 1
	for i := 1; i < last; i += 2 {
		sp := Spread{Index: len(spreads), Left: &pages[i]}
		if i+1 < last {
			sp.Right = &pages[i+1]
		}
		spreads = append(spreads, sp)
	}
	if last > 0 {
		spreads = append(spreads, Spread{Index: len(spreads), Left: &pages[last]})
	}
	return spreads
}

func dateRange(posts []feed.Post) (first, last time.Time) {
	for _, p := range posts {
		if p.CreatedAt.IsZero() {
			continue
		}
		if first.IsZero() || p.CreatedAt.Before(first) {
			first = p.CreatedAt
		}
		if p.CreatedAt.After(last) {
			last = p.CreatedAt
		}
	}
	return first, last
}
