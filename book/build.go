package book

import (
	"fmt"

	"github.com/a-h/templ"

	"github.com/eringen/postbook/feed"
	"github.com/eringen/postbook/layout"
	"github.com/eringen/postbook/views"
)

// Book is the complete, immutable result of laying out one feed.
type Book struct {
	Profile   feed.Profile
	Posts     []feed.Post
	Constants layout.Constants
	Layouts   []layout.PageLayout
	Pages     []Page
	Spreads   []Spread
}

// Option configures Build.
type Option func(*Source)

// WithImages supplies img sources for image refs. Refs left out render as
// they are.
func WithImages(images map[string]string) Option {
	return func(s *Source) {
		s.Images = images
	}
}

// Build runs the whole pipeline: pack, resolve continuations, assemble
// pages and group spreads.
func Build(posts []feed.Post, profile feed.Profile, c layout.Constants, opts ...Option) *Book {
	src := Source{Posts: posts, Profile: profile}
	for _, opt := range opts {
		opt(&src)
	}
	layouts := layout.Pack(posts, c)
	layout.ResolveContinuations(layouts)
	pages := Assemble(layouts, src)
	return &Book{
		Profile:   profile,
		Posts:     posts,
		Constants: c,
		Layouts:   layouts,
		Pages:     pages,
		Spreads:   Spreads(pages),
	}
}

// Page returns page i.
func (b *Book) Page(i int) (*Page, error) {
	if i < 0 || i >= len(b.Pages) {
		return nil, fmt.Errorf("page %d: %w", i, ErrNotFound)
	}
	return &b.Pages[i], nil
}

// Spread returns spread i.
func (b *Book) Spread(i int) (*Spread, error) {
	if i < 0 || i >= len(b.Spreads) {
		return nil, fmt.Errorf("spread %d: %w", i, ErrNotFound)
	}
	return &b.Spreads[i], nil
}

// SpreadOf returns the index of the spread showing page i.
func (b *Book) SpreadOf(i int) int {
	return (i + 1) / 2
}

// Document returns page i as a standalone HTML document.
func (b *Book) Document(i int) (templ.Component, error) {
	p, err := b.Page(i)
	if err != nil {
		return nil, err
	}
	return b.document(*p), nil
}

func (b *Book) document(p Page) templ.Component {
	title := fmt.Sprintf("%s, page %d", b.Title(), p.Index+1)
	return views.Document(title, b.Constants, p.Content)
}

// Documents returns every page as a standalone document, in page order.
func (b *Book) Documents() []templ.Component {
	docs := make([]templ.Component, len(b.Pages))
	for i, p := range b.Pages {
		docs[i] = b.document(p)
	}
	return docs
}

// Title is the book's display title.
func (b *Book) Title() string {
	switch {
	case b.Profile.DisplayName != "":
		return b.Profile.DisplayName
	case b.Profile.Handle != "":
		return "@" + b.Profile.Handle
	}
	return "Untitled"
}

// Summary describes the book's structure without its content.
type Summary struct {
	Title        string           `json:"title"`
	Posts        int              `json:"posts"`
	ContentPages int              `json:"contentPages"`
	TotalPages   int              `json:"totalPages"`
	Pages        []Page           `json:"pages"`
	Spreads      []Spread         `json:"spreads"`
	Constants    layout.Constants `json:"constants"`
}

// Summary returns the JSON-friendly structure of the book.
func (b *Book) Summary() Summary {
	return Summary{
		Title:        b.Title(),
		Posts:        len(b.Posts),
		ContentPages: len(b.Layouts),
		TotalPages:   len(b.Pages),
		Pages:        b.Pages,
		Spreads:      b.Spreads,
		Constants:    b.Constants,
	}
}
