package views

import "github.com/a-h/templ"

// SiteConfig holds the preview server settings every view needs.
type SiteConfig struct {
	Name string
	URL  string
}

// PageView is one assembled page as the preview shows it.
type PageView struct {
	Index   int
	Kind    string // "cover", "content", "blank" or "closing"
	Number  int    // content page number, 0 for the others
	Content templ.Component
}

// SpreadView is a pair of facing pages. A nil side is left empty.
type SpreadView struct {
	Index int
	Total int
	Left  *PageView
	Right *PageView
}

// HasPrev reports whether a spread precedes this one.
func (s SpreadView) HasPrev() bool { return s.Index > 0 }

// HasNext reports whether a spread follows this one.
func (s SpreadView) HasNext() bool { return s.Index < s.Total-1 }
