// Package layout paginates an ordered list of posts into fixed-size pages.
//
// Everything here is a pure function of the posts and the Constants: heights
// are heuristic estimates in layout units, never measured from rendered
// output. The same input always yields the same pages.
package layout

import (
	"fmt"
	"sort"
	"strings"
)

// Constants describe the physical page and the fixed blocks of a rendered
// post. Units are CSS pixels at 96 DPI.
type Constants struct {
	PageWidth    float64 `yaml:"page_width" json:"page_width" validate:"gt=0"`
	PageHeight   float64 `yaml:"page_height" json:"page_height" validate:"gt=0"`
	MarginTop    float64 `yaml:"margin_top" json:"margin_top" validate:"gte=0"`
	MarginBottom float64 `yaml:"margin_bottom" json:"margin_bottom" validate:"gte=0"`
	MarginInner  float64 `yaml:"margin_inner" json:"margin_inner" validate:"gte=0"`
	MarginOuter  float64 `yaml:"margin_outer" json:"margin_outer" validate:"gte=0"`

	// CharsPerLine is the assumed number of characters one rendered line holds.
	CharsPerLine int     `yaml:"chars_per_line" json:"chars_per_line" validate:"min=1"`
	LineHeight   float64 `yaml:"line_height" json:"line_height" validate:"gt=0"`
	HeaderHeight float64 `yaml:"header_height" json:"header_height" validate:"gte=0"`
	StatsHeight  float64 `yaml:"stats_height" json:"stats_height" validate:"gte=0"`
	ImageHeight  float64 `yaml:"image_height" json:"image_height" validate:"gte=0"`
	PostMargin   float64 `yaml:"post_margin" json:"post_margin" validate:"gte=0"`
}

// Trade is a 5.5x8.5in trade paperback page with 627 units of content height.
var Trade = Constants{
	PageWidth:    528,
	PageHeight:   816,
	MarginTop:    96,
	MarginBottom: 93,
	MarginInner:  56,
	MarginOuter:  40,
	CharsPerLine: 48,
	LineHeight:   22,
	HeaderHeight: 52,
	StatsHeight:  32,
	ImageHeight:  220,
	PostMargin:   24,
}

var presets = map[string]Constants{
	"trade": Trade,
	"a5": {
		PageWidth:    559,
		PageHeight:   794,
		MarginTop:    76,
		MarginBottom: 76,
		MarginInner:  56,
		MarginOuter:  40,
		CharsPerLine: 52,
		LineHeight:   22,
		HeaderHeight: 52,
		StatsHeight:  32,
		ImageHeight:  220,
		PostMargin:   24,
	},
	"letter": {
		PageWidth:    816,
		PageHeight:   1056,
		MarginTop:    96,
		MarginBottom: 96,
		MarginInner:  72,
		MarginOuter:  72,
		CharsPerLine: 78,
		LineHeight:   24,
		HeaderHeight: 56,
		StatsHeight:  34,
		ImageHeight:  300,
		PostMargin:   28,
	},
}

// Preset returns the named page preset.
func Preset(name string) (Constants, bool) {
	c, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// PresetNames lists the known preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Capacity is the usable content height of one page.
func (c Constants) Capacity() float64 {
	return c.PageHeight - c.MarginTop - c.MarginBottom
}

// ContentWidth is the usable content width of one page.
func (c Constants) ContentWidth() float64 {
	return c.PageWidth - c.MarginInner - c.MarginOuter
}

// Check reports constants that cannot describe a page.
func (c Constants) Check() error {
	if c.Capacity() <= 0 {
		return fmt.Errorf("layout: margins leave no content height (page %.0f, margins %.0f+%.0f)",
			c.PageHeight, c.MarginTop, c.MarginBottom)
	}
	if c.ContentWidth() <= 0 {
		return fmt.Errorf("layout: margins leave no content width (page %.0f, margins %.0f+%.0f)",
			c.PageWidth, c.MarginInner, c.MarginOuter)
	}
	return nil
}

func (c Constants) charsPerLine() int {
	return max(c.CharsPerLine, 1)
}
