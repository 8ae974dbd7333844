package layout

import (
	"strings"
	"unicode/utf8"

	"github.com/eringen/postbook/feed"
)

// TextLines estimates how many rendered lines text occupies. Every literal
// line takes at least one rendered line; empty text takes none.
func (c Constants) TextLines(text string) int {
	if text == "" {
		return 0
	}
	lines := 0
	for _, line := range strings.Split(text, "\n") {
		lines += c.lineSpan(line)
	}
	return lines
}

// TextHeight estimates the vertical space of text alone.
func (c Constants) TextHeight(text string) float64 {
	return float64(c.TextLines(text)) * c.LineHeight
}

// PostHeight estimates the vertical space of a whole, unsplit post.
func (c Constants) PostHeight(p feed.Post) float64 {
	h := c.TextHeight(p.Content) + c.HeaderHeight + c.StatsHeight + c.PostMargin
	if p.HasImages() {
		h += c.ImageHeight
	}
	return h
}

// ChunkHeight estimates the vertical space of one chunk of p. Only the fixed
// blocks the chunk shows are counted.
func (c Constants) ChunkHeight(ch Chunk, p feed.Post) float64 {
	text := ch.Text(p.Content)
	if !ch.IsLast() {
		// the break separating this chunk from the next one
		text = strings.TrimSuffix(text, "\n")
	}
	h := c.TextHeight(text) + c.PostMargin
	if ch.ShowHeader() {
		h += c.HeaderHeight
	}
	if ch.ShowImages() && p.HasImages() {
		h += c.ImageHeight
	}
	if ch.ShowStats() {
		h += c.StatsHeight
	}
	return h
}

func (c Constants) lineSpan(line string) int {
	cpl := c.charsPerLine()
	n := utf8.RuneCountInString(line)
	return max((n+cpl-1)/cpl, 1)
}

// linesFor converts a height budget into whole lines, never fewer than one.
func (c Constants) linesFor(budget float64) int {
	if c.LineHeight <= 0 || budget <= 0 {
		return 1
	}
	return max(int(budget/c.LineHeight), 1)
}
