package layout

import (
	"strings"

	"github.com/eringen/postbook/feed"
)

// Split cuts p into chunks that each fit a page. The first chunk is sized
// to available; every later chunk gets a full page. Concatenating the
// chunks' text reproduces p.Content exactly.
func Split(p feed.Post, postIndex int, available float64, c Constants) []Chunk {
	content := p.Content
	if content == "" {
		return []Chunk{{PostIndex: postIndex, Position: Whole}}
	}

	var bounds [][2]int
	for cursor := 0; cursor < len(content); {
		first := cursor == 0
		budget := available - c.PostMargin
		if first {
			budget -= c.HeaderHeight
			if p.HasImages() {
				budget -= c.ImageHeight
			}
		}
		rest := content[cursor:]
		end := cursor + c.breakAfter(rest, c.linesFor(budget))

		// Stats only land on the final fragment. Reserve their room once
		// this fragment turns out to be it, leaving the tail to a new page.
		if end == len(content) && c.StatsHeight > 0 &&
			c.TextHeight(rest)+c.StatsHeight > budget {
			if shorter := cursor + c.breakAfter(rest, c.linesFor(budget-c.StatsHeight)); shorter < end {
				end = shorter
			}
		}

		bounds = append(bounds, [2]int{cursor, end})
		cursor = end
		available = c.Capacity()
	}

	chunks := make([]Chunk, len(bounds))
	for i, b := range bounds {
		pos := Middle
		switch {
		case len(bounds) == 1:
			pos = Whole
		case i == 0:
			pos = Head
		case i == len(bounds)-1:
			pos = Tail
		}
		chunks[i] = Chunk{PostIndex: postIndex, Start: b[0], End: b[1], Position: pos}
	}
	return chunks
}

// breakAfter returns the byte length of the longest prefix of text made of
// whole literal lines that fits maxLines rendered lines. A newline stays
// with the line it terminates. When even the first line does not fit it is
// broken inside, so the result is always positive for non-empty text.
func (c Constants) breakAfter(text string, maxLines int) int {
	used, end := 0, 0
	for end < len(text) {
		line, next := text[end:], len(text)
		nl := strings.IndexByte(line, '\n')
		if nl >= 0 {
			line, next = line[:nl], end+nl+1
		}
		span := c.lineSpan(line)
		if nl >= 0 && next == len(text) {
			// a trailing newline opens one more, empty, line
			span++
		}
		if used+span > maxLines {
			if end > 0 {
				return end
			}
			if c.lineSpan(line) <= maxLines {
				return next
			}
			return c.hardBreak(line, maxLines)
		}
		used += span
		end = next
	}
	return end
}

// hardBreak cuts a single literal line that is longer than maxLines. It
// backs off from the raw cut to just after the nearest preceding space.
func (c Constants) hardBreak(line string, maxLines int) int {
	limit := maxLines * c.charsPerLine()
	cut := len(line)
	for i := range line {
		if limit == 0 {
			cut = i
			break
		}
		limit--
	}
	if sp := strings.LastIndexByte(line[:cut], ' '); sp >= 0 {
		return sp + 1
	}
	return cut
}
