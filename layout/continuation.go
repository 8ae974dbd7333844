package layout

// TotalPages is the final page count for n content pages: cover, content,
// a blank filler when n is odd, closing.
func TotalPages(n int) int {
	return 1 + n + n%2 + 1
}

// SameSpread reports whether final page indices i and j are visible
// together. The cover and the closing page always stand alone; interior
// pages pair up as (1,2), (3,4), ...
func SameSpread(i, j, total int) bool {
	last := total - 1
	if i <= 0 || j <= 0 || i >= last || j >= last {
		return false
	}
	return (i-1)/2 == (j-1)/2
}

// ResolveContinuations marks the split boundaries a reader can observe. For
// every pair of adjacent fragments of one post that land in different
// spreads, the earlier one continues and the later one is continued. Pages
// are modified in place; content page k sits at final index k+1.
func ResolveContinuations(pages []PageLayout) {
	type at struct{ page, chunk int }
	total := TotalPages(len(pages))
	last := make(map[int]at)
	for pi := range pages {
		for ci := range pages[pi].Chunks {
			ch := &pages[pi].Chunks[ci]
			ch.ShowContinued, ch.ShowContinues = false, false
			if prev, ok := last[ch.PostIndex]; ok && !ch.IsFirst() {
				if !SameSpread(prev.page+1, pi+1, total) {
					pages[prev.page].Chunks[prev.chunk].ShowContinues = true
					ch.ShowContinued = true
				}
			}
			last[ch.PostIndex] = at{pi, ci}
		}
	}
}
