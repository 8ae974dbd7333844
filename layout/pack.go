package layout

import "github.com/eringen/postbook/feed"

// packer is the state carried across the fold over posts.
type packer struct {
	c       Constants
	pages   []PageLayout
	current PageLayout
	split   bool
}

// Pack assigns every post, whole or split, to pages in order. A post that
// needed splitting is always followed by a fresh page so that material
// after a split never shares a page with its final fragment.
func Pack(posts []feed.Post, c Constants) []PageLayout {
	pk := &packer{c: c}
	capacity := c.Capacity()
	for i, p := range posts {
		if pk.split {
			pk.flush()
			pk.split = false
		}
		h := c.PostHeight(p)
		switch {
		case h <= pk.remaining():
			pk.add(Chunk{PostIndex: i, End: len(p.Content), Position: Whole}, h)
		case h <= capacity:
			pk.flush()
			pk.add(Chunk{PostIndex: i, End: len(p.Content), Position: Whole}, h)
		default:
			if pk.remaining() < pk.minFirstChunk(p) {
				pk.flush()
			}
			for j, ch := range Split(p, i, pk.remaining(), c) {
				if j > 0 {
					pk.flush()
				}
				pk.add(ch, c.ChunkHeight(ch, p))
			}
			pk.split = true
		}
	}
	pk.flush()
	return pk.pages
}

func (pk *packer) remaining() float64 {
	return pk.c.Capacity() - pk.current.Height
}

// minFirstChunk is the smallest leading fragment worth starting on the
// current page: the fixed blocks above the text plus one line.
func (pk *packer) minFirstChunk(p feed.Post) float64 {
	h := pk.c.HeaderHeight + pk.c.PostMargin + pk.c.LineHeight
	if p.HasImages() {
		h += pk.c.ImageHeight
	}
	return h
}

func (pk *packer) add(ch Chunk, h float64) {
	pk.current.Chunks = append(pk.current.Chunks, ch)
	pk.current.Height += h
}

func (pk *packer) flush() {
	if len(pk.current.Chunks) == 0 {
		return
	}
	pk.pages = append(pk.pages, pk.current)
	pk.current = PageLayout{}
}
