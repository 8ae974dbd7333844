package layout

import "encoding/json"

// Position places a chunk within the sequence of chunks cut from one post.
// The presentational flags derive from it, so a header on a trailing
// fragment or stats on a leading one cannot be expressed.
type Position uint8

const (
	// Whole is the only chunk of an unsplit post.
	Whole Position = iota
	// Head is the first chunk of a split post.
	Head
	// Middle is neither first nor last.
	Middle
	// Tail is the last chunk of a split post.
	Tail
)

var positionNames = [...]string{"whole", "head", "middle", "tail"}

func (p Position) String() string {
	if int(p) < len(positionNames) {
		return positionNames[p]
	}
	return "unknown"
}

// MarshalJSON encodes the position by name.
func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// IsFirst reports whether the chunk opens its post.
func (p Position) IsFirst() bool { return p == Whole || p == Head }

// IsLast reports whether the chunk closes its post.
func (p Position) IsLast() bool { return p == Whole || p == Tail }

// Chunk is a contiguous byte range [Start, End) of one post's content that
// is laid out on a single page.
type Chunk struct {
	PostIndex int      `json:"post"`
	Start     int      `json:"start"`
	End       int      `json:"end"`
	Position  Position `json:"position"`

	// Set by ResolveContinuations once every page is known.
	ShowContinued bool `json:"continued,omitempty"`
	ShowContinues bool `json:"continues,omitempty"`
}

func (c Chunk) IsFirst() bool    { return c.Position.IsFirst() }
func (c Chunk) IsLast() bool     { return c.Position.IsLast() }
func (c Chunk) ShowHeader() bool { return c.Position.IsFirst() }
func (c Chunk) ShowImages() bool { return c.Position.IsFirst() }
func (c Chunk) ShowStats() bool  { return c.Position.IsLast() }

// Text returns the slice of content the chunk covers.
func (c Chunk) Text(content string) string {
	return content[c.Start:c.End]
}

// PageLayout is the ordered set of chunks packed onto one page.
type PageLayout struct {
	Chunks []Chunk `json:"chunks"`
	Height float64 `json:"height"`
}
