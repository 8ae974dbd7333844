package views

import (
	"fmt"
	"strings"

	"github.com/eringen/postbook/layout"
)

// Stylesheet returns the print CSS for pages sized by c. Layout units are
// rendered as CSS pixels, so the estimator and the renderer agree on the
// fixed block heights.
func Stylesheet(c layout.Constants) string {
	var b strings.Builder
	px := func(v float64) string { return fmt.Sprintf("%.2fpx", v) }
	fontSize := 0.0
	if c.CharsPerLine > 0 {
		// an average glyph is a little over half an em wide
		fontSize = c.ContentWidth() / float64(c.CharsPerLine) / 0.55
	}

	fmt.Fprintf(&b, "@page{size:%s %s;margin:0}\n", px(c.PageWidth), px(c.PageHeight))
	b.WriteString("*{box-sizing:border-box}\nbody{margin:0;font-family:Georgia,'Times New Roman',serif;color:#1c1917}\n")
	fmt.Fprintf(&b, ".page{position:relative;width:%s;height:%s;overflow:hidden;background:#fff;page-break-after:always}\n",
		px(c.PageWidth), px(c.PageHeight))
	fmt.Fprintf(&b, ".page-left{padding:%s %s %s %s}\n",
		px(c.MarginTop), px(c.MarginInner), px(c.MarginBottom), px(c.MarginOuter))
	fmt.Fprintf(&b, ".page-right{padding:%s %s %s %s}\n",
		px(c.MarginTop), px(c.MarginOuter), px(c.MarginBottom), px(c.MarginInner))
	fmt.Fprintf(&b, ".post{margin-bottom:%s}\n", px(c.PostMargin))
	fmt.Fprintf(&b, ".post-text{font-size:%s;line-height:%s;overflow-wrap:anywhere}\n", px(fontSize), px(c.LineHeight))
	fmt.Fprintf(&b, ".post-header{height:%s;display:flex;align-items:baseline;gap:6px;font-size:%s}\n",
		px(c.HeaderHeight), px(fontSize*0.9))
	fmt.Fprintf(&b, ".post-images{height:%s;display:flex;gap:4px;margin:0}\n", px(c.ImageHeight))
	b.WriteString(".post-images img{flex:1;min-width:0;height:100%;object-fit:cover;border-radius:4px}\n")
	fmt.Fprintf(&b, ".post-stats{height:%s;display:flex;gap:12px;align-items:center;font-size:%s;color:#78716c}\n",
		px(c.StatsHeight), px(fontSize*0.8))
	b.WriteString(".post-author{font-weight:bold}\n.post-handle,.post-date{color:#78716c}\n")
	b.WriteString(".continued,.continues{margin:0;font-style:italic;font-size:.8em;color:#a8a29e}\n.continues{text-align:right}\n")
	b.WriteString(".mention,.hashtag,.link{color:#1d4ed8;text-decoration:none}\n")
	fmt.Fprintf(&b, ".folio{position:absolute;bottom:%s;left:0;right:0;text-align:center;font-size:11px;color:#a8a29e}\n",
		px(c.MarginBottom/2))
	b.WriteString(".page-cover,.page-closing{display:flex;flex-direction:column;align-items:center;justify-content:center;text-align:center;padding:48px}\n")
	b.WriteString(".avatar{width:128px;height:128px;border-radius:50%;object-fit:cover;margin-bottom:24px}\n")
	b.WriteString(".cover-title{font-size:32px;margin:0 0 8px}\n.cover-bio{margin:24px 0;line-height:1.5}\n.cover-meta{color:#78716c;font-size:13px}\n")
	return b.String()
}
