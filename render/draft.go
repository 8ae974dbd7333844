package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/net/html"

	"github.com/eringen/postbook/layout"
)

// pxToPt converts layout units, CSS pixels at 96 DPI, to PDF points.
const pxToPt = 0.75

// Draft renders a proof locally with fpdf. It reads the structure of each
// page document and approximates the print stylesheet with core fonts; it
// is meant for checking pagination, not for press.
type Draft struct {
	Concurrency int
}

// NewDraft returns a Draft renderer.
func NewDraft(concurrency int) *Draft {
	return &Draft{Concurrency: concurrency}
}

// Render implements Renderer.
func (d *Draft) Render(ctx context.Context, job Job, w io.Writer) error {
	docs, err := renderHTML(ctx, job.Pages, d.Concurrency)
	if err != nil {
		return fmt.Errorf("render pages: %w", err)
	}
	c := job.Constants
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: c.PageWidth * pxToPt, Ht: c.PageHeight * pxToPt},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(job.Title, true)
	pdf.SetAuthor(job.Author, true)
	pdf.SetCreator("postbook", true)

	dw := &draftWriter{pdf: pdf, c: c, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		root, err := html.Parse(strings.NewReader(doc))
		if err != nil {
			return fmt.Errorf("parse page %d: %w", i, err)
		}
		dw.page(extractPage(root))
		if pdf.Err() {
			return fmt.Errorf("draw page %d: %w", i, pdf.Error())
		}
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// block is one drawable element of a page, named by its class.
type block struct {
	kind   string
	text   string
	images []string
}

type pageContent struct {
	kind   string
	side   string
	folio  string
	blocks []block
}

var textBlocks = map[string]bool{
	"cover-title":   true,
	"cover-handle":  true,
	"cover-bio":     true,
	"cover-meta":    true,
	"closing-title": true,
	"post-header":   true,
	"post-text":     true,
	"post-stats":    true,
	"continued":     true,
	"continues":     true,
}

func extractPage(root *html.Node) pageContent {
	var pc pageContent
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			classes := strings.Fields(attr(n, "class"))
			switch {
			case hasClass(classes, "page"):
				pc.kind = attr(n, "data-kind")
				if hasClass(classes, "page-left") {
					pc.side = "left"
				} else if hasClass(classes, "page-right") {
					pc.side = "right"
				}
			case hasClass(classes, "folio"):
				pc.folio = textOf(n)
				return
			case hasClass(classes, "avatar"):
				pc.blocks = append(pc.blocks, block{kind: "avatar", images: []string{attr(n, "src")}})
				return
			case hasClass(classes, "post-images"):
				b := block{kind: "post-images"}
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.ElementNode && c.Data == "img" {
						b.images = append(b.images, attr(c, "src"))
					}
				}
				pc.blocks = append(pc.blocks, b)
				return
			}
			for _, cls := range classes {
				if textBlocks[cls] {
					pc.blocks = append(pc.blocks, block{kind: cls, text: textOf(n)})
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && n.Data == "article" {
			pc.blocks = append(pc.blocks, block{kind: "post-end"})
		}
	}
	walk(root)
	return pc
}

// textOf flattens n to plain text. Line breaks come only from br; sibling
// inline elements are spaced apart.
func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(strings.ReplaceAll(n.Data, "\n", ""))
			return
		case html.ElementNode:
			if n.Data == "br" {
				b.WriteByte('\n')
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
			if c.Type == html.ElementNode && (n.Data == "header" || n.Data == "footer") && c.NextSibling != nil {
				b.WriteString("   ")
			}
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(classes []string, name string) bool {
	for _, c := range classes {
		if c == name {
			return true
		}
	}
	return false
}

type draftWriter struct {
	pdf    *fpdf.Fpdf
	c      layout.Constants
	tr     func(string) string
	images int
}

func (dw *draftWriter) fontSize() float64 {
	size := 10.0
	if dw.c.CharsPerLine > 0 {
		size = dw.c.ContentWidth() / float64(dw.c.CharsPerLine) / 0.55 * pxToPt
	}
	return min(max(size, 6), 14)
}

func (dw *draftWriter) page(pc pageContent) {
	pdf, c := dw.pdf, dw.c
	pdf.AddPage()
	switch pc.kind {
	case "content":
		dw.contentPage(pc)
	case "cover", "closing":
		dw.centeredPage(pc)
	}
	if pc.folio != "" {
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(168, 162, 158)
		pdf.SetXY(0, (c.PageHeight-c.MarginBottom/2)*pxToPt)
		pdf.CellFormat(c.PageWidth*pxToPt, 10, dw.tr(pc.folio), "", 0, "C", false, 0, "")
	}
}

func (dw *draftWriter) contentPage(pc pageContent) {
	pdf, c := dw.pdf, dw.c
	left, right := c.MarginInner, c.MarginOuter
	if pc.side == "left" {
		left, right = c.MarginOuter, c.MarginInner
	}
	x := left * pxToPt
	width := (c.PageWidth - left - right) * pxToPt
	y := c.MarginTop * pxToPt
	fs := dw.fontSize()

	for _, b := range pc.blocks {
		pdf.SetXY(x, y)
		switch b.kind {
		case "continued", "continues":
			align := "L"
			if b.kind == "continues" {
				align = "R"
			}
			pdf.SetFont("Helvetica", "I", fs*0.8)
			pdf.SetTextColor(168, 162, 158)
			pdf.CellFormat(width, c.LineHeight*pxToPt*0.8, dw.tr(b.text), "", 0, align, false, 0, "")
			y += c.LineHeight * pxToPt * 0.8
		case "post-header":
			pdf.SetFont("Helvetica", "B", fs*0.9)
			pdf.SetTextColor(28, 25, 23)
			pdf.CellFormat(width, c.HeaderHeight*pxToPt, dw.tr(b.text), "", 0, "LM", false, 0, "")
			y += c.HeaderHeight * pxToPt
		case "post-images":
			dw.imageRow(b.images, x, y, width, c.ImageHeight*pxToPt)
			y += c.ImageHeight * pxToPt
		case "post-text":
			pdf.SetFont("Helvetica", "", fs)
			pdf.SetTextColor(28, 25, 23)
			pdf.MultiCell(width, c.LineHeight*pxToPt, dw.tr(b.text), "", "L", false)
			y = pdf.GetY()
		case "post-stats":
			pdf.SetFont("Helvetica", "", fs*0.8)
			pdf.SetTextColor(120, 113, 108)
			pdf.CellFormat(width, c.StatsHeight*pxToPt, dw.tr(b.text), "", 0, "LM", false, 0, "")
			y += c.StatsHeight * pxToPt
		case "post-end":
			y += c.PostMargin * pxToPt
		}
	}
}

func (dw *draftWriter) centeredPage(pc pageContent) {
	pdf, c := dw.pdf, dw.c
	pad := 48 * pxToPt
	width := c.PageWidth*pxToPt - 2*pad
	y := c.PageHeight * pxToPt / 4
	for _, b := range pc.blocks {
		pdf.SetXY(pad, y)
		switch b.kind {
		case "avatar":
			side := 96 * pxToPt
			dw.imageRow(b.images, (c.PageWidth*pxToPt-side)/2, y, side, side)
			y += side + 18
		case "cover-title", "closing-title":
			pdf.SetFont("Helvetica", "B", 22)
			pdf.SetTextColor(28, 25, 23)
			pdf.MultiCell(width, 28, dw.tr(b.text), "", "C", false)
			y = pdf.GetY() + 6
		default:
			pdf.SetFont("Helvetica", "", 11)
			pdf.SetTextColor(87, 83, 78)
			pdf.MultiCell(width, 15, dw.tr(b.text), "", "C", false)
			y = pdf.GetY() + 10
		}
	}
}

// imageRow draws srcs side by side in the box. Sources that are not
// embedded images get an outlined placeholder.
func (dw *draftWriter) imageRow(srcs []string, x, y, width, height float64) {
	if len(srcs) == 0 {
		return
	}
	gap := 3.0
	w := (width - gap*float64(len(srcs)-1)) / float64(len(srcs))
	for i, src := range srcs {
		ix := x + float64(i)*(w+gap)
		typ, data, ok := decodeDataURI(src)
		if !ok {
			dw.pdf.SetDrawColor(214, 211, 209)
			dw.pdf.Rect(ix, y, w, height, "D")
			continue
		}
		dw.images++
		name := fmt.Sprintf("img%d", dw.images)
		opts := fpdf.ImageOptions{ImageType: typ}
		dw.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
		dw.pdf.ImageOptions(name, ix, y, w, height, false, opts, 0, "")
	}
}

// decodeDataURI returns the fpdf image type and bytes of a base64 data URI.
func decodeDataURI(src string) (string, []byte, bool) {
	rest, ok := strings.CutPrefix(src, "data:")
	if !ok {
		return "", nil, false
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return "", nil, false
	}
	var typ string
	switch strings.TrimSuffix(meta, ";base64") {
	case "image/jpeg":
		typ = "JPG"
	case "image/png":
		typ = "PNG"
	case "image/gif":
		typ = "GIF"
	default:
		return "", nil, false
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, false
	}
	return typ, data, true
}
