package views

import (
	"bytes"
	"context"
	"fmt"
	"html"

	"github.com/a-h/templ"

	"github.com/eringen/postbook/layout"
)

// SpreadPreview renders the full preview page around one spread.
func SpreadPreview(cfg SiteConfig, c layout.Constants, sp SpreadView, csrfToken string) templ.Component {
	return component(func(ctx context.Context, buf *bytes.Buffer) error {
		writeHead(buf, cfg.Name, c)
		buf.WriteString(`<body class="preview"><header class="preview-bar">`)
		fmt.Fprintf(buf, `<a class="preview-title" href="%s">%s</a>`, html.EscapeString(buildURL(cfg.URL)), html.EscapeString(cfg.Name))
		buf.WriteString(`<form method="post" action="/export/" class="preview-export">`)
		fmt.Fprintf(buf, `<input type="hidden" name="_csrf" value="%s"/>`, html.EscapeString(csrfToken))
		buf.WriteString(`<button type="submit">Export PDF</button></form></header>`)
		buf.WriteString(`<main id="book">`)
		if err := SpreadPartial(sp).Render(ctx, buf); err != nil {
			return err
		}
		buf.WriteString(`</main><script src="/public/preview.js" defer></script></body></html>`)
		return nil
	})
}

// SpreadPartial renders one spread with its navigation. The preview script
// swaps it into #book.
func SpreadPartial(sp SpreadView) templ.Component {
	return component(func(ctx context.Context, buf *bytes.Buffer) error {
		fmt.Fprintf(buf, `<div class="spread" data-spread="%d" data-total="%d">`, sp.Index, sp.Total)
		for _, side := range []struct {
			name string
			page *PageView
		}{{"left", sp.Left}, {"right", sp.Right}} {
			if side.page == nil {
				fmt.Fprintf(buf, `<div class="spread-side spread-%s spread-empty"></div>`, side.name)
				continue
			}
			fmt.Fprintf(buf, `<div class="spread-side spread-%s" data-page="%d">`, side.name, side.page.Index)
			if err := side.page.Content.Render(ctx, buf); err != nil {
				return err
			}
			buf.WriteString(`</div>`)
		}
		buf.WriteString(`</div><nav class="spread-nav">`)
		if sp.HasPrev() {
			fmt.Fprintf(buf, `<a class="nav-prev" rel="prev" href="%s">Previous</a>`, SpreadURL(sp.Index-1))
		}
		fmt.Fprintf(buf, `<span class="nav-pos">%d / %d</span>`, sp.Index+1, sp.Total)
		if sp.HasNext() {
			fmt.Fprintf(buf, `<a class="nav-next" rel="next" href="%s">Next</a>`, SpreadURL(sp.Index+1))
		}
		buf.WriteString(`</nav>`)
		return nil
	})
}

// NotFound renders the 404 page.
func NotFound() templ.Component {
	return message("Not found", "There is no such page in this book.")
}

// ServerError renders the 500 page.
func ServerError() templ.Component {
	return message("Something went wrong", "The book could not be prepared. Try again shortly.")
}

func message(title, text string) templ.Component {
	return component(func(ctx context.Context, buf *bytes.Buffer) error {
		buf.WriteString("<!DOCTYPE html>\n<html lang=\"en\"><head><meta charset=\"utf-8\"/>")
		fmt.Fprintf(buf, `<title>%s</title><link rel="stylesheet" href="/public/preview.css"/></head>`, html.EscapeString(title))
		fmt.Fprintf(buf, `<body class="preview"><main class="message"><h1>%s</h1><p>%s</p><p><a href="/">Back to the book</a></p></main></body></html>`,
			html.EscapeString(title), html.EscapeString(text))
		return nil
	})
}

func writeHead(buf *bytes.Buffer, title string, c layout.Constants) {
	buf.WriteString("<!DOCTYPE html>\n<html lang=\"en\"><head><meta charset=\"utf-8\"/>")
	buf.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1"/>`)
	fmt.Fprintf(buf, "<title>%s</title>", html.EscapeString(title))
	buf.WriteString(`<link rel="stylesheet" href="/public/preview.css"/><style>`)
	buf.WriteString(Stylesheet(c))
	buf.WriteString("</style></head>")
}
