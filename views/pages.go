package views

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/postbook/feed"
	"github.com/eringen/postbook/layout"
	"github.com/eringen/postbook/richtext"
)

// component adapts a buffer-writing func to templ.Component. Output is
// only written once the whole unit rendered.
func component(fn func(ctx context.Context, buf *bytes.Buffer) error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		if err := fn(ctx, &buf); err != nil {
			return err
		}
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// Cover renders the first page of the book. avatar is an image source
// already suitable for an img tag, or empty.
func Cover(p feed.Profile, avatar string, postCount int) templ.Component {
	return component(func(ctx context.Context, buf *bytes.Buffer) error {
		buf.WriteString(`<section class="page page-cover" data-kind="cover">`)
		if avatar != "" {
			fmt.Fprintf(buf, `<img class="avatar" src="%s" alt="%s"/>`, html.EscapeString(avatar), html.EscapeString(p.DisplayName))
		}
		fmt.Fprintf(buf, `<h1 class="cover-title">%s</h1>`, html.EscapeString(displayName(p)))
		if p.Handle != "" {
			fmt.Fprintf(buf, `<p class="cover-handle">@%s</p>`, html.EscapeString(p.Handle))
		}
		if p.Bio != "" {
			buf.WriteString(`<div class="cover-bio">`)
			if err := richtext.Text(p.Bio).Render(ctx, buf); err != nil {
				return err
			}
			buf.WriteString(`</div>`)
		}
		fmt.Fprintf(buf, `<p class="cover-meta">%s posts · %s followers</p>`, FormatCount(postCount), FormatCount(p.Followers))
		buf.WriteString(`</section>`)
		return nil
	})
}

// ContentPage renders content page number (1-based) from its layout.
// images maps a post's image refs to sources for img tags; refs without an
// entry are used as they are.
func ContentPage(number int, pl layout.PageLayout, posts []feed.Post, images map[string]string) templ.Component {
	return component(func(ctx context.Context, buf *bytes.Buffer) error {
		fmt.Fprintf(buf, `<section class="page page-content page-%s" data-kind="content" data-number="%d">`, pageSide(number), number)
		for _, ch := range pl.Chunks {
			if ch.PostIndex < 0 || ch.PostIndex >= len(posts) {
				return fmt.Errorf("page %d: chunk refers to post %d of %d", number, ch.PostIndex, len(posts))
			}
			if err := writeChunk(ctx, buf, ch, posts[ch.PostIndex], images); err != nil {
				return err
			}
		}
		fmt.Fprintf(buf, `<footer class="folio">%d</footer>`, number)
		buf.WriteString(`</section>`)
		return nil
	})
}

func writeChunk(ctx context.Context, buf *bytes.Buffer, ch layout.Chunk, p feed.Post, images map[string]string) error {
	fmt.Fprintf(buf, `<article class="post post-%s" data-post="%s">`, ch.Position, html.EscapeString(p.ID))
	if ch.ShowContinued {
		buf.WriteString(`<p class="continued">continued from previous page</p>`)
	}
	if ch.ShowHeader() {
		buf.WriteString(`<header class="post-header">`)
		fmt.Fprintf(buf, `<span class="post-author">%s</span>`, html.EscapeString(authorName(p)))
		if p.AuthorHandle != "" {
			fmt.Fprintf(buf, `<span class="post-handle">@%s</span>`, html.EscapeString(p.AuthorHandle))
		}
		if d := FormatDate(p.CreatedAt); d != "" {
			fmt.Fprintf(buf, `<time class="post-date" datetime="%s">%s</time>`, p.CreatedAt.Format(time.RFC3339), d)
		}
		buf.WriteString(`</header>`)
	}
	if ch.ShowImages() && p.HasImages() {
		buf.WriteString(`<figure class="post-images">`)
		for i, ref := range p.Images {
			src, ok := images[ref]
			if !ok {
				src = ref
			}
			fmt.Fprintf(buf, `<img src="%s" alt="image %d"/>`, html.EscapeString(src), i+1)
		}
		buf.WriteString(`</figure>`)
	}
	buf.WriteString(`<div class="post-text">`)
	if err := richtext.Text(ch.Text(p.Content)).Render(ctx, buf); err != nil {
		return err
	}
	buf.WriteString(`</div>`)
	if ch.ShowContinues {
		buf.WriteString(`<p class="continues">continues on next page</p>`)
	}
	if ch.ShowStats() {
		fmt.Fprintf(buf, `<footer class="post-stats"><span class="likes">%s likes</span><span class="reposts">%s reposts</span><span class="replies">%s replies</span></footer>`,
			FormatCount(p.Likes), FormatCount(p.Reposts), FormatCount(p.Replies))
	}
	buf.WriteString(`</article>`)
	return nil
}

// BlankPage renders the filler that keeps the closing page on its own.
func BlankPage() templ.Component {
	return component(func(ctx context.Context, buf *bytes.Buffer) error {
		buf.WriteString(`<section class="page page-blank" data-kind="blank"></section>`)
		return nil
	})
}

// ClosingPage renders the last page of the book.
func ClosingPage(p feed.Profile, postCount int, first, last time.Time) templ.Component {
	return component(func(ctx context.Context, buf *bytes.Buffer) error {
		buf.WriteString(`<section class="page page-closing" data-kind="closing">`)
		fmt.Fprintf(buf, `<p class="closing-title">%s</p>`, html.EscapeString(displayName(p)))
		fmt.Fprintf(buf, `<p class="cover-meta">%s posts</p>`, FormatCount(postCount))
		if span := dateSpan(first, last); span != "" {
			fmt.Fprintf(buf, `<p class="cover-meta closing-dates">%s</p>`, span)
		}
		buf.WriteString(`</section>`)
		return nil
	})
}

// Document wraps a page unit into a standalone HTML document with its
// stylesheet inlined, ready for a headless renderer.
func Document(title string, c layout.Constants, body templ.Component) templ.Component {
	return component(func(ctx context.Context, buf *bytes.Buffer) error {
		buf.WriteString("<!DOCTYPE html>\n<html lang=\"en\"><head><meta charset=\"utf-8\"/>")
		fmt.Fprintf(buf, "<title>%s</title>", html.EscapeString(title))
		buf.WriteString("<style>")
		buf.WriteString(Stylesheet(c))
		buf.WriteString("</style></head><body>")
		if err := body.Render(ctx, buf); err != nil {
			return err
		}
		buf.WriteString("</body></html>\n")
		return nil
	})
}

func displayName(p feed.Profile) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if p.Handle != "" {
		return "@" + p.Handle
	}
	return "Untitled"
}

func authorName(p feed.Post) string {
	if p.AuthorName != "" {
		return p.AuthorName
	}
	return p.AuthorHandle
}

func dateSpan(first, last time.Time) string {
	a, b := FormatDate(first), FormatDate(last)
	switch {
	case a == "" && b == "":
		return ""
	case a == "" || a == b:
		return b
	case b == "":
		return a
	}
	return a + " to " + b
}
