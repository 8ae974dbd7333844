// Package richtext renders plain post text as HTML for a printed page.
//
// Posts carry no markup of their own. Line breaks are kept as written, links
// become anchors and mentions and hashtags get their own classes.
package richtext

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/a-h/templ"
)

var (
	reURL     = regexp.MustCompile(`https?://[^\s<]+`)
	reMention = regexp.MustCompile(`(^|[^\w@/])@([A-Za-z0-9_][A-Za-z0-9_.-]*[A-Za-z0-9_]|[A-Za-z0-9_])`)
	reHashtag = regexp.MustCompile(`(^|[^\w#&/])#(\p{L}[\p{L}\p{N}_]*)`)
	reBold    = regexp.MustCompile(`\*\*(\S(?:.*?\S)?)\*\*`)
)

// Text returns a templ.Component that renders content as HTML.
func Text(content string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		Render(&buf, content)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// Render writes the HTML representation of content to buf. Every literal
// line becomes one line of output, blank ones included.
func Render(buf *bytes.Buffer, content string) {
	if content == "" {
		return
	}
	for i, raw := range strings.Split(content, "\n") {
		if i > 0 {
			buf.WriteString("<br/>\n")
		}
		buf.WriteString(FormatInline(strings.TrimRight(raw, "\r")))
	}
}

// FormatInline escapes s and decorates links, mentions, hashtags and
// **bold** runs.
func FormatInline(s string) string {
	escaped := html.EscapeString(s)
	escaped = reURL.ReplaceAllStringFunc(escaped, func(m string) string {
		link, trail := trimTrailingPunct(m)
		href := SafeURL(link)
		if href == "" {
			return m
		}
		return `<a class="link" href="` + href + `">` + displayURL(link) + `</a>` + trail
	})
	return ApplyOutsideTags(escaped, func(seg string) string {
		seg = reMention.ReplaceAllString(seg, `$1<span class="mention">@$2</span>`)
		seg = reHashtag.ReplaceAllString(seg, `$1<span class="hashtag">#$2</span>`)
		seg = reBold.ReplaceAllString(seg, "<strong>$1</strong>")
		return seg
	})
}

// ApplyOutsideTags applies fn only to text segments outside HTML tags and
// outside anchors, so decoration never reaches into a link.
func ApplyOutsideTags(s string, fn func(string) string) string {
	var buf strings.Builder
	inAnchor := false
	for len(s) > 0 {
		lt := strings.Index(s, "<")
		if lt < 0 {
			buf.WriteString(apply(s, fn, inAnchor))
			break
		}
		if lt > 0 {
			buf.WriteString(apply(s[:lt], fn, inAnchor))
		}
		gt := strings.Index(s[lt:], ">")
		if gt < 0 {
			buf.WriteString(s[lt:])
			break
		}
		tag := s[lt : lt+gt+1]
		switch {
		case strings.HasPrefix(tag, "<a "):
			inAnchor = true
		case tag == "</a>":
			inAnchor = false
		}
		buf.WriteString(tag)
		s = s[lt+gt+1:]
	}
	return buf.String()
}

func apply(seg string, fn func(string) string, skip bool) string {
	if skip {
		return seg
	}
	return fn(seg)
}

// SafeURL validates and sanitizes a URL for use in HTML attributes.
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Host == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		return html.EscapeString(val)
	default:
		return ""
	}
}

// displayURL drops the scheme; print readers type the rest.
func displayURL(escaped string) string {
	s := strings.TrimPrefix(escaped, "https://")
	return strings.TrimPrefix(s, "http://")
}

// trimTrailingPunct splits sentence punctuation and quotes off the end of
// a matched URL. A closing parenthesis stays when the URL opened one.
func trimTrailingPunct(m string) (string, string) {
	end := len(m)
	for end > 0 {
		s := m[:end]
		if strings.HasSuffix(s, "&#34;") || strings.HasSuffix(s, "&#39;") {
			end -= len("&#34;")
			continue
		}
		switch s[end-1] {
		case '.', ',', '!', '?', ':':
			end--
			continue
		case ')':
			if strings.Count(s, "(") < strings.Count(s, ")") {
				end--
				continue
			}
		}
		break
	}
	return m[:end], m[end:]
}
