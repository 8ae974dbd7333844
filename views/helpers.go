package views

import (
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// buildURL joins path segments onto a base URL, ensuring a trailing slash.
func buildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// SpreadURL is the preview path of spread n.
func SpreadURL(n int) string {
	return buildURL("/", "spreads", strconv.Itoa(n))
}

// PageURL is the path of the standalone document for page n.
func PageURL(n int) string {
	return buildURL("/", "pages", strconv.Itoa(n))
}

// FormatCount renders an engagement or follower count for print.
func FormatCount(n int) string {
	if n >= 10000 {
		return strings.ReplaceAll(humanize.SIWithDigits(float64(n), 1, ""), " ", "")
	}
	return humanize.Comma(int64(n))
}

// FormatDate renders a post timestamp the way the book prints it.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

// pageSide reports which side of a spread content page number lands on.
// Content page k sits at final index k; odd indices open a spread.
func pageSide(number int) string {
	if number%2 == 1 {
		return "left"
	}
	return "right"
}
