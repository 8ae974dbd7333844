// Package render turns the ordered page documents of a book into a PDF.
//
// Two renderers exist: Service hands the documents to a headless browser
// service over HTTP, Draft lays them out locally with fpdf. Both consume
// pages strictly in order.
package render

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/eringen/postbook/layout"
)

// Job is one book to render.
type Job struct {
	ID        string
	Title     string
	Author    string
	Constants layout.Constants
	// Pages are standalone HTML documents, one per physical page.
	Pages []templ.Component
}

// NewJob returns a job with a fresh time-ordered ID.
func NewJob(title, author string, c layout.Constants, pages []templ.Component) Job {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return Job{ID: id.String(), Title: title, Author: author, Constants: c, Pages: pages}
}

// Renderer writes the PDF for a job to w.
type Renderer interface {
	Render(ctx context.Context, job Job, w io.Writer) error
}

// renderHTML renders every page to a string, at most limit at a time.
// The result keeps page order.
func renderHTML(ctx context.Context, pages []templ.Component, limit int) ([]string, error) {
	out := make([]string, len(pages))
	group, groupctx := errgroup.WithContext(ctx)
	if limit > 0 {
		group.SetLimit(limit)
	}
	for i, page := range pages {
		group.Go(func() error {
			var buf bytes.Buffer
			if err := page.Render(groupctx, &buf); err != nil {
				return fmt.Errorf("page %d: %w", i, err)
			}
			out[i] = buf.String()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
