package postbook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/eringen/postbook/book"
	"github.com/eringen/postbook/feed"
	"github.com/eringen/postbook/layout"
	"github.com/eringen/postbook/render"
)

// buildBook resolves the feed's images and runs the layout pipeline.
// Images that cannot be prepared are logged and printed from their refs.
func buildBook(ctx context.Context, posts []feed.Post, profile feed.Profile, c layout.Constants, m *Media, log *zap.Logger) (*book.Book, error) {
	refs := []string{profile.ImageRef}
	for _, p := range posts {
		refs = append(refs, p.Images...)
	}
	images, err := m.Resolve(ctx, refs)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		log.Warn("Some images could not be prepared", zap.Error(err))
	}
	return book.Build(posts, profile, c, book.WithImages(images)), nil
}

// Import replaces the stored feed and drops the cached book.
func (a *App) Import(ctx context.Context, f *feed.Feed) (Import, error) {
	if err := f.Validate(); err != nil {
		return Import{}, fmt.Errorf("invalid feed: %w", err)
	}
	imp, err := a.Store.ReplaceFeed(ctx, f)
	if err != nil {
		return Import{}, fmt.Errorf("store feed: %w", err)
	}
	a.Cache.Invalidate()
	a.Log.Info("Imported feed", zap.String("id", imp.ID), zap.Int("posts", imp.Posts), zap.String("handle", f.Profile.Handle))
	return imp, nil
}

// Book returns the book built from the stored feed.
func (a *App) Book(ctx context.Context) (*book.Book, error) {
	return a.Cache.Book(ctx)
}

// BookFrom builds a book from f without touching the store.
func (a *App) BookFrom(ctx context.Context, f *feed.Feed) (*book.Book, error) {
	m := a.Media
	if m == nil {
		m = NewMedia(a.Config.Site.MediaDir, a.Config.Render.MaxImageWidth, a.Config.Render.JPEGQuality, a.Config.Render.Concurrency)
	}
	return buildBook(ctx, f.Posts, f.Profile, a.Constants, m, a.Log)
}

// Export renders b to w as a PDF. When the configured renderer fails and
// draft fallback is on, the local draft renderer is used instead. Nothing
// is written to w unless rendering succeeded.
func (a *App) Export(ctx context.Context, b *book.Book, w io.Writer) error {
	job := render.NewJob(b.Title(), b.Profile.Handle, b.Constants, b.Documents())
	log := a.Log.With(zap.String("job", job.ID), zap.Int("pages", len(job.Pages)))

	var buf bytes.Buffer
	err := a.Renderer.Render(ctx, job, &buf)
	if err != nil && a.Config.Render.DraftFallback && a.Renderer != a.Draft && ctx.Err() == nil {
		log.Warn("Renderer failed, falling back to draft", zap.Error(err))
		buf.Reset()
		err = a.Draft.Render(ctx, job, &buf)
	}
	if err != nil {
		return fmt.Errorf("export %q: %w", b.Title(), err)
	}
	log.Info("Exported book", zap.Int("bytes", buf.Len()))
	_, err = io.Copy(w, &buf)
	return err
}

// ExportFile renders b and writes the PDF to path. A failed render leaves
// no file behind.
func (a *App) ExportFile(ctx context.Context, b *book.Book, path string) error {
	var buf bytes.Buffer
	if err := a.Export(ctx, b, &buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ExportFilename is the file name offered for b's PDF.
func ExportFilename(b *book.Book) string {
	name := slug.Make(b.Title())
	if name == "" {
		name = "book"
	}
	return name + ".pdf"
}

// WritePages writes every page of b as a standalone HTML document into dir,
// named by index and kind so that a directory listing is in page order.
func WritePages(ctx context.Context, b *book.Book, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var names []string
	for i, p := range b.Pages {
		doc, err := b.Document(i)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := doc.Render(ctx, &buf); err != nil {
			return nil, fmt.Errorf("render page %d: %w", i, err)
		}
		name := fmt.Sprintf("%03d-%s.html", i, p.Kind)
		if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
			return nil, fmt.Errorf("write page %d: %w", i, err)
		}
		names = append(names, name)
	}
	return names, nil
}
