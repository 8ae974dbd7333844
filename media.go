package postbook

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/h2non/filetype"
	"go.uber.org/multierr"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

const maxImageSize = 20 << 20 // 20MB

// Media turns local image refs into inline data URIs so that page units do
// not depend on files next to them.
type Media struct {
	Dir         string
	MaxWidth    int
	Quality     int
	Concurrency int
}

// NewMedia returns a Media reading refs relative to dir.
func NewMedia(dir string, maxWidth, quality, concurrency int) *Media {
	return &Media{Dir: dir, MaxWidth: maxWidth, Quality: quality, Concurrency: concurrency}
}

// Resolve prepares every distinct local ref. Remote URLs and data URIs are
// left alone. Refs that fail are missing from the map and reported in the
// combined error; the map is usable either way.
func (m *Media) Resolve(ctx context.Context, refs []string) (map[string]string, error) {
	var (
		mu   sync.Mutex
		out  = make(map[string]string)
		errs error
	)
	group, groupctx := errgroup.WithContext(ctx)
	if m.Concurrency > 0 {
		group.SetLimit(m.Concurrency)
	}
	seen := make(map[string]struct{})
	for _, ref := range refs {
		if _, dup := seen[ref]; dup || !isLocalRef(ref) {
			continue
		}
		seen[ref] = struct{}{}
		group.Go(func() error {
			if err := groupctx.Err(); err != nil {
				return err
			}
			uri, err := m.dataURI(ref)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("image %q: %w", ref, err))
				return nil
			}
			out[ref] = uri
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return out, err
	}
	return out, errs
}

func isLocalRef(ref string) bool {
	if ref == "" {
		return false
	}
	for _, prefix := range []string{"http://", "https://", "data:"} {
		if strings.HasPrefix(ref, prefix) {
			return false
		}
	}
	return true
}

// path maps a ref into Dir; refs cannot climb out of it.
func (m *Media) path(ref string) string {
	return filepath.Join(m.Dir, filepath.Clean("/"+filepath.ToSlash(ref)))
}

func (m *Media) dataURI(ref string) (string, error) {
	f, err := os.Open(m.path(ref))
	if err != nil {
		return "", err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxImageSize+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxImageSize {
		return "", fmt.Errorf("larger than %d bytes", maxImageSize)
	}
	out, mime, err := m.processImage(data)
	if err != nil {
		return "", err
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(out), nil
}

// processImage checks the file type, downsizes images wider than MaxWidth
// and re-encodes them as JPEG. JPEGs that fit pass through untouched.
func (m *Media) processImage(data []byte) ([]byte, string, error) {
	kind, err := filetype.Match(data)
	if err != nil {
		return nil, "", fmt.Errorf("detect type: %w", err)
	}
	switch kind.MIME.Value {
	case "image/jpeg", "image/png", "image/gif":
	default:
		return nil, "", fmt.Errorf("unsupported image type %q", kind.MIME.Value)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= m.MaxWidth && kind.MIME.Value == "image/jpeg" {
		return data, "image/jpeg", nil
	}

	tw, th := w, h
	if w > m.MaxWidth {
		tw, th = m.MaxWidth, max(h*m.MaxWidth/w, 1)
	}
	// JPEG has no alpha; transparent pixels land on white paper
	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: m.Quality}); err != nil {
		return nil, "", fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}
