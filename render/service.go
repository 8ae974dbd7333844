package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Service renders through a headless browser service. The service receives
// the page documents in order and answers with the PDF.
type Service struct {
	URL         string
	Concurrency int

	client *http.Client
}

// NewService returns a Service posting to url.
func NewService(url string, timeout time.Duration, concurrency int) *Service {
	return &Service{
		URL:         url,
		Concurrency: concurrency,
		client:      &http.Client{Timeout: timeout},
	}
}

type serviceRequest struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Author string   `json:"author,omitempty"`
	Width  float64  `json:"width"`
	Height float64  `json:"height"`
	Pages  []string `json:"pages"`
}

// Render implements Renderer.
func (s *Service) Render(ctx context.Context, job Job, w io.Writer) error {
	pages, err := renderHTML(ctx, job.Pages, s.Concurrency)
	if err != nil {
		return fmt.Errorf("render pages: %w", err)
	}
	body, err := json.Marshal(serviceRequest{
		ID:     job.ID,
		Title:  job.Title,
		Author: job.Author,
		Width:  job.Constants.PageWidth,
		Height: job.Constants.PageHeight,
		Pages:  pages,
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/pdf")
	req.Header.Set("X-Request-ID", job.ID)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to render service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("render service: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/pdf") {
		return fmt.Errorf("render service: unexpected content type %q", ct)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("read render service response: %w", err)
	}
	return nil
}
