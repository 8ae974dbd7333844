package postbook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/eringen/postbook/render"
)

const testImportToken = "secret-token"

type fakeRenderer struct {
	mu   sync.Mutex
	jobs []render.Job
	err  error
}

func (f *fakeRenderer) Render(_ context.Context, job render.Job, w io.Writer) error {
	f.mu.Lock()
	f.jobs = append(f.jobs, job)
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	_, err := io.WriteString(w, "%PDF-1.7 fake")
	return err
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Site.DatabasePath = filepath.Join(dir, "book.db")
	cfg.Site.MediaDir = filepath.Join(dir, "media")
	cfg.Site.SessionSecret = "test-session-secret"
	cfg.Site.ImportToken = testImportToken
	cfg.Site.ExportLimit = 1
	cfg.Logging.Level = "none"
	return cfg
}

func setupTestApp(t *testing.T, cfg *Config, posts int) (*App, *fakeRenderer) {
	t.Helper()
	r := &fakeRenderer{}
	a, err := New(cfg, WithRenderer(r))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	if err := a.Setup(); err != nil {
		t.Fatalf("Setup() = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	if posts > 0 {
		if _, err := a.Import(context.Background(), sampleFeed(posts)); err != nil {
			t.Fatalf("Import() = %v", err)
		}
	}
	return a, r
}

func serve(a *App, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func parseBody(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("parse response: %v", err)
	}
	return doc
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestHomeShowsCoverSpread(t *testing.T) {
	a, _ := setupTestApp(t, testConfig(t), 3)

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	doc := parseBody(t, rec)
	sp := doc.Find("main#book .spread")
	if v, _ := sp.Attr("data-spread"); v != "0" {
		t.Errorf("data-spread = %q, want 0", v)
	}
	if v, _ := sp.Attr("data-total"); v != "4" {
		t.Errorf("data-total = %q, want 4", v)
	}
	if sp.Find(".spread-left.spread-empty").Length() != 1 {
		t.Error("cover spread should have an empty left side")
	}
	if doc.Find(".nav-prev").Length() != 0 || doc.Find(".nav-next").Length() != 1 {
		t.Error("cover spread should only link forward")
	}
	if v, _ := doc.Find(`input[name="_csrf"]`).Attr("value"); v == "" {
		t.Error("export form has no CSRF token")
	}
}

func TestSpreadRoutes(t *testing.T) {
	a, _ := setupTestApp(t, testConfig(t), 3)

	tests := []struct {
		name   string
		path   string
		hx     bool
		status int
	}{
		{"interior spread", "/spreads/1/", false, http.StatusOK},
		{"closing spread", "/spreads/3/", false, http.StatusOK},
		{"partial", "/spreads/2/", true, http.StatusOK},
		{"past the end", "/spreads/4/", false, http.StatusNotFound},
		{"negative", "/spreads/-1/", false, http.StatusNotFound},
		{"not a number", "/spreads/abc/", false, http.StatusNotFound},
		{"unknown route", "/nope/", false, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.hx {
				req.Header.Set("HX-Request", "true")
			}
			rec := serve(a, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			doc := parseBody(t, rec)
			if tt.status == http.StatusNotFound {
				if got := doc.Find("h1").Text(); got != "Not found" {
					t.Errorf("h1 = %q, want the not found page", got)
				}
				return
			}
			if tt.hx && doc.Find("main#book").Length() != 0 {
				t.Error("partial response should not include the page shell")
			}
			if doc.Find(".spread").Length() != 1 {
				t.Error("response has no spread")
			}
			if got := rec.Header().Get("Cache-Control"); got != "no-store" {
				t.Errorf("Cache-Control = %q, want no-store", got)
			}
		})
	}
}

func TestSpreadRedirectsToTrailingSlash(t *testing.T) {
	a, _ := setupTestApp(t, testConfig(t), 1)

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/spreads/1", nil))
	if rec.Code != http.StatusMovedPermanently {
		t.Fatalf("status = %d, want 301", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/spreads/1/" {
		t.Errorf("Location = %q, want /spreads/1/", loc)
	}
}

func TestHomeResumesBookmark(t *testing.T) {
	a, _ := setupTestApp(t, testConfig(t), 3)

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/spreads/2/", nil))
	sess := cookieNamed(rec, sessionName)
	if sess == nil {
		t.Fatal("viewing a spread should set the session cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sess)
	rec = serve(a, req)
	if v, _ := parseBody(t, rec).Find(".spread").Attr("data-spread"); v != "2" {
		t.Errorf("home shows spread %q, want the bookmarked 2", v)
	}

	// a shorter book no longer has spread 2
	if _, err := a.Import(context.Background(), sampleFeed(0)); err != nil {
		t.Fatalf("Import() = %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sess)
	rec = serve(a, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if v, _ := parseBody(t, rec).Find(".spread").Attr("data-spread"); v != "0" {
		t.Errorf("home shows spread %q, want 0 for a stale bookmark", v)
	}
}

func TestPageDocument(t *testing.T) {
	a, _ := setupTestApp(t, testConfig(t), 2)

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/pages/1/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.HasPrefix(rec.Body.String(), "<!DOCTYPE html>") {
		t.Error("page document is not a standalone HTML document")
	}
	doc := parseBody(t, rec)
	if doc.Find("style").Length() == 0 {
		t.Error("page document should inline its stylesheet")
	}
	if n := doc.Find("article.post").Length(); n != 1 {
		t.Errorf("posts on page 1 = %d, want 1", n)
	}

	rec = serve(a, httptest.NewRequest(http.MethodGet, "/pages/9/", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d for a missing page, want 404", rec.Code)
	}
}

func TestBookJSON(t *testing.T) {
	a, _ := setupTestApp(t, testConfig(t), 3)

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/api/book/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got struct {
		Title        string `json:"title"`
		Posts        int    `json:"posts"`
		ContentPages int    `json:"contentPages"`
		TotalPages   int    `json:"totalPages"`
		Import       *struct {
			ID    string `json:"id"`
			Posts int    `json:"posts"`
		} `json:"import"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Title != "Ada Lovelace" || got.Posts != 3 || got.ContentPages != 3 || got.TotalPages != 6 {
		t.Errorf("summary = %+v", got)
	}
	if got.Import == nil || got.Import.Posts != 3 {
		t.Errorf("import = %+v, want the last import of 3 posts", got.Import)
	}
}

func TestImportEndpoint(t *testing.T) {
	a, _ := setupTestApp(t, testConfig(t), 1)

	body, err := json.Marshal(sampleFeed(4))
	if err != nil {
		t.Fatal(err)
	}
	post := func(auth string, payload []byte) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/import/", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		return serve(a, req)
	}

	if rec := post("", body); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rec.Code)
	}
	if rec := post("Bearer wrong", body); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", rec.Code)
	}
	if rec := post("Bearer "+testImportToken, []byte(`{"posts":[{"id":""}]}`)); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid feed: status = %d, want 400", rec.Code)
	}

	rec := post("Bearer "+testImportToken, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var imp Import
	if err := json.Unmarshal(rec.Body.Bytes(), &imp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if imp.Posts != 4 || imp.ID == "" {
		t.Errorf("import = %+v", imp)
	}

	b, err := a.Book(context.Background())
	if err != nil {
		t.Fatalf("Book() = %v", err)
	}
	if len(b.Posts) != 4 {
		t.Errorf("book has %d posts after import, want 4", len(b.Posts))
	}
}

func TestImportDisabledWithoutToken(t *testing.T) {
	cfg := testConfig(t)
	cfg.Site.ImportToken = ""
	a, _ := setupTestApp(t, cfg, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/import/", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer ")
	if rec := serve(a, req); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestExportEndpoint(t *testing.T) {
	a, r := setupTestApp(t, testConfig(t), 3)

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/", nil))
	csrf := cookieNamed(rec, "_csrf")
	if csrf == nil {
		t.Fatal("preview should set the CSRF cookie")
	}
	token, _ := parseBody(t, rec).Find(`input[name="_csrf"]`).Attr("value")

	export := func(withToken bool) *httptest.ResponseRecorder {
		form := url.Values{}
		if withToken {
			form.Set("_csrf", token)
		}
		req := httptest.NewRequest(http.MethodPost, "/export/", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(csrf)
		return serve(a, req)
	}

	if rec := export(false); rec.Code != http.StatusForbidden {
		t.Errorf("missing CSRF token: status = %d, want 403", rec.Code)
	}

	rec = export(true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="ada-lovelace.pdf"`) {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if rec.Body.String() != "%PDF-1.7 fake" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if len(r.jobs) != 1 || len(r.jobs[0].Pages) != 6 || r.jobs[0].Title != "Ada Lovelace" {
		t.Errorf("renderer saw %d jobs", len(r.jobs))
	}

	if rec := export(true); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second export: status = %d, want 429", rec.Code)
	}
}

func TestExportFallsBackToDraft(t *testing.T) {
	cfg := testConfig(t)
	a, r := setupTestApp(t, cfg, 2)
	r.err = errors.New("renderer offline")
	b, err := a.Book(context.Background())
	if err != nil {
		t.Fatalf("Book() = %v", err)
	}

	var out bytes.Buffer
	if err := a.Export(context.Background(), b, &out); err == nil {
		t.Fatal("expected the renderer error without draft fallback")
	}
	if out.Len() != 0 {
		t.Errorf("a failed export wrote %d bytes", out.Len())
	}

	cfg.Render.DraftFallback = true
	if err := a.Export(context.Background(), b, &out); err != nil {
		t.Fatalf("Export() with fallback = %v", err)
	}
	if !strings.HasPrefix(out.String(), "%PDF-") {
		t.Errorf("fallback output is not a PDF: %.20q", out.String())
	}
}

func TestValidBearer(t *testing.T) {
	tests := []struct {
		header string
		want   bool
	}{
		{"Bearer tok", true},
		{"Bearer  tok ", true},
		{"bearer tok", false},
		{"tok", false},
		{"Bearer other", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := validBearer(tt.header, "tok"); got != tt.want {
			t.Errorf("validBearer(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}

func TestExportFilename(t *testing.T) {
	a, _ := setupTestApp(t, testConfig(t), 0)
	b, err := a.Book(context.Background())
	if err != nil {
		t.Fatalf("Book() = %v", err)
	}
	if got := ExportFilename(b); got != "untitled.pdf" {
		t.Errorf("ExportFilename = %q, want untitled.pdf", got)
	}
}

func TestPublicAssets(t *testing.T) {
	a, _ := setupTestApp(t, testConfig(t), 0)

	for _, path := range []string{"/public/preview.js", "/public/preview.css"} {
		rec := serve(a, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, rec.Code)
			continue
		}
		if got := rec.Header().Get("Cache-Control"); got != "public, max-age=86400" {
			t.Errorf("%s: Cache-Control = %q", path, got)
		}
	}
}

func TestExportFile(t *testing.T) {
	a, r := setupTestApp(t, testConfig(t), 2)
	b, err := a.Book(context.Background())
	if err != nil {
		t.Fatalf("Book() = %v", err)
	}
	dir := t.TempDir()

	failed := filepath.Join(dir, "failed.pdf")
	r.err = errors.New("renderer offline")
	if err := a.ExportFile(context.Background(), b, failed); err == nil {
		t.Fatal("expected the renderer error")
	}
	if _, err := os.Stat(failed); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("failed export left a file behind: stat err = %v", err)
	}

	r.err = nil
	ok := filepath.Join(dir, "book.pdf")
	if err := a.ExportFile(context.Background(), b, ok); err != nil {
		t.Fatalf("ExportFile() = %v", err)
	}
	data, err := os.ReadFile(ok)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if string(data) != "%PDF-1.7 fake" {
		t.Errorf("export = %q", data)
	}
}

func TestPreviewAnimatesSpreadChanges(t *testing.T) {
	a, _ := setupTestApp(t, testConfig(t), 0)

	css := serve(a, httptest.NewRequest(http.MethodGet, "/public/preview.css", nil)).Body.String()
	js := serve(a, httptest.NewRequest(http.MethodGet, "/public/preview.js", nil)).Body.String()
	for _, name := range []string{"turn-next", "turn-prev"} {
		if !strings.Contains(css, "@keyframes "+name) {
			t.Errorf("preview.css has no %s animation", name)
		}
		if !strings.Contains(js, `"`+name+`"`) {
			t.Errorf("preview.js never applies %s", name)
		}
	}
}
