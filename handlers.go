package postbook

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/postbook/book"
	"github.com/eringen/postbook/feed"
	"github.com/eringen/postbook/views"
)

const maxImportSize = 32 << 20 // 32MB

func (a *App) handleHome(c echo.Context) error {
	return a.renderSpread(c, bookmark(c))
}

func (a *App) handleSpread(c echo.Context) error {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		return echo.ErrNotFound
	}
	return a.renderSpread(c, n)
}

func (a *App) renderSpread(c echo.Context, n int) error {
	b, err := a.Book(c.Request().Context())
	if err != nil {
		return err
	}
	sp, err := b.Spread(n)
	if errors.Is(err, book.ErrNotFound) {
		if n != 0 && c.Request().URL.Path == "/" {
			// a bookmark from a longer, older book
			sp, err = b.Spread(0)
		}
	}
	if err != nil {
		if errors.Is(err, book.ErrNotFound) {
			return RenderStatus(c, http.StatusNotFound, views.NotFound())
		}
		return err
	}
	if err := setBookmark(c, sp.Index); err != nil {
		a.Log.Debug("Bookmark not saved", zap.Error(err))
	}

	view := spreadView(sp, len(b.Spreads))
	if c.Request().Header.Get("HX-Request") == "true" {
		return Render(c, views.SpreadPartial(view))
	}
	return Render(c, views.SpreadPreview(a.siteConfig(), b.Constants, view, CsrfToken(c)))
}

func spreadView(sp *book.Spread, total int) views.SpreadView {
	page := func(p *book.Page) *views.PageView {
		if p == nil {
			return nil
		}
		return &views.PageView{Index: p.Index, Kind: p.Kind.String(), Number: p.Number, Content: p.Content}
	}
	return views.SpreadView{Index: sp.Index, Total: total, Left: page(sp.Left), Right: page(sp.Right)}
}

func (a *App) handlePage(c echo.Context) error {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		return echo.ErrNotFound
	}
	b, err := a.Book(c.Request().Context())
	if err != nil {
		return err
	}
	doc, err := b.Document(n)
	if err != nil {
		if errors.Is(err, book.ErrNotFound) {
			return RenderStatus(c, http.StatusNotFound, views.NotFound())
		}
		return err
	}
	return Render(c, doc)
}

type bookResponse struct {
	book.Summary
	Import *Import `json:"import,omitempty"`
}

func (a *App) handleBookJSON(c echo.Context) error {
	ctx := c.Request().Context()
	b, err := a.Book(ctx)
	if err != nil {
		return err
	}
	resp := bookResponse{Summary: b.Summary()}
	imp, err := a.Store.LastImport(ctx)
	switch {
	case err == nil:
		resp.Import = &imp
	case !errors.Is(err, ErrNotFound):
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (a *App) handleExport(c echo.Context) error {
	ip := c.RealIP()
	if !a.exportLimiter.Allow(ip) {
		a.Log.Warn("Export rate limited", zap.String("ip", ip))
		return c.String(http.StatusTooManyRequests, "Too many exports, try again in a minute")
	}
	ctx := c.Request().Context()
	b, err := a.Book(ctx)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := a.Export(ctx, b, &buf); err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+ExportFilename(b)+`"`)
	return c.Blob(http.StatusOK, "application/pdf", buf.Bytes())
}

func (a *App) handleImport(c echo.Context) error {
	token := a.Config.Site.ImportToken
	if token == "" {
		return echo.ErrNotFound
	}
	if !validBearer(c.Request().Header.Get(echo.HeaderAuthorization), token) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid import token")
	}
	body := http.MaxBytesReader(c.Response(), c.Request().Body, maxImportSize)
	f, err := feed.Decode(body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	imp, err := a.Import(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, imp)
}

func validBearer(header, token string) bool {
	got, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), []byte(token)) == 1
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, views.NotFound())
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.Log.Error("Server error", zap.String("uri", c.Request().RequestURI), zap.Error(err))
		_ = RenderStatus(c, code, views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
