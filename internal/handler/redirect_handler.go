package handler

import (
	"bytes"
	"html/template"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/snupai/shortlink/internal/model"
	"github.com/snupai/shortlink/internal/ogmeta"
	"github.com/snupai/shortlink/internal/service"
)

// reasons maps non-OK outcomes onto the unavailable page's reason parameter
var reasons = map[service.Outcome]string{
	service.OutcomeSuspended: "suspended",
	service.OutcomeExpired:   "expired",
	service.OutcomeMaxClicks: "max-clicks",
}

var unavailableMessages = map[string]string{
	"suspended":  "The owner of this link has been suspended.",
	"expired":    "This link has expired.",
	"max-clicks": "This link has reached its click limit.",
}

const unavailableTemplateName = "unavailable"

var unavailableTemplate = template.Must(template.New(unavailableTemplateName).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Link unavailable</title>
</head>
<body>
  <h1>Link unavailable</h1>
  <p>{{.Message}}</p>
</body>
</html>
`))

// RedirectHandler serves the public slug endpoint
type RedirectHandler struct {
	redirect *service.RedirectService
	preview  *ogmeta.Fetcher
	log      zerolog.Logger
}

// NewRedirectHandler creates a new redirect handler. preview may be nil,
// in which case crawlers get the plain redirect.
func NewRedirectHandler(redirect *service.RedirectService, preview *ogmeta.Fetcher, log zerolog.Logger) *RedirectHandler {
	return &RedirectHandler{redirect: redirect, preview: preview, log: log}
}

// Redirect handles GET /:slug
func (h *RedirectHandler) Redirect(c *gin.Context) {
	slug := c.Param("slug")

	res, err := h.redirect.Resolve(c.Request.Context(), slug, c.Request.Referer(), c.Request.UserAgent())
	if err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	switch res.Outcome {
	case service.OutcomeOK:
		if res.Crawler && h.preview != nil {
			h.servePreview(c, res.Link)
			return
		}
		c.Redirect(http.StatusFound, res.Link.URL)
	case service.OutcomeNotFound:
		c.String(http.StatusNotFound, "Not found")
	default:
		c.Redirect(http.StatusFound, "/unavailable?reason="+url.QueryEscape(reasons[res.Outcome]))
	}
}

// servePreview answers crawlers with the destination's mirrored preview
// tags. A failed fetch still yields a document that forwards to the target.
func (h *RedirectHandler) servePreview(c *gin.Context, link *model.Link) {
	meta, err := h.preview.Fetch(c.Request.Context(), link.URL)
	if err != nil {
		h.log.Warn().Err(err).Str("slug", link.Slug).Msg("preview fetch failed")
		meta = nil
	}

	var buf bytes.Buffer
	if err := ogmeta.Render(&buf, link.URL, link.Slug, meta); err != nil {
		h.log.Warn().Err(err).Str("slug", link.Slug).Msg("preview render failed")
		c.Redirect(http.StatusFound, link.URL)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// Unavailable handles GET /unavailable
func (h *RedirectHandler) Unavailable(c *gin.Context) {
	msg, ok := unavailableMessages[c.Query("reason")]
	if !ok {
		msg = "This link is not available."
	}
	c.HTML(http.StatusOK, unavailableTemplateName, gin.H{"Message": msg})
}
