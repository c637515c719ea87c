package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/snupai/shortlink/internal/middleware"
	"github.com/snupai/shortlink/internal/model"
	"github.com/snupai/shortlink/internal/service"
)

// LinkHandler serves the session API for an account's own links
type LinkHandler struct {
	links  *service.LinkService
	clicks *service.ClickService
	quota  *service.QuotaService
}

// NewLinkHandler creates a new link handler instance
func NewLinkHandler(links *service.LinkService, clicks *service.ClickService, quota *service.QuotaService) *LinkHandler {
	return &LinkHandler{links: links, clicks: clicks, quota: quota}
}

// CreateLinkRequest is the dashboard form. expiresAt is epoch milliseconds.
type CreateLinkRequest struct {
	URL       string   `json:"url"`
	Slug      string   `json:"slug"`
	ExpiresAt *float64 `json:"expiresAt"`
	MaxClicks *float64 `json:"maxClicks"`
}

// List handles GET /api/v1/links
func (h *LinkHandler) List(c *gin.Context) {
	account := mustAccount(c)
	links, err := h.links.ListForOwner(c.Request.Context(), account.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	if links == nil {
		links = []model.Link{}
	}
	c.JSON(http.StatusOK, links)
}

// Create handles POST /api/v1/links. Dashboard creation is bound by the
// quota but not by the per-key burst limit.
func (h *LinkHandler) Create(c *gin.Context) {
	account := mustAccount(c)
	if account.Banned {
		writeError(c, service.ErrAccountSuspended)
		return
	}

	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	if err := h.quota.Check(ctx, account); err != nil {
		writeError(c, err)
		return
	}

	link, err := h.links.Create(ctx, account.ID, service.CreateLinkInput{
		URL:       req.URL,
		Slug:      req.Slug,
		ExpiresAt: millisToTime(req.ExpiresAt),
		MaxClicks: req.MaxClicks,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, link)
}

// Delete handles DELETE /api/v1/links/:id
func (h *LinkHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.links.Delete(c.Request.Context(), mustAccount(c).ID, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Clicks handles GET /api/v1/links/:id/clicks
func (h *LinkHandler) Clicks(c *gin.Context) {
	link, ok := h.owned(c)
	if !ok {
		return
	}
	events, err := h.clicks.ListRecent(c.Request.Context(), link.ID, queryLimit(c, 50))
	if err != nil {
		writeError(c, err)
		return
	}
	if events == nil {
		events = []model.ClickEvent{}
	}
	c.JSON(http.StatusOK, events)
}

// Referrers handles GET /api/v1/links/:id/referrers
func (h *LinkHandler) Referrers(c *gin.Context) {
	link, ok := h.owned(c)
	if !ok {
		return
	}
	top, err := h.clicks.TopReferrers(c.Request.Context(), link.ID, queryLimit(c, 10))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, top)
}

// Quota handles GET /api/v1/quota
func (h *LinkHandler) Quota(c *gin.Context) {
	status, err := h.quota.Status(c.Request.Context(), mustAccount(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Info handles GET /api/v1/info/:slug. No session is needed.
func (h *LinkHandler) Info(c *gin.Context) {
	info, err := h.links.LookupPublic(c.Request.Context(), c.Param("slug"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// HealthCheck handles GET /health
func (h *LinkHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *LinkHandler) owned(c *gin.Context) (*model.Link, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}
	link, err := h.links.GetOwned(c.Request.Context(), mustAccount(c).ID, id)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return link, true
}

// mustAccount returns the session account; routes using it sit behind
// middleware.SessionAuth
func mustAccount(c *gin.Context) *model.Account {
	account, ok := middleware.GetAccount(c)
	if !ok {
		panic("handler: session account missing, SessionAuth not installed")
	}
	return account
}
