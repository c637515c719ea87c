package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/snupai/shortlink/internal/service"
)

// APIHandler serves keyed link creation
type APIHandler struct {
	keys *service.APIKeyService
}

// NewAPIHandler creates a new API handler instance
func NewAPIHandler(keys *service.APIKeyService) *APIHandler {
	return &APIHandler{keys: keys}
}

// CreateRequest is the body of POST /api/create. expiresAt is epoch
// milliseconds.
type CreateRequest struct {
	APIKey    string   `json:"apiKey"`
	Slug      string   `json:"slug"`
	URL       string   `json:"url"`
	ExpiresAt *float64 `json:"expiresAt"`
	MaxClicks *float64 `json:"maxClicks"`
}

// Create handles POST /api/create
func (h *APIHandler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	res, err := h.keys.CreateViaAPI(c.Request.Context(), req.APIKey, service.CreateLinkInput{
		URL:       req.URL,
		Slug:      req.Slug,
		ExpiresAt: millisToTime(req.ExpiresAt),
		MaxClicks: req.MaxClicks,
	})
	if err != nil {
		if limit, ok := burstLimitOf(err); ok {
			c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
			c.Header("X-RateLimit-Remaining", "0")
		}
		writeError(c, err)
		return
	}

	c.Header("X-RateLimit-Limit", strconv.Itoa(res.RateLimitLimit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(res.RateLimitRemaining))
	c.JSON(http.StatusOK, res)
}

// burstLimitOf extracts the burst limit from a rate limit rejection
func burstLimitOf(err error) (int, bool) {
	var limitErr *service.LimitError
	if errors.As(err, &limitErr) && errors.Is(err, service.ErrRateLimitExceeded) {
		return limitErr.Limit, true
	}
	return 0, false
}
