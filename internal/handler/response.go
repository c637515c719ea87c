package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/snupai/shortlink/internal/service"
)

// ErrorResponse is the body of every failed API call. Limit fields are set
// on 429 so clients can back off.
type ErrorResponse struct {
	Error    string     `json:"error"`
	Limit    int        `json:"limit,omitempty"`
	WindowMs int64      `json:"windowMs,omitempty"`
	ResetAt  *time.Time `json:"resetAt,omitempty"`
}

// statusFor maps service errors onto HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidAPIKey), errors.Is(err, service.ErrAccountSuspended):
		return http.StatusUnauthorized
	case service.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrSlugTaken):
		return http.StatusConflict
	case errors.Is(err, service.ErrRateLimitExceeded), errors.Is(err, service.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the mapped status. Unexpected errors are attached
// to the context for the access log and hidden from the caller.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, ErrorResponse{Error: "internal error"})
		return
	}

	resp := ErrorResponse{Error: err.Error()}
	var limitErr *service.LimitError
	if errors.As(err, &limitErr) {
		resetAt := limitErr.ResetAt
		resp.Limit = limitErr.Limit
		resp.WindowMs = limitErr.Window.Milliseconds()
		resp.ResetAt = &resetAt
		c.Header("Retry-After", strconv.FormatInt(retryAfter(resetAt, time.Now()), 10))
	}
	c.JSON(status, resp)
}

func retryAfter(resetAt, now time.Time) int64 {
	wait := resetAt.Sub(now)
	if wait <= 0 {
		return 0
	}
	return int64(math.Ceil(wait.Seconds()))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// paramID parses a snowflake id path parameter
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: service.ErrNotFound.Error()})
		return 0, false
	}
	return id, true
}

// queryLimit reads ?limit=, falling back to def when absent or malformed
func queryLimit(c *gin.Context, def int) int {
	v, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		return def
	}
	return v
}

// millisToTime converts an optional epoch-milliseconds number
func millisToTime(ms *float64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(int64(*ms)).UTC()
	return &t
}
