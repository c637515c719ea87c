package handler

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/snupai/shortlink/internal/service"
)

// AdminHandler serves /api/v1/admin
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler creates a new admin handler instance
func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

type quotaRequest struct {
	Limit *float64 `json:"limit"`
}

// Accounts handles GET /api/v1/admin/accounts
func (h *AdminHandler) Accounts(c *gin.Context) {
	accounts, err := h.admin.ListAccounts(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

// Links handles GET /api/v1/admin/links
func (h *AdminHandler) Links(c *gin.Context) {
	links, err := h.admin.ListAllLinks(c.Request.Context(), queryLimit(c, 100))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, links)
}

// Ban handles POST /api/v1/admin/accounts/:id/ban
func (h *AdminHandler) Ban(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.admin.Ban(c.Request.Context(), mustAccount(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Unban handles POST /api/v1/admin/accounts/:id/unban
func (h *AdminHandler) Unban(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.admin.Unban(c.Request.Context(), mustAccount(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetQuota handles PUT /api/v1/admin/accounts/:id/quota; a null limit
// restores the default
func (h *AdminHandler) SetQuota(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req quotaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	var limit *int
	if req.Limit != nil {
		v := *req.Limit
		if v != math.Trunc(v) || v < math.MinInt32 || v > math.MaxInt32 {
			writeError(c, service.ErrInvalidQuotaLimit)
			return
		}
		n := int(v)
		limit = &n
	}

	if err := h.admin.SetQuotaLimit(c.Request.Context(), id, limit); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteAccount handles DELETE /api/v1/admin/accounts/:id
func (h *AdminHandler) DeleteAccount(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.admin.DeleteAccount(c.Request.Context(), mustAccount(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteLink handles DELETE /api/v1/admin/links/:id
func (h *AdminHandler) DeleteLink(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.admin.DeleteLink(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Reconcile handles POST /api/v1/admin/maintenance/reconcile
func (h *AdminHandler) Reconcile(c *gin.Context) {
	res, err := h.admin.Reconcile(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
