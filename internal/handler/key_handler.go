package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/snupai/shortlink/internal/service"
)

// KeyHandler manages an account's API keys
type KeyHandler struct {
	keys *service.APIKeyService
}

// NewKeyHandler creates a new key handler instance
func NewKeyHandler(keys *service.APIKeyService) *KeyHandler {
	return &KeyHandler{keys: keys}
}

type createKeyRequest struct {
	Name string `json:"name"`
}

type updateKeyRequest struct {
	IsActive *bool `json:"isActive"`
}

// List handles GET /api/v1/keys
func (h *KeyHandler) List(c *gin.Context) {
	keys, err := h.keys.ListKeys(c.Request.Context(), mustAccount(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, keys)
}

// Create handles POST /api/v1/keys; the secret appears only in this response
func (h *KeyHandler) Create(c *gin.Context) {
	var req createKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	created, err := h.keys.CreateKey(c.Request.Context(), mustAccount(c).ID, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Update handles PATCH /api/v1/keys/:id
func (h *KeyHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req updateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		badRequest(c, "isActive is required")
		return
	}
	if err := h.keys.SetActive(c.Request.Context(), mustAccount(c).ID, id, *req.IsActive); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete handles DELETE /api/v1/keys/:id
func (h *KeyHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.keys.DeleteKey(c.Request.Context(), mustAccount(c).ID, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
