package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/clipseek/internal/pkg/response"
)

type HealthHandler struct {
	hasAPIKey bool
}

// NewHealthHandler reports readiness; hasAPIKey tells clients whether
// the server holds its own provider credential or expects X-API-Key.
func NewHealthHandler(hasAPIKey bool) *HealthHandler {
	return &HealthHandler{hasAPIKey: hasAPIKey}
}

func (h *HealthHandler) Health(c *gin.Context) {
	response.Success(c, gin.H{
		"status":      "ok",
		"has_api_key": h.hasAPIKey,
	})
}
