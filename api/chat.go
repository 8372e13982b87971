package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ChatRequest is the inbound chat payload. Identity is implicit: the session
// cookie when present, the caller IP otherwise.
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// ChatHandler orchestrates one chat request: resolve identity, evaluate (and
// consume) quota, call the model, return the sanitized reply. Quota is
// consumed strictly before the model call so slow or failed model calls
// cannot ride for free.
func (h *APIHandler) ChatHandler(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	id := h.resolveIdentity(c)
	log.Printf("INFO: [Chat] Request from %s: %.60q", id, req.Message)

	decision := h.quota.Evaluate(id)
	if !decision.Allowed {
		// Structured denial with a machine-readable reason; no model call.
		c.JSON(http.StatusPaymentRequired, gin.H{"detail": decision})
		return
	}

	reply := h.chat.GenerateReply(c.Request.Context(), id, req.Message)

	c.JSON(http.StatusOK, gin.H{
		"response":       reply,
		"remaining_free": decision.Remaining,
		"plan":           decision.Plan,
	})
}
