package api

import (
	"log"
	"net/http"

	"github.com/kmish9685/Persona-AI/utils"

	"github.com/gin-gonic/gin"
)

// GumroadWebhookRequest is the provider-pushed event payload.
type GumroadWebhookRequest struct {
	SaleID   string `json:"sale_id"`
	Email    string `json:"email"`
	Refunded bool   `json:"refunded"`
	Disputed bool   `json:"disputed"`
}

// GumroadWebhookHandler handles purchase, refund and dispute events. The
// event is never trusted as-is: the sale is re-verified against the
// provider's API before any state change. Purchases are acknowledged without
// granting; the buyer drives the grant through the activation link, which is
// where email ownership is checked. Idempotent per sale_id.
func (h *APIHandler) GumroadWebhookHandler(c *gin.Context) {
	var req GumroadWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SaleID == "" {
		utils.SendJSONError(c, http.StatusBadRequest, "Missing sale_id", err)
		return
	}

	// The event is only a hint; the provider's record is authoritative.
	sale, err := h.verifier.VerifySale(c.Request.Context(), req.SaleID)
	if err != nil {
		utils.SendJSONError(c, http.StatusBadRequest, "Invalid sale", err)
		return
	}

	if req.Refunded || req.Disputed || sale.Refunded || sale.Disputed {
		if err := h.entitlement.Revoke(req.SaleID); err != nil {
			log.Printf("WARN: [Webhook] Revoke failed for sale %s: %v", req.SaleID, err)
			c.JSON(http.StatusOK, gin.H{"status": "error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "revoked"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// ActivatePremiumRequest is sent when the buyer clicks the activation link
// from their receipt.
type ActivatePremiumRequest struct {
	SaleID    string `json:"sale_id"`
	UserEmail string `json:"user_email"`
}

// ActivatePremiumHandler runs the purchase-confirmation flow: verify the
// sale, compare the provider-confirmed buyer email with the caller's claimed
// one, grant on match, surface both emails on mismatch.
func (h *APIHandler) ActivatePremiumHandler(c *gin.Context) {
	var req ActivatePremiumRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SaleID == "" {
		utils.SendJSONError(c, http.StatusBadRequest, "Missing sale_id", err)
		return
	}

	result, err := h.entitlement.Activate(c.Request.Context(), req.SaleID, req.UserEmail)
	if err != nil {
		utils.SendJSONError(c, http.StatusBadRequest, "Failed to activate premium", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// VerifyPurchaseRequest is the manual-confirmation payload for email
// mismatch cases.
type VerifyPurchaseRequest struct {
	SaleID    string `json:"sale_id"`
	UserEmail string `json:"user_email"`
	Confirmed bool   `json:"confirmed"`
}

// VerifyPurchaseHandler grants premium to the caller's claimed email even
// though it differs from the provider-confirmed buyer email. The explicit
// confirmed flag is required; this path is a deliberate trust escalation
// gated on user action, never automatic.
func (h *APIHandler) VerifyPurchaseHandler(c *gin.Context) {
	var req VerifyPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SaleID == "" || req.UserEmail == "" || !req.Confirmed {
		utils.SendJSONError(c, http.StatusBadRequest, "Missing required fields", err)
		return
	}

	if err := h.entitlement.ConfirmManualPurchase(c.Request.Context(), req.SaleID, req.UserEmail); err != nil {
		utils.SendJSONError(c, http.StatusInternalServerError, "Failed to activate premium", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Premium access activated via manual verification",
	})
}
