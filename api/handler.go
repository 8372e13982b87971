package api

import (
	"net/http"

	"github.com/kmish9685/Persona-AI/config"
	"github.com/kmish9685/Persona-AI/models"
	"github.com/kmish9685/Persona-AI/payments"
	"github.com/kmish9685/Persona-AI/repository"
	"github.com/kmish9685/Persona-AI/services"

	"github.com/gin-gonic/gin"
)

// sessionCookie is the cookie carrying the signed session token.
const sessionCookie = "auth_token"

// APIHandler holds all dependencies for API handlers.
type APIHandler struct {
	cfg         *config.Config
	identity    services.IdentityResolver
	quota       services.QuotaService
	entitlement services.EntitlementService
	chat        services.ChatService
	users       repository.UserRepository
	verifier    payments.SaleVerifier
}

// NewAPIHandler creates a new APIHandler with its dependencies.
func NewAPIHandler(
	cfg *config.Config,
	identity services.IdentityResolver,
	quota services.QuotaService,
	entitlement services.EntitlementService,
	chat services.ChatService,
	users repository.UserRepository,
	verifier payments.SaleVerifier,
) *APIHandler {
	return &APIHandler{
		cfg:         cfg,
		identity:    identity,
		quota:       quota,
		entitlement: entitlement,
		chat:        chat,
		users:       users,
		verifier:    verifier,
	}
}

// RegisterRoutes attaches all endpoints to the router.
func (h *APIHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.HealthHandler)
	r.POST("/chat", h.ChatHandler)

	r.POST("/webhooks/gumroad", h.GumroadWebhookHandler)
	r.POST("/api/activate-premium", h.ActivatePremiumHandler)
	r.POST("/api/verify-gumroad-purchase", h.VerifyPurchaseHandler)

	auth := r.Group("/auth")
	{
		auth.POST("/signup", h.SignupHandler)
		auth.POST("/login", h.LoginHandler)
		auth.POST("/logout", h.LogoutHandler)
		auth.GET("/me", h.MeHandler)
		auth.POST("/migrate-premium", h.MigratePremiumHandler)
	}
}

// HealthHandler reports liveness plus whether quota enforcement is active,
// so a misconfigured deployment is detectable from the outside.
func (h *APIHandler) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"quota_degraded": h.quota.Degraded(),
	})
}

// resolveIdentity derives the caller's tracking key from the session cookie
// (if any) and the client IP.
func (h *APIHandler) resolveIdentity(c *gin.Context) models.Identity {
	token, _ := c.Cookie(sessionCookie)
	return h.identity.Resolve(token, c.ClientIP())
}
