package api

import (
	"net/http"
	"time"

	"github.com/kmish9685/Persona-AI/models"
	"github.com/kmish9685/Persona-AI/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// Credentials is the signup/login payload.
type Credentials struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *APIHandler) tokenTTL() time.Duration {
	days := h.cfg.Auth.TokenTTLDays
	if days <= 0 {
		days = 7
	}
	return time.Duration(days) * 24 * time.Hour
}

func (h *APIHandler) setSessionCookie(c *gin.Context, token string) {
	c.SetCookie(sessionCookie, token, int(h.tokenTTL().Seconds()), "/", "", false, true)
}

// SignupHandler registers an account. A record the quota path already
// created for this email (pre-signup chats) is claimed rather than
// duplicated, so usage and plan carry over.
func (h *APIHandler) SignupHandler(c *gin.Context) {
	var creds Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		utils.SendJSONError(c, http.StatusBadRequest, "Valid email and password are required", err)
		return
	}
	if len(creds.Password) < 8 {
		utils.SendJSONError(c, http.StatusBadRequest, "Password must be at least 8 characters", nil)
		return
	}
	if h.users == nil {
		utils.SendJSONError(c, http.StatusServiceUnavailable, "Accounts are unavailable right now", nil)
		return
	}

	existing, err := h.users.GetByEmail(creds.Email)
	if err != nil {
		utils.SendJSONError(c, http.StatusInternalServerError, "Signup failed", err)
		return
	}
	if existing != nil && existing.PasswordHash != "" {
		utils.SendJSONError(c, http.StatusBadRequest, "User already exists", nil)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.SendJSONError(c, http.StatusInternalServerError, "Signup failed", err)
		return
	}

	user := existing
	if user == nil {
		user = &models.UserRecord{
			Email:          &creds.Email,
			Plan:           models.PlanFree,
			LastActiveDate: time.Now().UTC().Format("2006-01-02"),
		}
		user.PasswordHash = string(hash)
		if err := h.users.Create(user); err != nil {
			utils.SendJSONError(c, http.StatusInternalServerError, "Signup failed", err)
			return
		}
	} else {
		user.PasswordHash = string(hash)
		if err := h.users.Save(user); err != nil {
			utils.SendJSONError(c, http.StatusInternalServerError, "Signup failed", err)
			return
		}
	}

	token, err := h.identity.IssueToken(creds.Email, h.tokenTTL())
	if err != nil {
		utils.SendJSONError(c, http.StatusInternalServerError, "Signup failed", err)
		return
	}
	h.setSessionCookie(c, token)

	c.JSON(http.StatusOK, gin.H{
		"user":  gin.H{"email": creds.Email, "plan": user.Plan},
		"token": token,
	})
}

// LoginHandler authenticates an existing account and starts a session.
func (h *APIHandler) LoginHandler(c *gin.Context) {
	var creds Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		utils.SendJSONError(c, http.StatusBadRequest, "Valid email and password are required", err)
		return
	}
	if h.users == nil {
		utils.SendJSONError(c, http.StatusServiceUnavailable, "Accounts are unavailable right now", nil)
		return
	}

	user, err := h.users.GetByEmail(creds.Email)
	if err != nil {
		utils.SendJSONError(c, http.StatusInternalServerError, "Login failed", err)
		return
	}
	if user == nil || user.PasswordHash == "" {
		utils.SendJSONError(c, http.StatusBadRequest, "Invalid credentials", nil)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		utils.SendJSONError(c, http.StatusBadRequest, "Invalid credentials", nil)
		return
	}

	token, err := h.identity.IssueToken(creds.Email, h.tokenTTL())
	if err != nil {
		utils.SendJSONError(c, http.StatusInternalServerError, "Login failed", err)
		return
	}
	h.setSessionCookie(c, token)

	c.JSON(http.StatusOK, gin.H{
		"user":  gin.H{"email": creds.Email, "plan": user.Plan},
		"token": token,
	})
}

// LogoutHandler clears the session cookie.
func (h *APIHandler) LogoutHandler(c *gin.Context) {
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// MeHandler returns the logged-in account with its fresh plan, or null for
// anonymous callers.
func (h *APIHandler) MeHandler(c *gin.Context) {
	id := h.resolveIdentity(c)
	if !id.IsEmail() || h.users == nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	user, err := h.users.GetByEmail(id.Value)
	if err != nil || user == nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": id.Value, "plan": user.Plan})
}

// MigratePremiumRequest names the account that should receive the IP-held
// premium status.
type MigratePremiumRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// MigratePremiumHandler moves pro status from the caller's IP record onto
// their account. The caller must hold a session for exactly the requested
// email; that session plus the pro-carrying IP proves control of both
// identities.
func (h *APIHandler) MigratePremiumHandler(c *gin.Context) {
	var req MigratePremiumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendJSONError(c, http.StatusBadRequest, "Valid email is required", err)
		return
	}

	id := h.resolveIdentity(c)
	if !id.IsEmail() {
		utils.SendJSONError(c, http.StatusUnauthorized, "Not logged in", nil)
		return
	}
	if id.Value != req.Email {
		utils.SendJSONError(c, http.StatusForbidden, "User mismatch", nil)
		return
	}

	if err := h.entitlement.TransferPremium(req.Email, c.ClientIP()); err != nil {
		utils.SendJSONError(c, http.StatusBadRequest, "No premium status found on this IP", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Premium transferred"})
}
