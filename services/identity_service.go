package services

import (
	"fmt"
	"log"
	"time"

	"github.com/kmish9685/Persona-AI/models"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityResolver derives the stable identity key for a request and issues
// the session tokens that key resolution relies on.
type IdentityResolver interface {
	// Resolve returns the account email for a valid, unexpired session
	// token, and the client IP otherwise. It never fails: identity
	// resolution must never block chat.
	Resolve(token string, clientIP string) models.Identity
	// IssueToken mints a session token embedding the principal email.
	IssueToken(email string, ttl time.Duration) (string, error)
}

type identityResolver struct {
	secret []byte
}

// NewIdentityResolver creates an IdentityResolver signing and verifying
// tokens with the given HMAC secret.
func NewIdentityResolver(secret string) IdentityResolver {
	return &identityResolver{secret: []byte(secret)}
}

func (r *identityResolver) Resolve(token string, clientIP string) models.Identity {
	if token == "" {
		return models.IPIdentity(clientIP)
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil || !parsed.Valid {
		// Malformed or expired tokens silently fall back to IP tracking.
		log.Printf("INFO: [Identity] Session token rejected (%v). Falling back to IP %s.", err, clientIP)
		return models.IPIdentity(clientIP)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return models.IPIdentity(clientIP)
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return models.IPIdentity(clientIP)
	}
	return models.EmailIdentity(email)
}

func (r *identityResolver) IssueToken(email string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"email": email,
		"exp":   time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token for %s: %w", email, err)
	}
	return signed, nil
}
