package services

import (
	"testing"
	"time"

	"github.com/kmish9685/Persona-AI/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestIdentityResolver_Resolve(t *testing.T) {
	const clientIP = "203.0.113.7"
	resolver := NewIdentityResolver("test-secret")

	t.Run("valid session token resolves to the account email", func(t *testing.T) {
		token, err := resolver.IssueToken("user@example.com", time.Hour)
		assert.NoError(t, err)

		id := resolver.Resolve(token, clientIP)

		assert.Equal(t, models.IdentityEmail, id.Kind)
		assert.Equal(t, "user@example.com", id.Value)
	})

	t.Run("missing token falls back to the client IP", func(t *testing.T) {
		id := resolver.Resolve("", clientIP)
		assert.Equal(t, models.IPIdentity(clientIP), id)
	})

	t.Run("expired token falls back to the client IP", func(t *testing.T) {
		token, err := resolver.IssueToken("user@example.com", -time.Hour)
		assert.NoError(t, err)

		id := resolver.Resolve(token, clientIP)

		assert.Equal(t, models.IdentityIP, id.Kind)
		assert.Equal(t, clientIP, id.Value)
	})

	t.Run("garbage token falls back to the client IP", func(t *testing.T) {
		id := resolver.Resolve("not-a-jwt", clientIP)
		assert.Equal(t, models.IPIdentity(clientIP), id)
	})

	t.Run("token signed with a different secret is rejected", func(t *testing.T) {
		other := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"email": "intruder@example.com",
			"exp":   time.Now().Add(time.Hour).Unix(),
		})
		signed, err := other.SignedString([]byte("wrong-secret"))
		assert.NoError(t, err)

		id := resolver.Resolve(signed, clientIP)

		assert.Equal(t, models.IPIdentity(clientIP), id)
	})

	t.Run("token without an email claim falls back to the client IP", func(t *testing.T) {
		bare := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		signed, err := bare.SignedString([]byte("test-secret"))
		assert.NoError(t, err)

		id := resolver.Resolve(signed, clientIP)

		assert.Equal(t, models.IPIdentity(clientIP), id)
	})
}
