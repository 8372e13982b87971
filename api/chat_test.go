package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kmish9685/Persona-AI/config"
	"github.com/kmish9685/Persona-AI/models"
	"github.com/kmish9685/Persona-AI/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockQuotaService is a mock type for the services.QuotaService interface.
type MockQuotaService struct {
	mock.Mock
}

func (m *MockQuotaService) Evaluate(id models.Identity) services.QuotaDecision {
	args := m.Called(id)
	return args.Get(0).(services.QuotaDecision)
}

func (m *MockQuotaService) Degraded() bool {
	args := m.Called()
	return args.Bool(0)
}

// MockChatService is a mock type for the services.ChatService interface.
type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) GenerateReply(ctx context.Context, id models.Identity, userMessage string) string {
	args := m.Called(ctx, id, userMessage)
	return args.String(0)
}

// MockIdentityResolver is a mock type for the services.IdentityResolver
// interface.
type MockIdentityResolver struct {
	mock.Mock
}

func (m *MockIdentityResolver) Resolve(token string, clientIP string) models.Identity {
	args := m.Called(token, clientIP)
	return args.Get(0).(models.Identity)
}

func (m *MockIdentityResolver) IssueToken(email string, ttl time.Duration) (string, error) {
	args := m.Called(email, ttl)
	return args.String(0), args.Error(1)
}

func newTestRouter(quota *MockQuotaService, chat *MockChatService, identity *MockIdentityResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewAPIHandler(&config.Config{}, identity, quota, nil, chat, nil, nil)
	router := gin.New()
	handler.RegisterRoutes(router)
	return router
}

func TestChatHandler(t *testing.T) {
	anon := models.IPIdentity("192.0.2.1")

	t.Run("allowed request returns the reply with quota detail", func(t *testing.T) {
		quota := new(MockQuotaService)
		chat := new(MockChatService)
		identity := new(MockIdentityResolver)
		router := newTestRouter(quota, chat, identity)

		identity.On("Resolve", "", mock.Anything).Return(anon)
		quota.On("Evaluate", anon).Return(services.QuotaDecision{
			Allowed: true, Plan: models.PlanFree, Remaining: 7,
		})
		chat.On("GenerateReply", mock.Anything, anon, "hello").Return("Wrong question.")

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hello"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var body map[string]interface{}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Wrong question.", body["response"])
		assert.Equal(t, float64(7), body["remaining_free"])
		assert.Equal(t, models.PlanFree, body["plan"])
	})

	t.Run("denied request returns 402 with a structured reason and no model call", func(t *testing.T) {
		quota := new(MockQuotaService)
		chat := new(MockChatService)
		identity := new(MockIdentityResolver)
		router := newTestRouter(quota, chat, identity)

		identity.On("Resolve", "", mock.Anything).Return(anon)
		quota.On("Evaluate", anon).Return(services.QuotaDecision{
			Allowed: false, Plan: models.PlanFree, Reason: services.ReasonDailyLimit,
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hello"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusPaymentRequired, w.Code)
		var body struct {
			Detail services.QuotaDecision `json:"detail"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, services.ReasonDailyLimit, body.Detail.Reason)
		assert.Equal(t, models.PlanFree, body.Detail.Plan)
		chat.AssertNotCalled(t, "GenerateReply", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing message is a bad request", func(t *testing.T) {
		quota := new(MockQuotaService)
		chat := new(MockChatService)
		identity := new(MockIdentityResolver)
		router := newTestRouter(quota, chat, identity)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		quota.AssertNotCalled(t, "Evaluate", mock.Anything)
		chat.AssertNotCalled(t, "GenerateReply", mock.Anything, mock.Anything, mock.Anything)
	})
}
