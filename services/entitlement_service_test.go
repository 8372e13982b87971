package services

import (
	"context"
	"errors"
	"testing"

	"github.com/kmish9685/Persona-AI/models"
	"github.com/kmish9685/Persona-AI/payments"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func strPtr(s string) *string { return &s }

func TestEntitlementService_Grant(t *testing.T) {
	const priceCents = 699

	t.Run("grants pro and records a transaction", func(t *testing.T) {
		users := new(MockUserRepository)
		txns := new(MockTransactionRepository)
		service := NewEntitlementService(users, txns, nil, priceCents)

		users.On("GetByEmail", "buyer@example.com").Return(&models.UserRecord{
			ID: 1, Email: strPtr("buyer@example.com"), Plan: models.PlanFree,
		}, nil)
		users.On("GrantPro", "buyer@example.com", "S1", models.ProviderGumroad).Return(nil)
		txns.On("Record", mock.MatchedBy(func(txn *models.Transaction) bool {
			return txn.PaymentRef == "S1" &&
				txn.Status == models.TransactionPaid &&
				txn.AmountCents == priceCents
		})).Return(nil)

		err := service.Grant("buyer@example.com", "S1", models.ProviderGumroad)

		assert.NoError(t, err)
		users.AssertExpectations(t)
		txns.AssertExpectations(t)
	})

	t.Run("repeat grant with the same reference is a no-op", func(t *testing.T) {
		users := new(MockUserRepository)
		txns := new(MockTransactionRepository)
		service := NewEntitlementService(users, txns, nil, priceCents)

		users.On("GetByEmail", "buyer@example.com").Return(&models.UserRecord{
			ID: 1, Email: strPtr("buyer@example.com"), Plan: models.PlanPro,
			PaymentRef: strPtr("S1"),
		}, nil)

		err := service.Grant("buyer@example.com", "S1", models.ProviderGumroad)

		assert.NoError(t, err)
		users.AssertNotCalled(t, "GrantPro", mock.Anything, mock.Anything, mock.Anything)
		txns.AssertNotCalled(t, "Record", mock.Anything)
	})

	t.Run("grant for an unknown account fails", func(t *testing.T) {
		users := new(MockUserRepository)
		service := NewEntitlementService(users, nil, nil, priceCents)

		users.On("GetByEmail", "ghost@example.com").Return(nil, nil)

		err := service.Grant("ghost@example.com", "S1", models.ProviderGumroad)

		assert.Error(t, err)
		users.AssertNotCalled(t, "GrantPro", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestEntitlementService_Revoke(t *testing.T) {
	t.Run("revokes the account holding the reference", func(t *testing.T) {
		users := new(MockUserRepository)
		txns := new(MockTransactionRepository)
		service := NewEntitlementService(users, txns, nil, 699)

		users.On("GetByPaymentRef", "S1").Return(&models.UserRecord{
			ID: 7, Plan: models.PlanPro, PaymentRef: strPtr("S1"),
		}, nil)
		users.On("RevokePro", uint(7)).Return(nil)
		txns.On("MarkRefunded", "S1").Return(nil)

		err := service.Revoke("S1")

		assert.NoError(t, err)
		users.AssertExpectations(t)
		txns.AssertExpectations(t)
	})

	t.Run("revoke without a matching account reports failure", func(t *testing.T) {
		users := new(MockUserRepository)
		service := NewEntitlementService(users, nil, nil, 699)

		users.On("GetByPaymentRef", "UNKNOWN").Return(nil, nil)

		err := service.Revoke("UNKNOWN")

		assert.Error(t, err)
		users.AssertNotCalled(t, "RevokePro", mock.Anything)
	})
}

func TestEntitlementService_Activate(t *testing.T) {
	ctx := context.Background()

	t.Run("matching emails grant and report success", func(t *testing.T) {
		users := new(MockUserRepository)
		txns := new(MockTransactionRepository)
		verifier := new(MockSaleVerifier)
		service := NewEntitlementService(users, txns, verifier, 699)

		verifier.On("VerifySale", ctx, "S1").Return(&payments.Sale{
			SaleID: "S1", Email: "a@x.com",
		}, nil)
		users.On("GetByEmail", "a@x.com").Return(&models.UserRecord{
			ID: 1, Email: strPtr("a@x.com"), Plan: models.PlanFree,
		}, nil)
		users.On("GrantPro", "a@x.com", "S1", models.ProviderGumroad).Return(nil)
		txns.On("Record", mock.Anything).Return(nil)

		result, err := service.Activate(ctx, "S1", "A@X.com") // case-insensitive match

		assert.NoError(t, err)
		assert.Equal(t, ActivationSuccess, result.Status)
		assert.Equal(t, "a@x.com", result.Email)
	})

	t.Run("mismatched emails surface both and grant nothing", func(t *testing.T) {
		users := new(MockUserRepository)
		verifier := new(MockSaleVerifier)
		service := NewEntitlementService(users, nil, verifier, 699)

		verifier.On("VerifySale", ctx, "S1").Return(&payments.Sale{
			SaleID: "S1", Email: "b@x.com",
		}, nil)

		result, err := service.Activate(ctx, "S1", "a@x.com")

		assert.NoError(t, err)
		assert.Equal(t, ActivationEmailMismatch, result.Status)
		assert.Equal(t, "b@x.com", result.GumroadEmail)
		assert.Equal(t, "a@x.com", result.UserEmail)
		users.AssertNotCalled(t, "GrantPro", mock.Anything, mock.Anything, mock.Anything)
		users.AssertNotCalled(t, "GetByEmail", mock.Anything)
	})

	t.Run("provider verification failure changes nothing", func(t *testing.T) {
		users := new(MockUserRepository)
		verifier := new(MockSaleVerifier)
		service := NewEntitlementService(users, nil, verifier, 699)

		verifier.On("VerifySale", ctx, "BOGUS").Return(nil, errors.New("gumroad does not acknowledge sale BOGUS"))

		result, err := service.Activate(ctx, "BOGUS", "a@x.com")

		assert.Error(t, err)
		assert.Nil(t, result)
		users.AssertNotCalled(t, "GrantPro", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestEntitlementService_ConfirmManualPurchase(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit confirmation grants to the claimed email", func(t *testing.T) {
		users := new(MockUserRepository)
		txns := new(MockTransactionRepository)
		verifier := new(MockSaleVerifier)
		service := NewEntitlementService(users, txns, verifier, 699)

		verifier.On("VerifySale", ctx, "S1").Return(&payments.Sale{
			SaleID: "S1", Email: "b@x.com",
		}, nil)
		users.On("GetByEmail", "a@x.com").Return(&models.UserRecord{
			ID: 1, Email: strPtr("a@x.com"), Plan: models.PlanFree,
		}, nil)
		users.On("GrantPro", "a@x.com", "S1", models.ProviderGumroad).Return(nil)
		txns.On("Record", mock.Anything).Return(nil)

		err := service.ConfirmManualPurchase(ctx, "S1", "a@x.com")

		assert.NoError(t, err)
		users.AssertCalled(t, "GrantPro", "a@x.com", "S1", models.ProviderGumroad)
	})

	t.Run("fake sale is rejected", func(t *testing.T) {
		users := new(MockUserRepository)
		verifier := new(MockSaleVerifier)
		service := NewEntitlementService(users, nil, verifier, 699)

		verifier.On("VerifySale", ctx, "FAKE").Return(nil, errors.New("not acknowledged"))

		err := service.ConfirmManualPurchase(ctx, "FAKE", "a@x.com")

		assert.Error(t, err)
		users.AssertNotCalled(t, "GrantPro", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestEntitlementService_TransferPremium(t *testing.T) {
	t.Run("pro held by the IP moves to the account", func(t *testing.T) {
		users := new(MockUserRepository)
		service := NewEntitlementService(users, nil, nil, 699)

		users.On("GetByIdentity", models.IPIdentity("198.51.100.4")).Return(&models.UserRecord{
			ID: 3, IPAddress: strPtr("198.51.100.4"), Plan: models.PlanPro,
		}, nil)
		users.On("SetPlan", "a@x.com", models.PlanPro).Return(nil)

		err := service.TransferPremium("a@x.com", "198.51.100.4")

		assert.NoError(t, err)
		users.AssertExpectations(t)
	})

	t.Run("IP without pro cannot transfer", func(t *testing.T) {
		users := new(MockUserRepository)
		service := NewEntitlementService(users, nil, nil, 699)

		users.On("GetByIdentity", models.IPIdentity("198.51.100.4")).Return(&models.UserRecord{
			ID: 3, IPAddress: strPtr("198.51.100.4"), Plan: models.PlanFree,
		}, nil)

		err := service.TransferPremium("a@x.com", "198.51.100.4")

		assert.Error(t, err)
		users.AssertNotCalled(t, "SetPlan", mock.Anything, mock.Anything)
	})
}
