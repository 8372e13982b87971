package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/kmish9685/Persona-AI/models"
	"github.com/kmish9685/Persona-AI/payments"
	"github.com/kmish9685/Persona-AI/repository"
)

// Activation statuses returned to the activation endpoint.
const (
	ActivationSuccess       = "success"
	ActivationEmailMismatch = "email_mismatch"
)

// ActivationResult is the outcome of the purchase-confirmation flow. On a
// mismatch both conflicting emails are surfaced so the buyer can
// self-resolve.
type ActivationResult struct {
	Status       string `json:"status"`
	GumroadEmail string `json:"gumroad_email,omitempty"`
	UserEmail    string `json:"user_email,omitempty"`
	Email        string `json:"email,omitempty"`
	Message      string `json:"message,omitempty"`
}

// EntitlementService transitions users between free and pro in response to
// verified payment events. Unlike the quota path, its errors propagate:
// monetary entitlement never fails open.
type EntitlementService interface {
	// Grant upgrades the account for email to pro and records the payment
	// linkage. Granting an already-pro account with the same reference is
	// an idempotent no-op.
	Grant(email, paymentRef, provider string) error
	// Revoke downgrades whichever account holds paymentRef. It reports an
	// error when no account does.
	Revoke(paymentRef string) error
	// Activate verifies the sale with the provider and grants when the
	// provider-confirmed buyer email matches the claimed one.
	Activate(ctx context.Context, saleID, claimedEmail string) (*ActivationResult, error)
	// ConfirmManualPurchase grants to the caller's claimed email despite a
	// mismatch, gated on the user's explicit confirmation upstream.
	ConfirmManualPurchase(ctx context.Context, saleID, userEmail string) error
	// TransferPremium moves pro status held by the caller's IP record onto
	// their authenticated email account.
	TransferPremium(email, clientIP string) error
}

type entitlementService struct {
	users      repository.UserRepository
	txns       repository.TransactionRepository
	verifier   payments.SaleVerifier
	priceCents int
}

// NewEntitlementService creates an EntitlementService.
func NewEntitlementService(users repository.UserRepository, txns repository.TransactionRepository, verifier payments.SaleVerifier, priceCents int) EntitlementService {
	return &entitlementService{users: users, txns: txns, verifier: verifier, priceCents: priceCents}
}

func (s *entitlementService) Grant(email, paymentRef, provider string) error {
	if s.users == nil {
		return errors.New("storage not configured; cannot grant entitlement")
	}
	if email == "" || paymentRef == "" {
		return errors.New("email and payment reference are required")
	}

	user, err := s.users.GetByEmail(email)
	if err != nil {
		return fmt.Errorf("grant lookup failed: %w", err)
	}
	if user == nil {
		// Buyers activate against an existing account; the activation UI
		// asks them to sign up with the purchase email first.
		return fmt.Errorf("no account found for %s", email)
	}
	if user.Plan == models.PlanPro && user.PaymentRef != nil && *user.PaymentRef == paymentRef {
		log.Printf("INFO: [Entitlement] Grant for %s with ref %s is a no-op (already pro).", email, paymentRef)
		return nil
	}

	if err := s.users.GrantPro(email, paymentRef, provider); err != nil {
		return fmt.Errorf("grant failed for %s: %w", email, err)
	}
	if s.txns != nil {
		txn := &models.Transaction{
			PaymentRef:  paymentRef,
			Provider:    provider,
			AmountCents: s.priceCents,
			Status:      models.TransactionPaid,
		}
		if err := s.txns.Record(txn); err != nil {
			log.Printf("WARN: [Entitlement] Grant succeeded but transaction audit failed: %v", err)
		}
	}
	return nil
}

func (s *entitlementService) Revoke(paymentRef string) error {
	if s.users == nil {
		return errors.New("storage not configured; cannot revoke entitlement")
	}
	if paymentRef == "" {
		return errors.New("payment reference is required")
	}

	user, err := s.users.GetByPaymentRef(paymentRef)
	if err != nil {
		return fmt.Errorf("revoke lookup failed: %w", err)
	}
	if user == nil {
		return fmt.Errorf("no account holds payment reference %s", paymentRef)
	}

	if err := s.users.RevokePro(user.ID); err != nil {
		return fmt.Errorf("revoke failed for ref %s: %w", paymentRef, err)
	}
	if s.txns != nil {
		if err := s.txns.MarkRefunded(paymentRef); err != nil {
			log.Printf("WARN: [Entitlement] Revoke succeeded but transaction audit failed: %v", err)
		}
	}
	log.Printf("INFO: [Entitlement] Revoked pro for payment reference %s.", paymentRef)
	return nil
}

func (s *entitlementService) Activate(ctx context.Context, saleID, claimedEmail string) (*ActivationResult, error) {
	sale, err := s.verifier.VerifySale(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("sale verification failed: %w", err)
	}
	if sale.Email == "" {
		return nil, fmt.Errorf("could not retrieve purchase email for sale %s", saleID)
	}

	if claimedEmail != "" && !strings.EqualFold(claimedEmail, sale.Email) {
		log.Printf("INFO: [Entitlement] Activation email mismatch for sale %s: provider=%s caller=%s", saleID, sale.Email, claimedEmail)
		return &ActivationResult{
			Status:       ActivationEmailMismatch,
			GumroadEmail: sale.Email,
			UserEmail:    claimedEmail,
			Message:      "Please sign in with the email you used on Gumroad",
		}, nil
	}

	if err := s.Grant(sale.Email, saleID, models.ProviderGumroad); err != nil {
		return nil, err
	}
	return &ActivationResult{
		Status:  ActivationSuccess,
		Email:   sale.Email,
		Message: "Premium access activated!",
	}, nil
}

func (s *entitlementService) ConfirmManualPurchase(ctx context.Context, saleID, userEmail string) error {
	// Trust escalation: the sale must still be real, but the buyer has
	// explicitly claimed it for an email the provider does not confirm.
	if _, err := s.verifier.VerifySale(ctx, saleID); err != nil {
		return fmt.Errorf("sale verification failed: %w", err)
	}
	if err := s.Grant(userEmail, saleID, models.ProviderGumroad); err != nil {
		return err
	}
	log.Printf("INFO: [Entitlement] Manual verification granted pro to %s for sale %s.", userEmail, saleID)
	return nil
}

func (s *entitlementService) TransferPremium(email, clientIP string) error {
	if s.users == nil {
		return errors.New("storage not configured; cannot transfer entitlement")
	}

	ipUser, err := s.users.GetByIdentity(models.IPIdentity(clientIP))
	if err != nil {
		return fmt.Errorf("transfer lookup failed: %w", err)
	}
	if ipUser == nil || ipUser.Plan != models.PlanPro {
		return fmt.Errorf("no premium status found on IP %s", clientIP)
	}

	if err := s.users.SetPlan(email, models.PlanPro); err != nil {
		return fmt.Errorf("transfer failed for %s: %w", email, err)
	}
	log.Printf("INFO: [Entitlement] Transferred pro from IP %s to %s.", clientIP, email)
	return nil
}
