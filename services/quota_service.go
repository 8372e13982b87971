package services

import (
	"fmt"
	"log"
	"time"

	"github.com/kmish9685/Persona-AI/models"
	"github.com/kmish9685/Persona-AI/repository"
)

// Denial reason codes surfaced to clients.
const (
	ReasonDailyLimit = "daily_limit_reached"
	ReasonGlobalCap  = "global_cap_reached"
)

// Sentinel "remaining" values for plans without a meaningful counter.
const (
	remainingDegraded = 999
	remainingPro      = 9999
	remainingFallback = 5
)

// QuotaDecision is the outcome of evaluating one chat request against the
// ledger. When Allowed is true the message has already been consumed.
type QuotaDecision struct {
	Allowed   bool   `json:"allowed"`
	Plan      string `json:"plan"`
	Remaining int    `json:"remaining"`
	Reason    string `json:"reason,omitempty"`
}

// QuotaService is the usage ledger: per-identity daily counters plus the
// system-wide safety cap.
type QuotaService interface {
	// Evaluate checks and, when allowed, consumes quota for one request.
	// It never returns an error: storage trouble fails open so a broken
	// ledger cannot take chat down with it.
	Evaluate(id models.Identity) QuotaDecision
	// Degraded reports whether enforcement is disabled for lack of storage.
	Degraded() bool
}

type quotaService struct {
	users           repository.UserRepository
	stats           repository.StatsRepository
	dailyFreeLimit  int
	globalSafetyCap int
}

// NewQuotaService creates a QuotaService over the given repositories. Nil
// repositories put the service into degraded fail-open mode.
func NewQuotaService(users repository.UserRepository, stats repository.StatsRepository, dailyFreeLimit, globalSafetyCap int) QuotaService {
	if users == nil || stats == nil {
		log.Println("WARN: [Quota] Storage not configured. Running DEGRADED: every request is allowed.")
	}
	return &quotaService{
		users:           users,
		stats:           stats,
		dailyFreeLimit:  dailyFreeLimit,
		globalSafetyCap: globalSafetyCap,
	}
}

func (s *quotaService) Degraded() bool {
	return s.users == nil || s.stats == nil
}

func (s *quotaService) Evaluate(id models.Identity) QuotaDecision {
	if s.Degraded() {
		log.Printf("WARN: [Quota] DEGRADED mode. Allowing %s without enforcement.", id)
		return QuotaDecision{Allowed: true, Plan: models.PlanDev, Remaining: remainingDegraded}
	}

	today := time.Now().UTC().Format("2006-01-02")

	// Advisory pre-check. It lazily creates today's counter row; the
	// binding check for free users happens after the plan is known.
	if _, err := s.globalCapReached(today); err != nil {
		log.Printf("WARN: [Quota] Global cap pre-check failed: %v", err)
	}

	decision, err := s.evaluate(id, today)
	if err != nil {
		// Fail open: accounting correctness is sacrificed for chat
		// availability. The sentinel plan marks the degradation.
		log.Printf("ERROR: [Quota] Evaluation failed for %s, failing open: %v", id, err)
		return QuotaDecision{Allowed: true, Plan: models.PlanErrorFallback, Remaining: remainingFallback}
	}
	return decision
}

func (s *quotaService) evaluate(id models.Identity, today string) (QuotaDecision, error) {
	user, err := s.users.GetByIdentity(id)
	if err != nil {
		return QuotaDecision{}, err
	}
	if user == nil {
		user = &models.UserRecord{
			Plan:           models.PlanFree,
			MsgCount:       0,
			LastActiveDate: today,
		}
		if id.Kind == models.IdentityEmail {
			user.Email = &id.Value
		} else {
			user.IPAddress = &id.Value
		}
		if err := s.users.Create(user); err != nil {
			return QuotaDecision{}, err
		}
		log.Printf("INFO: [Quota] Lazily created user record for %s.", id)
	}

	// Day rollover happens before the plan branch, so pro users get their
	// bookkeeping counter reset too.
	if user.LastActiveDate != today {
		if err := s.users.ResetDailyCount(id, today); err != nil {
			return QuotaDecision{}, err
		}
		user.MsgCount = 0
		user.LastActiveDate = today
		log.Printf("INFO: [Quota] Day rollover for %s. Counter reset.", id)
	}

	if user.Plan == models.PlanPro {
		// The global cap is advisory for pro: counted, never blocking.
		if err := s.stats.Increment(today); err != nil {
			log.Printf("WARN: [Quota] Failed to increment global counter for pro request: %v", err)
		}
		return QuotaDecision{Allowed: true, Plan: models.PlanPro, Remaining: remainingPro}, nil
	}

	// Free plan: the global cap binds.
	reached, err := s.globalCapReached(today)
	if err != nil {
		return QuotaDecision{}, err
	}
	if reached {
		return QuotaDecision{Allowed: false, Reason: ReasonGlobalCap, Plan: models.PlanFree}, nil
	}

	newCount, consumed, err := s.users.ConsumeMessage(id, s.dailyFreeLimit, today)
	if err != nil {
		return QuotaDecision{}, err
	}
	if !consumed {
		return QuotaDecision{Allowed: false, Reason: ReasonDailyLimit, Plan: models.PlanFree, Remaining: 0}, nil
	}

	if err := s.stats.Increment(today); err != nil {
		log.Printf("WARN: [Quota] Failed to increment global counter for free request: %v", err)
	}
	return QuotaDecision{Allowed: true, Plan: models.PlanFree, Remaining: s.dailyFreeLimit - newCount}, nil
}

func (s *quotaService) globalCapReached(today string) (bool, error) {
	total, exists, err := s.stats.GetTotal(today)
	if err != nil {
		return false, fmt.Errorf("global cap check: %w", err)
	}
	if !exists {
		if err := s.stats.EnsureRow(today); err != nil {
			return false, fmt.Errorf("global cap row creation: %w", err)
		}
		return false, nil
	}
	return total >= s.globalSafetyCap, nil
}
