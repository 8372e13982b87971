package repository

import (
	"errors"
	"fmt"
	"log"

	"github.com/kmish9685/Persona-AI/models"

	"gorm.io/gorm"
)

// ErrNoRows is returned by conditional writes that matched no record.
var ErrNoRows = errors.New("no matching record")

// UserRepository defines the interface for interacting with user quota and
// entitlement data. Counter mutations are expressed as conditional updates so
// concurrent requests against the same identity cannot lose increments.
type UserRepository interface {
	GetByIdentity(id models.Identity) (*models.UserRecord, error)
	GetByEmail(email string) (*models.UserRecord, error)
	GetByPaymentRef(ref string) (*models.UserRecord, error)
	Create(user *models.UserRecord) error
	Save(user *models.UserRecord) error
	// ResetDailyCount zeroes the counter iff the stored date differs from
	// today (compare-and-swap on last_active_date).
	ResetDailyCount(id models.Identity, today string) error
	// ConsumeMessage atomically increments the daily counter while it is
	// below limit and bound to today. It reports the new count and whether
	// the increment was applied.
	ConsumeMessage(id models.Identity, limit int, today string) (int, bool, error)
	GrantPro(email, ref, provider string) error
	RevokePro(userID uint) error
	SetPlan(email, plan string) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// identityColumn maps the identity discriminant to its storage column.
func identityColumn(id models.Identity) string {
	if id.Kind == models.IdentityEmail {
		return "email"
	}
	return "ip_address"
}

// GetByIdentity retrieves the record for an identity. A missing record is
// not an error; it returns (nil, nil) so callers can create lazily.
func (r *userRepository) GetByIdentity(id models.Identity) (*models.UserRecord, error) {
	if id.Value == "" {
		return nil, errors.New("identity value cannot be empty")
	}
	var user models.UserRecord
	err := r.db.First(&user, identityColumn(id)+" = ?", id.Value).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch user for %s: %w", id, err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(email string) (*models.UserRecord, error) {
	return r.GetByIdentity(models.EmailIdentity(email))
}

func (r *userRepository) GetByPaymentRef(ref string) (*models.UserRecord, error) {
	if ref == "" {
		return nil, errors.New("payment reference cannot be empty")
	}
	var user models.UserRecord
	err := r.db.First(&user, "payment_ref = ?", ref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch user for payment ref %s: %w", ref, err)
	}
	return &user, nil
}

func (r *userRepository) Create(user *models.UserRecord) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user record: %w", err)
	}
	log.Printf("INFO: [UserRepository] Created user record ID %d (plan=%s).", user.ID, user.Plan)
	return nil
}

func (r *userRepository) Save(user *models.UserRecord) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	if err := r.db.Save(user).Error; err != nil {
		return fmt.Errorf("failed to save user record ID %d: %w", user.ID, err)
	}
	return nil
}

// ResetDailyCount performs the day-rollover reset. The WHERE clause on
// last_active_date makes it a no-op when another request already rolled the
// record over.
func (r *userRepository) ResetDailyCount(id models.Identity, today string) error {
	err := r.db.Model(&models.UserRecord{}).
		Where(identityColumn(id)+" = ?", id.Value).
		Where("last_active_date <> ?", today).
		Updates(map[string]interface{}{"msg_count": 0, "last_active_date": today}).Error
	if err != nil {
		return fmt.Errorf("failed to reset daily count for %s: %w", id, err)
	}
	return nil
}

// ConsumeMessage is the allow-and-increment step for free users. The bounded
// UPDATE replaces the reference's fetch-then-write pattern: zero rows
// affected means the daily limit is already reached (or the record rolled to
// a new date mid-flight, which the next evaluation corrects).
func (r *userRepository) ConsumeMessage(id models.Identity, limit int, today string) (int, bool, error) {
	res := r.db.Model(&models.UserRecord{}).
		Where(identityColumn(id)+" = ?", id.Value).
		Where("msg_count < ? AND last_active_date = ?", limit, today).
		UpdateColumn("msg_count", gorm.Expr("msg_count + 1"))
	if res.Error != nil {
		return 0, false, fmt.Errorf("failed to consume message for %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, false, nil
	}

	// Refetch for the post-increment count.
	user, err := r.GetByIdentity(id)
	if err != nil {
		return 0, false, fmt.Errorf("failed to fetch user after increment for %s: %w", id, err)
	}
	if user == nil {
		return 0, false, fmt.Errorf("user record vanished after increment for %s", id)
	}
	log.Printf("INFO: [UserRepository] Consumed message for %s. New count: %d", id, user.MsgCount)
	return user.MsgCount, true, nil
}

// GrantPro upgrades the record for email to the pro plan and stores the
// payment linkage. The counter reset keeps the (unused) free counter tidy.
func (r *userRepository) GrantPro(email, ref, provider string) error {
	res := r.db.Model(&models.UserRecord{}).
		Where("email = ?", email).
		Updates(map[string]interface{}{
			"plan":             models.PlanPro,
			"payment_ref":      ref,
			"payment_provider": provider,
			"msg_count":        0,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to grant pro to %s: %w", email, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNoRows
	}
	log.Printf("INFO: [UserRepository] Granted pro plan to %s (ref=%s, provider=%s).", email, ref, provider)
	return nil
}

// RevokePro downgrades a record to free and clears its payment linkage.
func (r *userRepository) RevokePro(userID uint) error {
	res := r.db.Model(&models.UserRecord{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"plan":             models.PlanFree,
			"payment_ref":      nil,
			"payment_provider": nil,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to revoke pro for user ID %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNoRows
	}
	log.Printf("INFO: [UserRepository] Revoked pro plan for user ID %d.", userID)
	return nil
}

func (r *userRepository) SetPlan(email, plan string) error {
	res := r.db.Model(&models.UserRecord{}).
		Where("email = ?", email).
		Update("plan", plan)
	if res.Error != nil {
		return fmt.Errorf("failed to set plan for %s: %w", email, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNoRows
	}
	return nil
}
