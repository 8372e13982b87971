package models

import "time"

// Plan tiers stored on a UserRecord.
const (
	PlanFree = "free"
	PlanPro  = "pro"
)

// Sentinel plans reported by the quota service when enforcement is degraded.
// They never appear in the users table.
const (
	PlanDev           = "dev"
	PlanErrorFallback = "error_fallback"
)

// Payment providers recorded against a pro grant.
const (
	ProviderGumroad  = "gumroad"
	ProviderRazorpay = "razorpay"
)

// UserRecord tracks plan and daily usage for one identity. Exactly one of
// Email / IPAddress is set. Records are created lazily on the first chat
// request from a never-seen identity; the quota path owns MsgCount and
// LastActiveDate, the entitlement path owns Plan and the payment fields.
type UserRecord struct {
	ID              uint    `gorm:"primaryKey" json:"id"`
	Email           *string `gorm:"uniqueIndex" json:"email,omitempty"`
	IPAddress       *string `gorm:"column:ip_address;uniqueIndex" json:"ip_address,omitempty"`
	PasswordHash    string  `json:"-"`
	Plan            string  `gorm:"default:free" json:"plan"`
	MsgCount        int     `gorm:"default:0" json:"msg_count"`
	LastActiveDate  string  `json:"last_active_date"` // calendar date, YYYY-MM-DD (UTC)
	PaymentRef      *string `gorm:"column:payment_ref" json:"payment_ref,omitempty"`
	PaymentProvider *string `json:"payment_provider,omitempty"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName specifies the table name for the UserRecord model.
func (UserRecord) TableName() string {
	return "users"
}

// GlobalStat is the system-wide daily request counter, one row per calendar
// date, created lazily at 0. It backs the global safety cap, which is a
// circuit breaker independent of any per-user plan.
type GlobalStat struct {
	Date          string `gorm:"primaryKey" json:"date"`
	TotalRequests int    `gorm:"default:0" json:"total_requests"`
}

// TableName specifies the table name for the GlobalStat model.
func (GlobalStat) TableName() string {
	return "global_stats"
}
