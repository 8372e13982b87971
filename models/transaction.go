package models

import "time"

// Transaction statuses.
const (
	TransactionPaid     = "paid"
	TransactionRefunded = "refunded"
)

// Transaction is an audit row written whenever premium access changes hands.
// It is never read back by the request path; operators reconcile against the
// payment provider with it.
type Transaction struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	PaymentRef string `gorm:"column:payment_ref;index" json:"payment_ref"`
	Provider   string `json:"provider"`
	AmountCents int   `gorm:"column:amount_cents" json:"amount_cents"`
	Status     string `json:"status"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName specifies the table name for the Transaction model.
func (Transaction) TableName() string {
	return "transactions"
}
