package repository

import (
	"errors"
	"fmt"
	"log"

	"github.com/kmish9685/Persona-AI/models"

	"gorm.io/gorm"
)

// TransactionRepository records payment audit rows alongside entitlement
// changes.
type TransactionRepository interface {
	Record(txn *models.Transaction) error
	MarkRefunded(paymentRef string) error
}

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new instance of TransactionRepository.
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Record(txn *models.Transaction) error {
	if txn == nil {
		return errors.New("transaction cannot be nil")
	}
	if err := r.db.Create(txn).Error; err != nil {
		return fmt.Errorf("failed to record transaction for ref %s: %w", txn.PaymentRef, err)
	}
	log.Printf("INFO: [TransactionRepository] Recorded %s transaction for ref %s.", txn.Status, txn.PaymentRef)
	return nil
}

func (r *transactionRepository) MarkRefunded(paymentRef string) error {
	err := r.db.Model(&models.Transaction{}).
		Where("payment_ref = ?", paymentRef).
		Update("status", models.TransactionRefunded).Error
	if err != nil {
		return fmt.Errorf("failed to mark transaction refunded for ref %s: %w", paymentRef, err)
	}
	return nil
}
