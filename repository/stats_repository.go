package repository

import (
	"errors"
	"fmt"

	"github.com/kmish9685/Persona-AI/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatsRepository defines the interface for the system-wide daily request
// counter backing the global safety cap.
type StatsRepository interface {
	// GetTotal returns today's total and whether a row exists yet.
	GetTotal(date string) (int, bool, error)
	// EnsureRow lazily creates the zero row for a new date.
	EnsureRow(date string) error
	// Increment adds one to the date's counter, creating the row if needed.
	Increment(date string) error
}

type statsRepository struct {
	db *gorm.DB
}

// NewStatsRepository creates a new instance of StatsRepository.
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) GetTotal(date string) (int, bool, error) {
	var stat models.GlobalStat
	err := r.db.First(&stat, "date = ?", date).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to fetch global stats for %s: %w", date, err)
	}
	return stat.TotalRequests, true, nil
}

func (r *statsRepository) EnsureRow(date string) error {
	stat := models.GlobalStat{Date: date, TotalRequests: 0}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoNothing: true,
	}).Create(&stat).Error
	if err != nil {
		return fmt.Errorf("failed to create global stats row for %s: %w", date, err)
	}
	return nil
}

// Increment upserts today's row with an atomic counter bump, so concurrent
// requests never lose updates the way the reference's fetch-then-PATCH did.
func (r *statsRepository) Increment(date string) error {
	stat := models.GlobalStat{Date: date, TotalRequests: 1}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"total_requests": gorm.Expr("total_requests + 1")}),
	}).Create(&stat).Error
	if err != nil {
		return fmt.Errorf("failed to increment global stats for %s: %w", date, err)
	}
	return nil
}
