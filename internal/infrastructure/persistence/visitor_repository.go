package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/maisgenetica/backend/internal/domain/visitor"
	"github.com/maisgenetica/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormVisitorCounter keeps the site visit total in a single database row
type GormVisitorCounter struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormVisitorCounter creates a new GormVisitorCounter
func NewGormVisitorCounter(db *gorm.DB) *GormVisitorCounter {
	return &GormVisitorCounter{db: db, now: time.Now}
}

// Increment adds one visit and returns the new total.
// The counter row is created on first use when the migration seed is missing.
func (c *GormVisitorCounter) Increment(ctx context.Context) (int64, error) {
	var total int64
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := c.now().UTC()
		result := tx.Model(&models.VisitorModel{}).
			Where("id = ?", visitor.CounterRowID).
			Updates(map[string]any{
				"total":      gorm.Expr("total + ?", 1),
				"updated_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			row := models.VisitorModel{ID: visitor.CounterRowID, Total: 1, UpdatedAt: now}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.Assignments(map[string]any{"total": gorm.Expr("visitors.total + 1"), "updated_at": now}),
			}).Create(&row).Error; err != nil {
				return err
			}
		}

		var row models.VisitorModel
		if err := tx.First(&row, "id = ?", visitor.CounterRowID).Error; err != nil {
			return err
		}
		total = row.Total
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// Current returns the total without counting a visit
func (c *GormVisitorCounter) Current(ctx context.Context) (int64, error) {
	var row models.VisitorModel
	if err := c.db.WithContext(ctx).First(&row, "id = ?", visitor.CounterRowID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return row.Total, nil
}

// Ensure GormVisitorCounter implements visitor.Counter
var _ visitor.Counter = (*GormVisitorCounter)(nil)
