package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/maisgenetica/backend/internal/domain/registration"
	"github.com/maisgenetica/backend/internal/domain/shared"
	"github.com/maisgenetica/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormRegistrationRepository implements RegistrationRepository using GORM
type GormRegistrationRepository struct {
	db *gorm.DB
}

// NewGormRegistrationRepository creates a new GormRegistrationRepository
func NewGormRegistrationRepository(db *gorm.DB) *GormRegistrationRepository {
	return &GormRegistrationRepository{db: db}
}

// FindByID finds a registration by its ID
func (r *GormRegistrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*registration.Registration, error) {
	var model models.RegistrationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all registrations matching the filter
func (r *GormRegistrationRepository) FindAll(ctx context.Context, filter shared.Filter) ([]registration.Registration, error) {
	var rows []models.RegistrationModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.RegistrationModel{}), filter)

	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]registration.Registration, 0, len(rows))
	for i := range rows {
		result = append(result, *rows[i].ToDomain())
	}
	return result, nil
}

// Count counts registrations matching the filter
func (r *GormRegistrationRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.RegistrationModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save inserts a registration at version 1 and otherwise updates it,
// requiring the stored version to be the one the aggregate was loaded at.
func (r *GormRegistrationRepository) Save(ctx context.Context, reg *registration.Registration) error {
	model := models.RegistrationModelFromDomain(reg)
	db := r.db.WithContext(ctx)

	if reg.GetVersion() <= 1 {
		return db.Create(model).Error
	}

	result := db.Model(model).
		Where("version = ?", reg.GetVersion()-1).
		Select("*").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

func (r *GormRegistrationRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	return query.Order(orderClause(filter.OrderBy, filter.OrderDir))
}

func (r *GormRegistrationRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("(LOWER(name) LIKE ? OR LOWER(locality) LIKE ? OR protocol_id = ?)",
			pattern, pattern, strings.ToUpper(search))
	}

	for key, value := range filter.Filters {
		switch key {
		case "city":
			query = query.Where("LOWER(city) = LOWER(?)", value)
		case "status":
			query = query.Where("status = ?", value)
		}
	}

	return query
}

// Ensure GormRegistrationRepository implements RegistrationRepository
var _ registration.RegistrationRepository = (*GormRegistrationRepository)(nil)
