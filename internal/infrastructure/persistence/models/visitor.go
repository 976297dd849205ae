package models

import "time"

// VisitorModel is the single-row visitor counter
type VisitorModel struct {
	ID        int       `gorm:"primaryKey;autoIncrement:false"`
	Total     int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (VisitorModel) TableName() string {
	return "visitors"
}

// All returns every model managed by this package, in creation order
func All() []any {
	return []any{&RegistrationModel{}, &VisitorModel{}}
}
