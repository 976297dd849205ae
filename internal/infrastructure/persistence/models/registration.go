package models

import (
	"github.com/maisgenetica/backend/internal/domain/registration"
	"github.com/shopspring/decimal"
)

// RegistrationModel is the persistence model for a producer registration
type RegistrationModel struct {
	AggregateModel
	Name                  string          `gorm:"type:varchar(200);not null"`
	CPF                   string          `gorm:"column:cpf;type:varchar(20);not null;index"`
	City                  string          `gorm:"type:varchar(120);not null;index"`
	Locality              string          `gorm:"type:varchar(120);not null"`
	Phone                 string          `gorm:"type:varchar(30);not null"`
	Email                 string          `gorm:"type:varchar(254);not null"`
	PropertyArea          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PastureArea           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalHerd             int             `gorm:"not null;default:0"`
	ReproductionFemales   int             `gorm:"not null;default:0"`
	ProgramAnimals        int             `gorm:"not null;default:0"`
	SemenType             string          `gorm:"type:varchar(120);not null"`
	AttachmentKey         string          `gorm:"type:varchar(255)"`
	AttachmentContentType string          `gorm:"type:varchar(100)"`
	AttachmentSize        int64           `gorm:"not null;default:0"`
	ReceiptKey            string          `gorm:"type:varchar(255)"`
	ProtocolID            string          `gorm:"type:varchar(20);index"`
	Status                string          `gorm:"type:varchar(20);not null;default:'pending';index"`
	FailureReason         string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (RegistrationModel) TableName() string {
	return "registrations"
}

// ToDomain converts the persistence model to a domain Registration
func (m *RegistrationModel) ToDomain() *registration.Registration {
	return &registration.Registration{
		BaseAggregateRoot:     m.AggregateModel.ToDomainAggregateRoot(),
		Name:                  m.Name,
		CPF:                   m.CPF,
		City:                  m.City,
		Locality:              m.Locality,
		Phone:                 m.Phone,
		Email:                 m.Email,
		PropertyArea:          m.PropertyArea,
		PastureArea:           m.PastureArea,
		TotalHerd:             m.TotalHerd,
		ReproductionFemales:   m.ReproductionFemales,
		ProgramAnimals:        m.ProgramAnimals,
		SemenType:             m.SemenType,
		AttachmentKey:         m.AttachmentKey,
		AttachmentContentType: m.AttachmentContentType,
		AttachmentSize:        m.AttachmentSize,
		ReceiptKey:            m.ReceiptKey,
		ProtocolID:            m.ProtocolID,
		Status:                registration.Status(m.Status),
		FailureReason:         m.FailureReason,
	}
}

// RegistrationModelFromDomain creates a persistence model from a domain Registration
func RegistrationModelFromDomain(r *registration.Registration) *RegistrationModel {
	m := &RegistrationModel{
		Name:                  r.Name,
		CPF:                   r.CPF,
		City:                  r.City,
		Locality:              r.Locality,
		Phone:                 r.Phone,
		Email:                 r.Email,
		PropertyArea:          r.PropertyArea,
		PastureArea:           r.PastureArea,
		TotalHerd:             r.TotalHerd,
		ReproductionFemales:   r.ReproductionFemales,
		ProgramAnimals:        r.ProgramAnimals,
		SemenType:             r.SemenType,
		AttachmentKey:         r.AttachmentKey,
		AttachmentContentType: r.AttachmentContentType,
		AttachmentSize:        r.AttachmentSize,
		ReceiptKey:            r.ReceiptKey,
		ProtocolID:            r.ProtocolID,
		Status:                string(r.Status),
		FailureReason:         r.FailureReason,
	}
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	return m
}
