package registration

import (
	"github.com/google/uuid"
	"github.com/maisgenetica/backend/internal/domain/shared"
)

// Event types
const (
	EventTypeRegistrationSubmitted = "RegistrationSubmitted"
	EventTypeReceiptGenerated      = "ReceiptGenerated"
)

// RegistrationSubmittedEvent is raised when a valid registration is created
type RegistrationSubmittedEvent struct {
	shared.BaseDomainEvent
	RegistrationID uuid.UUID `json:"registration_id"`
	Name           string    `json:"name"`
	City           string    `json:"city"`
}

// NewRegistrationSubmittedEvent creates a new RegistrationSubmittedEvent
func NewRegistrationSubmittedEvent(r *Registration) *RegistrationSubmittedEvent {
	return &RegistrationSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRegistrationSubmitted, AggregateType, r.ID),
		RegistrationID:  r.ID,
		Name:            r.Name,
		City:            r.City,
	}
}

// ReceiptGeneratedEvent is raised once the receipt PDF is stored. It carries
// what the administrator notification needs.
type ReceiptGeneratedEvent struct {
	shared.BaseDomainEvent
	RegistrationID uuid.UUID `json:"registration_id"`
	ProtocolID     string    `json:"protocol_id"`
	ReceiptKey     string    `json:"receipt_key"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	City           string    `json:"city"`
	Locality       string    `json:"locality"`
	Phone          string    `json:"phone"`
	TotalHerd      int       `json:"total_herd"`
	ProgramAnimals int       `json:"program_animals"`
}

// NewReceiptGeneratedEvent creates a new ReceiptGeneratedEvent
func NewReceiptGeneratedEvent(r *Registration) *ReceiptGeneratedEvent {
	return &ReceiptGeneratedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceiptGenerated, AggregateType, r.ID),
		RegistrationID:  r.ID,
		ProtocolID:      r.ProtocolID,
		ReceiptKey:      r.ReceiptKey,
		Name:            r.Name,
		Email:           r.Email,
		City:            r.City,
		Locality:        r.Locality,
		Phone:           r.Phone,
		TotalHerd:       r.TotalHerd,
		ProgramAnimals:  r.ProgramAnimals,
	}
}
