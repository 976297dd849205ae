// Package registration holds the producer registration aggregate of the
// Piauí + Genética program and the rules applied to a submission.
package registration

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/maisgenetica/backend/internal/domain/receipt"
	"github.com/maisgenetica/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AggregateType is the aggregate name used on domain events
const AggregateType = "Registration"

// Field length limits
const (
	MaxNameLength      = 200
	MaxTextFieldLength = 120
	MaxEmailLength     = 254
)

// Areas are stored as DECIMAL(12,2) hectares
const AreaDecimalPlaces = 2

// MaxArea is the largest area the registrations table can hold
var MaxArea = decimal.RequireFromString("9999999999.99")

// Status tracks receipt generation for a registration
type Status string

const (
	StatusPending       Status = "pending"
	StatusReceiptReady  Status = "receipt_ready"
	StatusReceiptFailed Status = "receipt_failed"
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusReceiptReady, StatusReceiptFailed:
		return true
	default:
		return false
	}
}

// Input is the producer data as submitted through the form
type Input struct {
	Name                string
	CPF                 string
	City                string
	Locality            string
	Phone               string
	Email               string
	PropertyArea        decimal.Decimal
	PastureArea         decimal.Decimal
	TotalHerd           int
	ReproductionFemales int
	ProgramAnimals      int
	SemenType           string
}

// Registration is one producer's enrolment in the program
type Registration struct {
	shared.BaseAggregateRoot
	Name                  string
	CPF                   string
	City                  string
	Locality              string
	Phone                 string
	Email                 string
	PropertyArea          decimal.Decimal
	PastureArea           decimal.Decimal
	TotalHerd             int
	ReproductionFemales   int
	ProgramAnimals        int
	SemenType             string
	AttachmentKey         string
	AttachmentContentType string
	AttachmentSize        int64
	ReceiptKey            string
	ProtocolID            string
	Status                Status
	FailureReason         string
}

// NewRegistration validates input and creates a pending registration.
// All invalid fields are reported together in a *shared.ValidationError.
func NewRegistration(in Input) (*Registration, error) {
	in = normalize(in)
	if err := Validate(in); err != nil {
		return nil, err
	}

	r := &Registration{
		BaseAggregateRoot:   shared.NewBaseAggregateRoot(),
		Name:                in.Name,
		CPF:                 in.CPF,
		City:                in.City,
		Locality:            in.Locality,
		Phone:               in.Phone,
		Email:               in.Email,
		PropertyArea:        in.PropertyArea,
		PastureArea:         in.PastureArea,
		TotalHerd:           in.TotalHerd,
		ReproductionFemales: in.ReproductionFemales,
		ProgramAnimals:      in.ProgramAnimals,
		SemenType:           in.SemenType,
		Status:              StatusPending,
	}
	r.AddDomainEvent(NewRegistrationSubmittedEvent(r))
	return r, nil
}

func normalize(in Input) Input {
	in.Name = strings.Join(strings.Fields(in.Name), " ")
	in.CPF = strings.TrimSpace(in.CPF)
	in.City = strings.TrimSpace(in.City)
	in.Locality = strings.TrimSpace(in.Locality)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.SemenType = strings.TrimSpace(in.SemenType)
	return in
}

// Validate checks every field of in and returns all failures at once
func Validate(in Input) error {
	verr := &shared.ValidationError{}

	requireText(verr, "nome", in.Name, MaxNameLength)
	if !IsValidCPF(in.CPF) {
		verr.Add("cpf", "CPF inválido")
	}
	requireText(verr, "cidade", in.City, MaxTextFieldLength)
	requireText(verr, "localidade", in.Locality, MaxTextFieldLength)
	if !IsValidPhone(in.Phone) {
		verr.Add("telefone", "telefone deve ter DDD e 8 ou 9 dígitos")
	}
	if in.Email == "" {
		verr.Add("email", "campo obrigatório")
	} else if len(in.Email) > MaxEmailLength {
		verr.Add("email", "email muito longo")
	} else if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		verr.Add("email", "email inválido")
	}

	propertyOK := checkArea(verr, "area_imovel", in.PropertyArea)
	if checkArea(verr, "area_pastagem", in.PastureArea) && propertyOK &&
		in.PastureArea.GreaterThan(in.PropertyArea) {
		verr.Add("area_pastagem", "não pode exceder a área do imóvel")
	}

	if in.TotalHerd < 0 {
		verr.Add("rebanho_total", "não pode ser negativo")
	}
	if in.ReproductionFemales < 0 {
		verr.Add("femeas_reproducao", "não pode ser negativo")
	} else if in.ReproductionFemales > in.TotalHerd {
		verr.Add("femeas_reproducao", "não pode exceder o rebanho total")
	}
	if in.ProgramAnimals < 0 {
		verr.Add("animais_genetica", "não pode ser negativo")
	} else if in.ProgramAnimals > in.TotalHerd {
		verr.Add("animais_genetica", "não pode exceder o rebanho total")
	}

	requireText(verr, "semen_utilizado", in.SemenType, MaxTextFieldLength)

	return verr.OrNil()
}

func requireText(verr *shared.ValidationError, field, value string, maxLen int) {
	switch {
	case value == "":
		verr.Add(field, "campo obrigatório")
	case utf8.RuneCountInString(value) > maxLen:
		verr.Add(field, "texto muito longo")
	}
}

// AttachFile records where the uploaded proof document was stored
func (r *Registration) AttachFile(key, contentType string, size int64) error {
	if key == "" {
		return shared.NewDomainError("INVALID_STORAGE_KEY", "Attachment storage key cannot be empty")
	}
	r.AttachmentKey = key
	r.AttachmentContentType = contentType
	r.AttachmentSize = size
	r.Touch()
	return nil
}

// MarkReceiptReady records the stored receipt. It is also valid after a
// failure, when the receipt is regenerated.
func (r *Registration) MarkReceiptReady(key, protocolID string) error {
	if key == "" {
		return shared.NewDomainError("INVALID_STORAGE_KEY", "Receipt storage key cannot be empty")
	}
	if r.Status == StatusReceiptReady {
		return shared.NewDomainError("RECEIPT_ALREADY_READY", "Receipt was already generated")
	}
	r.ReceiptKey = key
	r.ProtocolID = protocolID
	r.Status = StatusReceiptReady
	r.FailureReason = ""
	r.IncrementVersion()

	r.AddDomainEvent(NewReceiptGeneratedEvent(r))
	return nil
}

// MarkReceiptFailed records that the receipt could not be stored
func (r *Registration) MarkReceiptFailed(reason string) error {
	if r.Status == StatusReceiptReady {
		return shared.NewDomainError("RECEIPT_ALREADY_READY", "Receipt was already generated")
	}
	r.Status = StatusReceiptFailed
	r.FailureReason = reason
	r.IncrementVersion()
	return nil
}

// ReplaceReceiptKey points a ready registration at a regenerated receipt
// object after the original one was lost.
func (r *Registration) ReplaceReceiptKey(key string) error {
	if key == "" {
		return shared.NewDomainError("INVALID_STORAGE_KEY", "Receipt storage key cannot be empty")
	}
	if r.Status != StatusReceiptReady {
		return shared.ErrInvalidState
	}
	r.ReceiptKey = key
	r.IncrementVersion()
	return nil
}

// HasReceipt reports whether a receipt is stored
func (r *Registration) HasReceipt() bool {
	return r.Status == StatusReceiptReady && r.ReceiptKey != ""
}

// SubmittedAt is the instant the registration was created
func (r *Registration) SubmittedAt() time.Time {
	return r.CreatedAt
}

// Record returns the read-only snapshot rendered on the receipt
func (r *Registration) Record() receipt.Record {
	return receipt.Record{
		Name:                r.Name,
		CPF:                 r.CPF,
		Phone:               r.Phone,
		Email:               r.Email,
		City:                r.City,
		Locality:            r.Locality,
		PropertyArea:        r.PropertyArea,
		PastureArea:         r.PastureArea,
		TotalHerd:           r.TotalHerd,
		ReproductionFemales: r.ReproductionFemales,
		ProgramAnimals:      r.ProgramAnimals,
		SemenType:           r.SemenType,
	}
}

// checkArea reports whether d is a positive hectare value that the database
// stores exactly, so every receipt prints the same figure
func checkArea(verr *shared.ValidationError, field string, d decimal.Decimal) bool {
	switch {
	case !d.IsPositive():
		verr.Add(field, "deve ser maior que zero")
	case !d.Equal(d.Truncate(AreaDecimalPlaces)):
		verr.Add(field, "use no máximo duas casas decimais")
	case d.GreaterThan(MaxArea):
		verr.Add(field, "valor acima do permitido")
	default:
		return true
	}
	return false
}
