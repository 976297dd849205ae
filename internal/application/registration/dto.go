package registration

import (
	"time"

	"github.com/google/uuid"
	"github.com/maisgenetica/backend/internal/domain/registration"
	"github.com/maisgenetica/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SubmitInput is a registration form submission with its proof document
type SubmitInput struct {
	// IdempotencyKey is the optional client-supplied Idempotency-Key header
	IdempotencyKey string
	Registration   registration.Input
	Attachment     []byte
	ContentType    string
}

// SubmitResult is returned once a registration is stored. Status is
// receipt_failed when the receipt could not be built yet.
type SubmitResult struct {
	ID                 uuid.UUID           `json:"id"`
	ProtocolID         string              `json:"protocol"`
	ReceiptKey         string              `json:"-"`
	Status             registration.Status `json:"status"`
	PageCount          int                 `json:"page_count"`
	AttachmentIncluded bool                `json:"attachment_included"`
	CreatedAt          time.Time           `json:"created_at"`
}

// ReceiptDownload is a rendered receipt ready to be sent to the client
type ReceiptDownload struct {
	FileName    string
	ContentType string
	Data        []byte
	Regenerated bool
}

// ListFilter holds admin list query options
type ListFilter struct {
	City     string `form:"city"`
	Status   string `form:"status" binding:"omitempty,oneof=pending receipt_ready receipt_failed"`
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ToFilter converts the query into a repository filter
func (f ListFilter) ToFilter() shared.Filter {
	filter := shared.DefaultFilter()
	if f.Page > 0 {
		filter.Page = f.Page
	}
	if f.PageSize > 0 {
		filter.PageSize = f.PageSize
	}
	if f.OrderBy != "" {
		filter.OrderBy = f.OrderBy
	}
	if f.OrderDir != "" {
		filter.OrderDir = f.OrderDir
	}
	filter.Search = f.Search
	if f.City != "" {
		filter.Filters["city"] = f.City
	}
	if f.Status != "" {
		filter.Filters["status"] = f.Status
	}
	return filter
}

// PublicResponse is the registration view shown to the producer.
// It omits the CPF and contact details.
type PublicResponse struct {
	ID         uuid.UUID `json:"id"`
	ProtocolID string    `json:"protocol,omitempty"`
	Name       string    `json:"nome"`
	City       string    `json:"cidade"`
	Locality   string    `json:"localidade"`
	Status     string    `json:"status"`
	ReceiptURL string    `json:"receipt_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// AdminResponse is the full registration view for administrators
type AdminResponse struct {
	ID                    uuid.UUID       `json:"id"`
	ProtocolID            string          `json:"protocol,omitempty"`
	Name                  string          `json:"nome"`
	CPF                   string          `json:"cpf"`
	City                  string          `json:"cidade"`
	Locality              string          `json:"localidade"`
	Phone                 string          `json:"telefone"`
	Email                 string          `json:"email"`
	PropertyArea          decimal.Decimal `json:"area_imovel"`
	PastureArea           decimal.Decimal `json:"area_pastagem"`
	TotalHerd             int             `json:"rebanho_total"`
	ReproductionFemales   int             `json:"femeas_reproducao"`
	ProgramAnimals        int             `json:"animais_genetica"`
	SemenType             string          `json:"semen_utilizado"`
	AttachmentContentType string          `json:"attachment_content_type,omitempty"`
	AttachmentSize        int64           `json:"attachment_size,omitempty"`
	Status                string          `json:"status"`
	FailureReason         string          `json:"failure_reason,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// ReceiptPath is the API path where a registration's receipt is served
func ReceiptPath(id uuid.UUID) string {
	return "/api/v1/registrations/" + id.String() + "/receipt"
}

// ToPublicResponse converts a registration to its public view
func ToPublicResponse(r *registration.Registration) PublicResponse {
	resp := PublicResponse{
		ID:         r.ID,
		ProtocolID: r.ProtocolID,
		Name:       r.Name,
		City:       r.City,
		Locality:   r.Locality,
		Status:     string(r.Status),
		CreatedAt:  r.CreatedAt,
	}
	if r.AttachmentKey != "" {
		resp.ReceiptURL = ReceiptPath(r.ID)
	}
	return resp
}

// ToAdminResponse converts a registration to the administrator view
func ToAdminResponse(r *registration.Registration) AdminResponse {
	return AdminResponse{
		ID:                    r.ID,
		ProtocolID:            r.ProtocolID,
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
		AttachmentContentType: r.AttachmentContentType,
		AttachmentSize:        r.AttachmentSize,
		Status:                string(r.Status),
		FailureReason:         r.FailureReason,
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
	}
}

// ToAdminResponses converts a slice of registrations
func ToAdminResponses(rs []registration.Registration) []AdminResponse {
	out := make([]AdminResponse, len(rs))
	for i := range rs {
		out[i] = ToAdminResponse(&rs[i])
	}
	return out
}
