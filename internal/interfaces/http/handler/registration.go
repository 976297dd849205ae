package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	registrationapp "github.com/maisgenetica/backend/internal/application/registration"
	"github.com/maisgenetica/backend/internal/domain/registration"
	"github.com/maisgenetica/backend/internal/domain/shared"
	"github.com/maisgenetica/backend/internal/infrastructure/logger"
	"github.com/maisgenetica/backend/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader lets clients retry a submission safely
const IdempotencyKeyHeader = "Idempotency-Key"

// AttachmentField is the multipart field carrying the proof document
const AttachmentField = "comprovante"

// RegistrationService is the application API used by RegistrationHandler
type RegistrationService interface {
	IsOpen() bool
	Submit(ctx context.Context, in registrationapp.SubmitInput) (*registrationapp.SubmitResult, error)
	Get(ctx context.Context, id uuid.UUID) (*registrationapp.PublicResponse, error)
	DownloadReceipt(ctx context.Context, id uuid.UUID) (*registrationapp.ReceiptDownload, error)
}

// RegistrationHandler serves producer registrations and their receipts
type RegistrationHandler struct {
	BaseHandler
	service RegistrationService
}

// NewRegistrationHandler creates a new RegistrationHandler
func NewRegistrationHandler(service RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{service: service}
}

// RegistrationForm is the multipart form of a submission. Numbers arrive
// as text and accept a decimal comma.
type RegistrationForm struct {
	Name                string `form:"nome" binding:"required,max=200"`
	CPF                 string `form:"cpf" binding:"required,cpf"`
	City                string `form:"cidade" binding:"required"`
	Locality            string `form:"localidade" binding:"required"`
	Phone               string `form:"telefone" binding:"required,phone_br"`
	Email               string `form:"email" binding:"required,email"`
	PropertyArea        string `form:"area_imovel" binding:"required"`
	PastureArea         string `form:"area_pastagem" binding:"required"`
	TotalHerd           string `form:"rebanho_total" binding:"required"`
	ReproductionFemales string `form:"femeas_reproducao" binding:"required"`
	ProgramAnimals      string `form:"animais_genetica" binding:"required"`
	SemenType           string `form:"semen_utilizado" binding:"required"`
}

// SubmitResponse is returned with 201 after a registration was stored
type SubmitResponse struct {
	ID                 uuid.UUID `json:"id"`
	Protocol           string    `json:"protocol"`
	Status             string    `json:"status"`
	ReceiptURL         string    `json:"receipt_url"`
	PageCount          int       `json:"page_count"`
	AttachmentIncluded bool      `json:"attachment_included"`
	CreatedAt          time.Time `json:"created_at"`
}

// StatusResponse tells the site whether to show the form
type StatusResponse struct {
	Open bool `json:"open"`
}

// Status godoc
// @ID           getRegistrationStatus
// @Summary      Registration window state
// @Description  Reports whether new submissions are accepted
// @Tags         registrations
// @Produce      json
// @Success      200 {object} dto.Response{data=StatusResponse}
// @Router       /registrations/status [get]
func (h *RegistrationHandler) Status(c *gin.Context) {
	h.Success(c, StatusResponse{Open: h.service.IsOpen()})
}

// Submit godoc
// @ID           submitRegistration
// @Summary      Submit a producer registration
// @Description  Stores the form and its proof document and builds the PDF receipt.
// @Description  A stored registration whose receipt could not be built answers 201 with status receipt_failed.
// @Tags         registrations
// @Accept       multipart/form-data
// @Produce      json
// @Param        Idempotency-Key   header   string  false  "Key that makes retries safe"
// @Param        nome              formData string  true   "Producer name"
// @Param        cpf               formData string  true   "CPF"
// @Param        cidade            formData string  true   "City"
// @Param        localidade        formData string  true   "Locality"
// @Param        telefone          formData string  true   "Phone"
// @Param        email             formData string  true   "Email"
// @Param        area_imovel       formData string  true   "Property area in hectares"
// @Param        area_pastagem     formData string  true   "Pasture area in hectares"
// @Param        rebanho_total     formData integer true   "Total herd"
// @Param        femeas_reproducao formData integer true   "Females in reproduction"
// @Param        animais_genetica  formData integer true   "Animals in the program"
// @Param        semen_utilizado   formData string  true   "Semen type"
// @Param        comprovante       formData file    true   "Proof of registration (image or PDF, up to 1 MB)"
// @Success      201 {object} dto.Response{data=SubmitResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      413 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      429 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /registrations [post]
func (h *RegistrationHandler) Submit(c *gin.Context) {
	verr := &shared.ValidationError{}

	var form RegistrationForm
	if err := c.ShouldBind(&form); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			h.bindFailure(c, err)
			return
		}
		for _, d := range middleware.ValidationDetails(err) {
			verr.Add(d.Field, d.Message)
		}
	}

	input := form.toInput(verr)

	data, contentType, err := readAttachment(c, verr)
	if err != nil {
		h.bindFailure(c, err)
		return
	}
	if verr.HasErrors() {
		middleware.HandleValidationError(c, verr)
		return
	}

	result, err := h.service.Submit(c.Request.Context(), registrationapp.SubmitInput{
		IdempotencyKey: strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader)),
		Registration:   input,
		Attachment:     data,
		ContentType:    contentType,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	ctx, log := logger.WithRegistrationID(c.Request.Context(), result.ID.String())
	c.Request = c.Request.WithContext(ctx)
	log.Info("Registration submitted",
		zap.String("protocol", result.ProtocolID),
		zap.String("status", string(result.Status)))

	receiptURL := registrationapp.ReceiptPath(result.ID)
	c.Header("Location", "/api/v1/registrations/"+result.ID.String())
	h.Created(c, SubmitResponse{
		ID:                 result.ID,
		Protocol:           result.ProtocolID,
		Status:             string(result.Status),
		ReceiptURL:         receiptURL,
		PageCount:          result.PageCount,
		AttachmentIncluded: result.AttachmentIncluded,
		CreatedAt:          result.CreatedAt,
	})
}

func (h *RegistrationHandler) bindFailure(c *gin.Context, err error) {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		h.HandleError(c, err)
		return
	}
	h.BadRequest(c, "Formulário inválido: envie multipart/form-data")
}

// toInput parses the numeric fields, recording failures in verr
func (f RegistrationForm) toInput(verr *shared.ValidationError) registration.Input {
	return registration.Input{
		Name:                f.Name,
		CPF:                 f.CPF,
		City:                f.City,
		Locality:            f.Locality,
		Phone:               f.Phone,
		Email:               f.Email,
		PropertyArea:        parseHectares(verr, "area_imovel", f.PropertyArea),
		PastureArea:         parseHectares(verr, "area_pastagem", f.PastureArea),
		TotalHerd:           parseCount(verr, "rebanho_total", f.TotalHerd),
		ReproductionFemales: parseCount(verr, "femeas_reproducao", f.ReproductionFemales),
		ProgramAnimals:      parseCount(verr, "animais_genetica", f.ProgramAnimals),
		SemenType:           f.SemenType,
	}
}

func parseHectares(verr *shared.ValidationError, field, raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.Replace(raw, ",", ".", 1))
	if err != nil {
		verr.Add(field, "número inválido")
		return decimal.Zero
	}
	return d
}

func parseCount(verr *shared.ValidationError, field, raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		verr.Add(field, "deve ser um número inteiro")
		return 0
	}
	return n
}

// readAttachment reads the proof document. A missing file is a field
// failure; a broken multipart body is returned as an error. The declared
// type is kept unless it is empty or generic, in which case the bytes are
// sniffed.
func readAttachment(c *gin.Context, verr *shared.ValidationError) ([]byte, string, error) {
	fh, err := c.FormFile(AttachmentField)
	if errors.Is(err, http.ErrMissingFile) {
		verr.Add(AttachmentField, "campo obrigatório")
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	if fh.Size > registration.MaxAttachmentSize {
		verr.Add(AttachmentField, "arquivo excede o limite de 1 MB")
		return nil, "", nil
	}

	data, err := readFileHeader(fh)
	if err != nil {
		return nil, "", err
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open attachment: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, registration.MaxAttachmentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}
	return data, nil
}

// Get godoc
// @ID           getRegistration
// @Summary      Public summary of a registration
// @Tags         registrations
// @Produce      json
// @Param        id  path  string  true  "Registration ID" format(uuid)
// @Success      200 {object} dto.Response{data=registrationapp.PublicResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /registrations/{id} [get]
func (h *RegistrationHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	resp, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// DownloadReceipt godoc
// @ID           downloadRegistrationReceipt
// @Summary      Download the receipt PDF
// @Description  Rebuilds the receipt from the stored attachment when it was never stored or is gone
// @Tags         registrations
// @Produce      application/pdf
// @Param        id  path  string  true  "Registration ID" format(uuid)
// @Success      200 {file}   binary
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /registrations/{id}/receipt [get]
func (h *RegistrationHandler) DownloadReceipt(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	download, err := h.service.DownloadReceipt(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+download.FileName+`"`)
	c.Header("Cache-Control", "private, no-store")
	if download.Regenerated {
		c.Header("X-Receipt-Regenerated", "true")
	}
	c.Data(http.StatusOK, download.ContentType, download.Data)
}
