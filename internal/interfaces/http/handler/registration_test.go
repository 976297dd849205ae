package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	registrationapp "github.com/maisgenetica/backend/internal/application/registration"
	"github.com/maisgenetica/backend/internal/domain/registration"
	"github.com/maisgenetica/backend/internal/domain/shared"
	"github.com/maisgenetica/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRegistrationService struct {
	mock.Mock
}

func (m *MockRegistrationService) IsOpen() bool {
	return m.Called().Bool(0)
}

func (m *MockRegistrationService) Submit(ctx context.Context, in registrationapp.SubmitInput) (*registrationapp.SubmitResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*registrationapp.SubmitResult), args.Error(1)
}

func (m *MockRegistrationService) Get(ctx context.Context, id uuid.UUID) (*registrationapp.PublicResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*registrationapp.PublicResponse), args.Error(1)
}

func (m *MockRegistrationService) DownloadReceipt(ctx context.Context, id uuid.UUID) (*registrationapp.ReceiptDownload, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*registrationapp.ReceiptDownload), args.Error(1)
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func validFormFields() map[string]string {
	return map[string]string{
		"nome":              "Maria da Silva",
		"cpf":               "529.982.247-25",
		"cidade":            "Picos",
		"localidade":        "Povoado Boa Vista",
		"telefone":          "(89) 99988-7766",
		"email":             "maria@example.com",
		"area_imovel":       "120,5",
		"area_pastagem":     "80",
		"rebanho_total":     "150",
		"femeas_reproducao": "60",
		"animais_genetica":  "20",
		"semen_utilizado":   "Nelore",
	}
}

type attachmentPart struct {
	name        string
	contentType string
	data        []byte
}

func multipartBody(t *testing.T, fields map[string]string, att *attachmentPart) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if att != nil {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="`+AttachmentField+`"; filename="`+att.name+`"`)
		if att.contentType != "" {
			header.Set("Content-Type", att.contentType)
		}
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(att.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func newRegistrationRouter(svc RegistrationService) *gin.Engine {
	h := NewRegistrationHandler(svc)
	r := gin.New()
	r.GET("/api/v1/registrations/status", h.Status)
	r.POST("/api/v1/registrations", h.Submit)
	r.GET("/api/v1/registrations/:id", h.Get)
	r.GET("/api/v1/registrations/:id/receipt", h.DownloadReceipt)
	return r
}

func postRegistration(t *testing.T, r *gin.Engine, fields map[string]string, att *attachmentPart, idemKey string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, fields, att)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/registrations", body)
	req.Header.Set("Content-Type", contentType)
	if idemKey != "" {
		req.Header.Set(IdempotencyKeyHeader, idemKey)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func detailFields(resp dto.Response) []string {
	if resp.Error == nil {
		return nil
	}
	fields := make([]string, 0, len(resp.Error.Details))
	for _, d := range resp.Error.Details {
		fields = append(fields, d.Field)
	}
	return fields
}

func TestRegistrationHandler_Status(t *testing.T) {
	svc := new(MockRegistrationService)
	svc.On("IsOpen").Return(false)
	r := newRegistrationRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/registrations/status", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"open":false}}`, w.Body.String())
}

func TestRegistrationHandler_Submit(t *testing.T) {
	t.Run("stores registration and returns receipt link", func(t *testing.T) {
		svc := new(MockRegistrationService)
		id := uuid.New()
		created := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
		svc.On("Submit", mock.Anything, mock.MatchedBy(func(in registrationapp.SubmitInput) bool {
			return in.IdempotencyKey == "form-42" &&
				in.Registration.CPF == "529.982.247-25" &&
				in.Registration.PropertyArea.Equal(decimal.RequireFromString("120.5")) &&
				in.Registration.TotalHerd == 150 &&
				in.ContentType == "image/png" &&
				bytes.Equal(in.Attachment, pngHeader)
		})).Return(&registrationapp.SubmitResult{
			ID:                 id,
			ProtocolID:         "MG-2026-000001",
			AttachmentIncluded: true,
			CreatedAt:          created,
		}, nil)

		w := postRegistration(t, newRegistrationRouter(svc), validFormFields(),
			&attachmentPart{name: "comprovante.png", contentType: "image/png", data: pngHeader}, "form-42")

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, "/api/v1/registrations/"+id.String(), w.Header().Get("Location"))
		resp := decodeResponse(t, w)
		data := resp.Data.(map[string]any)
		assert.Equal(t, "MG-2026-000001", data["protocol"])
		assert.Equal(t, "/api/v1/registrations/"+id.String()+"/receipt", data["receipt_url"])
		assert.Equal(t, true, data["attachment_included"])
		svc.AssertExpectations(t)
	})

	t.Run("stored registration without receipt still gets its link", func(t *testing.T) {
		svc := new(MockRegistrationService)
		id := uuid.New()
		svc.On("Submit", mock.Anything, mock.Anything).Return(&registrationapp.SubmitResult{
			ID:         id,
			ProtocolID: "MG1",
			Status:     registration.StatusReceiptFailed,
		}, nil)

		w := postRegistration(t, newRegistrationRouter(svc), validFormFields(),
			&attachmentPart{name: "comprovante.png", contentType: "image/png", data: pngHeader}, "form-43")

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		data := decodeResponse(t, w).Data.(map[string]any)
		assert.Equal(t, "receipt_failed", data["status"])
		assert.Equal(t, "/api/v1/registrations/"+id.String()+"/receipt", data["receipt_url"])
	})

	t.Run("sniffs generic content type", func(t *testing.T) {
		svc := new(MockRegistrationService)
		svc.On("Submit", mock.Anything, mock.MatchedBy(func(in registrationapp.SubmitInput) bool {
			return in.ContentType == "image/png"
		})).Return(&registrationapp.SubmitResult{ID: uuid.New()}, nil)

		w := postRegistration(t, newRegistrationRouter(svc), validFormFields(),
			&attachmentPart{name: "scan", contentType: "application/octet-stream", data: pngHeader}, "")

		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("lists every invalid field", func(t *testing.T) {
		svc := new(MockRegistrationService)
		fields := validFormFields()
		fields["cpf"] = "111.111.111-11"
		fields["telefone"] = "123"
		fields["rebanho_total"] = "muitos"
		delete(fields, "nome")

		w := postRegistration(t, newRegistrationRouter(svc), fields, nil, "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.ElementsMatch(t,
			[]string{"nome", "cpf", "telefone", "rebanho_total", AttachmentField},
			detailFields(resp))
		svc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	})

	t.Run("rejects oversized attachment", func(t *testing.T) {
		svc := new(MockRegistrationService)
		big := make([]byte, registration.MaxAttachmentSize+1)

		w := postRegistration(t, newRegistrationRouter(svc), validFormFields(),
			&attachmentPart{name: "big.pdf", contentType: "application/pdf", data: big}, "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, detailFields(decodeResponse(t, w)), AttachmentField)
	})

	t.Run("rejects non multipart body", func(t *testing.T) {
		svc := new(MockRegistrationService)
		r := newRegistrationRouter(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/registrations", bytes.NewBufferString(`{"nome":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	serviceErrors := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"registration closed", registrationapp.ErrRegistrationClosed, http.StatusForbidden, dto.ErrCodeRegistrationClosed},
		{"duplicate submission", shared.ErrDuplicateSubmission, http.StatusConflict, dto.ErrCodeDuplicateSubmission},
		{"domain validation", &shared.ValidationError{Fields: []shared.FieldError{{Field: "animais_genetica", Message: "excede o rebanho"}}},
			http.StatusBadRequest, dto.ErrCodeValidation},
	}
	for _, tt := range serviceErrors {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockRegistrationService)
			svc.On("Submit", mock.Anything, mock.Anything).Return(nil, tt.err)

			w := postRegistration(t, newRegistrationRouter(svc), validFormFields(),
				&attachmentPart{name: "c.png", contentType: "image/png", data: pngHeader}, "")

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decodeResponse(t, w).Error.Code)
		})
	}
}

func TestRegistrationHandler_Get(t *testing.T) {
	id := uuid.New()

	t.Run("found", func(t *testing.T) {
		svc := new(MockRegistrationService)
		svc.On("Get", mock.Anything, id).Return(&registrationapp.PublicResponse{
			ID: id, ProtocolID: "MG-2026-000007", Name: "João", City: "Picos", Status: "receipt_ready",
		}, nil)

		w := httptest.NewRecorder()
		newRegistrationRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/registrations/"+id.String(), nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "cpf")
		data := decodeResponse(t, w).Data.(map[string]any)
		assert.Equal(t, "MG-2026-000007", data["protocol"])
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockRegistrationService)
		svc.On("Get", mock.Anything, id).Return(nil, shared.ErrNotFound)

		w := httptest.NewRecorder()
		newRegistrationRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/registrations/"+id.String(), nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		svc := new(MockRegistrationService)

		w := httptest.NewRecorder()
		newRegistrationRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/registrations/abc", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})
}

func TestRegistrationHandler_DownloadReceipt(t *testing.T) {
	id := uuid.New()
	pdf := []byte("%PDF-1.4\n%%EOF")

	t.Run("sends pdf attachment", func(t *testing.T) {
		svc := new(MockRegistrationService)
		svc.On("DownloadReceipt", mock.Anything, id).Return(&registrationapp.ReceiptDownload{
			FileName:    "inscricao-maria-da-silva.pdf",
			ContentType: "application/pdf",
			Data:        pdf,
		}, nil)

		w := httptest.NewRecorder()
		newRegistrationRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/registrations/"+id.String()+"/receipt", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="inscricao-maria-da-silva.pdf"`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, "private, no-store", w.Header().Get("Cache-Control"))
		assert.Empty(t, w.Header().Get("X-Receipt-Regenerated"))
		assert.Equal(t, pdf, w.Body.Bytes())
	})

	t.Run("marks regenerated receipt", func(t *testing.T) {
		svc := new(MockRegistrationService)
		svc.On("DownloadReceipt", mock.Anything, id).Return(&registrationapp.ReceiptDownload{
			FileName: "r.pdf", ContentType: "application/pdf", Data: pdf, Regenerated: true,
		}, nil)

		w := httptest.NewRecorder()
		newRegistrationRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/registrations/"+id.String()+"/receipt", nil))

		assert.Equal(t, "true", w.Header().Get("X-Receipt-Regenerated"))
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockRegistrationService)
		svc.On("DownloadReceipt", mock.Anything, id).Return(nil, shared.ErrNotFound)

		w := httptest.NewRecorder()
		newRegistrationRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/registrations/"+id.String()+"/receipt", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeNotFound, decodeResponse(t, w).Error.Code)
	})
}
