// Package testutil provides helpers shared by the HTTP and integration
// tests: registration form builders, response assertions and an event
// recorder.
package testutil

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// PNGHeader is the smallest byte prefix sniffed as image/png
var PNGHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// ValidRegistrationFields returns a complete, valid submission form
func ValidRegistrationFields() map[string]string {
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

// Attachment is the proof document part of a submission
type Attachment struct {
	FileName    string
	ContentType string
	Data        []byte
}

// RegistrationForm builds a multipart registration body
type RegistrationForm struct {
	Fields     map[string]string
	Attachment *Attachment
}

// NewRegistrationForm returns a valid form with a PNG attachment
func NewRegistrationForm() *RegistrationForm {
	return &RegistrationForm{
		Fields:     ValidRegistrationFields(),
		Attachment: &Attachment{FileName: "comprovante.png", ContentType: "image/png", Data: PNGHeader},
	}
}

// Set overrides one field
func (f *RegistrationForm) Set(field, value string) *RegistrationForm {
	f.Fields[field] = value
	return f
}

// Without removes fields
func (f *RegistrationForm) Without(fields ...string) *RegistrationForm {
	for _, field := range fields {
		delete(f.Fields, field)
	}
	return f
}

// Encode returns the multipart body and its Content-Type
func (f *RegistrationForm) Encode(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range f.Fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if f.Attachment != nil {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="comprovante"; filename="`+f.Attachment.FileName+`"`)
		if f.Attachment.ContentType != "" {
			header.Set("Content-Type", f.Attachment.ContentType)
		}
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(f.Attachment.Data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

// Request builds a POST request for path
func (f *RegistrationForm) Request(t *testing.T, path string) *http.Request {
	t.Helper()
	body, contentType := f.Encode(t)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	return req
}

// NewTestUUID generates a deterministic UUID from seed
func NewTestUUID(seed string) uuid.UUID {
	namespace := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	return uuid.NewSHA1(namespace, []byte(seed))
}

// ContextWithTimeout creates a context that is cancelled when the test ends
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// WaitForCondition polls condition until it holds or timeout passes
func WaitForCondition(t *testing.T, condition func() bool, timeout, interval time.Duration) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(interval)
	}
	return condition()
}

// PNGImage encodes a solid w×h PNG
func PNGImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 30, G: 120, B: 60, A: 255}}, image.Point{}, draw.Src)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
