package models

import (
	"testing"

	"github.com/maisgenetica/backend/internal/domain/registration"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrationModel_TableName(t *testing.T) {
	assert.Equal(t, "registrations", RegistrationModel{}.TableName())
	assert.Equal(t, "visitors", VisitorModel{}.TableName())
}

func TestRegistrationModel_DomainConversion(t *testing.T) {
	reg, err := registration.NewRegistration(registration.Input{
		Name:                "Francisco Alves",
		CPF:                 "111.444.777-35",
		City:                "Oeiras",
		Locality:            "Sítio Boa Vista",
		Phone:               "(89) 3462-1234",
		Email:               "francisco@example.com",
		PropertyArea:        decimal.RequireFromString("55.25"),
		PastureArea:         decimal.RequireFromString("30"),
		TotalHerd:           18,
		ReproductionFemales: 9,
		ProgramAnimals:      3,
		SemenType:           "Sexado",
	})
	require.NoError(t, err)
	require.NoError(t, reg.AttachFile("comprovantes/1.pdf", "application/pdf", 2048))
	require.NoError(t, reg.MarkReceiptReady("inscricoes/1-inscricao.pdf", "ABC"))

	model := RegistrationModelFromDomain(reg)
	assert.Equal(t, reg.ID, model.ID)
	assert.Equal(t, 2, model.Version)
	assert.Equal(t, "receipt_ready", model.Status)

	back := model.ToDomain()
	assert.Equal(t, reg.ID, back.ID)
	assert.Equal(t, reg.Version, back.Version)
	assert.Equal(t, reg.CreatedAt, back.CreatedAt)
	assert.Equal(t, reg.Name, back.Name)
	assert.True(t, reg.PropertyArea.Equal(back.PropertyArea))
	assert.Equal(t, reg.AttachmentKey, back.AttachmentKey)
	assert.Equal(t, reg.ReceiptKey, back.ReceiptKey)
	assert.Equal(t, registration.StatusReceiptReady, back.Status)
	assert.Empty(t, back.GetDomainEvents())
}
