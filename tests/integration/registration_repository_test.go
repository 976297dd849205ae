package integration

import (
	"context"
	"sync"
	"testing"

	"github.com/maisgenetica/backend/internal/domain/registration"
	"github.com/maisgenetica/backend/internal/domain/shared"
	"github.com/maisgenetica/backend/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistration(t *testing.T, name, city string) *registration.Registration {
	t.Helper()
	reg, err := registration.NewRegistration(registration.Input{
		Name:                name,
		CPF:                 "529.982.247-25",
		City:                city,
		Locality:            "Zona Rural",
		Phone:               "(86) 99999-0000",
		Email:               "produtor@example.com",
		PropertyArea:        decimal.RequireFromString("50.25"),
		PastureArea:         decimal.RequireFromString("30"),
		TotalHerd:           40,
		ReproductionFemales: 20,
		ProgramAnimals:      5,
		SemenType:           "Gir Leiteiro",
	})
	require.NoError(t, err)
	return reg
}

func TestRegistrationRepository_SaveAndFind(t *testing.T) {
	tdb := NewTestDB(t)
	repo := persistence.NewGormRegistrationRepository(tdb.DB)
	ctx := context.Background()

	reg := newRegistration(t, "José Ribamar", "Picos")
	require.NoError(t, reg.AttachFile("attachments/"+reg.ID.String(), "image/png", 1234))
	require.NoError(t, repo.Save(ctx, reg))

	require.NoError(t, reg.MarkReceiptReady("receipts/"+reg.ID.String()+".pdf", "MG-2026-000001"))
	require.NoError(t, repo.Save(ctx, reg))

	found, err := repo.FindByID(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, "José Ribamar", found.Name)
	assert.Equal(t, registration.StatusReceiptReady, found.Status)
	assert.Equal(t, "MG-2026-000001", found.ProtocolID)
	assert.True(t, found.PropertyArea.Equal(decimal.RequireFromString("50.25")))
	assert.Equal(t, int64(1234), found.AttachmentSize)
	assert.Equal(t, 2, found.GetVersion())
}

func TestRegistrationRepository_NotFound(t *testing.T) {
	tdb := NewTestDB(t)
	repo := persistence.NewGormRegistrationRepository(tdb.DB)

	_, err := repo.FindByID(context.Background(), newRegistration(t, "X", "Picos").ID)

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRegistrationRepository_StaleUpdate(t *testing.T) {
	tdb := NewTestDB(t)
	repo := persistence.NewGormRegistrationRepository(tdb.DB)
	ctx := context.Background()

	reg := newRegistration(t, "Ana", "Oeiras")
	require.NoError(t, repo.Save(ctx, reg))

	first, err := repo.FindByID(ctx, reg.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, reg.ID)
	require.NoError(t, err)

	require.NoError(t, first.MarkReceiptReady("receipts/a.pdf", "MG-2026-000002"))
	require.NoError(t, repo.Save(ctx, first))

	require.NoError(t, second.MarkReceiptFailed("storage unavailable"))
	assert.ErrorIs(t, repo.Save(ctx, second), shared.ErrConcurrencyConflict)
}

func TestRegistrationRepository_FilterAndCount(t *testing.T) {
	tdb := NewTestDB(t)
	repo := persistence.NewGormRegistrationRepository(tdb.DB)
	ctx := context.Background()

	for _, r := range []struct{ name, city string }{
		{"Maria Souza", "Picos"},
		{"João Souza", "picos"},
		{"Pedro Lima", "Floriano"},
	} {
		require.NoError(t, repo.Save(ctx, newRegistration(t, r.name, r.city)))
	}

	filter := shared.DefaultFilter()
	filter.Filters["city"] = "PICOS"
	count, err := repo.Count(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	filter = shared.DefaultFilter()
	filter.Search = "souza"
	filter.PageSize = 1
	page, err := repo.FindAll(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, page, 1)
	count, err = repo.Count(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestVisitorCounter_ConcurrentIncrements(t *testing.T) {
	tdb := NewTestDB(t)
	counter := persistence.NewGormVisitorCounter(tdb.DB)
	ctx := context.Background()

	const visits = 20
	var wg sync.WaitGroup
	for i := 0; i < visits; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := counter.Increment(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	total, err := counter.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(visits), total)
}
