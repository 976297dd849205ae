package registration

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/maisgenetica/backend/internal/domain/receipt"
	"github.com/maisgenetica/backend/internal/domain/registration"
	"github.com/maisgenetica/backend/internal/domain/shared"
	"github.com/maisgenetica/backend/internal/infrastructure/printing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Mocks
// ============================================================================

type MockRegistrationRepository struct {
	mock.Mock
}

func (m *MockRegistrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*registration.Registration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*registration.Registration), args.Error(1)
}

func (m *MockRegistrationRepository) FindAll(ctx context.Context, filter shared.Filter) ([]registration.Registration, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]registration.Registration), args.Error(1)
}

func (m *MockRegistrationRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRegistrationRepository) Save(ctx context.Context, r *registration.Registration) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}

func (m *MockObjectStorage) Download(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockObjectStorage) GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, key, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

type MockComposer struct {
	mock.Mock
}

func (m *MockComposer) ComposeAt(ctx context.Context, record receipt.Record, att receipt.Attachment, submittedAt time.Time) (*receipt.ComposedDocument, error) {
	args := m.Called(ctx, record, att, submittedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*receipt.ComposedDocument), args.Error(1)
}

type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(doc *receipt.ComposedDocument, opts receipt.RenderOptions) ([]byte, error) {
	args := m.Called(doc, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	return nil
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// ============================================================================
// Fixtures
// ============================================================================

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type fixture struct {
	repo      *MockRegistrationRepository
	storage   *MockObjectStorage
	composer  *MockComposer
	renderer  *MockRenderer
	service   *Service
	publisher *MockEventPublisher
}

func newFixture() *fixture {
	f := &fixture{
		repo:      new(MockRegistrationRepository),
		storage:   new(MockObjectStorage),
		composer:  new(MockComposer),
		renderer:  new(MockRenderer),
		publisher: new(MockEventPublisher),
	}
	f.service = NewService(f.repo, f.storage, f.composer, f.renderer)
	f.service.now = func() time.Time { return fixedNow }
	f.service.SetEventPublisher(f.publisher)
	return f
}

func keyWithin(prefix, suffix string) func(string) bool {
	return func(key string) bool {
		return strings.HasPrefix(key, prefix) && strings.HasSuffix(key, suffix)
	}
}

func validSubmitInput() SubmitInput {
	return SubmitInput{
		Registration: registration.Input{
			Name:                "Maria das Dores",
			CPF:                 "529.982.247-25",
			City:                "Picos",
			Locality:            "Povoado Canto",
			Phone:               "(89) 99912-3456",
			Email:               "maria@example.com",
			PropertyArea:        decimal.NewFromInt(100),
			PastureArea:         decimal.NewFromInt(60),
			TotalHerd:           30,
			ReproductionFemales: 12,
			ProgramAnimals:      5,
			SemenType:           "Convencional",
		},
		Attachment:  []byte("\x89PNG fake"),
		ContentType: "image/png",
	}
}

func composedDoc(t time.Time, withError bool) *receipt.ComposedDocument {
	var att receipt.DecodedAttachment = &receipt.ImageAttachment{Data: []byte("x"), Format: "PNG", Width: 10, Height: 10}
	if withError {
		att = &receipt.UndecodableAttachment{Cause: errors.New("bad")}
	}
	return receipt.Compose(receipt.Record{Name: "Maria das Dores"}, att, t, time.UTC)
}

// ============================================================================
// Submit
// ============================================================================

func TestService_Submit(t *testing.T) {
	t.Run("stores attachment, registration and receipt", func(t *testing.T) {
		f := newFixture()
		in := validSubmitInput()
		pdf := []byte("%PDF-1.3 receipt")

		f.storage.On("Upload", mock.Anything, mock.MatchedBy(keyWithin("comprovantes/1792411200000-", ".png")), in.Attachment, "image/png").Return(nil)
		f.storage.On("Upload", mock.Anything, mock.MatchedBy(keyWithin("inscricoes/1792411200000-", "-inscricao.pdf")), pdf, "application/pdf").Return(nil)
		f.repo.On("Save", mock.Anything, mock.AnythingOfType("*registration.Registration")).Return(nil).Twice()
		f.composer.On("ComposeAt", mock.Anything, mock.Anything, mock.MatchedBy(func(a receipt.Attachment) bool {
			return a.Kind == receipt.MediaKindImage && a.ContentType == "image/png"
		}), mock.Anything).Return(composedDoc(fixedNow, false), nil)
		f.renderer.On("Render", mock.Anything, mock.Anything).Return(pdf, nil)
		f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

		result, err := f.service.Submit(context.Background(), in)
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, result.ID)
		assert.Equal(t, receipt.NewProtocolID(fixedNow), result.ProtocolID)
		assert.Equal(t, "inscricoes/1792411200000-"+result.ID.String()+"-inscricao.pdf", result.ReceiptKey)
		assert.Equal(t, 3, result.PageCount)
		assert.Equal(t, registration.StatusReceiptReady, result.Status)
		assert.True(t, result.AttachmentIncluded)

		f.storage.AssertExpectations(t)
		f.repo.AssertExpectations(t)

		var types []string
		for _, call := range f.publisher.Calls {
			for _, ev := range call.Arguments.Get(1).([]shared.DomainEvent) {
				types = append(types, ev.EventType())
			}
		}
		assert.Equal(t, []string{registration.EventTypeRegistrationSubmitted, registration.EventTypeReceiptGenerated}, types)
	})

	t.Run("unreadable attachment still succeeds", func(t *testing.T) {
		f := newFixture()
		f.storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		f.repo.On("Save", mock.Anything, mock.Anything).Return(nil)
		f.composer.On("ComposeAt", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(composedDoc(fixedNow, true), nil)
		f.renderer.On("Render", mock.Anything, mock.Anything).Return([]byte("%PDF"), nil)
		f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

		result, err := f.service.Submit(context.Background(), validSubmitInput())
		require.NoError(t, err)
		assert.False(t, result.AttachmentIncluded)
	})

	t.Run("closed registration window", func(t *testing.T) {
		f := newFixture()
		cfg := DefaultServiceConfig()
		cfg.Open = false
		f.service.SetConfig(cfg)

		_, err := f.service.Submit(context.Background(), validSubmitInput())
		assert.ErrorIs(t, err, ErrRegistrationClosed)
		f.storage.AssertNotCalled(t, "Upload")
	})

	t.Run("registration and attachment errors are merged", func(t *testing.T) {
		f := newFixture()
		in := validSubmitInput()
		in.Registration.CPF = "000"
		in.ContentType = "text/html"

		_, err := f.service.Submit(context.Background(), in)
		var verr *shared.ValidationError
		require.ErrorAs(t, err, &verr)

		fields := map[string]bool{}
		for _, fe := range verr.Fields {
			fields[fe.Field] = true
		}
		assert.True(t, fields["cpf"])
		assert.True(t, fields["comprovante"])
		f.storage.AssertNotCalled(t, "Upload")
	})

	t.Run("attachment upload failure is wrapped", func(t *testing.T) {
		f := newFixture()
		storageErr := errors.New("s3 unavailable")
		f.storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(storageErr)

		_, err := f.service.Submit(context.Background(), validSubmitInput())
		assert.ErrorIs(t, err, storageErr)
		f.repo.AssertNotCalled(t, "Save")
	})

	t.Run("receipt upload failure marks registration failed", func(t *testing.T) {
		f := newFixture()
		storageErr := errors.New("s3 unavailable")
		f.storage.On("Upload", mock.Anything, mock.MatchedBy(func(k string) bool {
			return strings.HasPrefix(k, registration.AttachmentKeyPrefix)
		}), mock.Anything, mock.Anything).Return(nil)
		f.storage.On("Upload", mock.Anything, mock.MatchedBy(func(k string) bool {
			return strings.HasPrefix(k, registration.ReceiptKeyPrefix)
		}), mock.Anything, mock.Anything).Return(storageErr)
		f.composer.On("ComposeAt", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(composedDoc(fixedNow, false), nil)
		f.renderer.On("Render", mock.Anything, mock.Anything).Return([]byte("%PDF"), nil)
		f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

		var saved []registration.Status
		f.repo.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			saved = append(saved, args.Get(1).(*registration.Registration).Status)
		}).Return(nil)

		result, err := f.service.Submit(context.Background(), validSubmitInput())
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, result.ID)
		assert.Equal(t, registration.StatusReceiptFailed, result.Status)
		assert.Equal(t, receipt.NewProtocolID(fixedNow), result.ProtocolID)
		assert.Empty(t, result.ReceiptKey)
		assert.Equal(t, []registration.Status{registration.StatusPending, registration.StatusReceiptFailed}, saved)
	})

	t.Run("render failure keeps the stored registration reachable", func(t *testing.T) {
		f := newFixture()
		store := new(MockIdempotencyStore)
		f.service.SetIdempotencyStore(store)
		store.On("MarkProcessed", mock.Anything, "registration:submit:retry", mock.Anything).Return(true, nil)
		f.storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		f.repo.On("Save", mock.Anything, mock.Anything).Return(nil)
		f.composer.On("ComposeAt", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(composedDoc(fixedNow, false), nil)
		f.renderer.On("Render", mock.Anything, mock.Anything).Return(nil, errors.New("font table broken"))
		f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

		in := validSubmitInput()
		in.IdempotencyKey = "retry"
		result, err := f.service.Submit(context.Background(), in)

		require.NoError(t, err)
		assert.Equal(t, registration.StatusReceiptFailed, result.Status)
		assert.NotEqual(t, uuid.Nil, result.ID)
		store.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
	})
}

func TestService_Submit_WithPDFRenderer(t *testing.T) {
	f := newFixture()
	f.service = NewService(f.repo, f.storage, printing.NewComposer(), printing.NewPDFRenderer(nil))
	f.service.now = func() time.Time { return fixedNow }

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewNRGBA(image.Rect(0, 0, 120, 80))))
	in := validSubmitInput()
	in.Registration.Name = "Conceição Araújo"
	in.Registration.PropertyArea = decimal.RequireFromString("10.55")
	in.Attachment = img.Bytes()

	var receiptPDF []byte
	f.storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, "image/png").Return(nil)
	f.storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, "application/pdf").Run(func(args mock.Arguments) {
		receiptPDF = args.Get(2).([]byte)
	}).Return(nil)
	f.repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	result, err := f.service.Submit(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, registration.StatusReceiptReady, result.Status)
	assert.Equal(t, 3, result.PageCount)
	assert.True(t, result.AttachmentIncluded)
	assert.True(t, bytes.HasPrefix(receiptPDF, []byte("%PDF")))
}

func TestService_Submit_Idempotency(t *testing.T) {
	t.Run("duplicate key is rejected", func(t *testing.T) {
		f := newFixture()
		store := new(MockIdempotencyStore)
		f.service.SetIdempotencyStore(store)
		store.On("MarkProcessed", mock.Anything, "registration:submit:abc", 24*time.Hour).Return(false, nil)

		in := validSubmitInput()
		in.IdempotencyKey = "abc"
		_, err := f.service.Submit(context.Background(), in)

		assert.ErrorIs(t, err, shared.ErrDuplicateSubmission)
		store.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
	})

	t.Run("key is released when nothing was saved", func(t *testing.T) {
		f := newFixture()
		store := new(MockIdempotencyStore)
		f.service.SetIdempotencyStore(store)
		store.On("MarkProcessed", mock.Anything, "registration:submit:abc", mock.Anything).Return(true, nil)
		store.On("Release", mock.Anything, "registration:submit:abc").Return(nil)

		in := validSubmitInput()
		in.IdempotencyKey = "abc"
		in.Registration.Name = ""
		_, err := f.service.Submit(context.Background(), in)

		require.Error(t, err)
		store.AssertCalled(t, "Release", mock.Anything, "registration:submit:abc")
	})

	t.Run("key is kept once the registration is saved", func(t *testing.T) {
		f := newFixture()
		store := new(MockIdempotencyStore)
		f.service.SetIdempotencyStore(store)
		store.On("MarkProcessed", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
		f.storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		f.repo.On("Save", mock.Anything, mock.Anything).Return(nil)
		f.composer.On("ComposeAt", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(composedDoc(fixedNow, false), nil)
		f.renderer.On("Render", mock.Anything, mock.Anything).Return([]byte("%PDF"), nil)
		f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

		in := validSubmitInput()
		in.IdempotencyKey = "abc"
		_, err := f.service.Submit(context.Background(), in)

		require.NoError(t, err)
		store.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
	})
}

// ============================================================================
// Reads
// ============================================================================

func storedRegistration(t *testing.T) *registration.Registration {
	t.Helper()
	reg, err := registration.NewRegistration(validSubmitInput().Registration)
	require.NoError(t, err)
	require.NoError(t, reg.AttachFile("comprovantes/1.png", "image/png", 9))
	reg.ClearDomainEvents()
	return reg
}

func TestService_Get(t *testing.T) {
	f := newFixture()
	reg := storedRegistration(t)
	f.repo.On("FindByID", mock.Anything, reg.ID).Return(reg, nil)

	resp, err := f.service.Get(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, reg.Name, resp.Name)
	assert.Equal(t, ReceiptPath(reg.ID), resp.ReceiptURL)

	missing := uuid.New()
	f.repo.On("FindByID", mock.Anything, missing).Return(nil, shared.ErrNotFound)
	_, err = f.service.Get(context.Background(), missing)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestService_List(t *testing.T) {
	f := newFixture()
	reg := storedRegistration(t)
	f.repo.On("FindAll", mock.Anything, mock.MatchedBy(func(fl shared.Filter) bool {
		return fl.Filters["city"] == "Picos" && fl.Page == 2 && fl.PageSize == 1
	})).Return([]registration.Registration{*reg}, nil)
	f.repo.On("Count", mock.Anything, mock.Anything).Return(int64(3), nil)

	page, err := f.service.List(context.Background(), ListFilter{City: "Picos", Page: 2, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, reg.CPF, page.Items[0].CPF)
}

func TestService_AttachmentURL(t *testing.T) {
	f := newFixture()
	reg := storedRegistration(t)
	expires := fixedNow.Add(15 * time.Minute)
	f.repo.On("FindByID", mock.Anything, reg.ID).Return(reg, nil)
	f.storage.On("GenerateDownloadURL", mock.Anything, "comprovantes/1.png", 15*time.Minute).Return("https://s3/x", expires, nil)

	url, exp, err := f.service.AttachmentURL(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://s3/x", url)
	assert.Equal(t, expires, exp)
}

func TestService_DownloadReceipt(t *testing.T) {
	t.Run("returns stored receipt", func(t *testing.T) {
		f := newFixture()
		reg := storedRegistration(t)
		require.NoError(t, reg.MarkReceiptReady("inscricoes/1-inscricao.pdf", "P"))
		f.repo.On("FindByID", mock.Anything, reg.ID).Return(reg, nil)
		f.storage.On("Download", mock.Anything, "inscricoes/1-inscricao.pdf").Return([]byte("%PDF stored"), nil)

		dl, err := f.service.DownloadReceipt(context.Background(), reg.ID)
		require.NoError(t, err)
		assert.Equal(t, []byte("%PDF stored"), dl.Data)
		assert.Equal(t, "inscricao-maria-das-dores.pdf", dl.FileName)
		assert.Equal(t, "application/pdf", dl.ContentType)
		assert.False(t, dl.Regenerated)
		f.composer.AssertNotCalled(t, "ComposeAt")
	})

	t.Run("regenerates a failed receipt from the stored attachment", func(t *testing.T) {
		f := newFixture()
		reg := storedRegistration(t)
		require.NoError(t, reg.MarkReceiptFailed("storage down"))
		f.repo.On("FindByID", mock.Anything, reg.ID).Return(reg, nil)
		f.storage.On("Download", mock.Anything, "comprovantes/1.png").Return([]byte("png"), nil)
		f.storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, "application/pdf").Return(nil)
		f.composer.On("ComposeAt", mock.Anything, mock.Anything, receipt.Attachment{
			Data: []byte("png"), Kind: receipt.MediaKindImage, ContentType: "image/png",
		}, reg.SubmittedAt()).Return(composedDoc(reg.SubmittedAt(), false), nil)
		f.renderer.On("Render", mock.Anything, mock.Anything).Return([]byte("%PDF new"), nil)
		f.repo.On("Save", mock.Anything, reg).Return(nil)
		f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

		dl, err := f.service.DownloadReceipt(context.Background(), reg.ID)
		require.NoError(t, err)
		assert.True(t, dl.Regenerated)
		assert.Equal(t, []byte("%PDF new"), dl.Data)
		assert.Equal(t, registration.StatusReceiptReady, reg.Status)
		assert.Equal(t, receipt.NewProtocolID(reg.SubmittedAt()), reg.ProtocolID)
	})

	t.Run("replaces a lost receipt object", func(t *testing.T) {
		f := newFixture()
		reg := storedRegistration(t)
		require.NoError(t, reg.MarkReceiptReady("inscricoes/old-inscricao.pdf", "P"))
		reg.ClearDomainEvents()
		f.repo.On("FindByID", mock.Anything, reg.ID).Return(reg, nil)
		f.storage.On("Download", mock.Anything, "inscricoes/old-inscricao.pdf").Return(nil, ErrObjectNotFound)
		f.storage.On("Download", mock.Anything, "comprovantes/1.png").Return(nil, ErrObjectNotFound)
		f.storage.On("Upload", mock.Anything, registration.ReceiptObjectKey(reg.ID, fixedNow), mock.Anything, "application/pdf").Return(nil)
		f.composer.On("ComposeAt", mock.Anything, mock.Anything, mock.MatchedBy(func(a receipt.Attachment) bool {
			return len(a.Data) == 0
		}), mock.Anything).Return(composedDoc(fixedNow, true), nil)
		f.renderer.On("Render", mock.Anything, mock.Anything).Return([]byte("%PDF"), nil)
		f.repo.On("Save", mock.Anything, reg).Return(nil)

		dl, err := f.service.DownloadReceipt(context.Background(), reg.ID)
		require.NoError(t, err)
		assert.True(t, dl.Regenerated)
		assert.Equal(t, "inscricoes/1792411200000-"+reg.ID.String()+"-inscricao.pdf", reg.ReceiptKey)
		f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("storage errors are returned", func(t *testing.T) {
		f := newFixture()
		reg := storedRegistration(t)
		require.NoError(t, reg.MarkReceiptReady("k", "P"))
		storageErr := errors.New("timeout")
		f.repo.On("FindByID", mock.Anything, reg.ID).Return(reg, nil)
		f.storage.On("Download", mock.Anything, "k").Return(nil, storageErr)

		_, err := f.service.DownloadReceipt(context.Background(), reg.ID)
		assert.ErrorIs(t, err, storageErr)
	})
}
