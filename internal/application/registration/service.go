// Package registration orchestrates producer registrations: storing the
// submission and its proof document, and producing the receipt PDF.
package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/maisgenetica/backend/internal/domain/receipt"
	"github.com/maisgenetica/backend/internal/domain/registration"
	"github.com/maisgenetica/backend/internal/domain/shared"
	"github.com/maisgenetica/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ErrRegistrationClosed is returned when submissions are not being accepted
var ErrRegistrationClosed = shared.NewDomainError("REGISTRATION_CLOSED", "As inscrições estão encerradas")

// ErrAttachmentNotFound is returned when a registration has no stored attachment
var ErrAttachmentNotFound = shared.NewDomainError("ATTACHMENT_NOT_FOUND", "Attachment not found")

const idempotencyKeyPrefix = "registration:submit:"

// ServiceConfig holds configuration for the registration service
type ServiceConfig struct {
	// Open controls whether new submissions are accepted
	Open bool
	// IdempotencyTTL is how long an Idempotency-Key is remembered
	IdempotencyTTL time.Duration
	// Render is passed to the receipt renderer
	Render receipt.RenderOptions
	// DownloadURLExpiry is the lifetime of attachment links given to admins
	DownloadURLExpiry time.Duration
}

// DefaultServiceConfig returns the default configuration
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Open:              true,
		IdempotencyTTL:    24 * time.Hour,
		Render:            receipt.RenderOptions{Compress: true},
		DownloadURLExpiry: 15 * time.Minute,
	}
}

// Service handles registration submissions and receipt retrieval
type Service struct {
	repo           registration.RegistrationRepository
	storage        ObjectStorage
	composer       ReceiptComposer
	renderer       receipt.Renderer
	idempotency    shared.IdempotencyStore
	eventPublisher shared.EventPublisher
	observer       ReceiptObserver
	config         ServiceConfig
	logger         *zap.Logger
	now            func() time.Time
}

// NewService creates a new Service
func NewService(
	repo registration.RegistrationRepository,
	storage ObjectStorage,
	composer ReceiptComposer,
	renderer receipt.Renderer,
) *Service {
	return &Service{
		repo:     repo,
		storage:  storage,
		composer: composer,
		renderer: renderer,
		config:   DefaultServiceConfig(),
		logger:   zap.NewNop(),
		now:      time.Now,
	}
}

// SetConfig sets the service configuration
func (s *Service) SetConfig(config ServiceConfig) {
	s.config = config
}

// SetLogger sets the logger
func (s *Service) SetLogger(logger *zap.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetIdempotencyStore enables Idempotency-Key handling on Submit
func (s *Service) SetIdempotencyStore(store shared.IdempotencyStore) {
	s.idempotency = store
}

// SetEventPublisher sets the publisher for registration events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetReceiptObserver sets the observer told about every receipt build
func (s *Service) SetReceiptObserver(observer ReceiptObserver) {
	s.observer = observer
}

// IsOpen reports whether submissions are currently accepted
func (s *Service) IsOpen() bool {
	return s.config.Open
}

// Submit stores a registration and its proof document, then composes,
// renders and stores the receipt.
//
// An unreadable attachment never fails the submission; the receipt gets an
// error page instead. Failures before the registration is saved are returned
// wrapped. Once it is saved, a receipt failure only sets the result status to
// receipt_failed, since the receipt can be rebuilt on download.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (result *SubmitResult, err error) {
	if !s.config.Open {
		return nil, ErrRegistrationClosed
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "registration", "submit",
		telemetry.WithAttribute(telemetry.SpanAttrCity, in.Registration.City))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	idemKey, err := s.claimIdempotencyKey(ctx, in.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	saved := false
	defer func() {
		if idemKey != "" && !saved {
			if err := s.idempotency.Release(context.WithoutCancel(ctx), idemKey); err != nil {
				s.logger.Warn("failed to release idempotency key", zap.String("key", idemKey), zap.Error(err))
			}
		}
	}()

	reg, regErr := registration.NewRegistration(in.Registration)
	accepted, attErr := registration.ValidateAttachment(in.ContentType, int64(len(in.Attachment)))
	if err := mergeValidationErrors(regErr, attErr); err != nil {
		return nil, err
	}

	attKey := registration.AttachmentObjectKey(reg.ID, s.now(), accepted.Extension)
	if err := s.storage.Upload(ctx, attKey, in.Attachment, accepted.ContentType); err != nil {
		return nil, fmt.Errorf("upload attachment: %w", err)
	}
	if err := reg.AttachFile(attKey, accepted.ContentType, int64(len(in.Attachment))); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, reg); err != nil {
		return nil, fmt.Errorf("save registration: %w", err)
	}
	saved = true
	s.publishEvents(ctx, reg)

	att := receipt.Attachment{Data: in.Attachment, Kind: accepted.Kind, ContentType: accepted.ContentType}
	doc, _, genErr := s.generateReceipt(ctx, reg, att)
	if genErr != nil {
		// The data is stored; DownloadReceipt rebuilds the receipt later.
		s.recordReceiptFailure(ctx, reg, genErr)
		return &SubmitResult{
			ID:         reg.ID,
			ProtocolID: receipt.NewProtocolID(reg.SubmittedAt()),
			Status:     registration.StatusReceiptFailed,
			CreatedAt:  reg.CreatedAt,
		}, nil
	}

	s.logger.Info("registration submitted",
		zap.String("registration_id", reg.ID.String()),
		zap.String("protocol", doc.ProtocolID),
		zap.Int("pages", doc.PageCount()),
		zap.Bool("attachment_error", doc.HasAttachmentError()))

	return &SubmitResult{
		ID:                 reg.ID,
		ProtocolID:         doc.ProtocolID,
		ReceiptKey:         reg.ReceiptKey,
		Status:             reg.Status,
		PageCount:          doc.PageCount(),
		AttachmentIncluded: !doc.HasAttachmentError(),
		CreatedAt:          reg.CreatedAt,
	}, nil
}

// Get returns the public view of a registration
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*PublicResponse, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToPublicResponse(reg)
	return &resp, nil
}

// GetForAdmin returns the full view of a registration
func (s *Service) GetForAdmin(ctx context.Context, id uuid.UUID) (*AdminResponse, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToAdminResponse(reg)
	return &resp, nil
}

// List returns a page of registrations for administrators
func (s *Service) List(ctx context.Context, filter ListFilter) (*shared.Paginated[AdminResponse], error) {
	f := filter.ToFilter()

	regs, err := s.repo.FindAll(ctx, f)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return nil, err
	}

	page := shared.NewPaginated(ToAdminResponses(regs), total, f.Page, f.PageSize)
	return &page, nil
}

// AttachmentURL returns a time-limited link to the uploaded proof document
func (s *Service) AttachmentURL(ctx context.Context, id uuid.UUID) (string, time.Time, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return "", time.Time{}, err
	}
	if reg.AttachmentKey == "" {
		return "", time.Time{}, ErrAttachmentNotFound
	}
	return s.storage.GenerateDownloadURL(ctx, reg.AttachmentKey, s.config.DownloadURLExpiry)
}

// DownloadReceipt returns the stored receipt. When the receipt was never
// stored, or its object is gone, it is rebuilt from the stored attachment
// and saved again.
func (s *Service) DownloadReceipt(ctx context.Context, id uuid.UUID) (*ReceiptDownload, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	download := &ReceiptDownload{
		FileName:    registration.DownloadFileName(reg.Name),
		ContentType: "application/pdf",
	}

	if reg.HasReceipt() {
		data, err := s.storage.Download(ctx, reg.ReceiptKey)
		if err == nil {
			download.Data = data
			return download, nil
		}
		if !errors.Is(err, ErrObjectNotFound) {
			return nil, fmt.Errorf("download receipt: %w", err)
		}
		s.logger.Warn("receipt object missing, regenerating",
			zap.String("registration_id", reg.ID.String()),
			zap.String("key", reg.ReceiptKey))
	}

	att, err := s.loadAttachment(ctx, reg)
	if err != nil {
		return nil, err
	}
	_, data, err := s.generateReceipt(ctx, reg, att)
	if err != nil {
		return nil, err
	}

	download.Data = data
	download.Regenerated = true
	return download, nil
}

// generateReceipt composes, renders and stores the receipt, then records
// it on the registration.
func (s *Service) generateReceipt(ctx context.Context, reg *registration.Registration, att receipt.Attachment) (doc *receipt.ComposedDocument, data []byte, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "registration", "generate_receipt",
		telemetry.WithAttribute(telemetry.SpanAttrRegistrationID, reg.ID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrAttachmentType, reg.AttachmentContentType),
	)
	start := s.now()
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		} else {
			telemetry.SetAttributes(span,
				telemetry.SpanAttrProtocolID, doc.ProtocolID,
				telemetry.SpanAttrPageCount, doc.PageCount(),
			)
		}
		span.End()
		if s.observer != nil {
			s.observer.ObserveReceipt(ctx, s.now().Sub(start), doc != nil && doc.HasAttachmentError(), err)
		}
	}()

	doc, err = s.composer.ComposeAt(ctx, reg.Record(), att, reg.SubmittedAt())
	if err != nil {
		return nil, nil, fmt.Errorf("compose receipt: %w", err)
	}

	data, err = doc.RenderToBytes(s.renderer, s.config.Render)
	if err != nil {
		return nil, nil, fmt.Errorf("render receipt: %w", err)
	}

	key := registration.ReceiptObjectKey(reg.ID, s.now())
	if err := s.storage.Upload(ctx, key, data, "application/pdf"); err != nil {
		return nil, nil, fmt.Errorf("upload receipt: %w", err)
	}

	if reg.Status == registration.StatusReceiptReady {
		err = reg.ReplaceReceiptKey(key)
	} else {
		err = reg.MarkReceiptReady(key, doc.ProtocolID)
	}
	if err != nil {
		return nil, nil, err
	}
	if err := s.repo.Save(ctx, reg); err != nil {
		return nil, nil, fmt.Errorf("save registration: %w", err)
	}
	s.publishEvents(ctx, reg)

	return doc, data, nil
}

// loadAttachment fetches the stored proof document. A missing object gives
// an empty attachment, which the composer turns into an error page.
func (s *Service) loadAttachment(ctx context.Context, reg *registration.Registration) (receipt.Attachment, error) {
	att := receipt.Attachment{
		Kind:        mediaKindFor(reg.AttachmentContentType),
		ContentType: reg.AttachmentContentType,
	}
	if reg.AttachmentKey == "" {
		return att, nil
	}

	data, err := s.storage.Download(ctx, reg.AttachmentKey)
	switch {
	case err == nil:
		att.Data = data
	case errors.Is(err, ErrObjectNotFound):
		s.logger.Warn("attachment object missing",
			zap.String("registration_id", reg.ID.String()),
			zap.String("key", reg.AttachmentKey))
	default:
		return att, fmt.Errorf("download attachment: %w", err)
	}
	return att, nil
}

func (s *Service) recordReceiptFailure(ctx context.Context, reg *registration.Registration, cause error) {
	s.logger.Error("receipt generation failed",
		zap.String("registration_id", reg.ID.String()),
		zap.Error(cause))

	if err := reg.MarkReceiptFailed(cause.Error()); err != nil {
		return
	}
	if err := s.repo.Save(context.WithoutCancel(ctx), reg); err != nil {
		s.logger.Error("failed to record receipt failure",
			zap.String("registration_id", reg.ID.String()),
			zap.Error(err))
	}
}

// claimIdempotencyKey records the client key and returns the stored form,
// or "" when no key applies.
func (s *Service) claimIdempotencyKey(ctx context.Context, clientKey string) (string, error) {
	if clientKey == "" || s.idempotency == nil {
		return "", nil
	}
	key := idempotencyKeyPrefix + clientKey
	fresh, err := s.idempotency.MarkProcessed(ctx, key, s.config.IdempotencyTTL)
	if err != nil {
		return "", fmt.Errorf("check idempotency key: %w", err)
	}
	if !fresh {
		return "", shared.ErrDuplicateSubmission
	}
	return key, nil
}

func (s *Service) publishEvents(ctx context.Context, reg *registration.Registration) {
	events := reg.GetDomainEvents()
	reg.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish registration events",
			zap.String("registration_id", reg.ID.String()),
			zap.Error(err))
	}
}

// mergeValidationErrors combines field failures from both checks so the
// client sees them all at once.
func mergeValidationErrors(errs ...error) error {
	merged := &shared.ValidationError{}
	for _, err := range errs {
		if err == nil {
			continue
		}
		var verr *shared.ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		merged.Fields = append(merged.Fields, verr.Fields...)
	}
	return merged.OrNil()
}

func mediaKindFor(contentType string) receipt.MediaKind {
	if accepted, err := registration.ValidateAttachment(contentType, 1); err == nil {
		return accepted.Kind
	}
	return receipt.MediaKindImage
}
