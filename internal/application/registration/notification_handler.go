package registration

import (
	"context"
	"strings"

	"github.com/maisgenetica/backend/internal/domain/registration"
	"github.com/maisgenetica/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// NotificationHandler forwards ReceiptGenerated events to a Notifier
type NotificationHandler struct {
	notifier  Notifier
	publicURL string
	logger    *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler. publicURL is the
// externally visible base URL used for the receipt link.
func NewNotificationHandler(notifier Notifier, publicURL string, logger *zap.Logger) *NotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationHandler{
		notifier:  notifier,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
	}
}

// EventTypes returns the event types this handler processes
func (h *NotificationHandler) EventTypes() []string {
	return []string{registration.EventTypeReceiptGenerated}
}

// Handle sends the administrator notification
func (h *NotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	ev, ok := event.(*registration.ReceiptGeneratedEvent)
	if !ok {
		return nil
	}

	notice := Notice{
		RegistrationID: ev.RegistrationID.String(),
		ProtocolID:     ev.ProtocolID,
		Name:           ev.Name,
		Email:          ev.Email,
		Phone:          ev.Phone,
		City:           ev.City,
		Locality:       ev.Locality,
		TotalHerd:      ev.TotalHerd,
		ProgramAnimals: ev.ProgramAnimals,
		ReceiptURL:     h.publicURL + ReceiptPath(ev.RegistrationID),
		SubmittedAt:    ev.OccurredAt(),
	}
	if err := h.notifier.NotifyRegistration(ctx, notice); err != nil {
		h.logger.Warn("registration notification failed",
			zap.String("registration_id", notice.RegistrationID),
			zap.Error(err))
		return err
	}
	return nil
}

var _ shared.EventHandler = (*NotificationHandler)(nil)
