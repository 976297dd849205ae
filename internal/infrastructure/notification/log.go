package notification

import (
	"context"
	"time"

	registrationapp "github.com/maisgenetica/backend/internal/application/registration"
	"github.com/maisgenetica/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// LogNotifier writes notices to the log; used when email is disabled
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// NotifyRegistration logs the notice
func (n *LogNotifier) NotifyRegistration(_ context.Context, notice registrationapp.Notice) error {
	n.logger.Info("new registration",
		zap.String("registration_id", notice.RegistrationID),
		zap.String("protocol", notice.ProtocolID),
		zap.String("city", notice.City),
		zap.String("receipt_url", notice.ReceiptURL))
	return nil
}

// New returns the SMTP notifier when email is enabled, otherwise a LogNotifier
func New(cfg config.NotificationConfig, location *time.Location, logger *zap.Logger) (registrationapp.Notifier, error) {
	if !cfg.Enabled {
		return NewLogNotifier(logger), nil
	}
	return NewSMTPNotifier(cfg, location, logger)
}

var _ registrationapp.Notifier = (*LogNotifier)(nil)
