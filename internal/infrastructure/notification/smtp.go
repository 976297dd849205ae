// Package notification delivers administrator notices about new registrations.
package notification

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	registrationapp "github.com/maisgenetica/backend/internal/application/registration"
	"github.com/maisgenetica/backend/internal/domain/receipt"
	"github.com/maisgenetica/backend/internal/infrastructure/config"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

var noticeTemplate = template.Must(template.New("notice").Parse(`Nova inscrição no programa Piauí + Genética

Protocolo: {{.Notice.ProtocolID}}
Data: {{.Date}}

Nome: {{.Notice.Name}}
Email: {{.Notice.Email}}
Telefone: {{.Notice.Phone}}
Cidade: {{.Notice.City}}
Localidade: {{.Notice.Locality}}
Rebanho Total: {{.Notice.TotalHerd}}
Animais para +Genética: {{.Notice.ProgramAnimals}}

Comprovante: {{.Notice.ReceiptURL}}
`))

type noticeView struct {
	Notice registrationapp.Notice
	Date   string
}

// sender is the part of *mail.Client the notifier uses
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPNotifier emails each notice to the administrator address
type SMTPNotifier struct {
	client   sender
	from     string
	to       string
	location *time.Location
	logger   *zap.Logger
}

// NewSMTPNotifier builds a go-mail client from cfg
func NewSMTPNotifier(cfg config.NotificationConfig, location *time.Location, logger *zap.Logger) (*SMTPNotifier, error) {
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("notification: smtp host is required")
	}
	if cfg.AdminEmail == "" || cfg.From == "" {
		return nil, fmt.Errorf("notification: from and admin addresses are required")
	}

	opts := []mail.Option{mail.WithTLSPolicy(tlsPolicy(cfg.TLSPolicy))}
	if cfg.SMTPPort > 0 {
		opts = append(opts, mail.WithPort(cfg.SMTPPort))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("notification: failed to create smtp client: %w", err)
	}
	return newSMTPNotifier(client, cfg.From, cfg.AdminEmail, location, logger), nil
}

func newSMTPNotifier(client sender, from, to string, location *time.Location, logger *zap.Logger) *SMTPNotifier {
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPNotifier{client: client, from: from, to: to, location: location, logger: logger}
}

// NotifyRegistration sends one email per notice
func (n *SMTPNotifier) NotifyRegistration(ctx context.Context, notice registrationapp.Notice) error {
	msg, err := n.buildMessage(notice)
	if err != nil {
		return err
	}
	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("notification: send failed: %w", err)
	}
	n.logger.Info("registration notice sent",
		zap.String("registration_id", notice.RegistrationID),
		zap.String("protocol", notice.ProtocolID))
	return nil
}

func (n *SMTPNotifier) buildMessage(notice registrationapp.Notice) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return nil, fmt.Errorf("notification: invalid from address: %w", err)
	}
	if err := msg.To(n.to); err != nil {
		return nil, fmt.Errorf("notification: invalid admin address: %w", err)
	}
	// Replies go straight to the producer when their address parses
	if strings.TrimSpace(notice.Email) != "" {
		_ = msg.ReplyTo(notice.Email)
	}
	msg.Subject(fmt.Sprintf("Nova inscrição %s - %s (%s)", notice.ProtocolID, notice.Name, notice.City))
	msg.SetDate()
	msg.SetMessageID()

	view := noticeView{Notice: notice, Date: receipt.FormatDate(notice.SubmittedAt, n.location)}
	if err := msg.SetBodyTextTemplate(noticeTemplate, view); err != nil {
		return nil, fmt.Errorf("notification: failed to render body: %w", err)
	}
	return msg, nil
}

func tlsPolicy(name string) mail.TLSPolicy {
	switch strings.ToLower(name) {
	case "none":
		return mail.NoTLS
	case "opportunistic":
		return mail.TLSOpportunistic
	default:
		return mail.TLSMandatory
	}
}

var _ registrationapp.Notifier = (*SMTPNotifier)(nil)
