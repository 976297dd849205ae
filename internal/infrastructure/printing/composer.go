package printing

import (
	"context"
	"time"

	"github.com/maisgenetica/backend/internal/domain/receipt"
	"go.uber.org/zap"
)

// Composer builds receipts. It holds no per-call state and is safe for
// concurrent use.
type Composer struct {
	decoder  *Decoder
	location *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// ComposerOption is a functional option for configuring the Composer
type ComposerOption func(*Composer)

// WithComposerLogger sets the logger
func WithComposerLogger(logger *zap.Logger) ComposerOption {
	return func(c *Composer) {
		c.logger = logger
	}
}

// WithLocation sets the zone used for the printed submission date
func WithLocation(loc *time.Location) ComposerOption {
	return func(c *Composer) {
		c.location = loc
	}
}

// WithClock overrides the submission clock
func WithClock(now func() time.Time) ComposerOption {
	return func(c *Composer) {
		c.now = now
	}
}

// NewComposer creates a new Composer
func NewComposer(opts ...ComposerOption) *Composer {
	c := &Composer{
		location: receipt.LoadLocation(receipt.DefaultTimezone),
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.decoder = NewDecoder(c.logger)
	return c
}

// Compose decodes the attachment once and returns the finalised receipt.
// An unreadable attachment yields an error page, never an error; the only
// error returned is a cancelled context.
func (c *Composer) Compose(ctx context.Context, record receipt.Record, att receipt.Attachment) (*receipt.ComposedDocument, error) {
	return c.ComposeAt(ctx, record, att, c.now())
}

// ComposeAt is Compose with an explicit submission instant, used when a
// stored registration's receipt is rebuilt.
func (c *Composer) ComposeAt(ctx context.Context, record receipt.Record, att receipt.Attachment, submittedAt time.Time) (*receipt.ComposedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	decoded := c.decoder.Decode(att)
	doc := receipt.Compose(record, decoded, submittedAt, c.location)

	c.logger.Debug("receipt composed",
		zap.String("protocol", doc.ProtocolID),
		zap.Int("pages", doc.PageCount()),
		zap.Bool("attachment_error", doc.HasAttachmentError()))
	return doc, nil
}
