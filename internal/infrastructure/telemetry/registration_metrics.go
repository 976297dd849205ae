package telemetry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/maisgenetica/backend/internal/domain/registration"
	"github.com/maisgenetica/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics set is built without a meter
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Receipt outcomes reported on maisgen_receipt_duration_seconds
const (
	OutcomeSuccess         = "success"
	OutcomeAttachmentError = "attachment_error"
	OutcomeFailed          = "failed"
)

// RegistrationMetrics counts registrations and receipts. It subscribes to
// registration events on the bus and observes receipt builds directly.
type RegistrationMetrics struct {
	submitted       *Counter
	receipts        *Counter
	receiptDuration *Histogram
	visitors        *Counter
}

// NewRegistrationMetrics creates the registration instruments on meter.
func NewRegistrationMetrics(meter metric.Meter) (*RegistrationMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	m := &RegistrationMetrics{}
	var err error
	if m.submitted, err = NewCounter(meter, "maisgen_registrations_submitted_total",
		"Registrations accepted, by city", "{registration}"); err != nil {
		return nil, err
	}
	if m.receipts, err = NewCounter(meter, "maisgen_receipts_generated_total",
		"Receipts stored, by city", "{receipt}"); err != nil {
		return nil, err
	}
	if m.receiptDuration, err = NewHistogram(meter, "maisgen_receipt_duration_seconds",
		"Time to compose, render and store a receipt", "s", ReceiptDurationBuckets); err != nil {
		return nil, err
	}
	if m.visitors, err = NewCounter(meter, "maisgen_visitors_total",
		"Landing page visits counted", "{visit}"); err != nil {
		return nil, err
	}
	return m, nil
}

// EventTypes implements shared.EventHandler.
func (m *RegistrationMetrics) EventTypes() []string {
	return []string{
		registration.EventTypeRegistrationSubmitted,
		registration.EventTypeReceiptGenerated,
	}
}

// Handle implements shared.EventHandler.
func (m *RegistrationMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch ev := event.(type) {
	case *registration.RegistrationSubmittedEvent:
		m.submitted.Inc(ctx, AttrCity.String(cityLabel(ev.City)))
	case *registration.ReceiptGeneratedEvent:
		m.receipts.Inc(ctx, AttrCity.String(cityLabel(ev.City)))
	}
	return nil
}

// ObserveReceipt records how long a receipt build took.
func (m *RegistrationMetrics) ObserveReceipt(ctx context.Context, elapsed time.Duration, attachmentError bool, err error) {
	outcome := OutcomeSuccess
	switch {
	case err != nil:
		outcome = OutcomeFailed
	case attachmentError:
		outcome = OutcomeAttachmentError
	}
	m.receiptDuration.RecordDuration(ctx, elapsed, AttrOutcome.String(outcome))
}

// VisitorCounted records one landing page visit.
func (m *RegistrationMetrics) VisitorCounted(ctx context.Context) {
	m.visitors.Inc(ctx)
}

// cityLabel keeps the attribute set bounded to normalised city names.
func cityLabel(city string) string {
	c := strings.ToLower(strings.TrimSpace(city))
	if c == "" {
		return "unknown"
	}
	return c
}

var _ shared.EventHandler = (*RegistrationMetrics)(nil)
