package registration

import (
	"context"
	"errors"
	"time"

	"github.com/maisgenetica/backend/internal/domain/receipt"
)

// ErrObjectNotFound is returned by ObjectStorage when a key has no object
var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage stores uploaded attachments and generated receipts.
// Implemented by the infrastructure layer (S3, local disk, memory).
type ObjectStorage interface {
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
	// Download returns ErrObjectNotFound when the key does not exist
	Download(ctx context.Context, storageKey string) ([]byte, error)
	// GenerateDownloadURL returns a time-limited URL for the object
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
}

// ReceiptComposer builds the page model of a receipt submitted at submittedAt
type ReceiptComposer interface {
	ComposeAt(ctx context.Context, record receipt.Record, att receipt.Attachment, submittedAt time.Time) (*receipt.ComposedDocument, error)
}

// Notifier tells the program administrators about a new registration
type Notifier interface {
	NotifyRegistration(ctx context.Context, notice Notice) error
}

// Notice is the content of an administrator notification
type Notice struct {
	RegistrationID string
	ProtocolID     string
	Name           string
	Email          string
	Phone          string
	City           string
	Locality       string
	TotalHerd      int
	ProgramAnimals int
	ReceiptURL     string
	SubmittedAt    time.Time
}

// ReceiptObserver is told how long each receipt took to build and whether
// it succeeded. Implemented by the metrics layer.
type ReceiptObserver interface {
	ObserveReceipt(ctx context.Context, elapsed time.Duration, attachmentError bool, err error)
}
