package registration

import (
	"context"

	"github.com/google/uuid"
	"github.com/maisgenetica/backend/internal/domain/shared"
)

// RegistrationReader loads a single registration
type RegistrationReader interface {
	// FindByID returns shared.ErrNotFound when no row matches
	FindByID(ctx context.Context, id uuid.UUID) (*Registration, error)
}

// RegistrationFinder lists registrations for administrators.
// Supported filter keys: "city" (exact, case-insensitive) and "status".
type RegistrationFinder interface {
	FindAll(ctx context.Context, filter shared.Filter) ([]Registration, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

// RegistrationWriter persists registrations
type RegistrationWriter interface {
	// Save inserts or updates; an update whose version no longer matches
	// returns shared.ErrConcurrencyConflict.
	Save(ctx context.Context, r *Registration) error
}

// RegistrationRepository combines all registration persistence operations
type RegistrationRepository interface {
	RegistrationReader
	RegistrationFinder
	RegistrationWriter
}
