package partner

import (
	"context"

	"github.com/google/uuid"
)

// CustomerRepository defines persistence operations for customers.
// Finder methods return (nil, nil) when no row matches.
type CustomerRepository interface {
	FindByID(ctx context.Context, organizationID, id uuid.UUID) (*Customer, error)
	Save(ctx context.Context, customer *Customer) error
}
