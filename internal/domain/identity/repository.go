package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// FindByID finds a user by ID. Returns (nil, nil) when absent.
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindByUsername finds a user by username. Usernames are unique across
	// the system. Returns (nil, nil) when absent.
	FindByUsername(ctx context.Context, username string) (*User, error)

	// FindAdminByOrganization returns an administrator of the organization.
	// Returns (nil, nil) when the organization has none.
	FindAdminByOrganization(ctx context.Context, organizationID uuid.UUID) (*User, error)

	// Save persists a user (insert or update)
	Save(ctx context.Context, user *User) error
}

// OrganizationRepository defines the interface for organization persistence
type OrganizationRepository interface {
	// FindByID finds an organization by ID. Returns (nil, nil) when absent.
	FindByID(ctx context.Context, id uuid.UUID) (*Organization, error)

	// Save persists an organization (insert or update)
	Save(ctx context.Context, organization *Organization) error
}
