package identity

import "github.com/google/uuid"

// Principal is the authenticated caller resolved by the identity gate.
// A zero UserID means no principal could be resolved.
type Principal struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	Role           UserRole
}

// IsResolved reports whether an authenticated principal is present
func (p Principal) IsResolved() bool {
	return p.UserID != uuid.Nil
}

// IsAdmin reports whether the principal administers their organization
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanEditResource reports whether the principal may modify a resource owned
// by createdBy: administrators always may, others only their own resources
func (p Principal) CanEditResource(createdBy *uuid.UUID) bool {
	if p.IsAdmin() {
		return true
	}
	return createdBy != nil && *createdBy == p.UserID
}
