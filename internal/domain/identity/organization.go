package identity

import (
	"strings"
	"time"

	"github.com/fiscaldesk/backend/internal/domain/shared"
)

// Organization is the owning scope of users, invoices and receipts.
// Provisioning flows live outside this service; the aggregate exists so the
// receipt workflow can resolve the legal entity named on documents.
type Organization struct {
	shared.BaseAggregateRoot
	Name      string
	LegalName string
	TaxID     string
	Address   string
}

// NewOrganization creates a new organization
func NewOrganization(name string) (*Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("Organization name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewValidationError("Organization name cannot exceed 200 characters")
	}
	return &Organization{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
	}, nil
}

// SetLegalName sets the registered legal name used on documents
func (o *Organization) SetLegalName(legalName string) {
	o.LegalName = strings.TrimSpace(legalName)
	o.UpdatedAt = time.Now()
}

// GetLegalNameOrName returns the legal name, falling back to the display name
func (o *Organization) GetLegalNameOrName() string {
	if o.LegalName != "" {
		return o.LegalName
	}
	return o.Name
}
