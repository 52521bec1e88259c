package partner

import (
	"strings"

	"github.com/fiscaldesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Customer is the aggregate root for the billing counterparty. Receipts
// snapshot its identification fields into the rendered document, so the
// fields kept here are exactly the ones a fiscal receipt must show.
type Customer struct {
	shared.OrgAggregateRoot
	Name          string
	TaxID         string
	FiscalAddress string
	Email         string
	Phone         string
}

// NewCustomer creates a customer with the fields required on fiscal documents.
func NewCustomer(organizationID uuid.UUID, name, taxID, fiscalAddress string) (*Customer, error) {
	if err := validateCustomerName(name); err != nil {
		return nil, err
	}
	if err := validateTaxID(taxID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(fiscalAddress) == "" {
		return nil, shared.NewValidationError("customer fiscal address is required")
	}

	return &Customer{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(organizationID),
		Name:             strings.TrimSpace(name),
		TaxID:            strings.TrimSpace(taxID),
		FiscalAddress:    strings.TrimSpace(fiscalAddress),
	}, nil
}

// Update replaces the customer's identification fields.
func (c *Customer) Update(name, taxID, fiscalAddress string) error {
	if err := validateCustomerName(name); err != nil {
		return err
	}
	if err := validateTaxID(taxID); err != nil {
		return err
	}
	if strings.TrimSpace(fiscalAddress) == "" {
		return shared.NewValidationError("customer fiscal address is required")
	}

	c.Name = strings.TrimSpace(name)
	c.TaxID = strings.TrimSpace(taxID)
	c.FiscalAddress = strings.TrimSpace(fiscalAddress)
	return nil
}

// SetContact sets the optional contact channels.
func (c *Customer) SetContact(email, phone string) {
	c.Email = strings.TrimSpace(email)
	c.Phone = strings.TrimSpace(phone)
}

func validateCustomerName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewValidationError("customer name is required")
	}
	if len(name) > 200 {
		return shared.NewValidationError("customer name cannot exceed 200 characters")
	}
	return nil
}

func validateTaxID(taxID string) error {
	taxID = strings.TrimSpace(taxID)
	if taxID == "" {
		return shared.NewValidationError("customer tax id is required")
	}
	if len(taxID) > 50 {
		return shared.NewValidationError("customer tax id cannot exceed 50 characters")
	}
	return nil
}
