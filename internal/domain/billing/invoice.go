package billing

import (
	"time"

	"github.com/fiscaldesk/backend/internal/domain/shared"
	"github.com/fiscaldesk/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING" // Awaiting payment
	InvoiceStatusPaid    InvoiceStatus = "PAID"    // Payment received, eligible for a receipt
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPaid:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// Invoice represents a billable obligation to a customer.
// Invoices are created and paid outside the receipt workflow; once paid,
// an invoice becomes eligible to spawn exactly one receipt.
type Invoice struct {
	shared.OrgAggregateRoot
	InvoiceNumber string        `json:"invoice_number"`
	CustomerID    uuid.UUID     `json:"customer_id"`
	Status        InvoiceStatus `json:"status"`
	Amount        int64         `json:"amount"` // integer minor units
	ActivityCode  *string       `json:"activity_code"`
	PaymentDate   *time.Time    `json:"payment_date"`
	IssueDate     time.Time     `json:"issue_date"`
}

// NewInvoice creates a new pending invoice
func NewInvoice(
	organizationID uuid.UUID,
	invoiceNumber string,
	customerID uuid.UUID,
	amount valueobject.Money,
	issueDate time.Time,
) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewValidationError("Invoice number cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewValidationError("Customer ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("Invoice amount must be positive")
	}
	if issueDate.IsZero() {
		issueDate = time.Now()
	}

	return &Invoice{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(organizationID),
		InvoiceNumber:    invoiceNumber,
		CustomerID:       customerID,
		Status:           InvoiceStatusPending,
		Amount:           amount.MinorUnits(),
		IssueDate:        issueDate,
	}, nil
}

// MarkPaid records the payment of the invoice
func (i *Invoice) MarkPaid(paymentDate time.Time) error {
	if i.Status == InvoiceStatusPaid {
		return shared.NewConflictError("Invoice is already paid")
	}
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}
	i.Status = InvoiceStatusPaid
	i.PaymentDate = &paymentDate
	i.UpdatedAt = time.Now()
	return nil
}

// IsPaid reports whether the invoice has been paid
func (i *Invoice) IsPaid() bool {
	return i.Status == InvoiceStatusPaid
}

// AmountMoney returns the invoice amount as a Money value object
func (i *Invoice) AmountMoney() valueobject.Money {
	return valueobject.NewMoneyEUR(i.Amount)
}

// SetActivityCode sets the professional activity classification
func (i *Invoice) SetActivityCode(code string) {
	i.ActivityCode = &code
	i.UpdatedAt = time.Now()
}
