package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Storage-level uniqueness violations surfaced by repositories. The unique
// constraints in the database are the authoritative guard against the
// check-then-insert races on receipt creation; repositories translate
// driver-specific duplicate-key failures into these errors.
var (
	// ErrDuplicateReceiptNumber indicates the receipt_number unique index rejected an insert
	ErrDuplicateReceiptNumber = errors.New("receipt number already exists")
	// ErrDuplicateInvoiceReceipt indicates the invoice_id unique index rejected an insert
	ErrDuplicateInvoiceReceipt = errors.New("invoice already has a receipt")
)

// ReceiptRepository defines the interface for receipt persistence
type ReceiptRepository interface {
	// FindByID finds a receipt by ID. Returns (nil, nil) when absent.
	FindByID(ctx context.Context, id uuid.UUID) (*Receipt, error)

	// FindByInvoiceID finds the receipt spawned by an invoice, if any.
	// Returns (nil, nil) when absent.
	FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) (*Receipt, error)

	// ExistsByNumber checks whether any receipt carries the given number
	ExistsByNumber(ctx context.Context, number int) (bool, error)

	// Insert persists a new receipt. A unique-index violation is reported
	// as ErrDuplicateInvoiceReceipt or ErrDuplicateReceiptNumber.
	Insert(ctx context.Context, receipt *Receipt) error

	// Update persists changes to an existing receipt
	Update(ctx context.Context, receipt *Receipt) error

	// CountByOrganization returns the number of receipts for an organization
	CountByOrganization(ctx context.Context, organizationID uuid.UUID) (int64, error)
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByID finds an invoice by ID. Returns (nil, nil) when absent.
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// Save persists an invoice (insert or update)
	Save(ctx context.Context, invoice *Invoice) error
}
