package billing

import (
	"time"

	"github.com/fiscaldesk/backend/internal/domain/shared"
	"github.com/fiscaldesk/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// ReceiptStatus represents the lifecycle state of a fiscal receipt
type ReceiptStatus string

const (
	ReceiptStatusPendingSend    ReceiptStatus = "PENDING_SEND"     // Created, editable, not yet finalized
	ReceiptStatusSentToCustomer ReceiptStatus = "SENT_TO_CUSTOMER" // Finalized, immutable, document archived
)

// IsValid checks if the status is a valid ReceiptStatus
func (s ReceiptStatus) IsValid() bool {
	switch s {
	case ReceiptStatusPendingSend, ReceiptStatusSentToCustomer:
		return true
	}
	return false
}

// String returns the string representation of ReceiptStatus
func (s ReceiptStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the receipt is in a terminal state
func (s ReceiptStatus) IsTerminal() bool {
	return s == ReceiptStatusSentToCustomer
}

// Fixed fiscal fields recorded on every receipt at issuance time
const (
	// PaymentMethodBankTransfer is the payment method recorded on all receipts
	PaymentMethodBankTransfer = "BANK_TRANSFER"
	// TaxRegimeSimplified is the issuer tax regime recorded on all receipts
	TaxRegimeSimplified = "SIMPLIFIED_REGIME"
	// WithholdingExempt is the IRS withholding status recorded on all receipts
	WithholdingExempt = "WITHHOLDING_EXEMPT_ART_101"
)

// Receipt number bounds; receipt numbers are 6-digit integers
const (
	MinReceiptNumber = 100000
	MaxReceiptNumber = 999999
)

// IsValidReceiptNumber reports whether n is a well-formed 6-digit receipt number
func IsValidReceiptNumber(n int) bool {
	return n >= MinReceiptNumber && n <= MaxReceiptNumber
}

// Receipt represents the fiscal document evidencing receipt of payment for
// one invoice. It is an aggregate root with a one-way lifecycle:
// PENDING_SEND -> SENT_TO_CUSTOMER. Amount, issuer IBAN, payment method,
// tax regime and withholding are fixed at creation and never mutated.
type Receipt struct {
	shared.OrgAggregateRoot
	ReceiptNumber  int           `json:"receipt_number"`
	InvoiceID      uuid.UUID     `json:"invoice_id"`
	CustomerID     uuid.UUID     `json:"customer_id"`
	Status         ReceiptStatus `json:"status"`
	ReceivedDate   time.Time     `json:"received_date"`
	Amount         int64         `json:"amount"` // integer minor units, copied from invoice
	PaymentMethod  string        `json:"payment_method"`
	IssuerIBAN     string        `json:"issuer_iban"`
	ActivityCode   *string       `json:"activity_code"`
	TaxRegime      string        `json:"tax_regime"`
	IRSWithholding string        `json:"irs_withholding"`
	PDFURL         *string       `json:"pdf_url"`
	SentAt         *time.Time    `json:"sent_at"`
	SentBy         *uuid.UUID    `json:"sent_by"`
}

// NewReceipt creates a new receipt in PENDING_SEND for a paid invoice.
// The issuer is the user legally issuing the document; their IBAN is
// captured on the receipt and never changes afterwards.
func NewReceipt(
	organizationID uuid.UUID,
	receiptNumber int,
	invoiceID uuid.UUID,
	customerID uuid.UUID,
	issuerID uuid.UUID,
	issuerIBAN string,
	amount valueobject.Money,
	receivedDate time.Time,
	activityCode *string,
) (*Receipt, error) {
	if !IsValidReceiptNumber(receiptNumber) {
		return nil, shared.NewValidationError("Receipt number must be a 6-digit integer")
	}
	if invoiceID == uuid.Nil {
		return nil, shared.NewValidationError("Invoice ID cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewValidationError("Customer ID cannot be empty")
	}
	if issuerID == uuid.Nil {
		return nil, shared.NewValidationError("Issuer ID cannot be empty")
	}
	if issuerIBAN == "" {
		return nil, shared.NewValidationError("Issuer IBAN is required")
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("Receipt amount must be positive")
	}
	if receivedDate.IsZero() {
		return nil, shared.NewValidationError("Received date is required")
	}

	return &Receipt{
		OrgAggregateRoot: shared.NewOrgAggregateRootWithCreator(organizationID, issuerID),
		ReceiptNumber:    receiptNumber,
		InvoiceID:        invoiceID,
		CustomerID:       customerID,
		Status:           ReceiptStatusPendingSend,
		ReceivedDate:     receivedDate,
		Amount:           amount.MinorUnits(),
		PaymentMethod:    PaymentMethodBankTransfer,
		IssuerIBAN:       issuerIBAN,
		ActivityCode:     activityCode,
		TaxRegime:        TaxRegimeSimplified,
		IRSWithholding:   WithholdingExempt,
	}, nil
}

// UpdateDetails sets the mutable fiscal fields while the receipt is still
// pending. Re-applying the same values is a no-op effect-wise.
func (r *Receipt) UpdateDetails(activityCode string, receivedDate time.Time, now time.Time) error {
	if r.Status != ReceiptStatusPendingSend {
		return shared.NewConflictError("Receipt has already been sent")
	}
	if receivedDate.IsZero() {
		return shared.NewValidationError("Received date is required")
	}
	if dateAfter(receivedDate, now) {
		return shared.NewValidationError("Received date cannot be in the future")
	}
	r.ActivityCode = &activityCode
	r.ReceivedDate = receivedDate
	r.UpdatedAt = now
	return nil
}

// EnsureSendable verifies the finalization preconditions the receipt itself
// owns: it must still be pending, carry an activity code, and its received
// date must not be in the future
func (r *Receipt) EnsureSendable(now time.Time) error {
	if r.Status != ReceiptStatusPendingSend {
		return shared.NewConflictError("Receipt has already been sent")
	}
	if r.ActivityCode == nil || *r.ActivityCode == "" {
		return shared.NewValidationError("Activity code is required before sending")
	}
	if dateAfter(r.ReceivedDate, now) {
		return shared.NewValidationError("Received date cannot be in the future")
	}
	return nil
}

// MarkSent performs the one-way transition to SENT_TO_CUSTOMER, recording
// the archived document URL and the sending actor
func (r *Receipt) MarkSent(pdfURL string, sentAt time.Time, sentBy uuid.UUID) error {
	if r.Status != ReceiptStatusPendingSend {
		return shared.NewConflictError("Receipt has already been sent")
	}
	if pdfURL == "" {
		return shared.NewValidationError("Document URL is required")
	}
	r.Status = ReceiptStatusSentToCustomer
	r.PDFURL = &pdfURL
	r.SentAt = &sentAt
	r.SentBy = &sentBy
	r.UpdatedAt = sentAt
	return nil
}

// MarkSentWithoutDocument flips the receipt to SENT_TO_CUSTOMER without an
// archived document. This backs the simplified status endpoint, which skips
// the render and archive pipeline entirely.
func (r *Receipt) MarkSentWithoutDocument(sentAt time.Time, sentBy uuid.UUID) error {
	if r.Status != ReceiptStatusPendingSend {
		return shared.NewConflictError("Receipt has already been sent")
	}
	r.Status = ReceiptStatusSentToCustomer
	r.SentAt = &sentAt
	r.SentBy = &sentBy
	r.UpdatedAt = sentAt
	return nil
}

// MarkUnsent reverts the sent state unconditionally. This mirrors the raw
// revert endpoint of the legacy system: no authorization or current-state
// check is performed here on purpose.
func (r *Receipt) MarkUnsent() {
	r.Status = ReceiptStatusPendingSend
	r.SentAt = nil
	r.SentBy = nil
	r.UpdatedAt = time.Now()
}

// IsSent reports whether the receipt has reached its terminal state
func (r *Receipt) IsSent() bool {
	return r.Status == ReceiptStatusSentToCustomer
}

// AmountMoney returns the receipt amount as a Money value object
func (r *Receipt) AmountMoney() valueobject.Money {
	return valueobject.NewMoneyEUR(r.Amount)
}

// dateAfter compares calendar dates, ignoring the time of day, so a receipt
// received "today" is never rejected because of clock precision
func dateAfter(d, ref time.Time) bool {
	dy, dm, dd := d.Date()
	ry, rm, rd := ref.Date()
	if dy != ry {
		return dy > ry
	}
	if dm != rm {
		return dm > rm
	}
	return dd > rd
}
