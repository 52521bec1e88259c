package receipt

import (
	"time"

	"github.com/fiscaldesk/backend/internal/domain/billing"
	"github.com/google/uuid"
)

// dateLayout is the wire form of all calendar dates in this service
const dateLayout = "2006-01-02"

// UpdateReceiptDetailsRequest carries the mutable fiscal fields of a
// pending receipt
type UpdateReceiptDetailsRequest struct {
	ActivityCode string
	ReceivedDate time.Time
}

// ReceiptResponse is the external representation of a receipt
type ReceiptResponse struct {
	ID              uuid.UUID  `json:"id"`
	ReceiptNumber   int        `json:"receipt_number"`
	InvoiceID       uuid.UUID  `json:"invoice_id"`
	CustomerID      uuid.UUID  `json:"customer_id"`
	OrganizationID  uuid.UUID  `json:"organization_id"`
	Status          string     `json:"status"`
	ReceivedDate    string     `json:"received_date"`
	Amount          int64      `json:"amount"`
	AmountFormatted string     `json:"amount_formatted"`
	Currency        string     `json:"currency"`
	PaymentMethod   string     `json:"payment_method"`
	IssuerIBAN      string     `json:"issuer_iban"`
	ActivityCode    *string    `json:"activity_code"`
	TaxRegime       string     `json:"tax_regime"`
	IRSWithholding  string     `json:"irs_withholding"`
	PDFURL          *string    `json:"pdf_url"`
	SentAt          *time.Time `json:"sent_at"`
	SentBy          *uuid.UUID `json:"sent_by"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewReceiptResponse maps a receipt aggregate to its external representation
func NewReceiptResponse(r *billing.Receipt) *ReceiptResponse {
	amount := r.AmountMoney()
	return &ReceiptResponse{
		ID:              r.ID,
		ReceiptNumber:   r.ReceiptNumber,
		InvoiceID:       r.InvoiceID,
		CustomerID:      r.CustomerID,
		OrganizationID:  r.OrganizationID,
		Status:          r.Status.String(),
		ReceivedDate:    r.ReceivedDate.Format(dateLayout),
		Amount:          r.Amount,
		AmountFormatted: amount.Format(),
		Currency:        string(amount.Currency()),
		PaymentMethod:   r.PaymentMethod,
		IssuerIBAN:      r.IssuerIBAN,
		ActivityCode:    r.ActivityCode,
		TaxRegime:       r.TaxRegime,
		IRSWithholding:  r.IRSWithholding,
		PDFURL:          r.PDFURL,
		SentAt:          r.SentAt,
		SentBy:          r.SentBy,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}
