package receipt

import (
	"context"

	"github.com/google/uuid"
)

// ReceiptDocument is the structured payload handed to the renderer. All
// dates are pre-formatted as YYYY-MM-DD strings and the amount is a fixed
// two-decimal string so the rendering layer never touches domain types.
type ReceiptDocument struct {
	ReceiptNumber    int    `json:"receipt_number"`
	IssueDate        string `json:"issue_date"`
	ReceivedDate     string `json:"received_date"`
	OrganizationName string `json:"organization_name"`
	IssuerName       string `json:"issuer_name"`
	IssuerEmail      string `json:"issuer_email"`
	IssuerTaxID      string `json:"issuer_tax_id"`
	IssuerIBAN       string `json:"issuer_iban"`
	CustomerName     string `json:"customer_name"`
	CustomerTaxID    string `json:"customer_tax_id"`
	CustomerAddress  string `json:"customer_address"`
	InvoiceID        string `json:"invoice_id"`
	InvoiceNumber    string `json:"invoice_number"`
	InvoiceDate      string `json:"invoice_date"`
	Amount           string `json:"amount"`
	Currency         string `json:"currency"`
	PaymentMethod    string `json:"payment_method"`
	ActivityCode     string `json:"activity_code"`
	TaxRegime        string `json:"tax_regime"`
	IRSWithholding   string `json:"irs_withholding"`
}

// DocumentRenderer produces the immutable PDF bytes for a receipt document
type DocumentRenderer interface {
	Render(ctx context.Context, doc ReceiptDocument) ([]byte, error)
}

// ArtifactStore archives a rendered document under a key derived from the
// receipt id and number, returning a durable retrieval URL
type ArtifactStore interface {
	Archive(ctx context.Context, receiptID uuid.UUID, receiptNumber int, pdf []byte) (string, error)
}
