package models

import (
	"time"

	"github.com/fiscaldesk/backend/internal/domain/billing"
	"github.com/google/uuid"
)

// ReceiptModel is the persistence model for fiscal receipts. The unique
// indexes on receipt_number and invoice_id are the authoritative guards
// against number collisions and double receipts under concurrency.
type ReceiptModel struct {
	OrgAggregateModel
	ReceiptNumber  int        `gorm:"not null;uniqueIndex:uidx_receipts_receipt_number"`
	InvoiceID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uidx_receipts_invoice_id"`
	CustomerID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	Status         string     `gorm:"type:varchar(32);not null"`
	ReceivedDate   time.Time  `gorm:"not null"`
	Amount         int64      `gorm:"not null"`
	PaymentMethod  string     `gorm:"type:varchar(32);not null"`
	IssuerIBAN     string     `gorm:"type:varchar(64);not null"`
	ActivityCode   *string    `gorm:"type:varchar(16)"`
	TaxRegime      string     `gorm:"type:varchar(32);not null"`
	IRSWithholding string     `gorm:"type:varchar(64);not null"`
	PDFURL         *string    `gorm:"type:text"`
	SentAt         *time.Time
	SentBy         *uuid.UUID `gorm:"type:uuid"`
}

// TableName specifies the table name
func (ReceiptModel) TableName() string {
	return "receipts"
}

// ToDomain converts the persistence model to the domain aggregate
func (m *ReceiptModel) ToDomain() *billing.Receipt {
	r := &billing.Receipt{
		ReceiptNumber:  m.ReceiptNumber,
		InvoiceID:      m.InvoiceID,
		CustomerID:     m.CustomerID,
		Status:         billing.ReceiptStatus(m.Status),
		ReceivedDate:   m.ReceivedDate,
		Amount:         m.Amount,
		PaymentMethod:  m.PaymentMethod,
		IssuerIBAN:     m.IssuerIBAN,
		ActivityCode:   m.ActivityCode,
		TaxRegime:      m.TaxRegime,
		IRSWithholding: m.IRSWithholding,
		PDFURL:         m.PDFURL,
		SentAt:         m.SentAt,
		SentBy:         m.SentBy,
	}
	m.PopulateOrgAggregateRoot(&r.OrgAggregateRoot)
	return r
}

// ReceiptModelFromDomain converts the domain aggregate to its persistence model
func ReceiptModelFromDomain(r *billing.Receipt) *ReceiptModel {
	m := &ReceiptModel{
		ReceiptNumber:  r.ReceiptNumber,
		InvoiceID:      r.InvoiceID,
		CustomerID:     r.CustomerID,
		Status:         r.Status.String(),
		ReceivedDate:   r.ReceivedDate,
		Amount:         r.Amount,
		PaymentMethod:  r.PaymentMethod,
		IssuerIBAN:     r.IssuerIBAN,
		ActivityCode:   r.ActivityCode,
		TaxRegime:      r.TaxRegime,
		IRSWithholding: r.IRSWithholding,
		PDFURL:         r.PDFURL,
		SentAt:         r.SentAt,
		SentBy:         r.SentBy,
	}
	m.FromDomainOrgAggregateRoot(r.OrgAggregateRoot)
	return m
}

// InvoiceModel is the persistence model for invoices
type InvoiceModel struct {
	OrgAggregateModel
	InvoiceNumber string     `gorm:"type:varchar(64);not null;index"`
	CustomerID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	Status        string     `gorm:"type:varchar(32);not null"`
	Amount        int64      `gorm:"not null"`
	ActivityCode  *string    `gorm:"type:varchar(16)"`
	PaymentDate   *time.Time
	IssueDate     time.Time `gorm:"not null"`
}

// TableName specifies the table name
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to the domain aggregate
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	inv := &billing.Invoice{
		InvoiceNumber: m.InvoiceNumber,
		CustomerID:    m.CustomerID,
		Status:        billing.InvoiceStatus(m.Status),
		Amount:        m.Amount,
		ActivityCode:  m.ActivityCode,
		PaymentDate:   m.PaymentDate,
		IssueDate:     m.IssueDate,
	}
	m.PopulateOrgAggregateRoot(&inv.OrgAggregateRoot)
	return inv
}

// InvoiceModelFromDomain converts the domain aggregate to its persistence model
func InvoiceModelFromDomain(i *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		InvoiceNumber: i.InvoiceNumber,
		CustomerID:    i.CustomerID,
		Status:        i.Status.String(),
		Amount:        i.Amount,
		ActivityCode:  i.ActivityCode,
		PaymentDate:   i.PaymentDate,
		IssueDate:     i.IssueDate,
	}
	m.FromDomainOrgAggregateRoot(i.OrgAggregateRoot)
	return m
}
