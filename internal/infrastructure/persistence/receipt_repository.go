package persistence

import (
	"context"
	"errors"

	"github.com/fiscaldesk/backend/internal/domain/billing"
	"github.com/fiscaldesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReceiptRepository implements billing.ReceiptRepository using GORM
type GormReceiptRepository struct {
	db *gorm.DB
}

// NewGormReceiptRepository creates a new GormReceiptRepository
func NewGormReceiptRepository(db *gorm.DB) *GormReceiptRepository {
	return &GormReceiptRepository{db: db}
}

// FindByID finds a receipt by ID. Returns (nil, nil) when absent.
func (r *GormReceiptRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Receipt, error) {
	var model models.ReceiptModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByInvoiceID finds the receipt spawned by an invoice, if any.
// Returns (nil, nil) when absent.
func (r *GormReceiptRepository) FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) (*billing.Receipt, error) {
	var model models.ReceiptModel
	if err := r.db.WithContext(ctx).First(&model, "invoice_id = ?", invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistsByNumber checks whether any receipt carries the given number
func (r *GormReceiptRepository) ExistsByNumber(ctx context.Context, number int) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ReceiptModel{}).
		Where("receipt_number = ?", number).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Insert persists a new receipt. Unique-index violations are translated to
// billing.ErrDuplicateInvoiceReceipt or billing.ErrDuplicateReceiptNumber
// so the creation workflow can distinguish a lost idempotency race from a
// number collision.
func (r *GormReceiptRepository) Insert(ctx context.Context, receipt *billing.Receipt) error {
	model := models.ReceiptModelFromDomain(receipt)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return r.translateDuplicateKey(ctx, receipt, err)
	}
	return nil
}

// Update persists changes to an existing receipt
func (r *GormReceiptRepository) Update(ctx context.Context, receipt *billing.Receipt) error {
	model := models.ReceiptModelFromDomain(receipt)
	return r.db.WithContext(ctx).Save(model).Error
}

// CountByOrganization returns the number of receipts for an organization
func (r *GormReceiptRepository) CountByOrganization(ctx context.Context, organizationID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ReceiptModel{}).
		Where("organization_id = ?", organizationID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// translateDuplicateKey maps a duplicate-key failure onto the domain error
// for whichever unique index rejected the insert. GORM's translated error
// does not carry the constraint name, so the violated index is identified
// by checking whether the invoice already has a receipt.
func (r *GormReceiptRepository) translateDuplicateKey(ctx context.Context, receipt *billing.Receipt, err error) error {
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}

	var count int64
	if lookupErr := r.db.WithContext(ctx).
		Model(&models.ReceiptModel{}).
		Where("invoice_id = ?", receipt.InvoiceID).
		Count(&count).Error; lookupErr != nil {
		return err
	}
	if count > 0 {
		return billing.ErrDuplicateInvoiceReceipt
	}
	return billing.ErrDuplicateReceiptNumber
}

// Ensure GormReceiptRepository implements billing.ReceiptRepository
var _ billing.ReceiptRepository = (*GormReceiptRepository)(nil)
