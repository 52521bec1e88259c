package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/fiscaldesk/backend/internal/domain/billing"
	"github.com/fiscaldesk/backend/internal/domain/shared/valueobject"
	"github.com/fiscaldesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupReceiptTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.ReceiptModel{}, &models.InvoiceModel{}))
	return db
}

func newTestReceipt(t *testing.T, number int) *billing.Receipt {
	t.Helper()
	activityCode := "1332"
	receipt, err := billing.NewReceipt(
		uuid.New(),
		number,
		uuid.New(),
		uuid.New(),
		uuid.New(),
		"PT50000201231234567890154",
		valueobject.NewMoneyEUR(15000),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		&activityCode,
	)
	require.NoError(t, err)
	return receipt
}

func TestGormReceiptRepository_InsertAndFind(t *testing.T) {
	db := setupReceiptTestDB(t)
	repo := NewGormReceiptRepository(db)
	ctx := context.Background()

	receipt := newTestReceipt(t, 123456)
	require.NoError(t, repo.Insert(ctx, receipt))

	t.Run("FindByID round-trips all fields", func(t *testing.T) {
		found, err := repo.FindByID(ctx, receipt.ID)
		require.NoError(t, err)
		require.NotNil(t, found)

		assert.Equal(t, receipt.ID, found.ID)
		assert.Equal(t, receipt.OrganizationID, found.OrganizationID)
		assert.Equal(t, 123456, found.ReceiptNumber)
		assert.Equal(t, receipt.InvoiceID, found.InvoiceID)
		assert.Equal(t, billing.ReceiptStatusPendingSend, found.Status)
		assert.Equal(t, int64(15000), found.Amount)
		assert.Equal(t, billing.PaymentMethodBankTransfer, found.PaymentMethod)
		assert.Equal(t, billing.TaxRegimeSimplified, found.TaxRegime)
		assert.Equal(t, billing.WithholdingExempt, found.IRSWithholding)
		require.NotNil(t, found.ActivityCode)
		assert.Equal(t, "1332", *found.ActivityCode)
		require.NotNil(t, found.CreatedBy)
		assert.Equal(t, *receipt.CreatedBy, *found.CreatedBy)
	})

	t.Run("FindByID returns nil nil when absent", func(t *testing.T) {
		found, err := repo.FindByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("FindByInvoiceID locates the receipt", func(t *testing.T) {
		found, err := repo.FindByInvoiceID(ctx, receipt.InvoiceID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, receipt.ID, found.ID)
	})

	t.Run("FindByInvoiceID returns nil nil when absent", func(t *testing.T) {
		found, err := repo.FindByInvoiceID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("ExistsByNumber", func(t *testing.T) {
		exists, err := repo.ExistsByNumber(ctx, 123456)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByNumber(ctx, 654321)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestGormReceiptRepository_DuplicateDetection(t *testing.T) {
	db := setupReceiptTestDB(t)
	repo := NewGormReceiptRepository(db)
	ctx := context.Background()

	existing := newTestReceipt(t, 123456)
	require.NoError(t, repo.Insert(ctx, existing))

	t.Run("same invoice is reported as duplicate receipt for invoice", func(t *testing.T) {
		rival := newTestReceipt(t, 234567)
		rival.InvoiceID = existing.InvoiceID

		err := repo.Insert(ctx, rival)
		require.ErrorIs(t, err, billing.ErrDuplicateInvoiceReceipt)
	})

	t.Run("same number is reported as duplicate receipt number", func(t *testing.T) {
		rival := newTestReceipt(t, 123456)

		err := repo.Insert(ctx, rival)
		require.ErrorIs(t, err, billing.ErrDuplicateReceiptNumber)
	})
}

func TestGormReceiptRepository_Update(t *testing.T) {
	db := setupReceiptTestDB(t)
	repo := NewGormReceiptRepository(db)
	ctx := context.Background()

	receipt := newTestReceipt(t, 123456)
	require.NoError(t, repo.Insert(ctx, receipt))

	sentAt := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	sentBy := uuid.New()
	require.NoError(t, receipt.MarkSent("https://store/receipts/123456.pdf", sentAt, sentBy))
	require.NoError(t, repo.Update(ctx, receipt))

	found, err := repo.FindByID(ctx, receipt.ID)
	require.NoError(t, err)
	require.NotNil(t, found)

	assert.Equal(t, billing.ReceiptStatusSentToCustomer, found.Status)
	require.NotNil(t, found.PDFURL)
	assert.Equal(t, "https://store/receipts/123456.pdf", *found.PDFURL)
	require.NotNil(t, found.SentBy)
	assert.Equal(t, sentBy, *found.SentBy)
}

func TestGormReceiptRepository_CountByOrganization(t *testing.T) {
	db := setupReceiptTestDB(t)
	repo := NewGormReceiptRepository(db)
	ctx := context.Background()

	first := newTestReceipt(t, 123456)
	second := newTestReceipt(t, 234567)
	second.OrganizationID = first.OrganizationID
	other := newTestReceipt(t, 345678)

	require.NoError(t, repo.Insert(ctx, first))
	require.NoError(t, repo.Insert(ctx, second))
	require.NoError(t, repo.Insert(ctx, other))

	count, err := repo.CountByOrganization(ctx, first.OrganizationID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = repo.CountByOrganization(ctx, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
