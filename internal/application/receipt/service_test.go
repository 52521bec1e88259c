package receipt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fiscaldesk/backend/internal/domain/billing"
	"github.com/fiscaldesk/backend/internal/domain/identity"
	"github.com/fiscaldesk/backend/internal/domain/partner"
	"github.com/fiscaldesk/backend/internal/domain/shared"
	"github.com/fiscaldesk/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Mocks
// =============================================================================

type MockReceiptRepository struct {
	mock.Mock
}

func (m *MockReceiptRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Receipt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Receipt), args.Error(1)
}

func (m *MockReceiptRepository) FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) (*billing.Receipt, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Receipt), args.Error(1)
}

func (m *MockReceiptRepository) ExistsByNumber(ctx context.Context, number int) (bool, error) {
	args := m.Called(ctx, number)
	return args.Bool(0), args.Error(1)
}

func (m *MockReceiptRepository) Insert(ctx context.Context, receipt *billing.Receipt) error {
	args := m.Called(ctx, receipt)
	return args.Error(0)
}

func (m *MockReceiptRepository) Update(ctx context.Context, receipt *billing.Receipt) error {
	args := m.Called(ctx, receipt)
	return args.Error(0)
}

func (m *MockReceiptRepository) CountByOrganization(ctx context.Context, organizationID uuid.UUID) (int64, error) {
	args := m.Called(ctx, organizationID)
	return args.Get(0).(int64), args.Error(1)
}

type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) FindByID(ctx context.Context, organizationID, id uuid.UUID) (*partner.Customer, error) {
	args := m.Called(ctx, organizationID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Customer), args.Error(1)
}

func (m *MockCustomerRepository) Save(ctx context.Context, customer *partner.Customer) error {
	args := m.Called(ctx, customer)
	return args.Error(0)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindAdminByOrganization(ctx context.Context, organizationID uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) Save(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

type MockOrganizationRepository struct {
	mock.Mock
}

func (m *MockOrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Organization, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Organization), args.Error(1)
}

func (m *MockOrganizationRepository) Save(ctx context.Context, organization *identity.Organization) error {
	args := m.Called(ctx, organization)
	return args.Error(0)
}

type MockDocumentRenderer struct {
	mock.Mock
}

func (m *MockDocumentRenderer) Render(ctx context.Context, doc ReceiptDocument) ([]byte, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type MockArtifactStore struct {
	mock.Mock
}

func (m *MockArtifactStore) Archive(ctx context.Context, receiptID uuid.UUID, receiptNumber int, pdf []byte) (string, error) {
	args := m.Called(ctx, receiptID, receiptNumber, pdf)
	return args.String(0), args.Error(1)
}

// =============================================================================
// Fixtures
// =============================================================================

var testToday = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

type serviceMocks struct {
	receipts  *MockReceiptRepository
	invoices  *MockInvoiceRepository
	customers *MockCustomerRepository
	users     *MockUserRepository
	orgs      *MockOrganizationRepository
	renderer  *MockDocumentRenderer
	artifacts *MockArtifactStore
}

func newTestService(t *testing.T) (*LifecycleService, *serviceMocks) {
	t.Helper()
	m := &serviceMocks{
		receipts:  new(MockReceiptRepository),
		invoices:  new(MockInvoiceRepository),
		customers: new(MockCustomerRepository),
		users:     new(MockUserRepository),
		orgs:      new(MockOrganizationRepository),
		renderer:  new(MockDocumentRenderer),
		artifacts: new(MockArtifactStore),
	}
	numbers := billing.NewReceiptNumberGenerator(m.receipts).WithDraw(func() (int, error) {
		return 123456, nil
	})
	svc := NewLifecycleService(
		m.receipts, m.invoices, m.customers, m.users, m.orgs,
		numbers, m.renderer, m.artifacts,
	).WithClock(func() time.Time { return testToday })
	return svc, m
}

func adminActor(orgID uuid.UUID) identity.Principal {
	return identity.Principal{UserID: uuid.New(), OrganizationID: orgID, Role: identity.RoleAdmin}
}

func memberActor(orgID, userID uuid.UUID) identity.Principal {
	return identity.Principal{UserID: userID, OrganizationID: orgID, Role: identity.RoleMember}
}

func adminUser(orgID uuid.UUID) *identity.User {
	return &identity.User{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(orgID),
		Username:         "maria",
		Email:            "maria@example.com",
		DisplayName:      "Maria Santos",
		Role:             identity.RoleAdmin,
		IBAN:             "PT50000201231234567890154",
		TaxID:            "123456789",
	}
}

func paidInvoice(orgID, customerID uuid.UUID, createdBy *uuid.UUID) *billing.Invoice {
	inv, err := billing.NewInvoice(orgID, "INV-2024-0042", customerID, valueobject.NewMoneyEUR(15000), time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC))
	if err != nil {
		panic(err)
	}
	if err := inv.MarkPaid(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		panic(err)
	}
	inv.CreatedBy = createdBy
	return inv
}

func pendingReceipt(inv *billing.Invoice, issuer *identity.User) *billing.Receipt {
	activity := "1332"
	r, err := billing.NewReceipt(
		inv.OrganizationID, 123456, inv.ID, inv.CustomerID,
		issuer.ID, issuer.IBAN, inv.AmountMoney(),
		*inv.PaymentDate, &activity,
	)
	if err != nil {
		panic(err)
	}
	return r
}

func testCustomer(orgID uuid.UUID) *partner.Customer {
	c, err := partner.NewCustomer(orgID, "Acme Consulting Lda", "PT509876543", "Rua das Flores 12, Lisboa")
	if err != nil {
		panic(err)
	}
	return c
}

// =============================================================================
// CreateForPaidInvoice
// =============================================================================

func TestLifecycleService_CreateForPaidInvoice(t *testing.T) {
	orgID := uuid.New()
	customerID := uuid.New()

	t.Run("unauthenticated caller is rejected", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.CreateForPaidInvoice(context.Background(), identity.Principal{}, uuid.New())
		assert.True(t, errors.Is(err, shared.ErrUnauthorized))
	})

	t.Run("missing invoice is not found", func(t *testing.T) {
		svc, m := newTestService(t)
		actor := adminActor(orgID)
		invoiceID := uuid.New()
		m.invoices.On("FindByID", mock.Anything, invoiceID).Return(nil, nil)

		_, err := svc.CreateForPaidInvoice(context.Background(), actor, invoiceID)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("pending invoice yields no receipt and no error", func(t *testing.T) {
		svc, m := newTestService(t)
		actor := adminActor(orgID)
		inv, err := billing.NewInvoice(orgID, "INV-1", customerID, valueobject.NewMoneyEUR(15000), testToday)
		require.NoError(t, err)
		m.invoices.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)

		resp, err := svc.CreateForPaidInvoice(context.Background(), actor, inv.ID)
		require.NoError(t, err)
		assert.Nil(t, resp)
		m.receipts.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("existing receipt is returned idempotently", func(t *testing.T) {
		svc, m := newTestService(t)
		actor := adminActor(orgID)
		issuer := adminUser(orgID)
		inv := paidInvoice(orgID, customerID, nil)
		existing := pendingReceipt(inv, issuer)
		m.invoices.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
		m.receipts.On("FindByInvoiceID", mock.Anything, inv.ID).Return(existing, nil)

		resp, err := svc.CreateForPaidInvoice(context.Background(), actor, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, existing.ID, resp.ID)
		m.receipts.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("issuer without IBAN fails validation", func(t *testing.T) {
		svc, m := newTestService(t)
		actor := adminActor(orgID)
		issuer := adminUser(orgID)
		issuer.IBAN = ""
		inv := paidInvoice(orgID, customerID, nil)
		m.invoices.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
		m.receipts.On("FindByInvoiceID", mock.Anything, inv.ID).Return(nil, nil)
		m.users.On("FindAdminByOrganization", mock.Anything, orgID).Return(issuer, nil)

		_, err := svc.CreateForPaidInvoice(context.Background(), actor, inv.ID)
		assert.True(t, errors.Is(err, shared.ErrValidationFailed))
		m.receipts.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("organization without an admin fails issuer resolution", func(t *testing.T) {
		svc, m := newTestService(t)
		actor := adminActor(orgID)
		inv := paidInvoice(orgID, customerID, nil)
		m.invoices.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
		m.receipts.On("FindByInvoiceID", mock.Anything, inv.ID).Return(nil, nil)
		m.users.On("FindAdminByOrganization", mock.Anything, orgID).Return(nil, nil)

		_, err := svc.CreateForPaidInvoice(context.Background(), actor, inv.ID)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("creates a pending receipt from a paid invoice", func(t *testing.T) {
		svc, m := newTestService(t)
		actor := adminActor(orgID)
		issuer := adminUser(orgID)
		inv := paidInvoice(orgID, customerID, nil)
		inv.SetActivityCode("1332")
		m.invoices.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
		m.receipts.On("FindByInvoiceID", mock.Anything, inv.ID).Return(nil, nil)
		m.users.On("FindAdminByOrganization", mock.Anything, orgID).Return(issuer, nil)
		m.receipts.On("ExistsByNumber", mock.Anything, 123456).Return(false, nil)
		m.receipts.On("Insert", mock.Anything, mock.AnythingOfType("*billing.Receipt")).Return(nil)

		resp, err := svc.CreateForPaidInvoice(context.Background(), actor, inv.ID)
		require.NoError(t, err)

		assert.Equal(t, billing.ReceiptStatusPendingSend.String(), resp.Status)
		assert.Equal(t, 123456, resp.ReceiptNumber)
		assert.Equal(t, int64(15000), resp.Amount)
		assert.Equal(t, "150.00", resp.AmountFormatted)
		assert.Equal(t, "2024-03-01", resp.ReceivedDate)
		assert.Equal(t, issuer.IBAN, resp.IssuerIBAN)
		require.NotNil(t, resp.ActivityCode)
		assert.Equal(t, "1332", *resp.ActivityCode)
		assert.Nil(t, resp.PDFURL)
	})

	t.Run("invoice creator is preferred as issuer", func(t *testing.T) {
		svc, m := newTestService(t)
		actor := adminActor(orgID)
		creator := adminUser(orgID)
		inv := paidInvoice(orgID, customerID, &creator.ID)
		m.invoices.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
		m.receipts.On("FindByInvoiceID", mock.Anything, inv.ID).Return(nil, nil)
		m.users.On("FindByID", mock.Anything, creator.ID).Return(creator, nil)
		m.receipts.On("ExistsByNumber", mock.Anything, 123456).Return(false, nil)
		m.receipts.On("Insert", mock.Anything, mock.AnythingOfType("*billing.Receipt")).Return(nil)

		resp, err := svc.CreateForPaidInvoice(context.Background(), actor, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, creator.IBAN, resp.IssuerIBAN)
		m.users.AssertNotCalled(t, "FindAdminByOrganization", mock.Anything, mock.Anything)
	})

	t.Run("losing the creation race returns the winner row", func(t *testing.T) {
		svc, m := newTestService(t)
		actor := adminActor(orgID)
		issuer := adminUser(orgID)
		inv := paidInvoice(orgID, customerID, nil)
		winner := pendingReceipt(inv, issuer)
		m.invoices.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
		m.receipts.On("FindByInvoiceID", mock.Anything, inv.ID).Return(nil, nil).Once()
		m.users.On("FindAdminByOrganization", mock.Anything, orgID).Return(issuer, nil)
		m.receipts.On("ExistsByNumber", mock.Anything, 123456).Return(false, nil)
		m.receipts.On("Insert", mock.Anything, mock.AnythingOfType("*billing.Receipt")).Return(billing.ErrDuplicateInvoiceReceipt)
		m.receipts.On("FindByInvoiceID", mock.Anything, inv.ID).Return(winner, nil).Once()

		resp, err := svc.CreateForPaidInvoice(context.Background(), actor, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, winner.ID, resp.ID)
	})

	t.Run("number collision on insert retries with a fresh draw", func(t *testing.T) {
		svc, m := newTestService(t)
		actor := adminActor(orgID)
		issuer := adminUser(orgID)
		inv := paidInvoice(orgID, customerID, nil)
		m.invoices.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
		m.receipts.On("FindByInvoiceID", mock.Anything, inv.ID).Return(nil, nil)
		m.users.On("FindAdminByOrganization", mock.Anything, orgID).Return(issuer, nil)
		m.receipts.On("ExistsByNumber", mock.Anything, 123456).Return(false, nil)
		m.receipts.On("Insert", mock.Anything, mock.AnythingOfType("*billing.Receipt")).Return(billing.ErrDuplicateReceiptNumber).Once()
		m.receipts.On("Insert", mock.Anything, mock.AnythingOfType("*billing.Receipt")).Return(nil).Once()

		resp, err := svc.CreateForPaidInvoice(context.Background(), actor, inv.ID)
		require.NoError(t, err)
		assert.NotNil(t, resp)
		m.receipts.AssertNumberOfCalls(t, "Insert", 2)
	})
}

// =============================================================================
// UpdateDetails
// =============================================================================

func TestLifecycleService_UpdateDetails(t *testing.T) {
	orgID := uuid.New()
	customerID := uuid.New()

	validReq := UpdateReceiptDetailsRequest{
		ActivityCode: "1332",
		ReceivedDate: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
	}

	t.Run("future received date is rejected before anything else", func(t *testing.T) {
		svc, m := newTestService(t)
		req := UpdateReceiptDetailsRequest{
			ActivityCode: "1332",
			ReceivedDate: testToday.AddDate(0, 0, 1),
		}

		_, err := svc.UpdateDetails(context.Background(), adminActor(orgID), uuid.New(), req)
		assert.True(t, errors.Is(err, shared.ErrValidationFailed))
		m.receipts.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("same-day received date is accepted", func(t *testing.T) {
		svc, m := newTestService(t)
		actor := adminActor(orgID)
		issuer := adminUser(orgID)
		inv := paidInvoice(orgID, customerID, nil)
		rcpt := pendingReceipt(inv, issuer)
		req := UpdateReceiptDetailsRequest{
			ActivityCode: "1332",
			ReceivedDate: time.Date(2024, 3, 15, 23, 0, 0, 0, time.UTC),
		}
		m.receipts.On("FindByID", mock.Anything, rcpt.ID).Return(rcpt, nil)
		m.invoices.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
		m.receipts.On("Update", mock.Anything, rcpt).Return(nil)

		resp, err := svc.UpdateDetails(context.Background(), actor, rcpt.ID, req)
		require.NoError(t, err)
		assert.Equal(t, "2024-03-15", resp.ReceivedDate)
	})

	t.Run("unauthenticated caller is rejected", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.UpdateDetails(context.Background(), identity.Principal{}, uuid.New(), validReq)
		assert.True(t, errors.Is(err, shared.ErrUnauthorized))
	})

	t.Run("missing receipt is not found", func(t *testing.T) {
		svc, m := newTestService(t)
		receiptID := uuid.New()
		m.receipts.On("FindByID", mock.Anything, receiptID).Return(nil, nil)

		_, err := svc.UpdateDetails(context.Background(), adminActor(orgID), receiptID, validReq)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("receipt of another organization is not found", func(t *testing.T) {
		svc, m := newTestService(t)
		issuer := adminUser(orgID)
		inv := paidInvoice(orgID, customerID, nil)
		rcpt := pendingReceipt(inv, issuer)
		m.receipts.On("FindByID", mock.Anything, rcpt.ID).Return(rcpt, nil)

		_, err := svc.UpdateDetails(context.Background(), adminActor(uuid.New()), rcpt.ID, validReq)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("sent receipt is immutable", func(t *testing.T) {
		svc, m := newTestService(t)
		actor := adminActor(orgID)
		issuer := adminUser(orgID)
		inv := paidInvoice(orgID, customerID, nil)
		rcpt := pendingReceipt(inv, issuer)
		require.NoError(t, rcpt.MarkSent("https://store/receipt.pdf", testToday, actor.UserID))
		m.receipts.On("FindByID", mock.Anything, rcpt.ID).Return(rcpt, nil)

		_, err := svc.UpdateDetails(context.Background(), actor, rcpt.ID, validReq)
		assert.True(t, errors.Is(err, shared.ErrConflict))
		m.receipts.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("member who did not create the invoice is unauthorized", func(t *testing.T) {
		svc, m := newTestService(t)
		issuer := adminUser(orgID)
		creatorID := uuid.New()
		inv := paidInvoice(orgID, customerID, &creatorID)
		rcpt := pendingReceipt(inv, issuer)
		m.receipts.On("FindByID", mock.Anything, rcpt.ID).Return(rcpt, nil)
		m.invoices.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)

		_, err := svc.UpdateDetails(context.Background(), memberActor(orgID, uuid.New()), rcpt.ID, validReq)
		assert.True(t, errors.Is(err, shared.ErrUnauthorized))
		m.receipts.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("invoice creator may edit", func(t *testing.T) {
		svc, m := newTestService(t)
		issuer := adminUser(orgID)
		creatorID := uuid.New()
		inv := paidInvoice(orgID, customerID, &creatorID)
		rcpt := pendingReceipt(inv, issuer)
		m.receipts.On("FindByID", mock.Anything, rcpt.ID).Return(rcpt, nil)
		m.invoices.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
		m.receipts.On("Update", mock.Anything, rcpt).Return(nil)

		resp, err := svc.UpdateDetails(context.Background(), memberActor(orgID, creatorID), rcpt.ID, validReq)
		require.NoError(t, err)
		assert.Equal(t, "2024-03-10", resp.ReceivedDate)
		require.NotNil(t, resp.ActivityCode)
		assert.Equal(t, "1332", *resp.ActivityCode)
	})

	t.Run("admin may edit regardless of creator", func(t *testing.T) {
		svc, m := newTestService(t)
		issuer := adminUser(orgID)
		creatorID := uuid.New()
		inv := paidInvoice(orgID, customerID, &creatorID)
		rcpt := pendingReceipt(inv, issuer)
		m.receipts.On("FindByID", mock.Anything, rcpt.ID).Return(rcpt, nil)
		m.invoices.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
		m.receipts.On("Update", mock.Anything, rcpt).Return(nil)

		_, err := svc.UpdateDetails(context.Background(), adminActor(orgID), rcpt.ID, validReq)
		assert.NoError(t, err)
	})
}

// =============================================================================
// Send
// =============================================================================

// sendFixture wires the happy-path expectations; individual tests override
// pieces before calling Send.
type sendFixture struct {
	actor    identity.Principal
	issuer   *identity.User
	invoice  *billing.Invoice
	receipt  *billing.Receipt
	customer *partner.Customer
}

func newSendFixture(orgID uuid.UUID) *sendFixture {
	issuer := adminUser(orgID)
	customer := testCustomer(orgID)
	inv := paidInvoice(orgID, customer.ID, nil)
	return &sendFixture{
		actor:    adminActor(orgID),
		issuer:   issuer,
		invoice:  inv,
		receipt:  pendingReceipt(inv, issuer),
		customer: customer,
	}
}

func (f *sendFixture) expectHappyPath(m *serviceMocks) {
	m.receipts.On("FindByID", mock.Anything, f.receipt.ID).Return(f.receipt, nil)
	m.invoices.On("FindByID", mock.Anything, f.invoice.ID).Return(f.invoice, nil)
	m.customers.On("FindByID", mock.Anything, f.receipt.OrganizationID, f.receipt.CustomerID).Return(f.customer, nil)
	m.users.On("FindByID", mock.Anything, f.issuer.ID).Return(f.issuer, nil)
	m.orgs.On("FindByID", mock.Anything, f.receipt.OrganizationID).Return(nil, nil)
	m.renderer.On("Render", mock.Anything, mock.AnythingOfType("receipt.ReceiptDocument")).Return([]byte("%PDF-1.7"), nil)
	m.artifacts.On("Archive", mock.Anything, f.receipt.ID, f.receipt.ReceiptNumber, []byte("%PDF-1.7")).Return("https://store/receipts/receipt.pdf", nil)
	m.receipts.On("Update", mock.Anything, f.receipt).Return(nil)
}

func TestLifecycleService_Send(t *testing.T) {
	orgID := uuid.New()

	t.Run("unauthenticated caller is rejected", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.Send(context.Background(), identity.Principal{}, uuid.New())
		assert.True(t, errors.Is(err, shared.ErrUnauthorized))
	})

	t.Run("missing receipt is not found", func(t *testing.T) {
		svc, m := newTestService(t)
		receiptID := uuid.New()
		m.receipts.On("FindByID", mock.Anything, receiptID).Return(nil, nil)

		_, err := svc.Send(context.Background(), adminActor(orgID), receiptID)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("already sent receipt conflicts", func(t *testing.T) {
		svc, m := newTestService(t)
		f := newSendFixture(orgID)
		require.NoError(t, f.receipt.MarkSent("https://store/receipt.pdf", testToday, f.actor.UserID))
		m.receipts.On("FindByID", mock.Anything, f.receipt.ID).Return(f.receipt, nil)

		_, err := svc.Send(context.Background(), f.actor, f.receipt.ID)
		assert.True(t, errors.Is(err, shared.ErrConflict))
	})

	t.Run("missing activity code fails validation and mutates nothing", func(t *testing.T) {
		svc, m := newTestService(t)
		f := newSendFixture(orgID)
		f.receipt.ActivityCode = nil
		m.receipts.On("FindByID", mock.Anything, f.receipt.ID).Return(f.receipt, nil)

		_, err := svc.Send(context.Background(), f.actor, f.receipt.ID)
		assert.True(t, errors.Is(err, shared.ErrValidationFailed))
		assert.Equal(t, billing.ReceiptStatusPendingSend, f.receipt.Status)
		m.receipts.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("future received date fails validation", func(t *testing.T) {
		svc, m := newTestService(t)
		f := newSendFixture(orgID)
		f.receipt.ReceivedDate = testToday.AddDate(0, 0, 2)
		m.receipts.On("FindByID", mock.Anything, f.receipt.ID).Return(f.receipt, nil)

		_, err := svc.Send(context.Background(), f.actor, f.receipt.ID)
		assert.True(t, errors.Is(err, shared.ErrValidationFailed))
		m.renderer.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
	})

	t.Run("member who did not create the invoice is unauthorized", func(t *testing.T) {
		svc, m := newTestService(t)
		f := newSendFixture(orgID)
		creatorID := uuid.New()
		f.invoice.CreatedBy = &creatorID
		m.receipts.On("FindByID", mock.Anything, f.receipt.ID).Return(f.receipt, nil)
		m.invoices.On("FindByID", mock.Anything, f.invoice.ID).Return(f.invoice, nil)

		_, err := svc.Send(context.Background(), memberActor(orgID, uuid.New()), f.receipt.ID)
		assert.True(t, errors.Is(err, shared.ErrUnauthorized))
		m.renderer.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
	})

	t.Run("missing customer is not found", func(t *testing.T) {
		svc, m := newTestService(t)
		f := newSendFixture(orgID)
		m.receipts.On("FindByID", mock.Anything, f.receipt.ID).Return(f.receipt, nil)
		m.invoices.On("FindByID", mock.Anything, f.invoice.ID).Return(f.invoice, nil)
		m.customers.On("FindByID", mock.Anything, f.receipt.OrganizationID, f.receipt.CustomerID).Return(nil, nil)

		_, err := svc.Send(context.Background(), f.actor, f.receipt.ID)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("render failure reports RENDER_FAILED and leaves state untouched", func(t *testing.T) {
		svc, m := newTestService(t)
		f := newSendFixture(orgID)
		cause := errors.New("headless browser crashed")
		m.receipts.On("FindByID", mock.Anything, f.receipt.ID).Return(f.receipt, nil)
		m.invoices.On("FindByID", mock.Anything, f.invoice.ID).Return(f.invoice, nil)
		m.customers.On("FindByID", mock.Anything, f.receipt.OrganizationID, f.receipt.CustomerID).Return(f.customer, nil)
		m.users.On("FindByID", mock.Anything, f.issuer.ID).Return(f.issuer, nil)
		m.orgs.On("FindByID", mock.Anything, f.receipt.OrganizationID).Return(nil, nil)
		m.renderer.On("Render", mock.Anything, mock.AnythingOfType("receipt.ReceiptDocument")).Return(nil, cause)

		_, err := svc.Send(context.Background(), f.actor, f.receipt.ID)
		assert.True(t, errors.Is(err, shared.ErrRenderFailed))
		assert.True(t, errors.Is(err, cause))
		assert.Equal(t, billing.ReceiptStatusPendingSend, f.receipt.Status)
		m.artifacts.AssertNotCalled(t, "Archive", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		m.receipts.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("archive failure reports ARCHIVE_FAILED and leaves state untouched", func(t *testing.T) {
		svc, m := newTestService(t)
		f := newSendFixture(orgID)
		cause := errors.New("connection reset")
		m.receipts.On("FindByID", mock.Anything, f.receipt.ID).Return(f.receipt, nil)
		m.invoices.On("FindByID", mock.Anything, f.invoice.ID).Return(f.invoice, nil)
		m.customers.On("FindByID", mock.Anything, f.receipt.OrganizationID, f.receipt.CustomerID).Return(f.customer, nil)
		m.users.On("FindByID", mock.Anything, f.issuer.ID).Return(f.issuer, nil)
		m.orgs.On("FindByID", mock.Anything, f.receipt.OrganizationID).Return(nil, nil)
		m.renderer.On("Render", mock.Anything, mock.AnythingOfType("receipt.ReceiptDocument")).Return([]byte("%PDF-1.7"), nil)
		m.artifacts.On("Archive", mock.Anything, f.receipt.ID, f.receipt.ReceiptNumber, mock.Anything).Return("", cause)

		_, err := svc.Send(context.Background(), f.actor, f.receipt.ID)
		assert.True(t, errors.Is(err, shared.ErrArchiveFailed))
		assert.True(t, errors.Is(err, cause))
		assert.Equal(t, billing.ReceiptStatusPendingSend, f.receipt.Status)
		m.receipts.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("persistence failure after archive reports PERSISTENCE_FAILED", func(t *testing.T) {
		svc, m := newTestService(t)
		f := newSendFixture(orgID)
		m.receipts.On("FindByID", mock.Anything, f.receipt.ID).Return(f.receipt, nil)
		m.invoices.On("FindByID", mock.Anything, f.invoice.ID).Return(f.invoice, nil)
		m.customers.On("FindByID", mock.Anything, f.receipt.OrganizationID, f.receipt.CustomerID).Return(f.customer, nil)
		m.users.On("FindByID", mock.Anything, f.issuer.ID).Return(f.issuer, nil)
		m.orgs.On("FindByID", mock.Anything, f.receipt.OrganizationID).Return(nil, nil)
		m.renderer.On("Render", mock.Anything, mock.AnythingOfType("receipt.ReceiptDocument")).Return([]byte("%PDF-1.7"), nil)
		m.artifacts.On("Archive", mock.Anything, f.receipt.ID, f.receipt.ReceiptNumber, mock.Anything).Return("https://store/receipt.pdf", nil)
		m.receipts.On("Update", mock.Anything, f.receipt).Return(errors.New("deadlock detected"))

		_, err := svc.Send(context.Background(), f.actor, f.receipt.ID)
		assert.True(t, errors.Is(err, shared.ErrPersistenceFailed))
	})

	t.Run("successful send archives the document and finalizes the receipt", func(t *testing.T) {
		svc, m := newTestService(t)
		f := newSendFixture(orgID)
		f.expectHappyPath(m)

		resp, err := svc.Send(context.Background(), f.actor, f.receipt.ID)
		require.NoError(t, err)

		assert.Equal(t, billing.ReceiptStatusSentToCustomer.String(), resp.Status)
		require.NotNil(t, resp.PDFURL)
		assert.Equal(t, "https://store/receipts/receipt.pdf", *resp.PDFURL)
		require.NotNil(t, resp.SentAt)
		assert.Equal(t, testToday, *resp.SentAt)
		require.NotNil(t, resp.SentBy)
		assert.Equal(t, f.actor.UserID, *resp.SentBy)

		// Fixed fields survive the transition unchanged.
		assert.Equal(t, int64(15000), resp.Amount)
		assert.Equal(t, f.issuer.IBAN, resp.IssuerIBAN)
		assert.Equal(t, billing.PaymentMethodBankTransfer, resp.PaymentMethod)
	})

	t.Run("document payload carries normalized dates and formatted amount", func(t *testing.T) {
		svc, m := newTestService(t)
		f := newSendFixture(orgID)
		f.expectHappyPath(m)

		_, err := svc.Send(context.Background(), f.actor, f.receipt.ID)
		require.NoError(t, err)

		doc := m.renderer.Calls[0].Arguments.Get(1).(ReceiptDocument)
		assert.Equal(t, 123456, doc.ReceiptNumber)
		assert.Equal(t, "2024-03-15", doc.IssueDate)
		assert.Equal(t, "2024-03-01", doc.ReceivedDate)
		assert.Equal(t, "150.00", doc.Amount)
		assert.Equal(t, "EUR", doc.Currency)
		assert.Equal(t, "Maria Santos", doc.IssuerName)
		assert.Equal(t, f.issuer.IBAN, doc.IssuerIBAN)
		assert.Equal(t, "Acme Consulting Lda", doc.CustomerName)
		assert.Equal(t, "PT509876543", doc.CustomerTaxID)
		assert.Equal(t, "INV-2024-0042", doc.InvoiceNumber)
		assert.Equal(t, "1332", doc.ActivityCode)
		assert.Equal(t, billing.TaxRegimeSimplified, doc.TaxRegime)
		assert.Equal(t, billing.WithholdingExempt, doc.IRSWithholding)
	})

	t.Run("second send conflicts", func(t *testing.T) {
		svc, m := newTestService(t)
		f := newSendFixture(orgID)
		f.expectHappyPath(m)

		_, err := svc.Send(context.Background(), f.actor, f.receipt.ID)
		require.NoError(t, err)

		_, err = svc.Send(context.Background(), f.actor, f.receipt.ID)
		assert.True(t, errors.Is(err, shared.ErrConflict))
	})
}

// =============================================================================
// MarkSent / MarkUnsent
// =============================================================================

func TestLifecycleService_MarkSent(t *testing.T) {
	orgID := uuid.New()

	t.Run("flips a pending receipt without a document", func(t *testing.T) {
		svc, m := newTestService(t)
		f := newSendFixture(orgID)
		m.receipts.On("FindByID", mock.Anything, f.receipt.ID).Return(f.receipt, nil)
		m.receipts.On("Update", mock.Anything, f.receipt).Return(nil)

		resp, err := svc.MarkSent(context.Background(), f.actor, f.receipt.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.ReceiptStatusSentToCustomer.String(), resp.Status)
		assert.Nil(t, resp.PDFURL)
		require.NotNil(t, resp.SentAt)
	})

	t.Run("rejects an already sent receipt", func(t *testing.T) {
		svc, m := newTestService(t)
		f := newSendFixture(orgID)
		require.NoError(t, f.receipt.MarkSent("https://store/receipt.pdf", testToday, f.actor.UserID))
		m.receipts.On("FindByID", mock.Anything, f.receipt.ID).Return(f.receipt, nil)

		_, err := svc.MarkSent(context.Background(), f.actor, f.receipt.ID)
		assert.True(t, errors.Is(err, shared.ErrConflict))
	})

	t.Run("member who is not the creator is unauthorized", func(t *testing.T) {
		svc, m := newTestService(t)
		f := newSendFixture(orgID)
		m.receipts.On("FindByID", mock.Anything, f.receipt.ID).Return(f.receipt, nil)

		_, err := svc.MarkSent(context.Background(), memberActor(orgID, uuid.New()), f.receipt.ID)
		assert.True(t, errors.Is(err, shared.ErrUnauthorized))
	})
}

func TestLifecycleService_MarkUnsent(t *testing.T) {
	orgID := uuid.New()

	t.Run("reverts a sent receipt without any authorization check", func(t *testing.T) {
		svc, m := newTestService(t)
		f := newSendFixture(orgID)
		require.NoError(t, f.receipt.MarkSent("https://store/receipt.pdf", testToday, f.actor.UserID))
		m.receipts.On("FindByID", mock.Anything, f.receipt.ID).Return(f.receipt, nil)
		m.receipts.On("Update", mock.Anything, f.receipt).Return(nil)

		resp, err := svc.MarkUnsent(context.Background(), f.receipt.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.ReceiptStatusPendingSend.String(), resp.Status)
		assert.Nil(t, resp.SentAt)
		assert.Nil(t, resp.SentBy)
		// The archived document URL deliberately survives the revert.
		assert.NotNil(t, resp.PDFURL)
	})

	t.Run("missing receipt is not found", func(t *testing.T) {
		svc, m := newTestService(t)
		receiptID := uuid.New()
		m.receipts.On("FindByID", mock.Anything, receiptID).Return(nil, nil)

		_, err := svc.MarkUnsent(context.Background(), receiptID)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

// =============================================================================
// End to end
// =============================================================================

func TestLifecycleService_EndToEnd(t *testing.T) {
	orgID := uuid.New()
	svc, m := newTestService(t)
	actor := adminActor(orgID)
	issuer := adminUser(orgID)
	customer := testCustomer(orgID)
	inv := paidInvoice(orgID, customer.ID, nil)

	m.invoices.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
	m.receipts.On("FindByInvoiceID", mock.Anything, inv.ID).Return(nil, nil)
	m.users.On("FindAdminByOrganization", mock.Anything, orgID).Return(issuer, nil)
	m.receipts.On("ExistsByNumber", mock.Anything, 123456).Return(false, nil)

	var created *billing.Receipt
	m.receipts.On("Insert", mock.Anything, mock.AnythingOfType("*billing.Receipt")).Run(func(args mock.Arguments) {
		created = args.Get(1).(*billing.Receipt)
	}).Return(nil)

	resp, err := svc.CreateForPaidInvoice(context.Background(), actor, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, billing.ReceiptStatusPendingSend.String(), resp.Status)
	assert.Equal(t, int64(15000), resp.Amount)
	assert.Equal(t, "2024-03-01", resp.ReceivedDate)

	m.receipts.On("FindByID", mock.Anything, created.ID).Return(created, nil)
	m.receipts.On("Update", mock.Anything, created).Return(nil)

	_, err = svc.UpdateDetails(context.Background(), actor, created.ID, UpdateReceiptDetailsRequest{
		ActivityCode: "1332",
		ReceivedDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	m.customers.On("FindByID", mock.Anything, orgID, customer.ID).Return(customer, nil)
	m.users.On("FindByID", mock.Anything, issuer.ID).Return(issuer, nil)
	m.orgs.On("FindByID", mock.Anything, orgID).Return(nil, nil)
	m.renderer.On("Render", mock.Anything, mock.AnythingOfType("receipt.ReceiptDocument")).Return([]byte("%PDF-1.7"), nil)
	m.artifacts.On("Archive", mock.Anything, created.ID, created.ReceiptNumber, mock.Anything).Return("https://store/receipts/final.pdf", nil)

	final, err := svc.Send(context.Background(), actor, created.ID)
	require.NoError(t, err)

	assert.Equal(t, billing.ReceiptStatusSentToCustomer.String(), final.Status)
	require.NotNil(t, final.PDFURL)
	assert.Equal(t, "https://store/receipts/final.pdf", *final.PDFURL)
	assert.Equal(t, int64(15000), final.Amount)
}
