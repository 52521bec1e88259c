package receipt

import (
	"context"
	"errors"
	"time"

	"github.com/fiscaldesk/backend/internal/domain/billing"
	"github.com/fiscaldesk/backend/internal/domain/identity"
	"github.com/fiscaldesk/backend/internal/domain/partner"
	"github.com/fiscaldesk/backend/internal/domain/shared"
	"github.com/fiscaldesk/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
)

// insertAttempts bounds the create loop that re-draws a receipt number when
// the unique index rejects an insert. The generator's own existence check is
// only a fast path; this loop handles the race it cannot see.
const insertAttempts = 5

// LifecycleService orchestrates the receipt workflow: creating receipts
// from paid invoices, editing fiscal fields while pending, and the one-way
// transition to sent, which renders and archives the legal document.
type LifecycleService struct {
	receipts  billing.ReceiptRepository
	invoices  billing.InvoiceRepository
	customers partner.CustomerRepository
	users     identity.UserRepository
	orgs      identity.OrganizationRepository
	numbers   *billing.ReceiptNumberGenerator
	renderer  DocumentRenderer
	artifacts ArtifactStore
	now       func() time.Time
}

// NewLifecycleService creates a new LifecycleService
func NewLifecycleService(
	receipts billing.ReceiptRepository,
	invoices billing.InvoiceRepository,
	customers partner.CustomerRepository,
	users identity.UserRepository,
	orgs identity.OrganizationRepository,
	numbers *billing.ReceiptNumberGenerator,
	renderer DocumentRenderer,
	artifacts ArtifactStore,
) *LifecycleService {
	return &LifecycleService{
		receipts:  receipts,
		invoices:  invoices,
		customers: customers,
		users:     users,
		orgs:      orgs,
		numbers:   numbers,
		renderer:  renderer,
		artifacts: artifacts,
		now:       time.Now,
	}
}

// WithClock overrides the service clock. Used by tests to pin "today".
func (s *LifecycleService) WithClock(now func() time.Time) *LifecycleService {
	s.now = now
	return s
}

// CreateForPaidInvoice creates the receipt for a paid invoice. The call is
// idempotent: if the invoice already has a receipt, that receipt is returned.
// A pending (unpaid) invoice is not an error; it yields (nil, nil) because
// there is nothing meaningful to create yet.
func (s *LifecycleService) CreateForPaidInvoice(ctx context.Context, actor identity.Principal, invoiceID uuid.UUID) (*ReceiptResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "receipt", "create_for_paid_invoice")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrInvoiceID, invoiceID.String())

	if !actor.IsResolved() {
		return nil, shared.ErrUnauthorized
	}

	invoice, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.WrapDomainError(shared.CodePersistenceFailed, "Loading invoice failed", err)
	}
	if invoice == nil || invoice.OrganizationID != actor.OrganizationID {
		return nil, shared.NewNotFoundError("Invoice")
	}
	if !invoice.IsPaid() {
		return nil, nil
	}

	existing, err := s.receipts.FindByInvoiceID(ctx, invoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.WrapDomainError(shared.CodePersistenceFailed, "Checking for an existing receipt failed", err)
	}
	if existing != nil {
		return NewReceiptResponse(existing), nil
	}

	issuer, err := s.resolveIssuer(ctx, invoice.GetCreatedBy(), invoice.OrganizationID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !issuer.HasIBAN() {
		return nil, shared.NewValidationError("Issuer has no IBAN configured")
	}

	receivedDate := s.now()
	if invoice.PaymentDate != nil {
		receivedDate = *invoice.PaymentDate
	}

	for attempt := 0; attempt < insertAttempts; attempt++ {
		number, err := s.numbers.Generate(ctx)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}

		rcpt, err := billing.NewReceipt(
			invoice.OrganizationID,
			number,
			invoice.ID,
			invoice.CustomerID,
			issuer.ID,
			issuer.IBAN,
			invoice.AmountMoney(),
			receivedDate,
			invoice.ActivityCode,
		)
		if err != nil {
			return nil, err
		}

		err = s.receipts.Insert(ctx, rcpt)
		switch {
		case err == nil:
			telemetry.SetAttributes(span, telemetry.SpanAttrReceiptNumber, number)
			telemetry.CountReceiptIssued(ctx, invoice.OrganizationID)
			return NewReceiptResponse(rcpt), nil

		case errors.Is(err, billing.ErrDuplicateInvoiceReceipt):
			// Lost the creation race; the winner's row is the answer.
			winner, readErr := s.receipts.FindByInvoiceID(ctx, invoiceID)
			if readErr != nil {
				telemetry.RecordError(span, readErr)
				return nil, shared.WrapDomainError(shared.CodePersistenceFailed, "Reading the existing receipt failed", readErr)
			}
			if winner == nil {
				return nil, shared.WrapDomainError(shared.CodePersistenceFailed, "Inserting the receipt failed", err)
			}
			return NewReceiptResponse(winner), nil

		case errors.Is(err, billing.ErrDuplicateReceiptNumber):
			continue

		default:
			telemetry.RecordError(span, err)
			return nil, shared.WrapDomainError(shared.CodePersistenceFailed, "Inserting the receipt failed", err)
		}
	}
	return nil, shared.ErrNumberSpaceExhausted
}

// UpdateDetails sets the activity code and received date of a pending
// receipt. Only an administrator or the creator of the owning invoice may
// edit; sent receipts are immutable.
func (s *LifecycleService) UpdateDetails(ctx context.Context, actor identity.Principal, receiptID uuid.UUID, req UpdateReceiptDetailsRequest) (*ReceiptResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "receipt", "update_details")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrReceiptID, receiptID.String())

	if req.ReceivedDate.IsZero() {
		return nil, shared.NewValidationError("Received date is required")
	}
	if dateAfter(req.ReceivedDate, s.now()) {
		return nil, shared.NewValidationError("Received date cannot be in the future")
	}
	if req.ActivityCode == "" {
		return nil, shared.NewValidationError("Activity code is required")
	}
	if !actor.IsResolved() {
		return nil, shared.ErrUnauthorized
	}

	rcpt, err := s.loadReceipt(ctx, actor, receiptID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if rcpt.IsSent() {
		return nil, shared.NewConflictError("Receipt has already been sent")
	}

	invoice, err := s.invoices.FindByID(ctx, rcpt.InvoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.WrapDomainError(shared.CodePersistenceFailed, "Loading invoice failed", err)
	}
	if invoice == nil {
		return nil, shared.NewNotFoundError("Invoice")
	}
	if !actor.CanEditResource(invoice.GetCreatedBy()) {
		return nil, shared.ErrUnauthorized
	}

	if err := rcpt.UpdateDetails(req.ActivityCode, req.ReceivedDate, s.now()); err != nil {
		return nil, err
	}
	if err := s.receipts.Update(ctx, rcpt); err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.WrapDomainError(shared.CodePersistenceFailed, "Persisting the receipt failed", err)
	}
	return NewReceiptResponse(rcpt), nil
}

// Send performs the terminal transition. It validates the full precondition
// chain in order, renders the document, archives it, and only then persists
// the sent state. A failure before the final persist leaves the receipt
// untouched; a repeated call re-renders and re-archives.
func (s *LifecycleService) Send(ctx context.Context, actor identity.Principal, receiptID uuid.UUID) (*ReceiptResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "receipt", "send")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrReceiptID, receiptID.String())

	if !actor.IsResolved() {
		return nil, shared.ErrUnauthorized
	}

	rcpt, err := s.loadReceipt(ctx, actor, receiptID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	sentAt := s.now()
	if err := rcpt.EnsureSendable(sentAt); err != nil {
		return nil, err
	}

	invoice, err := s.invoices.FindByID(ctx, rcpt.InvoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.WrapDomainError(shared.CodePersistenceFailed, "Loading invoice failed", err)
	}
	if invoice == nil {
		return nil, shared.NewNotFoundError("Invoice")
	}
	if !actor.CanEditResource(invoice.GetCreatedBy()) {
		return nil, shared.ErrUnauthorized
	}

	customer, err := s.customers.FindByID(ctx, rcpt.OrganizationID, rcpt.CustomerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.WrapDomainError(shared.CodePersistenceFailed, "Loading customer failed", err)
	}
	if customer == nil {
		return nil, shared.NewNotFoundError("Customer")
	}

	issuerID := actor.UserID
	if rcpt.GetCreatedBy() != nil {
		issuerID = *rcpt.GetCreatedBy()
	}
	issuer, err := s.users.FindByID(ctx, issuerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.WrapDomainError(shared.CodePersistenceFailed, "Loading issuer failed", err)
	}
	if issuer == nil {
		return nil, shared.NewNotFoundError("Issuer")
	}

	doc := s.assembleDocument(ctx, rcpt, invoice, customer, issuer, sentAt)

	pdf, err := s.renderer.Render(ctx, doc)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.WrapDomainError(shared.CodeRenderFailed, "Rendering the receipt document failed", err)
	}

	url, err := s.artifacts.Archive(ctx, rcpt.ID, rcpt.ReceiptNumber, pdf)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.WrapDomainError(shared.CodeArchiveFailed, "Archiving the receipt document failed", err)
	}

	if err := rcpt.MarkSent(url, sentAt, actor.UserID); err != nil {
		return nil, err
	}
	if err := s.receipts.Update(ctx, rcpt); err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.WrapDomainError(shared.CodePersistenceFailed, "Persisting the sent receipt failed", err)
	}

	telemetry.CountReceiptSent(ctx, rcpt.OrganizationID)
	return NewReceiptResponse(rcpt), nil
}

// MarkSent is the simplified status endpoint: it flips a pending receipt to
// sent without producing a document. Authorization matches the edit rule.
func (s *LifecycleService) MarkSent(ctx context.Context, actor identity.Principal, receiptID uuid.UUID) (*ReceiptResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "receipt", "mark_sent")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrReceiptID, receiptID.String())

	if !actor.IsResolved() {
		return nil, shared.ErrUnauthorized
	}
	rcpt, err := s.loadReceipt(ctx, actor, receiptID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !actor.CanEditResource(rcpt.GetCreatedBy()) {
		return nil, shared.ErrUnauthorized
	}
	if err := rcpt.MarkSentWithoutDocument(s.now(), actor.UserID); err != nil {
		return nil, err
	}
	if err := s.receipts.Update(ctx, rcpt); err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.WrapDomainError(shared.CodePersistenceFailed, "Persisting the receipt failed", err)
	}
	return NewReceiptResponse(rcpt), nil
}

// MarkUnsent reverts a receipt to pending unconditionally. The legacy
// endpoint this mirrors performs no authorization or current-state check,
// and that behavior is kept as-is.
func (s *LifecycleService) MarkUnsent(ctx context.Context, receiptID uuid.UUID) (*ReceiptResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "receipt", "mark_unsent")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrReceiptID, receiptID.String())

	rcpt, err := s.receipts.FindByID(ctx, receiptID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.WrapDomainError(shared.CodePersistenceFailed, "Loading receipt failed", err)
	}
	if rcpt == nil {
		return nil, shared.NewNotFoundError("Receipt")
	}

	rcpt.MarkUnsent()
	if err := s.receipts.Update(ctx, rcpt); err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.WrapDomainError(shared.CodePersistenceFailed, "Persisting the receipt failed", err)
	}
	return NewReceiptResponse(rcpt), nil
}

// GetByID returns a receipt visible to the actor's organization
func (s *LifecycleService) GetByID(ctx context.Context, actor identity.Principal, receiptID uuid.UUID) (*ReceiptResponse, error) {
	if !actor.IsResolved() {
		return nil, shared.ErrUnauthorized
	}
	rcpt, err := s.loadReceipt(ctx, actor, receiptID)
	if err != nil {
		return nil, err
	}
	return NewReceiptResponse(rcpt), nil
}

// GetByInvoiceID returns the receipt spawned by an invoice, if any.
// Returns (nil, nil) when the invoice has no receipt yet.
func (s *LifecycleService) GetByInvoiceID(ctx context.Context, actor identity.Principal, invoiceID uuid.UUID) (*ReceiptResponse, error) {
	if !actor.IsResolved() {
		return nil, shared.ErrUnauthorized
	}
	rcpt, err := s.receipts.FindByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, shared.WrapDomainError(shared.CodePersistenceFailed, "Loading receipt failed", err)
	}
	if rcpt == nil || rcpt.OrganizationID != actor.OrganizationID {
		return nil, nil
	}
	return NewReceiptResponse(rcpt), nil
}

// loadReceipt fetches a receipt and scopes it to the actor's organization.
// A receipt belonging to another organization is reported as not found.
func (s *LifecycleService) loadReceipt(ctx context.Context, actor identity.Principal, receiptID uuid.UUID) (*billing.Receipt, error) {
	rcpt, err := s.receipts.FindByID(ctx, receiptID)
	if err != nil {
		return nil, shared.WrapDomainError(shared.CodePersistenceFailed, "Loading receipt failed", err)
	}
	if rcpt == nil || rcpt.OrganizationID != actor.OrganizationID {
		return nil, shared.NewNotFoundError("Receipt")
	}
	return rcpt, nil
}

// resolveIssuer finds the user legally issuing a receipt: the invoice's
// creator when recorded, otherwise an administrator of the organization.
func (s *LifecycleService) resolveIssuer(ctx context.Context, invoiceCreator *uuid.UUID, organizationID uuid.UUID) (*identity.User, error) {
	if invoiceCreator != nil {
		issuer, err := s.users.FindByID(ctx, *invoiceCreator)
		if err != nil {
			return nil, shared.WrapDomainError(shared.CodePersistenceFailed, "Loading issuer failed", err)
		}
		if issuer != nil {
			return issuer, nil
		}
	}
	issuer, err := s.users.FindAdminByOrganization(ctx, organizationID)
	if err != nil {
		return nil, shared.WrapDomainError(shared.CodePersistenceFailed, "Loading issuer failed", err)
	}
	if issuer == nil {
		return nil, shared.NewNotFoundError("Issuer")
	}
	return issuer, nil
}

// assembleDocument builds the render payload. Dates are normalized to
// YYYY-MM-DD and the amount to a two-decimal string here so the renderer
// stays a dumb byte producer.
func (s *LifecycleService) assembleDocument(ctx context.Context, rcpt *billing.Receipt, invoice *billing.Invoice, customer *partner.Customer, issuer *identity.User, issueDate time.Time) ReceiptDocument {
	activityCode := ""
	if rcpt.ActivityCode != nil {
		activityCode = *rcpt.ActivityCode
	}

	orgName := ""
	if org, err := s.orgs.FindByID(ctx, rcpt.OrganizationID); err == nil && org != nil {
		orgName = org.GetLegalNameOrName()
	}

	amount := rcpt.AmountMoney()
	return ReceiptDocument{
		ReceiptNumber:    rcpt.ReceiptNumber,
		IssueDate:        issueDate.Format(dateLayout),
		ReceivedDate:     rcpt.ReceivedDate.Format(dateLayout),
		OrganizationName: orgName,
		IssuerName:       issuer.GetDisplayNameOrUsername(),
		IssuerEmail:      issuer.Email,
		IssuerTaxID:      issuer.TaxID,
		IssuerIBAN:       rcpt.IssuerIBAN,
		CustomerName:     customer.Name,
		CustomerTaxID:    customer.TaxID,
		CustomerAddress:  customer.FiscalAddress,
		InvoiceID:        invoice.ID.String(),
		InvoiceNumber:    invoice.InvoiceNumber,
		InvoiceDate:      invoice.IssueDate.Format(dateLayout),
		Amount:           amount.Format(),
		Currency:         string(amount.Currency()),
		PaymentMethod:    rcpt.PaymentMethod,
		ActivityCode:     activityCode,
		TaxRegime:        rcpt.TaxRegime,
		IRSWithholding:   rcpt.IRSWithholding,
	}
}

// dateAfter compares calendar dates ignoring the time of day
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
