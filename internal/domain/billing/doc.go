// Package billing provides domain models for invoices and the fiscal receipts
// issued against them.
//
// This package implements the receipt bounded context, which is responsible for:
//   - Representing invoices as the payment facts receipts are issued for
//   - Issuing exactly one receipt per paid invoice, with a unique 6-digit number
//   - Enforcing the one-way receipt lifecycle from PENDING_SEND to SENT_TO_CUSTOMER
//
// Key Aggregates:
//   - Receipt: The fiscal document evidencing receipt of payment for one invoice
//   - Invoice: The billing document a receipt is issued against
//
// Supporting types:
//   - ReceiptNumberGenerator: Draws random unused receipt numbers from the 6-digit space
//   - ReceiptStatus: Enumeration of receipt lifecycle states
//
// The billing domain integrates with:
//   - Identity domain: For the issuing user and organization scoping
//   - Partner domain: For the customer named on the receipt
package billing
