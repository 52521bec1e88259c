package billing

import (
	"context"
	"crypto/rand"
	"math/big"

	"github.com/fiscaldesk/backend/internal/domain/shared"
)

// maxNumberAttempts bounds the random draw loop. With at most 900000
// possible values a collision is overwhelmingly unlikely; exhausting the
// budget is surfaced as its own error kind rather than retried upstream.
const maxNumberAttempts = 5

// ReceiptNumberGenerator allocates human-facing 6-digit receipt numbers.
// Numbers are drawn uniformly at random so the sequence does not leak
// issuing volume to customers. The existence check here is only a fast
// path; the receipts table's unique index remains the real guarantee.
type ReceiptNumberGenerator struct {
	receipts ReceiptRepository
	draw     func() (int, error)
}

// NewReceiptNumberGenerator creates a generator backed by the given repository
func NewReceiptNumberGenerator(receipts ReceiptRepository) *ReceiptNumberGenerator {
	return &ReceiptNumberGenerator{
		receipts: receipts,
		draw:     randomReceiptNumber,
	}
}

// WithDraw overrides the random source. Used by tests to force collisions.
func (g *ReceiptNumberGenerator) WithDraw(draw func() (int, error)) *ReceiptNumberGenerator {
	g.draw = draw
	return g
}

// Generate returns a receipt number in [100000, 999999] that no existing
// receipt carries. It retries a bounded number of times on collision and
// fails with NUMBER_SPACE_EXHAUSTED when the budget runs out.
func (g *ReceiptNumberGenerator) Generate(ctx context.Context) (int, error) {
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		n, err := g.draw()
		if err != nil {
			return 0, shared.WrapDomainError(shared.CodePersistenceFailed, "Drawing a receipt number failed", err)
		}

		exists, err := g.receipts.ExistsByNumber(ctx, n)
		if err != nil {
			return 0, shared.WrapDomainError(shared.CodePersistenceFailed, "Checking receipt number uniqueness failed", err)
		}
		if !exists {
			return n, nil
		}
	}
	return 0, shared.ErrNumberSpaceExhausted
}

// randomReceiptNumber draws a uniformly random 6-digit integer
func randomReceiptNumber() (int, error) {
	span := big.NewInt(MaxReceiptNumber - MinReceiptNumber + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return 0, err
	}
	return MinReceiptNumber + int(n.Int64()), nil
}
