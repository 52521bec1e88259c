package printing

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/fiscaldesk/backend/internal/application/receipt"
	"github.com/fiscaldesk/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const (
	defaultRenderTimeout = 30 * time.Second

	// A4 in inches, matching Chrome's PrintToPDF units
	paperWidthInches  = 8.27
	paperHeightInches = 11.69
	marginInches      = 0.4
)

// ChromeReceiptRenderer renders receipt documents to PDF through the Chrome
// DevTools Protocol. It can drive a remote headless Chrome (the usual
// deployment) or launch a local instance when no URL is configured.
type ChromeReceiptRenderer struct {
	timeout     time.Duration
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromeReceiptRenderer creates a renderer from the printing configuration
func NewChromeReceiptRenderer(cfg config.PrintingConfig, logger *zap.Logger) *ChromeReceiptRenderer {
	timeout := cfg.RenderTimeout
	if timeout == 0 {
		timeout = defaultRenderTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &ChromeReceiptRenderer{
		timeout: timeout,
		logger:  logger,
	}

	if cfg.ChromeURL != "" {
		r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.ChromeURL)
		return r
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	return r
}

// Render produces the PDF bytes for a receipt document
func (r *ChromeReceiptRenderer) Render(ctx context.Context, doc receipt.ReceiptDocument) ([]byte, error) {
	html, err := renderReceiptHTML(doc)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(r.allocCtx)
	defer browserCancel()

	start := time.Now()
	var pdfData []byte

	err = chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(paperWidthInches).
				WithPaperHeight(paperHeightInches).
				WithMarginTop(marginInches).
				WithMarginRight(marginInches).
				WithMarginBottom(marginInches).
				WithMarginLeft(marginInches).
				Do(ctx)
			if err != nil {
				return err
			}
			pdfData = data
			return nil
		}),
	)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("pdf rendering timed out after %v: %w", r.timeout, err)
		}
		r.logger.Error("chromedp rendering failed",
			zap.Int("receipt_number", doc.ReceiptNumber),
			zap.Error(err))
		return nil, fmt.Errorf("chromedp execution failed: %w", err)
	}
	if len(pdfData) == 0 {
		return nil, fmt.Errorf("generated PDF is empty")
	}

	r.logger.Info("Receipt PDF rendered",
		zap.Int("receipt_number", doc.ReceiptNumber),
		zap.Int("bytes", len(pdfData)),
		zap.Duration("duration", time.Since(start)))

	return pdfData, nil
}

// Close releases the Chrome allocator
func (r *ChromeReceiptRenderer) Close() error {
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}

// Ensure ChromeReceiptRenderer implements the application port
var _ receipt.DocumentRenderer = (*ChromeReceiptRenderer)(nil)
