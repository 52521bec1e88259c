// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the meter name for business metrics
const MeterName = "fiscaldesk-backend"

const attrOrganizationID = attribute.Key("organization_id")

var (
	metricsOnce    sync.Once
	receiptsIssued metric.Int64Counter
	receiptsSent   metric.Int64Counter
)

// initBusinessMetrics creates the counters against the global meter
// provider. The otel global delegates, so instruments created before the
// provider is configured start recording once it is set.
func initBusinessMetrics() {
	meter := otel.GetMeterProvider().Meter(MeterName)

	receiptsIssued, _ = meter.Int64Counter(
		"receipts_issued_total",
		metric.WithDescription("Total number of receipts created"),
	)
	receiptsSent, _ = meter.Int64Counter(
		"receipts_sent_total",
		metric.WithDescription("Total number of receipts finalized and sent"),
	)
}

// CountReceiptIssued increments the receipts-issued counter for an organization
func CountReceiptIssued(ctx context.Context, organizationID uuid.UUID) {
	metricsOnce.Do(initBusinessMetrics)
	if receiptsIssued == nil {
		return
	}
	receiptsIssued.Add(ctx, 1, metric.WithAttributes(attrOrganizationID.String(organizationID.String())))
}

// CountReceiptSent increments the receipts-sent counter for an organization
func CountReceiptSent(ctx context.Context, organizationID uuid.UUID) {
	metricsOnce.Do(initBusinessMetrics)
	if receiptsSent == nil {
		return
	}
	receiptsSent.Add(ctx, 1, metric.WithAttributes(attrOrganizationID.String(organizationID.String())))
}
