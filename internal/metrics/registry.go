// Package metrics exposes the engine's OpenTelemetry instruments and adapts
// them to the bidding service's MetricsCollector port.
package metrics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/davidleathers/benefit-auction-backend/internal/service/bidding"
)

// Registry holds the auction engine's metrics.
type Registry struct {
	meter metric.Meter

	BidProcessingDuration metric.Float64Histogram
	BidAcceptedCounter    metric.Int64Counter
	BidRejectedCounter    metric.Int64Counter
	BuyNowCounter         metric.Int64Counter
	ExtensionCounter      metric.Int64Counter
	ConflictRetryCounter  metric.Int64Counter

	APIRequestDuration metric.Float64Histogram
	APIRequestCounter  metric.Int64Counter
}

// NewRegistry creates the registry against the global meter provider.
func NewRegistry(meterName string) (*Registry, error) {
	r := &Registry{meter: otel.Meter(meterName)}

	var err error
	r.BidProcessingDuration, err = r.meter.Float64Histogram(
		"bab.bid.processing_duration",
		metric.WithDescription("Duration of bid submission processing in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000),
	)
	if err != nil {
		return nil, err
	}

	r.BidAcceptedCounter, err = r.meter.Int64Counter(
		"bab.bid.accepted_total",
		metric.WithDescription("Total accepted bid submissions"),
	)
	if err != nil {
		return nil, err
	}

	r.BidRejectedCounter, err = r.meter.Int64Counter(
		"bab.bid.rejected_total",
		metric.WithDescription("Total rejected bid submissions by reason"),
	)
	if err != nil {
		return nil, err
	}

	r.BuyNowCounter, err = r.meter.Int64Counter(
		"bab.buy_now.total",
		metric.WithDescription("Total buy-now purchases"),
	)
	if err != nil {
		return nil, err
	}

	r.ExtensionCounter, err = r.meter.Int64Counter(
		"bab.auction.extensions_total",
		metric.WithDescription("Total anti-sniping close-time extensions"),
	)
	if err != nil {
		return nil, err
	}

	r.ConflictRetryCounter, err = r.meter.Int64Counter(
		"bab.bid.conflict_retries_total",
		metric.WithDescription("Total transparent retries after version conflicts"),
	)
	if err != nil {
		return nil, err
	}

	r.APIRequestDuration, err = r.meter.Float64Histogram(
		"bab.api.request_duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	r.APIRequestCounter, err = r.meter.Int64Counter(
		"bab.api.requests_total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Registry) RecordBidAccepted(ctx context.Context, itemID uuid.UUID) {
	r.BidAcceptedCounter.Add(ctx, 1)
}

func (r *Registry) RecordBidRejected(ctx context.Context, code string) {
	r.BidRejectedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", code)))
}

func (r *Registry) RecordBuyNow(ctx context.Context, itemID uuid.UUID) {
	r.BuyNowCounter.Add(ctx, 1)
}

func (r *Registry) RecordExtension(ctx context.Context, itemID uuid.UUID) {
	r.ExtensionCounter.Add(ctx, 1)
}

func (r *Registry) RecordConflictRetry(ctx context.Context, itemID uuid.UUID) {
	r.ConflictRetryCounter.Add(ctx, 1)
}

func (r *Registry) RecordBidProcessingDuration(ctx context.Context, d time.Duration) {
	r.BidProcessingDuration.Record(ctx, float64(d.Microseconds())/1000.0)
}

// RecordAPIRequest records one served HTTP request.
func (r *Registry) RecordAPIRequest(ctx context.Context, method, route string, status int, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	)
	r.APIRequestCounter.Add(ctx, 1, attrs)
	r.APIRequestDuration.Record(ctx, float64(d.Microseconds())/1000.0, attrs)
}

var _ bidding.MetricsCollector = (*Registry)(nil)
