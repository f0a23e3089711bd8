package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability records enrichment job meters through OpenTelemetry,
// exported on the default Prometheus registry.
type Observability struct {
	meterProvider   *metric.MeterProvider
	meter           otelmetric.Meter
	jobCounter      otelmetric.Int64Counter
	jobDuration     otelmetric.Float64Histogram
	productCounter  otelmetric.Int64Counter
	queueRejections otelmetric.Int64Counter
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	jobCounter, _ := meter.Int64Counter(
		"enrichment.jobs.processed",
		otelmetric.WithDescription("Number of enrichment jobs that reached a terminal state"),
	)

	jobDuration, _ := meter.Float64Histogram(
		"enrichment.jobs.duration",
		otelmetric.WithDescription("Enrichment job processing duration"),
		otelmetric.WithUnit("ms"),
	)

	productCounter, _ := meter.Int64Counter(
		"enrichment.products.processed",
		otelmetric.WithDescription("Number of products processed by enrichment jobs"),
	)

	queueRejections, _ := meter.Int64Counter(
		"enrichment.queue.rejections",
		otelmetric.WithDescription("Jobs rejected because the worker pool was full"),
	)

	return &Observability{
		meterProvider:   provider,
		meter:           meter,
		jobCounter:      jobCounter,
		jobDuration:     jobDuration,
		productCounter:  productCounter,
		queueRejections: queueRejections,
	}
}

// NewNoop returns an Observability that records nothing.
func NewNoop() *Observability {
	return &Observability{}
}

func (o *Observability) RecordJobProcessed(ctx context.Context, status string) {
	if o != nil && o.jobCounter != nil {
		o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordJobDuration(ctx context.Context, duration time.Duration, status string) {
	if o != nil && o.jobDuration != nil {
		o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordProduct(ctx context.Context, outcome string) {
	if o != nil && o.productCounter != nil {
		o.productCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("outcome", outcome),
		))
	}
}

func (o *Observability) RecordQueueRejection(ctx context.Context) {
	if o != nil && o.queueRejections != nil {
		o.queueRejections.Add(ctx, 1)
	}
}

func (o *Observability) Shutdown() {
	if o != nil && o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
