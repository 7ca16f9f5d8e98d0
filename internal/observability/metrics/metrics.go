package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes billing engine instruments.
type Metrics struct {
	documentsSubmitted   metric.Int64Counter
	statusTransitions    metric.Int64Counter
	overBillingSignals   metric.Int64Counter
	validationViolations metric.Int64Counter
	submitContention     metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "costline"
	}
	meter := provider.Meter(name)

	documentsSubmitted, err := meter.Int64Counter("costline_documents_submitted_total")
	if err != nil {
		return nil, err
	}
	statusTransitions, err := meter.Int64Counter("costline_document_transitions_total")
	if err != nil {
		return nil, err
	}
	overBillingSignals, err := meter.Int64Counter("costline_overbilling_signals_total")
	if err != nil {
		return nil, err
	}
	validationViolations, err := meter.Int64Counter("costline_validation_violations_total")
	if err != nil {
		return nil, err
	}
	submitContention, err := meter.Int64Counter("costline_submit_contention_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		documentsSubmitted:   documentsSubmitted,
		statusTransitions:    statusTransitions,
		overBillingSignals:   overBillingSignals,
		validationViolations: validationViolations,
		submitContention:     submitContention,
	}, nil
}

// RecordDocumentSubmitted increments submitted document counts.
func (m *Metrics) RecordDocumentSubmitted(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("kind", strings.TrimSpace(kind)))
	m.documentsSubmitted.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTransition increments document status transition counts.
func (m *Metrics) RecordTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("from_status", from),
		attribute.String("to_status", to),
	)
	m.statusTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordOverBilling counts over-billing signals by source.
func (m *Metrics) RecordOverBilling(ctx context.Context, source string, count int) {
	if m == nil || count <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("source", source))
	m.overBillingSignals.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

// RecordViolation increments validation failure counts by kind.
func (m *Metrics) RecordViolation(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("violation_kind", kind))
	m.validationViolations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSubmitContention counts submits rejected because another submit held the lock.
func (m *Metrics) RecordSubmitContention(ctx context.Context) {
	if m == nil {
		return
	}
	m.submitContention.Add(ctx, 1)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"kind":           {},
	"from_status":    {},
	"to_status":      {},
	"source":         {},
	"violation_kind": {},
	"route":          {},
	"method":         {},
	"status_code":    {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
