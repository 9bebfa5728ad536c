package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/guillermoBallester/pgadvisor"

// Instruments holds pre-created OTel metric instruments.
type Instruments struct {
	RunDuration metric.Float64Histogram
	Findings    metric.Int64Histogram
	ApplyCount  metric.Int64Counter
	ApplyErrors metric.Int64Counter
}

// NewInstruments creates metric instruments from the global MeterProvider.
func NewInstruments() *Instruments {
	return newInstrumentsFromMeter(otel.Meter(meterName))
}

// NoopInstruments returns instruments that record nothing.
func NoopInstruments() *Instruments {
	return newInstrumentsFromMeter(noop.NewMeterProvider().Meter(meterName))
}

func newInstrumentsFromMeter(meter metric.Meter) *Instruments {
	// OTel SDK returns noop instruments on error; safe to discard.
	runDuration, _ := meter.Float64Histogram("pgadvisor.run.duration",
		metric.WithDescription("Advisor run duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	findings, _ := meter.Int64Histogram("pgadvisor.run.findings",
		metric.WithDescription("Findings produced per advisor run"),
	)
	applyCount, _ := meter.Int64Counter("pgadvisor.apply.count",
		metric.WithDescription("Total corrective statements executed successfully"),
	)
	applyErrors, _ := meter.Int64Counter("pgadvisor.apply.errors",
		metric.WithDescription("Total corrective statements that failed"),
	)

	return &Instruments{
		RunDuration: runDuration,
		Findings:    findings,
		ApplyCount:  applyCount,
		ApplyErrors: applyErrors,
	}
}

func (i *Instruments) RecordRunDuration(ctx context.Context, ms float64) {
	i.RunDuration.Record(ctx, ms)
}

func (i *Instruments) RecordFindings(ctx context.Context, n int64) {
	i.Findings.Record(ctx, n)
}

func (i *Instruments) IncrementApplyCount(ctx context.Context) {
	i.ApplyCount.Add(ctx, 1)
}

func (i *Instruments) IncrementApplyErrors(ctx context.Context) {
	i.ApplyErrors.Add(ctx, 1)
}
