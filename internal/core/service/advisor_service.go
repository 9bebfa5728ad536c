package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guillermoBallester/pgadvisor/internal/core/domain"
	"github.com/guillermoBallester/pgadvisor/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ExecutionStatus describes what happened to a finding's corrective
// statement during a run.
type ExecutionStatus string

const (
	StatusNotExecuted ExecutionStatus = "not_executed"
	StatusExecuted    ExecutionStatus = "executed"
	StatusFailed      ExecutionStatus = "failed"
)

// ExecutionResult is the per-finding outcome of the apply phase.
type ExecutionResult struct {
	Status     ExecutionStatus `json:"status"`
	Error      string          `json:"error,omitempty"`
	DurationMS int64           `json:"duration_ms,omitempty"`
}

// ReportFinding pairs a finding with its execution outcome.
type ReportFinding struct {
	domain.Finding
	Execution ExecutionResult `json:"execution"`
}

// Report is the result of one advisor run.
type Report struct {
	TakenAt       time.Time       `json:"taken_at"`
	Schemas       []string        `json:"schemas,omitempty"`
	Findings      []ReportFinding `json:"findings"`
	DeniedSchemas []string        `json:"denied_schemas,omitempty"`
	Applied       bool            `json:"applied"`
}

// RunOptions configure a single advisor run.
type RunOptions struct {
	Schemas    []string
	Apply      bool
	Thresholds domain.Thresholds
}

// FindingFilter decides whether a finding is kept in the report.
// A nil filter keeps everything.
type FindingFilter func(domain.Finding) bool

// AdvisorService orchestrates one run: catalog read, rule evaluation, and
// the optional guarded apply phase. Reading and evaluating never mutate
// database state; only the apply phase executes statements, each in its own
// transaction.
type AdvisorService struct {
	reader    port.CatalogReader
	executor  port.StatementExecutor
	validator port.StatementValidator
	auditor   port.ApplyAuditor
	logger    *slog.Logger
	filter    FindingFilter
	tracer    trace.Tracer
	inst      port.Instrumentation
}

func NewAdvisorService(reader port.CatalogReader, executor port.StatementExecutor, validator port.StatementValidator, auditor port.ApplyAuditor, logger *slog.Logger, filter FindingFilter, tracer trace.Tracer, inst port.Instrumentation) *AdvisorService {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	return &AdvisorService{
		reader:    reader,
		executor:  executor,
		validator: validator,
		auditor:   auditor,
		logger:    logger,
		filter:    filter,
		tracer:    tracer,
		inst:      inst,
	}
}

// Run executes one advisor pass. With opts.Apply false (the default) no
// statement reaches the executor.
func (s *AdvisorService) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	ctx, span := s.tracer.Start(ctx, "AdvisorService.Run",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.Bool("advisor.apply", opts.Apply),
			attribute.StringSlice("advisor.schemas", opts.Schemas),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		s.inst.RecordRunDuration(ctx, float64(time.Since(start).Milliseconds()))
	}()

	snap, err := s.reader.Read(ctx, opts.Schemas)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	for _, denied := range snap.Denied {
		s.logger.WarnContext(ctx, "schema skipped",
			slog.String("schema", denied.Schema),
			slog.String("error.message", denied.Err.Error()),
		)
	}

	findings := domain.Evaluate(snap, opts.Thresholds)
	if s.filter != nil {
		kept := findings[:0]
		for _, f := range findings {
			if s.filter(f) {
				kept = append(kept, f)
			}
		}
		findings = kept
	}

	s.inst.RecordFindings(ctx, int64(len(findings)))
	span.SetAttributes(attribute.Int("advisor.findings", len(findings)))

	report := &Report{
		TakenAt:  snap.TakenAt,
		Schemas:  opts.Schemas,
		Findings: make([]ReportFinding, 0, len(findings)),
		Applied:  opts.Apply,
	}
	for _, d := range snap.Denied {
		report.DeniedSchemas = append(report.DeniedSchemas, d.Error())
	}
	for _, f := range findings {
		report.Findings = append(report.Findings, ReportFinding{
			Finding:   f,
			Execution: ExecutionResult{Status: StatusNotExecuted},
		})
	}

	if opts.Apply {
		s.apply(ctx, report)
	}

	return report, nil
}

// apply executes each finding's corrective statement in priority order,
// continuing past individual failures. Findings without a statement are left
// untouched.
func (s *AdvisorService) apply(ctx context.Context, report *Report) {
	ctx, span := s.tracer.Start(ctx, "AdvisorService.Apply")
	defer span.End()

	for i := range report.Findings {
		f := &report.Findings[i]
		if f.Statement == nil {
			continue
		}
		sql := f.Statement.SQL()

		if err := s.validator.Validate(sql); err != nil {
			f.Execution = ExecutionResult{Status: StatusFailed, Error: err.Error()}
			s.logger.ErrorContext(ctx, "statement rejected",
				slog.String("db.statement", sql),
				slog.String("error.message", err.Error()),
			)
			s.inst.IncrementApplyErrors(ctx)
			continue
		}

		start := time.Now()
		err := s.executor.ExecuteDDL(ctx, sql)
		durationMS := time.Since(start).Milliseconds()

		s.auditor.Record(ctx, port.AuditEntry{
			Category:   string(f.Category),
			SQL:        sql,
			DurationMS: durationMS,
			Err:        err,
		})

		if err != nil {
			execErr := &domain.ExecutionError{SQL: sql, Err: err}
			f.Execution = ExecutionResult{Status: StatusFailed, Error: execErr.Error(), DurationMS: durationMS}
			s.logger.ErrorContext(ctx, "statement failed",
				slog.String("db.statement", sql),
				slog.String("error.message", err.Error()),
			)
			span.RecordError(execErr)
			s.inst.IncrementApplyErrors(ctx)
			continue
		}

		f.Execution = ExecutionResult{Status: StatusExecuted, DurationMS: durationMS}
		s.logger.InfoContext(ctx, "statement executed",
			slog.String("db.statement", sql),
			slog.Int64("duration_ms", durationMS),
		)
		s.inst.IncrementApplyCount(ctx)
	}
}
