package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"voicevault-gateway/internal/core/domain"
	"voicevault-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

// PipelineImpl implements ports.PipelineService. Stages run strictly in
// order: parse, portfolio, risk, security, execute, audit. A run ends at
// the first rejection or failure.
type PipelineImpl struct {
	parser    ports.CommandParser
	portfolio ports.PortfolioProvider
	risk      ports.RiskEvaluator
	security  ports.SecurityValidator
	executor  ports.TransactionExecutor
	auditor   ports.Auditor
	retry     map[domain.Stage]RetryPolicy
	log       zerolog.Logger
}

// NewPipeline creates a new PipelineImpl. Stages missing from retry are
// run once. A nil retry map applies DefaultParserRetryPolicy to parsing.
func NewPipeline(
	parser ports.CommandParser,
	portfolio ports.PortfolioProvider,
	risk ports.RiskEvaluator,
	security ports.SecurityValidator,
	executor ports.TransactionExecutor,
	auditor ports.Auditor,
	retry map[domain.Stage]RetryPolicy,
	log zerolog.Logger,
) *PipelineImpl {
	if retry == nil {
		retry = map[domain.Stage]RetryPolicy{domain.StageParse: DefaultParserRetryPolicy()}
	}
	return &PipelineImpl{
		parser:    parser,
		portfolio: portfolio,
		risk:      risk,
		security:  security,
		executor:  executor,
		auditor:   auditor,
		retry:     retry,
		log:       log,
	}
}

// Run executes one command. It always returns a terminal outcome; stage
// errors and panics become *domain.Failed.
func (p *PipelineImpl) Run(ctx context.Context, text, userID string) domain.Outcome {
	start := time.Now()
	log := p.log.With().Str("user_id", userID).Logger()

	outcome := p.run(ctx, text, userID, log)

	evt := log.Info().
		Str("status", string(outcome.Status())).
		Dur("duration", time.Since(start))
	switch o := outcome.(type) {
	case *domain.Rejected:
		evt = evt.Str("stage", string(o.Stage)).Strs("reasons", o.Reasons)
	case *domain.Failed:
		evt = evt.Str("stage", string(o.Stage)).Str("error", o.Error)
	}
	evt.Msg("pipeline finished")

	return outcome
}

func (p *PipelineImpl) run(ctx context.Context, text, userID string, log zerolog.Logger) domain.Outcome {
	var intent domain.Intent
	if err := p.stage(ctx, domain.StageParse, log, func(ctx context.Context) error {
		var err error
		intent, err = p.parser.Parse(ctx, text)
		return err
	}); err != nil {
		return failed(domain.StageParse, err, nil)
	}

	var snapshot *domain.PortfolioSnapshot
	if err := p.stage(ctx, domain.StagePortfolio, log, func(ctx context.Context) error {
		var err error
		snapshot, err = p.portfolio.Snapshot(ctx, userID)
		if err == nil && snapshot == nil {
			err = fmt.Errorf("portfolio provider returned no snapshot")
		}
		return err
	}); err != nil {
		return failed(domain.StagePortfolio, err, &intent)
	}

	var riskVerdict domain.Verdict
	if err := p.stage(ctx, domain.StageRisk, log, func(context.Context) error {
		riskVerdict = p.risk.Evaluate(intent, *snapshot)
		return nil
	}); err != nil {
		return failed(domain.StageRisk, err, &intent)
	}
	if !riskVerdict.OK {
		return &domain.Rejected{
			Stage:   domain.StageRisk,
			Reasons: riskVerdict.Reasons,
			Message: "Risk check failed: " + strings.Join(riskVerdict.Reasons, "; "),
			Intent:  intent,
		}
	}

	var securityVerdict domain.Verdict
	if err := p.stage(ctx, domain.StageSecurity, log, func(context.Context) error {
		securityVerdict = p.security.Validate(intent)
		return nil
	}); err != nil {
		return failed(domain.StageSecurity, err, &intent)
	}
	if !securityVerdict.OK {
		return &domain.Rejected{
			Stage:   domain.StageSecurity,
			Reasons: securityVerdict.Reasons,
			Message: "Security validation failed: " + strings.Join(securityVerdict.Reasons, "; "),
			Intent:  intent,
		}
	}

	var result domain.ExecutionResult
	if err := p.stage(ctx, domain.StageExecute, log, func(ctx context.Context) error {
		result = p.executor.Execute(ctx, intent, userID)
		return nil
	}); err != nil {
		return failed(domain.StageExecute, err, &intent)
	}

	switch result.Status {
	case domain.ExecutionSkipped:
		return &domain.Failed{
			Stage:   domain.StageExecute,
			Error:   result.Message,
			Message: "Command was accepted but not executed",
			Intent:  &result.Intent,
		}
	case domain.ExecutionFailed:
		return &domain.Failed{
			Stage:   domain.StageExecute,
			Error:   result.Error,
			Message: result.Message,
			Intent:  &result.Intent,
		}
	case domain.ExecutionPending:
		if result.Challenge == nil {
			return failed(domain.StageExecute, fmt.Errorf("pending execution without a challenge"), &intent)
		}
		// Confirmation happens out of band; the auditor is not called.
		return &domain.PendingConfirmation{
			Challenge: *result.Challenge,
			Intent:    result.Intent,
			Message:   result.Message,
		}
	case domain.ExecutionCompleted:
	default:
		return failed(domain.StageExecute, fmt.Errorf("unknown execution status %q", result.Status), &intent)
	}

	var record domain.AuditRecord
	if err := p.stage(ctx, domain.StageAudit, log, func(ctx context.Context) error {
		var err error
		record, err = p.auditor.Audit(ctx, result.TransactionID)
		return err
	}); err != nil {
		return failed(domain.StageAudit, err, &intent)
	}

	return &domain.Audited{
		Record:  record,
		Intent:  result.Intent,
		Message: "Transaction executed and confirmed",
	}
}

// Check runs the read-only stages and reports both verdicts without
// short-circuiting. Nothing is executed.
func (p *PipelineImpl) Check(ctx context.Context, text, userID string) (*ports.CheckReport, error) {
	log := p.log.With().Str("user_id", userID).Logger()
	report := &ports.CheckReport{}

	if err := p.stage(ctx, domain.StageParse, log, func(ctx context.Context) error {
		var err error
		report.Intent, err = p.parser.Parse(ctx, text)
		return err
	}); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	if err := p.stage(ctx, domain.StagePortfolio, log, func(ctx context.Context) error {
		snap, err := p.portfolio.Snapshot(ctx, userID)
		if err != nil {
			return err
		}
		if snap == nil {
			return fmt.Errorf("portfolio provider returned no snapshot")
		}
		report.Portfolio = *snap
		return nil
	}); err != nil {
		return nil, fmt.Errorf("portfolio: %w", err)
	}

	if err := p.stage(ctx, domain.StageRisk, log, func(context.Context) error {
		report.Risk = p.risk.Evaluate(report.Intent, report.Portfolio)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("risk: %w", err)
	}

	if err := p.stage(ctx, domain.StageSecurity, log, func(context.Context) error {
		report.Security = p.security.Validate(report.Intent)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("security: %w", err)
	}

	return report, nil
}

// stage runs fn under the stage's retry policy. Cancellation is checked
// before and after: a result produced after the caller went away is dropped.
func (p *PipelineImpl) stage(ctx context.Context, stage domain.Stage, log zerolog.Logger, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cancelled before %s stage: %w", stage, err)
	}

	policy, ok := p.retry[stage]
	if !ok {
		policy = NoRetry()
	}

	start := time.Now()
	attempts := 0
	err := policy.Do(ctx, func(ctx context.Context) error {
		attempts++
		return protect(ctx, stage, fn)
	})
	if err == nil && ctx.Err() != nil {
		err = fmt.Errorf("cancelled during %s stage: %w", stage, ctx.Err())
	}

	evt := log.Debug()
	if err != nil {
		evt = log.Warn().Err(err)
	}
	evt.Str("stage", string(stage)).
		Int("attempts", attempts).
		Dur("duration", time.Since(start)).
		Msg("stage finished")

	return err
}

// protect converts a panic in fn into an error.
func protect(ctx context.Context, stage domain.Stage, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s stage panicked: %v", stage, r)
		}
	}()
	return fn(ctx)
}

func failed(stage domain.Stage, err error, intent *domain.Intent) *domain.Failed {
	return &domain.Failed{
		Stage:   stage,
		Error:   err.Error(),
		Message: fmt.Sprintf("Command failed during the %s stage", stage),
		Intent:  intent,
	}
}
