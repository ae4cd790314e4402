package filecheck

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domain "github.com/bryanwahyu/automaton-filecheck/internal/domain/filecheck"
)

// TracerName names the tracer Engine falls back to when none is set.
const TracerName = "github.com/bryanwahyu/automaton-filecheck/internal/application/filecheck"

// Engine walks the tiers in order and stops at the first decisive score.
// Tiers are never skipped, retried or run in parallel.
type Engine struct {
	Analyzer domain.Analyzer
	Logger   *slog.Logger
	Tracer   trace.Tracer
}

// Report is what one classification produced. Results holds every tier that
// answered, also when Classify returns an error.
type Report struct {
	SHA256  string                  `json:"sha256"`
	Verdict domain.Verdict          `json:"verdict"`
	Results []domain.AnalysisResult `json:"results"`
}

// Classify returns the verdict for the file at path. A nil reporter is allowed.
func (e *Engine) Classify(ctx context.Context, path string, reporter Reporter) (Report, error) {
	if reporter == nil {
		reporter = nopReporter{}
	}
	ctx, span := e.tracer().Start(ctx, "filecheck.classify")
	defer span.End()

	var rep Report
	sum, err := domain.Digest(path)
	if err != nil {
		return rep, fail(span, err)
	}
	rep.SHA256 = sum
	span.SetAttributes(attribute.String("file.sha256", sum))

	for _, tier := range domain.Tiers {
		reporter.Stage(tier)
		res, err := e.run(ctx, tier, path, sum)
		if err != nil {
			return rep, fail(span, err)
		}
		rep.Results = append(rep.Results, res)
		reporter.Result(res)

		outcome := domain.Decide(tier, res.Score)
		e.logger().Debug("tier decided", "tier", tier, "score", res.Score, "outcome", outcome)
		if outcome == domain.OutcomeEscalate {
			continue
		}
		rep.Verdict = domain.Verdict{
			IsMalware: outcome == domain.OutcomeMalicious,
			DecidedBy: tier,
			Score:     res.Score,
		}
		span.SetAttributes(
			attribute.Bool("verdict.malware", rep.Verdict.IsMalware),
			attribute.String("verdict.tier", string(tier)),
		)
		reporter.Decided(rep.Verdict)
		return rep, nil
	}
	// the dynamic tier always decides
	return rep, fail(span, fmt.Errorf("no verdict after %s tier", domain.TierDynamic))
}

func (e *Engine) run(ctx context.Context, tier domain.Tier, path, sum string) (domain.AnalysisResult, error) {
	ctx, span := e.tracer().Start(ctx, "filecheck.tier",
		trace.WithAttributes(attribute.String("tier", string(tier))))
	defer span.End()

	var (
		res domain.AnalysisResult
		err error
	)
	switch tier {
	case domain.TierReputation:
		res, err = e.Analyzer.ReputationLookup(ctx, sum)
	case domain.TierStatic:
		res, err = e.Analyzer.StaticAnalysis(ctx, path)
	case domain.TierDynamic:
		res, err = e.Analyzer.DynamicAnalysis(ctx, path)
	default:
		err = fmt.Errorf("unknown tier: %s", tier)
	}
	if err != nil {
		return res, fail(span, err)
	}
	span.SetAttributes(attribute.Int("score", res.Score))
	return res, nil
}

func (e *Engine) tracer() trace.Tracer {
	if e.Tracer != nil {
		return e.Tracer
	}
	return otel.Tracer(TracerName)
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
