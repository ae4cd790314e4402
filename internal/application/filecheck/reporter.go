package filecheck

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	domain "github.com/bryanwahyu/automaton-filecheck/internal/domain/filecheck"
)

// Reporter observes the escalation path. Result is called before the engine
// moves to the next tier so the path can be audited even if a later tier fails.
type Reporter interface {
	Stage(tier domain.Tier)
	Result(res domain.AnalysisResult)
	Decided(v domain.Verdict)
}

type nopReporter struct{}

func (nopReporter) Stage(domain.Tier)            {}
func (nopReporter) Result(domain.AnalysisResult) {}
func (nopReporter) Decided(domain.Verdict)       {}

// ConsoleReporter prints the escalation path for a human operator.
type ConsoleReporter struct {
	W io.Writer
}

func (r ConsoleReporter) Stage(tier domain.Tier) {
	switch tier {
	case domain.TierReputation:
		fmt.Fprintln(r.W, "Running a cloud lookup...")
	default:
		fmt.Fprintf(r.W, "Proceeding to %s analysis...\n", tier)
	}
}

func (r ConsoleReporter) Result(res domain.AnalysisResult) {
	fmt.Fprintf(r.W, "Score: %d\n", res.Score)
	fmt.Fprintf(r.W, "Raw response: \n%s\n", indentJSON(res.RawPayload))
}

func (r ConsoleReporter) Decided(v domain.Verdict) {
	if v.IsMalware {
		fmt.Fprintf(r.W, "File is malicious based on %s!!!\n", v.DecidedBy.Label())
		return
	}
	fmt.Fprintf(r.W, "File is clean based on %s.\n", v.DecidedBy.Label())
}

// LogReporter writes the escalation path as structured log lines.
type LogReporter struct {
	Logger *slog.Logger
}

func (r LogReporter) Stage(tier domain.Tier) {
	r.Logger.Info("analysis stage", "tier", tier)
}

func (r LogReporter) Result(res domain.AnalysisResult) {
	r.Logger.Info("analysis result", "tier", res.Tier, "score", res.Score, "raw", string(res.RawPayload))
}

func (r LogReporter) Decided(v domain.Verdict) {
	r.Logger.Info("verdict", "malware", v.IsMalware, "decided_by", v.DecidedBy, "score", v.Score)
}

func indentJSON(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "    "); err != nil {
		return string(raw)
	}
	return buf.String()
}
