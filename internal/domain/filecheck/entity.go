package filecheck

import (
	"encoding/json"
	"time"
)

// Tier is one of the escalating analysis stages.
type Tier string

const (
	TierReputation Tier = "reputation"
	TierStatic     Tier = "static"
	TierDynamic    Tier = "dynamic"
)

// Tiers in the order the engine walks them.
var Tiers = []Tier{TierReputation, TierStatic, TierDynamic}

// Label is the human name printed next to a decision.
func (t Tier) Label() string {
	switch t {
	case TierReputation:
		return "Cloud lookup"
	case TierStatic:
		return "Static Analysis"
	case TierDynamic:
		return "Dynamic Analysis"
	default:
		return string(t)
	}
}

// AnalysisRequest targets a tier with either a content hash (reputation) or a file path.
type AnalysisRequest struct {
	Target string `json:"target"`
	Tier   Tier   `json:"tier"`
}

// AnalysisJob exists only while a deferred request is being polled.
type AnalysisJob struct {
	JobID   string `json:"job_id"`
	Tier    Tier   `json:"tier"`
	PollURL string `json:"poll_url"`
}

// AnalysisResult is the outcome of one completed request or job.
type AnalysisResult struct {
	Tier       Tier            `json:"tier"`
	Score      int             `json:"score"`
	RawPayload json.RawMessage `json:"raw_payload,omitempty"`
}

// Verdict is the final decision for one file.
type Verdict struct {
	IsMalware bool `json:"is_malware"`
	DecidedBy Tier `json:"decided_by"`
	Score     int  `json:"score"`
}

// ObjectRef locates an object in the storage collaborator.
type ObjectRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// ClassificationID identifier type
type ClassificationID string

// Status enum
type Status string

const (
	StatusRunning   Status = "running"
	StatusMalicious Status = "malicious"
	StatusClean     Status = "clean"
	StatusError     Status = "error"
)

// Action taken by the verdict router.
type Action string

const (
	ActionNone     Action = "none"
	ActionDeleted  Action = "deleted"
	ActionPromoted Action = "promoted"
)

// Classification is the audit record of one file check.
type Classification struct {
	ID         ClassificationID `json:"id"`
	Bucket     string           `json:"bucket"`
	Key        string           `json:"key"`
	SHA256     string           `json:"sha256,omitempty"`
	Status     Status           `json:"status"`
	Verdict    *Verdict         `json:"verdict,omitempty"`
	Results    []AnalysisResult `json:"results"`
	Action     Action           `json:"action"`
	Error      string           `json:"error,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	DurationMS int64            `json:"duration_ms"`
}

// Summary aggregates classifications over a window.
type Summary struct {
	Total     int `json:"total"`
	Malicious int `json:"malicious"`
	Clean     int `json:"clean"`
	Errors    int `json:"errors"`
}
