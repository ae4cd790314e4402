package analyst

import "time"

// AnalysisID identifier type
type AnalysisID string

// Analysis is an AI explanation of one classification, stored for auditing and retrieval
type Analysis struct {
	ID               AnalysisID `json:"id"`
	ClassificationID string     `json:"classification_id"`
	Result           string     `json:"result"` // JSON string from AI
	CreatedAt        time.Time  `json:"created_at"`
}
