package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a senior malware analyst reviewing the audit record of an automated file check.
The check escalates through three tiers: a reputation lookup by SHA-256, static analysis and dynamic
(sandbox) analysis. Scores range 0-100 and lower means more suspicious. Below 20 is malicious;
a reputation score of 70 or more is clean; a static score above 70 is clean; the dynamic tier is final.
You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below.
Do not include code fences.

Requirements:
- Output must be a single JSON object.
- verdict is "malicious", "clean" or "indeterminate" (when the record has an error and no verdict).
- confidence is one of: high, medium, low.
- reasons is an array of short strings that cite the tier and score they rely on.

Schema (example with empty values):
{
  "classification_id": "<string>",
  "verdict": "<malicious|clean|indeterminate>",
  "confidence": "<high|medium|low>",
  "reasons": ["<string>"],
  "advice": "<string>"
}`
}

// GetUserPrompt wraps the classification record.
func GetUserPrompt(document string) string {
	return fmt.Sprintf("Explain this file check and respond with the JSON per schema.\nRecord:\n%s", document)
}

// Explanation matches the schema requested by the system prompt.
type Explanation struct {
	ClassificationID string   `json:"classification_id"`
	Verdict          string   `json:"verdict"`
	Confidence       string   `json:"confidence"`
	Reasons          []string `json:"reasons"`
	Advice           string   `json:"advice"`
}

// ParseExplanation validates a model answer against the schema.
func ParseExplanation(raw string) (Explanation, error) {
	var e Explanation
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &e); err != nil {
		return Explanation{}, fmt.Errorf("explanation is not valid json: %w", err)
	}
	switch e.Verdict {
	case "malicious", "clean", "indeterminate":
	default:
		return Explanation{}, fmt.Errorf("explanation has unknown verdict %q", e.Verdict)
	}
	return e, nil
}
