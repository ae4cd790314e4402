// Package db holds the row mapping shared by the SQL repositories.
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bryanwahyu/automaton-filecheck/internal/domain/filecheck"
)

// ClassificationColumns is the select list every repository uses, in Scan order.
const ClassificationColumns = `id, bucket, object_key, sha256, status, is_malware, decided_by, score,
       results_json, action, error_message, started_at, duration_ms`

// Row is satisfied by *sql.Row and *sql.Rows.
type Row interface {
	Scan(dest ...any) error
}

// ClassificationArgs flattens c into insert arguments, in ClassificationColumns order.
func ClassificationArgs(c *filecheck.Classification) ([]any, error) {
	results := c.Results
	if results == nil {
		results = []filecheck.AnalysisResult{}
	}
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("encode results: %w", err)
	}

	var malware, decidedBy, score any
	if c.Verdict != nil {
		malware = c.Verdict.IsMalware
		decidedBy = string(c.Verdict.DecidedBy)
		score = c.Verdict.Score
	}
	return []any{
		string(c.ID), StringOrDash(c.Bucket), StringOrDash(c.Key), c.SHA256, string(c.Status),
		malware, decidedBy, score,
		string(resultsJSON), string(c.Action), c.Error, c.StartedAt, c.DurationMS,
	}, nil
}

// ScanClassification reads one row selected with ClassificationColumns.
func ScanClassification(row Row) (*filecheck.Classification, error) {
	var (
		c         filecheck.Classification
		malware   sql.NullBool
		decidedBy sql.NullString
		score     sql.NullInt64
		results   string
	)
	if err := row.Scan(
		&c.ID, &c.Bucket, &c.Key, &c.SHA256, &c.Status,
		&malware, &decidedBy, &score,
		&results, &c.Action, &c.Error, &c.StartedAt, &c.DurationMS,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, filecheck.ErrNotFound
		}
		return nil, err
	}
	if malware.Valid {
		c.Verdict = &filecheck.Verdict{
			IsMalware: malware.Bool,
			DecidedBy: filecheck.Tier(decidedBy.String),
			Score:     int(score.Int64),
		}
	}
	if strings.TrimSpace(results) != "" {
		if err := json.Unmarshal([]byte(results), &c.Results); err != nil {
			return nil, fmt.Errorf("decode results of %s: %w", c.ID, err)
		}
	}
	return &c, nil
}

// StringOrDash returns "-" when the input is empty/whitespace
func StringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// JSONOrEmpty keeps result_json columns valid JSON.
func JSONOrEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "{}"
	}
	var js any
	if json.Unmarshal([]byte(s), &js) != nil {
		b, _ := json.Marshal(map[string]string{"raw": s})
		return string(b)
	}
	return s
}

// PageOffset normalises page/pageSize into LIMIT and OFFSET values.
func PageOffset(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return pageSize, (page - 1) * pageSize
}
