package filecheck

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration means a required setting (the credential) is missing.
	ErrConfiguration = errors.New("configuration error")
	// ErrAuthentication means the credential exchange failed.
	ErrAuthentication = errors.New("authentication error")
	// ErrIO means the file under check could not be opened or read.
	ErrIO = errors.New("io error")
	// ErrAnalysis means an analysis call or its poll returned an unexpected status or body.
	ErrAnalysis = errors.New("analysis error")
	// ErrAnalysisTimeout means a deferred job did not resolve within the poll budget.
	ErrAnalysisTimeout = errors.New("analysis timeout")
	// ErrNotFound is returned by repositories for unknown ids.
	ErrNotFound = errors.New("not found")
)

// AnalysisError carries the protocol details of a failed tier call.
type AnalysisError struct {
	Tier       Tier
	StatusCode int
	JobID      string
	Reason     string
	Body       string
}

func (e *AnalysisError) Error() string {
	msg := fmt.Sprintf("%s analysis failed: status=%d", e.Tier, e.StatusCode)
	if e.JobID != "" {
		msg += " job=" + e.JobID
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *AnalysisError) Unwrap() error { return ErrAnalysis }
