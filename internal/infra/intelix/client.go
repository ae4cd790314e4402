package intelix

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/bryanwahyu/automaton-filecheck/internal/application"
	"github.com/bryanwahyu/automaton-filecheck/internal/domain/filecheck"
)

const (
	DefaultLookupURL  = "https://de.api.labs.sophos.com/lookup/files/v1/"
	DefaultStaticURL  = "https://de.api.labs.sophos.com/analysis/file/static/v1/"
	DefaultDynamicURL = "https://de.api.labs.sophos.com/analysis/file/dynamic/v1/"

	// DefaultPollInterval and DefaultMaxPolls bound a deferred job to about 20 minutes,
	// above the service's own 15 minute dynamic analysis budget.
	DefaultPollInterval = 5 * time.Second
	DefaultMaxPolls     = 240

	maxBodyBytes = 16 << 20
)

// Config points the client at the three tier endpoints.
// Analysis URLs end with a slash; poll URLs are "<url>reports/<jobId>".
type Config struct {
	LookupURL    string
	StaticURL    string
	DynamicURL   string
	PollInterval time.Duration
	MaxPolls     int
}

func (c Config) withDefaults() Config {
	if c.LookupURL == "" {
		c.LookupURL = DefaultLookupURL
	}
	if c.StaticURL == "" {
		c.StaticURL = DefaultStaticURL
	}
	if c.DynamicURL == "" {
		c.DynamicURL = DefaultDynamicURL
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxPolls <= 0 {
		c.MaxPolls = DefaultMaxPolls
	}
	return c
}

// SleepFunc waits d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Client calls the reputation, static and dynamic analysis endpoints.
type Client struct {
	session *Session
	http    *http.Client
	cfg     Config
	sleep   SleepFunc
	log     *slog.Logger
}

var _ filecheck.Analyzer = (*Client)(nil)

type Option func(*Client)

// WithSleep replaces the wait used between polls. The default is the wall clock.
func WithSleep(fn SleepFunc) Option { return func(c *Client) { c.sleep = fn } }

// WithLogger sets the logger used for poll progress.
func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.log = l } }

func NewClient(session *Session, httpClient *http.Client, cfg Config, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		session: session,
		http:    httpClient,
		cfg:     cfg.withDefaults(),
		sleep:   application.SystemClock{}.Sleep,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ReputationLookup asks for the reputation of a SHA-256 digest.
func (c *Client) ReputationLookup(ctx context.Context, sha256 string) (filecheck.AnalysisResult, error) {
	token, err := c.session.EnsureAuthenticated(ctx)
	if err != nil {
		return filecheck.AnalysisResult{}, err
	}

	status, body, err := c.get(ctx, c.cfg.LookupURL+sha256, token)
	if err != nil {
		return filecheck.AnalysisResult{}, fmt.Errorf("reputation lookup: %w", err)
	}
	if status != http.StatusOK {
		return filecheck.AnalysisResult{}, &filecheck.AnalysisError{
			Tier: filecheck.TierReputation, StatusCode: status, Body: string(body),
		}
	}

	var out struct {
		ReputationScore *int `json:"reputationScore"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.ReputationScore == nil {
		return filecheck.AnalysisResult{}, &filecheck.AnalysisError{
			Tier: filecheck.TierReputation, StatusCode: status, Reason: "missing reputationScore", Body: string(body),
		}
	}
	return filecheck.AnalysisResult{
		Tier:       filecheck.TierReputation,
		Score:      *out.ReputationScore,
		RawPayload: json.RawMessage(body),
	}, nil
}

// StaticAnalysis uploads the file for static analysis.
func (c *Client) StaticAnalysis(ctx context.Context, path string) (filecheck.AnalysisResult, error) {
	return c.analyze(ctx, filecheck.TierStatic, c.cfg.StaticURL, path)
}

// DynamicAnalysis uploads the file for sandboxed execution.
func (c *Client) DynamicAnalysis(ctx context.Context, path string) (filecheck.AnalysisResult, error) {
	return c.analyze(ctx, filecheck.TierDynamic, c.cfg.DynamicURL, path)
}

func (c *Client) analyze(ctx context.Context, tier filecheck.Tier, baseURL, path string) (filecheck.AnalysisResult, error) {
	token, err := c.session.EnsureAuthenticated(ctx)
	if err != nil {
		return filecheck.AnalysisResult{}, err
	}

	status, body, err := c.upload(ctx, baseURL, path, token)
	if err != nil {
		return filecheck.AnalysisResult{}, fmt.Errorf("%s analysis: %w", tier, err)
	}

	switch status {
	case http.StatusOK:
		return parseReport(tier, status, "", body)
	case http.StatusAccepted:
		var accepted struct {
			JobID string `json:"jobId"`
		}
		if err := json.Unmarshal(body, &accepted); err != nil || accepted.JobID == "" {
			return filecheck.AnalysisResult{}, &filecheck.AnalysisError{
				Tier: tier, StatusCode: status, Reason: "accepted without jobId", Body: string(body),
			}
		}
		job := filecheck.AnalysisJob{
			JobID:   accepted.JobID,
			Tier:    tier,
			PollURL: baseURL + "reports/" + accepted.JobID,
		}
		return c.poll(ctx, job, token)
	default:
		return filecheck.AnalysisResult{}, &filecheck.AnalysisError{Tier: tier, StatusCode: status, Body: string(body)}
	}
}

// poll waits for a deferred job: 200 resolves it, 202 keeps waiting,
// anything else aborts. After MaxPolls attempts the job is abandoned.
func (c *Client) poll(ctx context.Context, job filecheck.AnalysisJob, token string) (filecheck.AnalysisResult, error) {
	for attempt := 1; attempt <= c.cfg.MaxPolls; attempt++ {
		if err := c.sleep(ctx, c.cfg.PollInterval); err != nil {
			return filecheck.AnalysisResult{}, err
		}

		status, body, err := c.get(ctx, job.PollURL, token)
		if err != nil {
			return filecheck.AnalysisResult{}, fmt.Errorf("%s poll job %s: %w", job.Tier, job.JobID, err)
		}

		switch status {
		case http.StatusOK:
			return parseReport(job.Tier, status, job.JobID, body)
		case http.StatusAccepted:
			c.log.Debug("analysis job in progress", "tier", job.Tier, "job_id", job.JobID, "attempt", attempt)
		default:
			return filecheck.AnalysisResult{}, &filecheck.AnalysisError{
				Tier: job.Tier, StatusCode: status, JobID: job.JobID, Body: string(body),
			}
		}
	}
	return filecheck.AnalysisResult{}, fmt.Errorf("%w: %s job %s unresolved after %d polls",
		filecheck.ErrAnalysisTimeout, job.Tier, job.JobID, c.cfg.MaxPolls)
}

func parseReport(tier filecheck.Tier, status int, jobID string, body []byte) (filecheck.AnalysisResult, error) {
	var out struct {
		Report struct {
			Score *int `json:"score"`
		} `json:"report"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.Report.Score == nil {
		return filecheck.AnalysisResult{}, &filecheck.AnalysisError{
			Tier: tier, StatusCode: status, JobID: jobID, Reason: "missing report.score", Body: string(body),
		}
	}
	return filecheck.AnalysisResult{Tier: tier, Score: *out.Report.Score, RawPayload: json.RawMessage(body)}, nil
}

func (c *Client) get(ctx context.Context, url, token string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", token)
	return c.do(req)
}

// upload streams the file as the "file" part of a multipart form.
func (c *Client) upload(ctx context.Context, url, path, token string) (int, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: open %s: %w", filecheck.ErrIO, path, err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	defer pr.Close()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		if err != nil {
			err = fmt.Errorf("%w: read %s: %w", filecheck.ErrIO, path, err)
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}
