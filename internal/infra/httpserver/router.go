package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appanalyst "github.com/bryanwahyu/automaton-filecheck/internal/application/analyst"
	appfilecheck "github.com/bryanwahyu/automaton-filecheck/internal/application/filecheck"
	domanalyst "github.com/bryanwahyu/automaton-filecheck/internal/domain/analyst"
	domain "github.com/bryanwahyu/automaton-filecheck/internal/domain/filecheck"
	"github.com/bryanwahyu/automaton-filecheck/internal/middleware"
)

// Classifier is the part of the file check service the router drives.
type Classifier interface {
	HandleObjectCreated(ctx context.Context, obj domain.ObjectRef) (*domain.Classification, error)
	Latest(ctx context.Context, limit int) ([]*domain.Classification, error)
	Get(ctx context.Context, id domain.ClassificationID) (*domain.Classification, error)
	Summary(ctx context.Context, sinceDays int) (domain.Summary, error)
}

// Analyst explains stored classifications.
type Analyst interface {
	ExplainAndStore(ctx context.Context, id domain.ClassificationID) (*domanalyst.Analysis, error)
	ListAnalyses(ctx context.Context, page, pageSize int) ([]*domanalyst.Analysis, error)
}

var (
	_ Classifier = (*appfilecheck.Service)(nil)
	_ Analyst    = (*appanalyst.Service)(nil)
)

type Options struct {
	APIKeys        []string
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
	HealthCheckers map[string]middleware.HealthChecker
	Logger         *slog.Logger
}

type Router struct {
	http.Handler

	files    Classifier
	analyst  Analyst
	log      *slog.Logger
	inflight sync.WaitGroup
}

// errBadRequest marks caller mistakes answered with 400.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func NewRouter(files Classifier, analyst Analyst, opts Options) *Router {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	r := &Router{files: files, analyst: analyst, log: log}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))
	mux.Use(middleware.RequestLogger(log))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.APIKeyAuth(opts.APIKeys))
	if opts.RateLimitRPS > 0 {
		mux.Use(middleware.RateLimitMiddleware(opts.RateLimitRPS, opts.RateLimitBurst))
	}

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/healthz", middleware.HealthHandler(opts.HealthCheckers))
	mux.Get("/readyz", middleware.ReadinessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/events/object-created", r.wrap(r.handleObjectCreated))
		rt.Get("/classifications/latest", r.wrap(r.handleLatest))
		rt.Get("/classifications/{id}", r.wrap(r.handleGet))
		rt.Post("/classifications/{id}/explain", r.wrap(r.handleExplain))
		rt.Get("/summary", r.wrap(r.handleSummary))
		rt.Get("/analyses", r.wrap(r.handleAnalyses))
	})

	r.Handler = mux
	return r
}

// Wait blocks until every queued classification has finished or ctx is done.
func (r *Router) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			switch {
			case errors.Is(err, errBadRequest):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, domain.ErrNotFound):
				http.Error(w, "not found", http.StatusNotFound)
			case errors.Is(err, domanalyst.ErrQuotaExceeded):
				http.Error(w, "ai quota exceeded", http.StatusTooManyRequests)
			default:
				r.log.Error("request failed", "method", req.Method, "path", req.URL.Path, "err", err)
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// bucketNotification is the subset of an S3/MinIO event notification we read.
type bucketNotification struct {
	Records []struct {
		EventName string `json:"eventName"`
		S3        struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// POST /v1/events/object-created
func (r *Router) handleObjectCreated(w http.ResponseWriter, req *http.Request) error {
	var body bucketNotification
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, 1<<20)).Decode(&body); err != nil {
		return badRequest("decode notification: %v", err)
	}
	if len(body.Records) == 0 {
		return badRequest("notification has no records")
	}

	objs := make([]domain.ObjectRef, 0, len(body.Records))
	for i, rec := range body.Records {
		key, err := appfilecheck.DecodeKey(rec.S3.Object.Key)
		if err != nil {
			return badRequest("record %d: %v", i, err)
		}
		bucket := middleware.SanitizeString(rec.S3.Bucket.Name)
		if err := middleware.ValidateBucket(bucket); err != nil {
			return badRequest("record %d: %v", i, err)
		}
		if err := middleware.ValidateObjectKey(key); err != nil {
			return badRequest("record %d: %v", i, err)
		}
		objs = append(objs, domain.ObjectRef{Bucket: bucket, Key: key})
	}

	for _, obj := range objs {
		r.queue(obj)
	}

	return writeJSON(w, http.StatusAccepted, map[string]any{
		"status":   "queued",
		"objects":  objs,
		"queuedAt": time.Now(),
	})
}

// queue classifies obj in the background, detached from the request.
func (r *Router) queue(obj domain.ObjectRef) {
	middleware.ClassificationStarted()
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()

		status := domain.StatusError
		rec, err := r.files.HandleObjectCreated(context.Background(), obj)
		if rec != nil {
			status = rec.Status
		}
		middleware.ClassificationFinished(status)
		if err != nil {
			r.log.Error("background classification failed", "bucket", obj.Bucket, "key", obj.Key, "err", err)
		}
	}()
}

// GET /v1/classifications/latest?limit=20
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.files.Latest(req.Context(), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/classifications/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateClassificationID(id); err != nil {
		return badRequest("%v", err)
	}
	c, err := r.files.Get(req.Context(), domain.ClassificationID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, c)
}

// POST /v1/classifications/{id}/explain
func (r *Router) handleExplain(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateClassificationID(id); err != nil {
		return badRequest("%v", err)
	}
	if r.analyst == nil {
		return writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "ai explainer is not configured"})
	}
	a, err := r.analyst.ExplainAndStore(req.Context(), domain.ClassificationID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, a)
}

// GET /v1/summary?days=7
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	days, _ := strconv.Atoi(req.URL.Query().Get("days"))
	days = middleware.ValidateDays(days)
	s, err := r.files.Summary(req.Context(), days)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"days":      days,
		"total":     s.Total,
		"malicious": s.Malicious,
		"clean":     s.Clean,
		"errors":    s.Errors,
	})
}

// GET /v1/analyses?page=&page_size=
func (r *Router) handleAnalyses(w http.ResponseWriter, req *http.Request) error {
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))
	if r.analyst == nil {
		return writeJSON(w, http.StatusOK, []*domanalyst.Analysis{})
	}
	list, err := r.analyst.ListAnalyses(req.Context(), page, middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}
