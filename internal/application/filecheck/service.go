package filecheck

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/bryanwahyu/automaton-filecheck/internal/application"
	domain "github.com/bryanwahyu/automaton-filecheck/internal/domain/filecheck"
)

// Service handles newly created objects: download, classify, route, audit.
// It is safe for concurrent use; each object is handled independently.
type Service struct {
	Engine  *Engine
	Router  *VerdictRouter
	Store   domain.ObjectStore
	Repo    domain.Repository // optional
	Clock   application.Clock
	Logger  *slog.Logger
	TempDir string
}

// DecodeKey undoes the form encoding storage notifications apply to object keys.
func DecodeKey(raw string) (string, error) {
	key, err := url.QueryUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("decode object key %q: %w", raw, err)
	}
	return key, nil
}

// HandleObjectCreated checks one object. On any classification error the object
// is left where it is and the record is stored with StatusError.
func (s *Service) HandleObjectCreated(ctx context.Context, obj domain.ObjectRef) (*domain.Classification, error) {
	start := s.Clock.Now()
	rec := &domain.Classification{
		ID:        domain.ClassificationID(uuid.New().String()),
		Bucket:    obj.Bucket,
		Key:       obj.Key,
		Status:    domain.StatusRunning,
		Action:    domain.ActionNone,
		StartedAt: start,
	}
	log := s.logger().With("id", rec.ID, "bucket", obj.Bucket, "key", obj.Key)

	if err := s.save(ctx, rec); err != nil {
		return rec, err
	}

	localPath := filepath.Join(s.tempDir(), localName(obj.Key))
	defer func() {
		if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
			log.Warn("failed to remove local file", "path", localPath, "error", err)
		}
	}()

	if err := s.Store.Download(ctx, obj, localPath); err != nil {
		return s.finishWithError(ctx, rec, log, fmt.Errorf("download %s/%s: %w", obj.Bucket, obj.Key, err))
	}

	rep, err := s.Engine.Classify(ctx, localPath, LogReporter{Logger: log})
	rec.SHA256 = rep.SHA256
	rec.Results = rep.Results
	if err != nil {
		return s.finishWithError(ctx, rec, log, err)
	}

	verdict := rep.Verdict
	rec.Verdict = &verdict
	rec.Status = domain.StatusClean
	if verdict.IsMalware {
		rec.Status = domain.StatusMalicious
		log.Warn("file contains malware, removing upload")
	} else {
		log.Info("file is clean, copying to output bucket", "output_bucket", s.Router.OutputBucket)
	}

	action, err := s.Router.Route(ctx, obj, verdict)
	rec.Action = action
	if err != nil {
		return s.finishWithError(ctx, rec, log, err)
	}

	rec.DurationMS = s.Clock.Now().Sub(start).Milliseconds()
	if err := s.save(ctx, rec); err != nil {
		return rec, err
	}
	log.Info("classification finished", "status", rec.Status, "action", rec.Action, "duration_ms", rec.DurationMS)
	return rec, nil
}

// Latest returns the most recent classifications.
func (s *Service) Latest(ctx context.Context, limit int) ([]*domain.Classification, error) {
	if s.Repo == nil {
		return []*domain.Classification{}, nil
	}
	return s.Repo.Latest(ctx, limit)
}

// Get returns one classification by id.
func (s *Service) Get(ctx context.Context, id domain.ClassificationID) (*domain.Classification, error) {
	if s.Repo == nil {
		return nil, domain.ErrNotFound
	}
	return s.Repo.Get(ctx, id)
}

// Summary counts classifications of the last sinceDays days.
func (s *Service) Summary(ctx context.Context, sinceDays int) (domain.Summary, error) {
	if s.Repo == nil {
		return domain.Summary{}, nil
	}
	return s.Repo.Summary(ctx, sinceDays)
}

func (s *Service) finishWithError(ctx context.Context, rec *domain.Classification, log *slog.Logger, cause error) (*domain.Classification, error) {
	rec.Status = domain.StatusError
	rec.Error = cause.Error()
	rec.DurationMS = s.Clock.Now().Sub(rec.StartedAt).Milliseconds()
	log.Error("classification failed", "error", cause)
	// keep the audit row even when the check failed; the cause wins over a save error
	if err := s.save(context.WithoutCancel(ctx), rec); err != nil {
		log.Error("failed to save classification", "error", err)
	}
	return rec, cause
}

func (s *Service) save(ctx context.Context, rec *domain.Classification) error {
	if s.Repo == nil {
		return nil
	}
	if err := s.Repo.Save(ctx, rec); err != nil {
		return fmt.Errorf("save classification %s: %w", rec.ID, err)
	}
	return nil
}

// maxExtLen bounds the key suffix kept on the download so the name stays
// far below the 255 byte file name limit.
const maxExtLen = 16

// localName is a unique temp file name for key, keeping a short extension.
func localName(key string) string {
	name := uuid.New().String()
	ext := filepath.Ext(strings.ReplaceAll(key, "/", ""))
	if len(ext) > 1 && len(ext) <= maxExtLen && !strings.ContainsAny(ext, "\\\x00") {
		name += ext
	}
	return name
}

func (s *Service) tempDir() string {
	if s.TempDir != "" {
		return s.TempDir
	}
	return os.TempDir()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
