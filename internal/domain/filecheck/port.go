package filecheck

import "context"

// Analyzer port (remote analysis service, one call per tier)
type Analyzer interface {
	ReputationLookup(ctx context.Context, sha256 string) (AnalysisResult, error)
	StaticAnalysis(ctx context.Context, path string) (AnalysisResult, error)
	DynamicAnalysis(ctx context.Context, path string) (AnalysisResult, error)
}

// ObjectStore port (storage collaborator used by the verdict router)
type ObjectStore interface {
	Download(ctx context.Context, obj ObjectRef, localPath string) error
	Copy(ctx context.Context, src ObjectRef, dstBucket string) error
	Delete(ctx context.Context, obj ObjectRef) error
}

// Repository port (audit persistence)
type Repository interface {
	Save(ctx context.Context, c *Classification) error
	Get(ctx context.Context, id ClassificationID) (*Classification, error)
	Latest(ctx context.Context, limit int) ([]*Classification, error)
	Summary(ctx context.Context, sinceDays int) (Summary, error)
}
