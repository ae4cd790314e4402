package filecheck

import (
	"context"
	"fmt"

	domain "github.com/bryanwahyu/automaton-filecheck/internal/domain/filecheck"
)

// VerdictRouter moves a checked object: malware is deleted from its origin and
// never copied; clean objects are copied to the output bucket, then deleted from origin.
type VerdictRouter struct {
	Store        domain.ObjectStore
	OutputBucket string
}

func (r *VerdictRouter) Route(ctx context.Context, obj domain.ObjectRef, v domain.Verdict) (domain.Action, error) {
	if v.IsMalware {
		if err := r.Store.Delete(ctx, obj); err != nil {
			return domain.ActionNone, fmt.Errorf("delete malware %s/%s: %w", obj.Bucket, obj.Key, err)
		}
		return domain.ActionDeleted, nil
	}

	if r.OutputBucket == "" {
		return domain.ActionNone, fmt.Errorf("%w: output bucket is not set", domain.ErrConfiguration)
	}
	if err := r.Store.Copy(ctx, obj, r.OutputBucket); err != nil {
		return domain.ActionNone, fmt.Errorf("copy %s/%s to %s: %w", obj.Bucket, obj.Key, r.OutputBucket, err)
	}
	if err := r.Store.Delete(ctx, obj); err != nil {
		return domain.ActionNone, fmt.Errorf("delete origin %s/%s: %w", obj.Bucket, obj.Key, err)
	}
	return domain.ActionPromoted, nil
}
