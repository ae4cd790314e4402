package filecheck

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/automaton-filecheck/internal/domain/filecheck"
)

func TestVerdictRouter_malwareNeverCopied(t *testing.T) {
	store := &fakeStore{}
	r := &VerdictRouter{Store: store, OutputBucket: "out"}

	action, err := r.Route(context.Background(), domain.ObjectRef{Bucket: "in", Key: "k"}, domain.Verdict{IsMalware: true})
	require.NoError(t, err)
	assert.Equal(t, domain.ActionDeleted, action)
	assert.Equal(t, []string{"delete in/k"}, store.operations())
}

func TestVerdictRouter_cleanCopiesThenDeletes(t *testing.T) {
	store := &fakeStore{}
	r := &VerdictRouter{Store: store, OutputBucket: "out"}

	action, err := r.Route(context.Background(), domain.ObjectRef{Bucket: "in", Key: "k"}, domain.Verdict{})
	require.NoError(t, err)
	assert.Equal(t, domain.ActionPromoted, action)
	assert.Equal(t, []string{"copy in/k -> out", "delete in/k"}, store.operations())
}

func TestVerdictRouter_copyFailureKeepsOrigin(t *testing.T) {
	store := &fakeStore{copyErr: errors.New("denied")}
	r := &VerdictRouter{Store: store, OutputBucket: "out"}

	_, err := r.Route(context.Background(), domain.ObjectRef{Bucket: "in", Key: "k"}, domain.Verdict{})
	require.Error(t, err)
	assert.Equal(t, []string{"copy in/k -> out"}, store.operations())
}

func TestVerdictRouter_missingOutputBucket(t *testing.T) {
	store := &fakeStore{}
	r := &VerdictRouter{Store: store}

	_, err := r.Route(context.Background(), domain.ObjectRef{Bucket: "in", Key: "k"}, domain.Verdict{})
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
	assert.Empty(t, store.operations())
}
