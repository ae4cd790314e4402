package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSONOrEmpty(t *testing.T) {
	assert.Equal(t, "{}", JSONOrEmpty("  "))
	assert.Equal(t, `{"a":1}`, JSONOrEmpty(`{"a":1}`))
	assert.Equal(t, `{"raw":"oops"}`, JSONOrEmpty("oops"))
}

func TestPageOffset(t *testing.T) {
	limit, offset := PageOffset(0, 0)
	assert.Equal(t, 20, limit)
	assert.Equal(t, 0, offset)

	limit, offset = PageOffset(3, 15)
	assert.Equal(t, 15, limit)
	assert.Equal(t, 30, offset)
}

func TestStringOrDash(t *testing.T) {
	assert.Equal(t, "-", StringOrDash(""))
	assert.Equal(t, "bucket", StringOrDash("bucket"))
}
