package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryFromCode(t *testing.T) {
	tests := []struct {
		code     string
		category Category
	}{
		{ErrCodeConfigInvalid, CategoryConfig},
		{ErrCodeCorruptManifest, CategoryIO},
		{ErrCodeNetworkTimeout, CategoryNetwork},
		{ErrCodeInvalidSelection, CategoryValidation},
		{ErrCodeEmbeddingFailed, CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "boom", nil)
			assert.Equal(t, tt.category, err.Category)
		})
	}
}

func TestNew_FatalCodes(t *testing.T) {
	assert.True(t, IsFatal(New(ErrCodeCorruptManifest, "manifest unreadable", nil)))
	assert.True(t, IsFatal(New(ErrCodeProviderExhausted, "gave up", nil)))
	assert.False(t, IsFatal(New(ErrCodeFileNotFound, "missing", nil)))
	assert.False(t, IsFatal(nil))
}

func TestNew_RetryableCodes(t *testing.T) {
	assert.True(t, IsRetryable(New(ErrCodeNetworkTimeout, "timeout", nil)))
	assert.True(t, IsRetryable(New(ErrCodeNetworkUnavailable, "refused", nil)))
	assert.False(t, IsRetryable(New(ErrCodeInvalidInput, "bad", nil)))
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := stderrors.New("disk exploded")
	err := Wrap(ErrCodeDiskFull, cause)

	require.NotNil(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "disk exploded", err.Message)
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestIs_MatchesByCode(t *testing.T) {
	a := New(ErrCodeJobNotFound, "job 7 not found", nil)
	b := New(ErrCodeJobNotFound, "different message", nil)
	assert.ErrorIs(t, a, b)
}

func TestGetCode_ThroughWrapping(t *testing.T) {
	inner := New(ErrCodeShardCorrupt, "bad magic", nil)
	wrapped := fmt.Errorf("open shard: %w", inner)

	assert.Equal(t, ErrCodeShardCorrupt, GetCode(wrapped))
	assert.True(t, IsFatal(wrapped))
}

func TestValidationHelpers(t *testing.T) {
	err := ValidationError("selection mode unknown", nil)
	assert.True(t, IsValidation(err))
	assert.Equal(t, CategoryValidation, GetCategory(err))
}

func TestWithDetailAndSuggestion(t *testing.T) {
	err := New(ErrCodeIndexLocked, "index busy", nil).
		WithDetail("dir", "/tmp/index").
		WithSuggestion("wait for the running INDEX job to finish")

	assert.Equal(t, "/tmp/index", err.Details["dir"])
	assert.NotEmpty(t, err.Suggestion)
}
