package exception

import (
	"errors"
	"io"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBatchErrorf_ConsumesTrailingArguments(t *testing.T) {
	err := NewBatchErrorf("writer", "upload of %s failed", "data/x.csv.gz", true, false, io.ErrUnexpectedEOF)

	assert.Equal(t, "upload of data/x.csv.gz failed", err.Message)
	assert.True(t, err.IsSkippable())
	assert.False(t, err.IsRetryable())
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, "[writer] upload of data/x.csv.gz failed: unexpected EOF", err.Error())
}

func TestNewBatchErrorf_NoOptionalArguments(t *testing.T) {
	err := NewBatchErrorf("reader", "page %d empty", 3)
	assert.Equal(t, "page 3 empty", err.Message)
	assert.Nil(t, err.OriginalErr)
	assert.Equal(t, "[reader] page 3 empty", err.Error())
}

func TestIsFatal(t *testing.T) {
	assert.False(t, IsFatal(nil))
	assert.True(t, IsFatal(errors.New("boom")))
	assert.True(t, IsFatal(NewBatchError("reader", "list failed", nil, false, true)))
	assert.False(t, IsFatal(NewBatchError("writer", "group upload failed", nil, true, false)))
}

func TestIsTemporary(t *testing.T) {
	assert.True(t, IsTemporary(NewBatchError("reader", "throttled", nil, false, true)))
	assert.False(t, IsTemporary(NewBatchError("reader", "timeout but flagged", nil, false, false)))
	assert.True(t, IsTemporary(errors.New("dial tcp: connection refused")))
	assert.False(t, IsTemporary(errors.New("access denied")))
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	err := NewBatchError("reader", "missing QueryExecutionId", ErrMalformedPayload, false, false)
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.True(t, IsBatchError(err))
	assert.False(t, IsBatchError(ErrMalformedPayload))
}

func TestAppend(t *testing.T) {
	assert.NoError(t, Append(nil, nil, nil))

	err := Append(nil, errors.New("a"), nil, errors.New("b"))
	require.Error(t, err)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 2)
}

func TestExtractErrorMessage(t *testing.T) {
	assert.Equal(t, "", ExtractErrorMessage(nil))
	assert.Equal(t, "short", ExtractErrorMessage(NewBatchError("x", "short", errors.New("long cause"), false, false)))
	assert.Equal(t, "plain", ExtractErrorMessage(errors.New("plain")))
}
