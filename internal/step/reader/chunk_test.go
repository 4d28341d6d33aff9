package reader

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/querymetrics/internal/domain/model"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/exception"
)

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("id-%03d", i)
	}
	return out
}

func chunkSizes[T any](chunks [][]T) []int {
	sizes := make([]int, len(chunks))
	for i, c := range chunks {
		sizes[i] = len(c)
	}
	return sizes
}

func TestChunk_Boundaries(t *testing.T) {
	cases := []struct {
		n     int
		sizes []int
	}{
		{0, []int{}},
		{1, []int{1}},
		{49, []int{49}},
		{50, []int{50}},
		{51, []int{50, 1}},
		{100, []int{50, 50}},
		{101, []int{50, 50, 1}},
	}
	for _, tc := range cases {
		chunks, err := Chunk(ids(tc.n), 50)
		require.NoError(t, err)
		assert.Equal(t, tc.sizes, chunkSizes(chunks), "n=%d", tc.n)
	}
}

func TestChunk_PreservesOrder(t *testing.T) {
	in := ids(7)
	chunks, err := Chunk(in, 3)
	require.NoError(t, err)
	var flat []string
	for _, c := range chunks {
		flat = append(flat, c...)
	}
	assert.Equal(t, in, flat)
}

func TestChunk_RejectsNonPositiveSize(t *testing.T) {
	for _, n := range []int{0, -1} {
		_, err := Chunk(ids(3), n)
		assert.ErrorIs(t, err, exception.ErrInvalidArgument)
	}
}

type countingSource struct {
	calls   [][]string
	invalid map[string]bool
	fatal   error
}

func (s *countingSource) ListPage(context.Context, string) (Page, error) { return Page{}, nil }

func (s *countingSource) FetchDetails(_ context.Context, ids []string) ([]model.QueryExecutionRecord, error) {
	s.calls = append(s.calls, ids)
	if s.fatal != nil {
		return nil, s.fatal
	}
	var (
		out     []model.QueryExecutionRecord
		invalid InvalidRecordsError
	)
	for _, id := range ids {
		if s.invalid[id] {
			invalid.add(id, exception.NewBatchErrorf("model", "query execution '%s': database is empty", id, exception.ErrInvalidRecord))
			continue
		}
		out = append(out, model.QueryExecutionRecord{ID: id})
	}
	if len(invalid.IDs) > 0 {
		return out, SkippedInvalid(&invalid)
	}
	return out, nil
}

func TestFetchAll_ChunksAtServiceCeiling(t *testing.T) {
	src := &countingSource{}
	records, err := FetchAll(context.Background(), src, ids(120), 500)
	require.NoError(t, err)
	assert.Len(t, records, 120)
	assert.Equal(t, []int{50, 50, 20}, chunkSizes(src.calls))
	assert.Equal(t, "id-119", records[119].ID)
}

func TestFetchAll_NoIDsNoCalls(t *testing.T) {
	src := &countingSource{}
	records, err := FetchAll(context.Background(), src, nil, 50)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, src.calls)
}

func TestFetchAll_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &countingSource{}
	_, err := FetchAll(ctx, src, ids(10), 50)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, src.calls)
}

func TestFetchAll_CollectsInvalidRecordsAcrossChunks(t *testing.T) {
	src := &countingSource{invalid: map[string]bool{"id-003": true, "id-071": true}}
	records, err := FetchAll(context.Background(), src, ids(80), 50)
	require.Error(t, err)
	assert.True(t, exception.IsSkippable(err))
	assert.ErrorIs(t, err, exception.ErrInvalidRecord)
	assert.Equal(t, []string{"id-003", "id-071"}, InvalidRecordIDs(err))
	assert.Len(t, records, 78)
	assert.Equal(t, []int{50, 30}, chunkSizes(src.calls))
}

func TestFetchAll_FatalErrorAborts(t *testing.T) {
	src := &countingSource{fatal: exception.NewBatchError("reader", "query execution without an id", exception.ErrMalformedPayload, false, false)}
	records, err := FetchAll(context.Background(), src, ids(80), 50)
	assert.ErrorIs(t, err, exception.ErrMalformedPayload)
	assert.Nil(t, records)
	assert.Len(t, src.calls, 1)
}
