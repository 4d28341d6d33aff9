package reader

import (
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/exception"
)

// Chunk partitions items into contiguous chunks of n. Every chunk but the last
// holds exactly n items; the last holds the remainder and is never empty.
// Zero items yield zero chunks. n <= 0 is an error.
func Chunk[T any](items []T, n int) ([][]T, error) {
	if n <= 0 {
		return nil, exception.NewBatchErrorf("reader", "chunk size must be positive, got %d", n, exception.ErrInvalidArgument)
	}
	chunks := make([][]T, 0, (len(items)+n-1)/n)
	for start := 0; start < len(items); start += n {
		end := min(start+n, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks, nil
}
