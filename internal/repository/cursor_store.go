// Package repository persists the harvest cursors: the marker (newest fully
// processed execution id) and the retry queue (ids seen but not yet terminal).
package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tigerroll/querymetrics/pkg/batch/adapter/storage"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/exception"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/logger"
)

const moduleName = "cursor"

// CursorStore reads and writes the two harvest cursors.
type CursorStore interface {
	// ReadMarker returns the stored marker, or "" when none has been written.
	ReadMarker(ctx context.Context) (string, error)
	// WriteMarker overwrites the marker.
	WriteMarker(ctx context.Context, id string) error
	// ReadRetryIDs returns the retry queue. A missing or unreadable file reads as empty.
	ReadRetryIDs(ctx context.Context) ([]string, error)
	// MergeRetryIDs adds ids to the retry queue and rewrites it.
	MergeRetryIDs(ctx context.Context, ids []string) ([]string, error)
	// ReplaceRetryIDs overwrites the retry queue with ids.
	ReplaceRetryIDs(ctx context.Context, ids []string) error
}

// Location is a blob in a storage connection.
type Location struct {
	Store  storage.StorageExecutor
	Bucket string
	Key    string
}

func (l Location) String() string {
	return l.Bucket + "/" + l.Key
}

// ObjectCursorStore keeps each cursor in its own blob.
type ObjectCursorStore struct {
	marker Location
	retry  Location
}

var _ CursorStore = (*ObjectCursorStore)(nil)

// NewObjectCursorStore creates a store for the given marker and retry blobs.
func NewObjectCursorStore(marker, retry Location) *ObjectCursorStore {
	return &ObjectCursorStore{marker: marker, retry: retry}
}

func (s *ObjectCursorStore) ReadMarker(ctx context.Context) (string, error) {
	data, err := readBlob(ctx, s.marker)
	if storage.IsNotFound(err) {
		logger.Infof("CursorStore: no marker at %s, starting from the newest execution", s.marker)
		return "", nil
	}
	if err != nil {
		return "", exception.NewBatchErrorf(moduleName, "read marker %s", s.marker, false, true, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *ObjectCursorStore) WriteMarker(ctx context.Context, id string) error {
	if err := s.marker.Store.Upload(ctx, s.marker.Bucket, s.marker.Key, strings.NewReader(id), "text/plain"); err != nil {
		return exception.NewBatchErrorf(moduleName, "write marker %s", s.marker, false, true, err)
	}
	logger.Debugf("CursorStore: marker %s set to '%s'", s.marker, id)
	return nil
}

func (s *ObjectCursorStore) ReadRetryIDs(ctx context.Context) ([]string, error) {
	data, err := readBlob(ctx, s.retry)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !storage.IsNotFound(err) {
			logger.Warnf("CursorStore: could not read retry file %s, treating it as empty: %v", s.retry, err)
		}
		return nil, nil
	}
	return ParseRetryIDs(string(data)), nil
}

func (s *ObjectCursorStore) MergeRetryIDs(ctx context.Context, ids []string) ([]string, error) {
	existing, err := s.ReadRetryIDs(ctx)
	if err != nil {
		return nil, err
	}
	merged := MergeIDs(existing, ids)
	if err := s.ReplaceRetryIDs(ctx, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

func (s *ObjectCursorStore) ReplaceRetryIDs(ctx context.Context, ids []string) error {
	body := strings.Join(ids, "\n")
	if err := s.retry.Store.Upload(ctx, s.retry.Bucket, s.retry.Key, strings.NewReader(body), "text/plain"); err != nil {
		return exception.NewBatchErrorf(moduleName, "write retry file %s", s.retry, false, true, err)
	}
	logger.Debugf("CursorStore: retry file %s now holds %d ids", s.retry, len(ids))
	return nil
}

func readBlob(ctx context.Context, loc Location) ([]byte, error) {
	if loc.Store == nil {
		return nil, errors.New("no storage connection")
	}
	rc, err := loc.Store.Download(ctx, loc.Bucket, loc.Key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", loc, err)
	}
	return data, nil
}

// ParseRetryIDs splits a retry file into ids: lines are trimmed, blank lines
// dropped and duplicates collapsed, keeping the first occurrence.
func ParseRetryIDs(body string) []string {
	return MergeIDs(nil, strings.Split(body, "\n"))
}

// MergeIDs returns existing followed by the ids of added not already present.
// Blank entries are dropped and the first occurrence of an id wins.
func MergeIDs(existing, added []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(added))
	out := make([]string, 0, len(existing)+len(added))
	for _, list := range [][]string{existing, added} {
		for _, id := range list {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
