package similarity

import (
	"context"
)

// Service answers similarity queries for raw request parameters.
type Service interface {
	SimilarRecordings(ctx context.Context, metric string, params Params) (ResultSet, error)
	SimilarToRecording(ctx context.Context, metric string, ref RecordingRef, params Params) ([]NeighborResult, error)
	SimilarityBetween(ctx context.Context, metric string, params Params) (map[string]float64, error)
}

// Params is the raw, untyped query parameter source. url.Values satisfies it.
type Params interface {
	Get(key string) string
}

// IndexClient loads read-only nearest-neighbour indices.
type IndexClient interface {
	// Load returns the index for id, or an error wrapping ErrIndexNotFound.
	Load(ctx context.Context, id IndexIdentity) (IndexHandle, error)
}

// IndexHandle is a loaded, immutable index. It must be safe for concurrent use.
type IndexHandle interface {
	// BulkNeighbours returns up to k raw neighbours for every ref present in
	// the index. Refs absent from the index are omitted from the map.
	BulkNeighbours(ctx context.Context, refs []RecordingRef, k int) (map[RecordingRef][]NeighborResult, error)

	// SimilarityBetween returns the distance between two refs. It fails with
	// ErrNoDataFound when a ref has no submission and ErrItemNotFound when a
	// ref is not indexed.
	SimilarityBetween(ctx context.Context, a, b RecordingRef) (float64, error)
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
