package index

import (
	"context"
	"fmt"

	"github.com/himanishpuri/AcousticSimilarity/pkg/similarity"
	"github.com/himanishpuri/AcousticSimilarity/pkg/similarity/storage"
)

// VectorSource streams the stored vectors of a metric.
type VectorSource interface {
	EachVector(ctx context.Context, metric string, fn func(storage.StoredVector) error) error
}

// Build reads every vector of id.Metric from src and builds an index.
// Vectors whose dimensionality differs from the first one are skipped.
func Build(ctx context.Context, src VectorSource, id similarity.IndexIdentity, log similarity.Logger) (*Index, error) {
	var items []Item
	skipped := 0

	err := src.EachVector(ctx, string(id.Metric), func(v storage.StoredVector) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(v.Vector) == 0 {
			skipped++
			return nil
		}
		if len(items) > 0 && len(v.Vector) != len(items[0].Vector) {
			log.Warnf("Skipping %s:%d: %d dimensions, index has %d", v.MBID, v.Offset, len(v.Vector), len(items[0].Vector))
			skipped++
			return nil
		}
		items = append(items, Item{
			Ref:    similarity.RecordingRef{MBID: v.MBID, Offset: v.Offset},
			Vector: v.Vector,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading %s vectors: %w", id.Metric, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no %s vectors to index", id.Metric)
	}

	log.Infof("Building index %s from %d vectors (%d skipped)", id, len(items), skipped)
	return NewIndex(id, items)
}
