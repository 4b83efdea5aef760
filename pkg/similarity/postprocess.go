package similarity

import (
	"cmp"
	"slices"
)

// PostProcess filters, sorts and deduplicates the raw neighbours of one
// source reference. The input slice is not modified.
//
// Filtering happens first, then a stable sort on (distance, mbid) so that
// entries sharing both keep their index order, then deduplication.
func PostProcess(raw []NeighborResult, threshold *float64, mode DedupMode) []NeighborResult {
	results := FilterByThreshold(raw, threshold)
	SortNeighbours(results)
	return Dedup(results, mode)
}

// FilterByThreshold returns a copy of results keeping distance <= threshold.
// A nil threshold keeps everything.
func FilterByThreshold(results []NeighborResult, threshold *float64) []NeighborResult {
	out := make([]NeighborResult, 0, len(results))
	for _, r := range results {
		if threshold == nil || r.Distance <= *threshold {
			out = append(out, r)
		}
	}
	return out
}

// SortNeighbours stable-sorts results in place by distance, then mbid.
func SortNeighbours(results []NeighborResult) {
	slices.SortStableFunc(results, func(a, b NeighborResult) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.RecordingMBID, b.RecordingMBID)
	})
}

// Dedup removes duplicates from an already sorted slice according to mode.
func Dedup(sorted []NeighborResult, mode DedupMode) []NeighborResult {
	switch mode {
	case DedupSameScore:
		type scoreKey struct {
			mbid     string
			distance float64
		}
		return dedupBy(sorted, func(r NeighborResult) scoreKey {
			return scoreKey{r.RecordingMBID, r.Distance}
		})
	case DedupAll:
		return dedupBy(sorted, func(r NeighborResult) string {
			return r.RecordingMBID
		})
	default:
		return sorted
	}
}

// dedupBy keeps the first entry for every key, preserving order.
func dedupBy[K comparable](results []NeighborResult, key func(NeighborResult) K) []NeighborResult {
	seen := make(map[K]struct{}, len(results))
	out := make([]NeighborResult, 0, len(results))
	for _, r := range results {
		k := key(r)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
