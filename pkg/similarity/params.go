package similarity

import (
	"math"
	"strconv"
	"strings"
)

// Query parameter names.
const (
	ParamRecordingIDs = "recording_ids"
	ParamNTrees       = "n_trees"
	ParamDistanceType = "distance_type"
	ParamNNeighbours  = "n_neighbours"
	ParamThreshold    = "threshold"
	ParamRemoveDups   = "remove_dups"
)

// ResolveQuerySpec validates metric and resolves every optional parameter
// independently. Only an unknown metric fails; everything else is clamped
// or falls back to its default.
func ResolveQuerySpec(metric string, params Params) (QuerySpec, error) {
	if !IsKnownMetric(metric) {
		return QuerySpec{}, BadRequest(MsgUnknownMetric)
	}

	dedup, _ := ParseDedupMode(params.Get(ParamRemoveDups))

	return QuerySpec{
		Identity: IndexIdentity{
			Metric:       Metric(metric),
			NTrees:       resolveNTrees(params.Get(ParamNTrees)),
			DistanceType: resolveDistanceType(params.Get(ParamDistanceType)),
		},
		NNeighbours: resolveNNeighbours(params.Get(ParamNNeighbours)),
		Threshold:   resolveThreshold(params.Get(ParamThreshold)),
		Dedup:       dedup,
	}, nil
}

func resolveNTrees(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return DefaultNTrees
	}
	return n
}

func resolveDistanceType(raw string) DistanceType {
	if IsKnownDistanceType(raw) {
		return DistanceType(raw)
	}
	return DefaultDistanceType
}

func resolveNNeighbours(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return DefaultNNeighbours
	}
	return min(max(n, MinNNeighbours), MaxNNeighbours)
}

func resolveThreshold(raw string) *float64 {
	t, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(t) {
		return nil
	}
	t = min(max(t, 0), 1)
	return &t
}
