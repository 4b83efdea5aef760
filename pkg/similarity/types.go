package similarity

import (
	"fmt"
	"strconv"
	"strings"
)

// RecordingRef identifies one feature submission of a recording.
type RecordingRef struct {
	MBID   string // Lowercase recording MBID
	Offset int    // Submission offset, 0 for the first submission
}

// OffsetKey returns the offset as used in ResultSet keys.
func (r RecordingRef) OffsetKey() string {
	return strconv.Itoa(r.Offset)
}

func (r RecordingRef) String() string {
	return r.MBID + ":" + r.OffsetKey()
}

// Metric is the feature space an index is built over.
type Metric string

// Known metrics, one per precomputed feature family.
const (
	MetricMFCCs       Metric = "mfccs"
	MetricMFCCsW      Metric = "mfccsw"
	MetricGFCCs       Metric = "gfccs"
	MetricGFCCsW      Metric = "gfccsw"
	MetricKey         Metric = "key"
	MetricBPM         Metric = "bpm"
	MetricOnsetRate   Metric = "onsetrate"
	MetricMoods       Metric = "moods"
	MetricInstruments Metric = "instruments"
	MetricDortmund    Metric = "dortmund"
	MetricRosamerica  Metric = "rosamerica"
	MetricTzanetakis  Metric = "tzanetakis"
)

// Metrics lists every metric an index may exist for, in display order.
var Metrics = []Metric{
	MetricMFCCs, MetricMFCCsW, MetricGFCCs, MetricGFCCsW,
	MetricKey, MetricBPM, MetricOnsetRate, MetricMoods,
	MetricInstruments, MetricDortmund, MetricRosamerica, MetricTzanetakis,
}

// IsKnownMetric reports whether name is one of Metrics.
func IsKnownMetric(name string) bool {
	for _, m := range Metrics {
		if string(m) == name {
			return true
		}
	}
	return false
}

// DistanceType selects the distance function of an index.
type DistanceType string

const (
	DistanceAngular   DistanceType = "angular"
	DistanceEuclidean DistanceType = "euclidean"
	DistanceManhattan DistanceType = "manhattan"
	DistanceHamming   DistanceType = "hamming"
)

// DistanceTypes lists the supported distance types.
var DistanceTypes = []DistanceType{DistanceAngular, DistanceEuclidean, DistanceManhattan, DistanceHamming}

// IsKnownDistanceType reports whether name is one of DistanceTypes.
func IsKnownDistanceType(name string) bool {
	for _, d := range DistanceTypes {
		if string(d) == name {
			return true
		}
	}
	return false
}

// IndexIdentity uniquely determines which built index to query.
type IndexIdentity struct {
	Metric       Metric
	NTrees       int
	DistanceType DistanceType
}

func (id IndexIdentity) String() string {
	return string(id.Metric) + "_" + string(id.DistanceType) + "_" + strconv.Itoa(id.NTrees)
}

// ParseIndexIdentity parses the "metric_distance_ntrees" form produced by
// IndexIdentity.String.
func ParseIndexIdentity(s string) (IndexIdentity, error) {
	parts := strings.Split(strings.TrimSpace(s), "_")
	if len(parts) != 3 {
		return IndexIdentity{}, fmt.Errorf("index identity %q: want metric_distance_ntrees", s)
	}
	if !IsKnownMetric(parts[0]) {
		return IndexIdentity{}, fmt.Errorf("index identity %q: unknown metric %q", s, parts[0])
	}
	if !IsKnownDistanceType(parts[1]) {
		return IndexIdentity{}, fmt.Errorf("index identity %q: unknown distance type %q", s, parts[1])
	}
	nTrees, err := strconv.Atoi(parts[2])
	if err != nil || nTrees <= 0 {
		return IndexIdentity{}, fmt.Errorf("index identity %q: invalid n_trees %q", s, parts[2])
	}
	return IndexIdentity{Metric: Metric(parts[0]), NTrees: nTrees, DistanceType: DistanceType(parts[1])}, nil
}

// DedupMode controls how many results per recording survive post-processing.
type DedupMode int

const (
	// DedupNone keeps every result.
	DedupNone DedupMode = iota
	// DedupSameScore drops results repeating an earlier (mbid, distance) pair.
	DedupSameScore
	// DedupAll keeps only the closest result per mbid.
	DedupAll
)

func (m DedupMode) String() string {
	switch m {
	case DedupSameScore:
		return "samescore"
	case DedupAll:
		return "all"
	default:
		return "none"
	}
}

// ParseDedupMode parses a dedup mode case-insensitively. Unknown values
// resolve to DedupNone with ok=false.
func ParseDedupMode(s string) (DedupMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return DedupNone, true
	case "samescore":
		return DedupSameScore, true
	case "all":
		return DedupAll, true
	default:
		return DedupNone, false
	}
}

// QuerySpec fully determines the shape of a similarity query.
type QuerySpec struct {
	Identity    IndexIdentity
	NNeighbours int
	Threshold   *float64 // nil disables threshold filtering
	Dedup       DedupMode
}

// NeighborResult is one candidate match. Smaller distance means more similar.
type NeighborResult struct {
	RecordingMBID string  `json:"recording_mbid"`
	Offset        int     `json:"offset"`
	Distance      float64 `json:"distance"`
}

// ResultSet maps source mbid -> source offset -> ordered neighbours.
type ResultSet map[string]map[string][]NeighborResult
