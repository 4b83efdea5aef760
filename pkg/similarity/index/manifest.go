package index

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/himanishpuri/AcousticSimilarity/pkg/similarity"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	graphExt    = ".hnsw"
	manifestExt = ".msgpack"

	manifestVersion = 1
)

// manifest maps graph keys back to recording references. Graph keys are the
// positions in Items.
type manifest struct {
	Version      int            `msgpack:"version"`
	Metric       string         `msgpack:"metric"`
	DistanceType string         `msgpack:"distance_type"`
	NTrees       int            `msgpack:"n_trees"`
	Dimensions   int            `msgpack:"dimensions"`
	BuiltAt      time.Time      `msgpack:"built_at"`
	Items        []manifestItem `msgpack:"items"`
}

type manifestItem struct {
	MBID   string `msgpack:"mbid"`
	Offset int    `msgpack:"offset"`
}

func (m *manifest) identity() similarity.IndexIdentity {
	return similarity.IndexIdentity{
		Metric:       similarity.Metric(m.Metric),
		NTrees:       m.NTrees,
		DistanceType: similarity.DistanceType(m.DistanceType),
	}
}

// paths returns the graph and manifest file paths of an identity inside dir.
func paths(dir string, id similarity.IndexIdentity) (graphPath, manifestPath string) {
	base := filepath.Join(dir, id.String())
	return base + graphExt, base + manifestExt
}

func readManifest(path string) (*manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var m manifest
	if err := msgpack.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding manifest %s: %w", path, err)
	}
	if m.Version != manifestVersion {
		return nil, fmt.Errorf("manifest %s has unsupported version %d", path, m.Version)
	}
	return &m, nil
}
