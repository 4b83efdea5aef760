package index

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/coder/hnsw"
	"github.com/himanishpuri/AcousticSimilarity/pkg/similarity"
	"github.com/himanishpuri/AcousticSimilarity/pkg/utils"
	"github.com/vmihailenco/msgpack/v5"
)

// SubmissionLookup tells whether a submission exists at all, which
// separates "not indexed yet" from "no data".
type SubmissionLookup interface {
	HasSubmission(ctx context.Context, mbid string, offset int) (bool, error)
}

// Item is one vector to index.
type Item struct {
	Ref    similarity.RecordingRef
	Vector []float32
}

// Index is a loaded, read-only HNSW index for one identity. It implements
// similarity.IndexHandle.
type Index struct {
	identity similarity.IndexIdentity
	dims     int
	graph    *hnsw.Graph[int]
	refs     []similarity.RecordingRef
	keys     map[similarity.RecordingRef]int
	lookup   SubmissionLookup

	mu sync.RWMutex // guards graph; searches hold the read lock
}

var _ similarity.IndexHandle = (*Index)(nil)

// NewIndex builds an in-memory index from items. n_trees of the identity
// sets the graph's maximum neighbour count per node.
func NewIndex(id similarity.IndexIdentity, items []Item) (*Index, error) {
	distance, err := distanceFunc(id.DistanceType)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("index %s: no items", id)
	}

	graph := hnsw.NewGraph[int]()
	graph.Distance = distance
	if id.NTrees > 0 {
		graph.M = id.NTrees
	}

	idx := &Index{
		identity: id,
		dims:     len(items[0].Vector),
		graph:    graph,
		refs:     make([]similarity.RecordingRef, 0, len(items)),
		keys:     make(map[similarity.RecordingRef]int, len(items)),
	}

	nodes := make([]hnsw.Node[int], 0, len(items))
	for _, item := range items {
		if len(item.Vector) != idx.dims {
			return nil, fmt.Errorf("index %s: %s has %d dimensions, want %d", id, item.Ref, len(item.Vector), idx.dims)
		}
		if _, dup := idx.keys[item.Ref]; dup {
			return nil, fmt.Errorf("index %s: duplicate item %s", id, item.Ref)
		}
		key := len(idx.refs)
		idx.refs = append(idx.refs, item.Ref)
		idx.keys[item.Ref] = key
		nodes = append(nodes, hnsw.MakeNode(key, item.Vector))
	}
	graph.Add(nodes...)

	return idx, nil
}

// Identity returns the identity the index was built for.
func (idx *Index) Identity() similarity.IndexIdentity {
	return idx.identity
}

// Len returns the number of indexed items.
func (idx *Index) Len() int {
	return len(idx.refs)
}

// Dimensions returns the vector dimensionality.
func (idx *Index) Dimensions() int {
	return idx.dims
}

// SetEfSearch sets the candidate queue size used during search.
func (idx *Index) SetEfSearch(ef int) {
	if ef <= 0 {
		return
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.graph.EfSearch = ef
}

// BulkNeighbours answers every reference under a single read lock.
// References that are not indexed are left out of the result.
func (idx *Index) BulkNeighbours(ctx context.Context, refs []similarity.RecordingRef, k int) (map[similarity.RecordingRef][]similarity.NeighborResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make(map[similarity.RecordingRef][]similarity.NeighborResult, len(refs))
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, done := out[ref]; done {
			continue
		}
		key, ok := idx.keys[ref]
		if !ok {
			continue
		}
		query, ok := idx.graph.Lookup(key)
		if !ok {
			continue
		}

		nodes := idx.graph.Search(query, k)
		neighbours := make([]similarity.NeighborResult, 0, len(nodes))
		for _, node := range nodes {
			match := idx.refs[node.Key]
			neighbours = append(neighbours, similarity.NeighborResult{
				RecordingMBID: match.MBID,
				Offset:        match.Offset,
				Distance:      float64(idx.graph.Distance(query, node.Value)),
			})
		}
		out[ref] = neighbours
	}
	return out, nil
}

// SimilarityBetween returns the distance between two indexed references.
func (idx *Index) SimilarityBetween(ctx context.Context, a, b similarity.RecordingRef) (float64, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	va, err := idx.vector(ctx, a)
	if err != nil {
		return 0, err
	}
	vb, err := idx.vector(ctx, b)
	if err != nil {
		return 0, err
	}
	return float64(idx.graph.Distance(va, vb)), nil
}

func (idx *Index) vector(ctx context.Context, ref similarity.RecordingRef) ([]float32, error) {
	if key, ok := idx.keys[ref]; ok {
		if vec, ok := idx.graph.Lookup(key); ok {
			return vec, nil
		}
	}

	if idx.lookup != nil {
		exists, err := idx.lookup.HasSubmission(ctx, ref.MBID, ref.Offset)
		if err != nil {
			return nil, fmt.Errorf("checking submission %s: %w", ref, err)
		}
		if !exists {
			return nil, fmt.Errorf("%s: %w", ref, similarity.ErrNoDataFound)
		}
	}
	return nil, fmt.Errorf("%s: %w", ref, similarity.ErrItemNotFound)
}

// Save writes the graph and its manifest into dir.
func (idx *Index) Save(dir string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	graphPath, manifestPath := paths(dir, idx.identity)

	if err := utils.WriteFileAtomic(graphPath, func(w io.Writer) error {
		return idx.graph.Export(w)
	}); err != nil {
		return fmt.Errorf("saving graph %s: %w", graphPath, err)
	}

	m := manifest{
		Version:      manifestVersion,
		Metric:       string(idx.identity.Metric),
		DistanceType: string(idx.identity.DistanceType),
		NTrees:       idx.identity.NTrees,
		Dimensions:   idx.dims,
		BuiltAt:      time.Now().UTC(),
		Items:        make([]manifestItem, len(idx.refs)),
	}
	for i, ref := range idx.refs {
		m.Items[i] = manifestItem{MBID: ref.MBID, Offset: ref.Offset}
	}

	if err := utils.WriteFileAtomic(manifestPath, func(w io.Writer) error {
		return msgpack.NewEncoder(w).Encode(&m)
	}); err != nil {
		return fmt.Errorf("saving manifest %s: %w", manifestPath, err)
	}
	return nil
}

// Open reads an index for id from dir. Missing files yield an error
// wrapping similarity.ErrIndexNotFound.
func Open(dir string, id similarity.IndexIdentity) (*Index, error) {
	graphPath, manifestPath := paths(dir, id)
	if !utils.FileExists(graphPath) || !utils.FileExists(manifestPath) {
		return nil, fmt.Errorf("%s in %s: %w", id, dir, similarity.ErrIndexNotFound)
	}

	m, err := readManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	if m.identity() != id {
		return nil, fmt.Errorf("manifest %s describes %s, want %s", manifestPath, m.identity(), id)
	}

	f, err := os.Open(graphPath)
	if err != nil {
		return nil, fmt.Errorf("opening graph %s: %w", graphPath, err)
	}
	defer f.Close()

	graph := hnsw.NewGraph[int]()
	if err := graph.Import(bufio.NewReader(f)); err != nil {
		return nil, fmt.Errorf("importing graph %s: %w", graphPath, err)
	}
	if graph.Len() != len(m.Items) {
		return nil, fmt.Errorf("graph %s has %d nodes but manifest lists %d items", graphPath, graph.Len(), len(m.Items))
	}

	idx := &Index{
		identity: id,
		dims:     m.Dimensions,
		graph:    graph,
		refs:     make([]similarity.RecordingRef, len(m.Items)),
		keys:     make(map[similarity.RecordingRef]int, len(m.Items)),
	}
	for key, item := range m.Items {
		ref := similarity.RecordingRef{MBID: item.MBID, Offset: item.Offset}
		idx.refs[key] = ref
		idx.keys[ref] = key
	}
	return idx, nil
}
