package similarity

import (
	"context"
	"errors"
	"fmt"

	"github.com/himanishpuri/AcousticSimilarity/pkg/logger"
)

// similarityService is the default implementation of the Service interface.
type similarityService struct {
	index  IndexClient
	log    Logger
	config *Config
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Index == nil {
		return nil, errors.New("similarity: an index client is required")
	}

	// Set default logger if none provided
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger().With("similarity")
	}

	return &similarityService{
		index:  cfg.Index,
		log:    cfg.Logger,
		config: cfg,
	}, nil
}

// SimilarRecordings runs one batched index query for every reference in
// recording_ids and post-processes each reference's neighbours.
func (s *similarityService) SimilarRecordings(ctx context.Context, metric string, params Params) (ResultSet, error) {
	refs, err := ParseRecordingRefs(params.Get(ParamRecordingIDs), s.config.MaxRecordings)
	if err != nil {
		return nil, err
	}

	spec, err := ResolveQuerySpec(metric, params)
	if err != nil {
		return nil, err
	}

	handle, err := s.loadIndex(ctx, spec.Identity)
	if err != nil {
		return nil, err
	}

	raw, err := handle.BulkNeighbours(ctx, refs, spec.NNeighbours)
	if err != nil {
		return nil, fmt.Errorf("querying index %s: %w", spec.Identity, err)
	}
	s.log.Debugf("Index %s returned neighbours for %d/%d references", spec.Identity, len(raw), len(refs))

	return buildResultSet(refs, raw, spec), nil
}

// SimilarToRecording returns the processed neighbours of a single reference.
func (s *similarityService) SimilarToRecording(ctx context.Context, metric string, ref RecordingRef, params Params) ([]NeighborResult, error) {
	spec, err := ResolveQuerySpec(metric, params)
	if err != nil {
		return nil, err
	}

	handle, err := s.loadIndex(ctx, spec.Identity)
	if err != nil {
		return nil, err
	}

	raw, err := handle.BulkNeighbours(ctx, []RecordingRef{ref}, spec.NNeighbours)
	if err != nil {
		return nil, fmt.Errorf("querying index %s: %w", spec.Identity, err)
	}

	neighbours, ok := raw[ref]
	if !ok {
		return nil, NotFound(MsgNotInIndex)
	}
	return PostProcess(neighbours, spec.Threshold, spec.Dedup), nil
}

// SimilarityBetween returns {metric: distance} for exactly two references,
// or an empty map when either has no indexed submission.
func (s *similarityService) SimilarityBetween(ctx context.Context, metric string, params Params) (map[string]float64, error) {
	a, b, err := ParseRecordingPair(params.Get(ParamRecordingIDs), s.config.MaxRecordings)
	if err != nil {
		return nil, err
	}

	spec, err := ResolveQuerySpec(metric, params)
	if err != nil {
		return nil, err
	}

	handle, err := s.loadIndex(ctx, spec.Identity)
	if err != nil {
		return nil, err
	}

	distance, err := handle.SimilarityBetween(ctx, a, b)
	switch {
	case errors.Is(err, ErrItemNotFound), errors.Is(err, ErrNoDataFound):
		s.log.Debugf("No similarity between %s and %s: %v", a, b, err)
		return map[string]float64{}, nil
	case err != nil:
		return nil, fmt.Errorf("similarity between %s and %s: %w", a, b, err)
	}

	return map[string]float64{metric: distance}, nil
}

func (s *similarityService) loadIndex(ctx context.Context, id IndexIdentity) (IndexHandle, error) {
	handle, err := s.index.Load(ctx, id)
	if errors.Is(err, ErrIndexNotFound) {
		s.log.Warnf("Index %s is not available: %v", id, err)
		return nil, BadRequest(MsgIndexNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading index %s: %w", id, err)
	}
	return handle, nil
}

// buildResultSet maps each input reference with index data to its processed
// neighbours. References without index data are omitted.
func buildResultSet(refs []RecordingRef, raw map[RecordingRef][]NeighborResult, spec QuerySpec) ResultSet {
	result := make(ResultSet, len(raw))
	for _, ref := range refs {
		neighbours, ok := raw[ref]
		if !ok {
			continue
		}
		byOffset, ok := result[ref.MBID]
		if !ok {
			byOffset = make(map[string][]NeighborResult)
			result[ref.MBID] = byOffset
		}
		byOffset[ref.OffsetKey()] = PostProcess(neighbours, spec.Threshold, spec.Dedup)
	}
	return result
}
