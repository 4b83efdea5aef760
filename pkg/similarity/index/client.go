package index

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/himanishpuri/AcousticSimilarity/pkg/logger"
	"github.com/himanishpuri/AcousticSimilarity/pkg/similarity"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultDir      = "indices"
	DefaultEfSearch = 64
	preloadLimit    = 4
)

type Config struct {
	Dir      string
	EfSearch int
	Lookup   SubmissionLookup
	Logger   similarity.Logger
}

type Option func(*Config)

func WithDir(dir string) Option {
	return func(c *Config) {
		c.Dir = dir
	}
}

func WithEfSearch(ef int) Option {
	return func(c *Config) {
		c.EfSearch = ef
	}
}

// WithSubmissionLookup lets SimilarityBetween report ErrNoDataFound for
// references without any stored submission.
func WithSubmissionLookup(lookup SubmissionLookup) Option {
	return func(c *Config) {
		c.Lookup = lookup
	}
}

func WithLogger(log similarity.Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func defaultConfig() *Config {
	return &Config{
		Dir:      DefaultDir,
		EfSearch: DefaultEfSearch,
	}
}

// Client loads indices from a directory and caches them by identity.
// Concurrent loads of the same identity share one read; failed loads are
// not cached.
type Client struct {
	config *Config
	log    similarity.Logger

	mu     sync.RWMutex
	cache  map[similarity.IndexIdentity]*Index
	loader singleflight.Group
}

var _ similarity.IndexClient = (*Client)(nil)

func NewClient(opts ...Option) *Client {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger().With("index")
	}

	return &Client{
		config: cfg,
		log:    cfg.Logger,
		cache:  make(map[similarity.IndexIdentity]*Index),
	}
}

// Load returns the cached index for id, reading it from disk on first use.
func (c *Client) Load(ctx context.Context, id similarity.IndexIdentity) (similarity.IndexHandle, error) {
	idx, err := c.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return idx, nil
}

func (c *Client) load(ctx context.Context, id similarity.IndexIdentity) (*Index, error) {
	c.mu.RLock()
	idx, ok := c.cache[id]
	c.mu.RUnlock()
	if ok {
		return idx, nil
	}

	ch := c.loader.DoChan(id.String(), func() (any, error) {
		idx, err := Open(c.config.Dir, id)
		if err != nil {
			return nil, err
		}
		idx.lookup = c.config.Lookup
		idx.SetEfSearch(c.config.EfSearch)

		c.mu.Lock()
		c.cache[id] = idx
		c.mu.Unlock()

		c.log.Infof("Loaded index %s (%d items, %d dimensions)", id, idx.Len(), idx.Dimensions())
		return idx, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			if !errors.Is(res.Err, similarity.ErrIndexNotFound) {
				c.log.Errorf("Failed to load index %s: %v", id, res.Err)
			}
			return nil, res.Err
		}
		return res.Val.(*Index), nil
	}
}

// Preload loads several identities in parallel. Identities without a built
// index are logged and skipped; any other failure is returned.
func (c *Client) Preload(ctx context.Context, ids []similarity.IndexIdentity) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(preloadLimit)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			_, err := c.load(ctx, id)
			if errors.Is(err, similarity.ErrIndexNotFound) {
				c.log.Warnf("Skipping preload of %s: %v", id, err)
				return nil
			}
			if err != nil {
				return fmt.Errorf("preloading %s: %w", id, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Evict drops a cached index so the next Load reads it from disk again.
func (c *Client) Evict(id similarity.IndexIdentity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, id)
}

// EvictAll drops every cached index and returns the identities dropped.
func (c *Client) EvictAll() []similarity.IndexIdentity {
	ids := c.Loaded()
	for _, id := range ids {
		c.Evict(id)
	}
	return ids
}

// Loaded returns the identities currently cached.
func (c *Client) Loaded() []similarity.IndexIdentity {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]similarity.IndexIdentity, 0, len(c.cache))
	for id := range c.cache {
		ids = append(ids, id)
	}
	return ids
}
