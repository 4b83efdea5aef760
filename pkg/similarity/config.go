package similarity

// Limits and defaults applied while resolving request parameters.
const (
	MaxRecordingsPerRequest = 25
	DefaultNTrees           = 10
	DefaultDistanceType     = DistanceAngular
	DefaultNNeighbours      = 200
	MinNNeighbours          = 1
	MaxNNeighbours          = 1000
)

type Config struct {
	Index         IndexClient
	Logger        Logger
	MaxRecordings int // Cap on raw recording_ids tokens per request
}

type Option func(*Config)

func WithIndexClient(client IndexClient) Option {
	return func(c *Config) {
		c.Index = client
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithMaxRecordings(n int) Option {
	return func(c *Config) {
		c.MaxRecordings = n
	}
}

func defaultConfig() *Config {
	return &Config{
		MaxRecordings: MaxRecordingsPerRequest,
	}
}
