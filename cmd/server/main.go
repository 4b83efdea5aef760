package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/himanishpuri/AcousticSimilarity/pkg/logger"
	"github.com/himanishpuri/AcousticSimilarity/pkg/similarity"
	"github.com/himanishpuri/AcousticSimilarity/pkg/similarity/index"
	"github.com/himanishpuri/AcousticSimilarity/pkg/similarity/storage"
)

var (
	port           int
	dbPath         string
	indexDir       string
	allowedOrigins string
	preload        string
	efSearch       int
	timeout        time.Duration
)

func init() {
	flag.IntVar(&port, "port", getEnvIntOrDefault("SIMILARITY_PORT", 8080), "HTTP server port")
	flag.StringVar(&dbPath, "db", getEnvOrDefault("SIMILARITY_DB_PATH", storage.DefaultDBFile), "Path to SQLite database")
	flag.StringVar(&indexDir, "indices", getEnvOrDefault("SIMILARITY_INDEX_DIR", index.DefaultDir), "Directory holding built indices")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
	flag.StringVar(&preload, "preload", getEnvOrDefault("SIMILARITY_PRELOAD", ""), "Comma-separated index identities to load at startup (e.g. mfccs_angular_10)")
	flag.IntVar(&efSearch, "ef-search", index.DefaultEfSearch, "HNSW candidate queue size used during search")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Per-request timeout")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// reloadOnHangup drops cached indices on SIGHUP so rebuilt files are read on next use.
func reloadOnHangup(ctx context.Context, indices *index.Client, log *logger.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			evicted := indices.EvictAll()
			log.Infof("SIGHUP: evicted %d cached indices", len(evicted))
		}
	}
}

func main() {
	flag.Parse()
	log := logger.GetLogger()

	origins := splitList(allowedOrigins)
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	var identities []similarity.IndexIdentity
	for _, raw := range splitList(preload) {
		id, err := similarity.ParseIndexIdentity(raw)
		if err != nil {
			log.Fatalf("Invalid -preload entry: %v", err)
		}
		identities = append(identities, id)
	}

	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	indices := index.NewClient(
		index.WithDir(indexDir),
		index.WithEfSearch(efSearch),
		index.WithSubmissionLookup(db),
		index.WithLogger(log.With("index")),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(identities) > 0 {
		if err := indices.Preload(ctx, identities); err != nil {
			log.Fatalf("Failed to preload indices: %v", err)
		}
	}

	go reloadOnHangup(ctx, indices, log)

	service, err := similarity.NewService(
		similarity.WithIndexClient(indices),
		similarity.WithLogger(log.With("similarity")),
	)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}

	config := &ServerConfig{
		Port:           port,
		DBPath:         dbPath,
		IndexDir:       indexDir,
		AllowedOrigins: origins,
		RequestTimeout: timeout,
	}

	server := NewServer(service, indices, config)
	if err := server.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
}
