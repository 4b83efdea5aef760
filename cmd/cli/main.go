package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/himanishpuri/AcousticSimilarity/pkg/logger"
	"github.com/himanishpuri/AcousticSimilarity/pkg/similarity"
	"github.com/himanishpuri/AcousticSimilarity/pkg/similarity/index"
	"github.com/himanishpuri/AcousticSimilarity/pkg/similarity/storage"
	"github.com/spf13/cobra"
)

// Global flags
var (
	dbPath   string
	indexDir string
)

var rootCmd = &cobra.Command{
	Use:   "similarity",
	Short: "Acoustic similarity index tool",
	Long: `Imports feature submissions, builds nearest-neighbour indices and
queries them offline, using the same pipeline as the HTTP server.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", getEnvOrDefault("SIMILARITY_DB_PATH", storage.DefaultDBFile), "Path to the SQLite database file")
	rootCmd.PersistentFlags().StringVar(&indexDir, "indices", getEnvOrDefault("SIMILARITY_INDEX_DIR", index.DefaultDir), "Directory holding built indices")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func openDB() (*storage.DBClient, error) {
	return storage.NewDBClientWithPath(dbPath)
}

// createService wires a similarity service over the indices in indexDir.
func createService(db *storage.DBClient) (similarity.Service, error) {
	log := logger.GetLogger()
	indices := index.NewClient(
		index.WithDir(indexDir),
		index.WithSubmissionLookup(db),
		index.WithLogger(log.With("index")),
	)
	return similarity.NewService(
		similarity.WithIndexClient(indices),
		similarity.WithLogger(log.With("similarity")),
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cobra.CheckErr(rootCmd.ExecuteContext(ctx))
}
