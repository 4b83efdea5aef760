package main

import (
	"fmt"
	"time"

	"github.com/himanishpuri/AcousticSimilarity/pkg/logger"
	"github.com/himanishpuri/AcousticSimilarity/pkg/similarity"
	"github.com/himanishpuri/AcousticSimilarity/pkg/similarity/index"
	"github.com/spf13/cobra"
)

var (
	buildDistance string
	buildNTrees   int
)

var buildCmd = &cobra.Command{
	Use:   "build <metric>...",
	Short: "Build and save indices from the stored vectors",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !similarity.IsKnownDistanceType(buildDistance) {
			return fmt.Errorf("unknown distance type %q", buildDistance)
		}
		if buildNTrees <= 0 {
			return fmt.Errorf("--n-trees must be positive, got %d", buildNTrees)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		log := logger.GetLogger().With("build")
		for _, metric := range args {
			if !similarity.IsKnownMetric(metric) {
				return fmt.Errorf("unknown metric %q", metric)
			}
			id := similarity.IndexIdentity{
				Metric:       similarity.Metric(metric),
				NTrees:       buildNTrees,
				DistanceType: similarity.DistanceType(buildDistance),
			}

			start := time.Now()
			idx, err := index.Build(cmd.Context(), db, id, log)
			if err != nil {
				return fmt.Errorf("building %s: %w", id, err)
			}
			if err := idx.Save(indexDir); err != nil {
				return err
			}
			fmt.Printf("✅ Built %s: %d items, %d dimensions in %s\n", id, idx.Len(), idx.Dimensions(), time.Since(start).Round(time.Millisecond))
		}
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVar(&buildDistance, "distance-type", string(similarity.DefaultDistanceType), "Distance function: angular, euclidean, manhattan or hamming")
	buildCmd.Flags().IntVar(&buildNTrees, "n-trees", similarity.DefaultNTrees, "Graph connectivity of the index")
	rootCmd.AddCommand(buildCmd)
}
