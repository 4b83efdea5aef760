package main

import (
	"encoding/json"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/himanishpuri/AcousticSimilarity/pkg/similarity"
	"github.com/spf13/cobra"
)

// queryFlags mirror the optional HTTP query parameters.
type queryFlags struct {
	nTrees      int
	distance    string
	nNeighbours int
	threshold   string
	removeDups  string
}

func (q *queryFlags) register(cmd *cobra.Command, withNeighbours bool) {
	cmd.Flags().IntVar(&q.nTrees, "n-trees", similarity.DefaultNTrees, "Index n_trees")
	cmd.Flags().StringVar(&q.distance, "distance-type", string(similarity.DefaultDistanceType), "Index distance type")
	if withNeighbours {
		cmd.Flags().IntVarP(&q.nNeighbours, "neighbours", "n", similarity.DefaultNNeighbours, "Number of neighbours to retrieve")
		cmd.Flags().StringVar(&q.threshold, "threshold", "", "Drop neighbours farther than this distance")
		cmd.Flags().StringVar(&q.removeDups, "remove-dups", "none", "Deduplication: none, samescore or all")
	}
}

func (q *queryFlags) params(refs []string) url.Values {
	params := url.Values{}
	params.Set(similarity.ParamRecordingIDs, strings.Join(refs, ";"))
	params.Set(similarity.ParamNTrees, strconv.Itoa(q.nTrees))
	params.Set(similarity.ParamDistanceType, q.distance)
	params.Set(similarity.ParamNNeighbours, strconv.Itoa(q.nNeighbours))
	params.Set(similarity.ParamThreshold, q.threshold)
	params.Set(similarity.ParamRemoveDups, q.removeDups)
	return params
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var similarFlags queryFlags

var similarCmd = &cobra.Command{
	Use:   "similar <metric> <mbid[:offset]>...",
	Short: "Find similar recordings",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		svc, err := createService(db)
		if err != nil {
			return err
		}
		result, err := svc.SimilarRecordings(cmd.Context(), args[0], similarFlags.params(args[1:]))
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

var betweenFlags queryFlags

var betweenCmd = &cobra.Command{
	Use:   "between <metric> <mbid[:offset]> <mbid[:offset]>",
	Short: "Distance between two recordings",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		svc, err := createService(db)
		if err != nil {
			return err
		}
		result, err := svc.SimilarityBetween(cmd.Context(), args[0], betweenFlags.params(args[1:]))
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

func init() {
	similarFlags.register(similarCmd, true)
	betweenFlags.register(betweenCmd, false)
	rootCmd.AddCommand(similarCmd, betweenCmd)
}
