package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/himanishpuri/AcousticSimilarity/pkg/similarity"
	"github.com/himanishpuri/AcousticSimilarity/pkg/similarity/storage"
	"github.com/spf13/cobra"
)

type storedVector struct {
	MBID   string    `json:"mbid"`
	Offset int       `json:"offset"`
	Metric string    `json:"metric"`
	Vector []float32 `json:"vector"`
}

// lookupVector reads the stored vector of one metric for an "mbid[:offset]" reference.
func lookupVector(ctx context.Context, db *storage.DBClient, metric, raw string) (*storedVector, error) {
	if !similarity.IsKnownMetric(metric) {
		return nil, fmt.Errorf("unknown metric %q", metric)
	}
	ref, err := similarity.ParseRecordingRef(raw, "")
	if err != nil {
		return nil, err
	}

	vec, err := db.GetVector(ctx, ref.MBID, ref.Offset, metric)
	if errors.Is(err, storage.ErrSubmissionNotFound) {
		return nil, fmt.Errorf("no %s data stored for %s:%d", metric, ref.MBID, ref.Offset)
	}
	if err != nil {
		return nil, err
	}
	return &storedVector{MBID: ref.MBID, Offset: ref.Offset, Metric: metric, Vector: vec}, nil
}

var showCmd = &cobra.Command{
	Use:   "show <metric> <mbid[:offset]>",
	Short: "Print the stored vector of one submission",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		v, err := lookupVector(cmd.Context(), db, args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(v)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
