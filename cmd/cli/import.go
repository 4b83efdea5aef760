package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/himanishpuri/AcousticSimilarity/pkg/logger"
	"github.com/himanishpuri/AcousticSimilarity/pkg/similarity"
	"github.com/himanishpuri/AcousticSimilarity/pkg/utils"
	"github.com/spf13/cobra"
)

// maxLineSize bounds one JSON line of the import file.
const maxLineSize = 16 << 20

// submissionLine is one line of an import file:
//
//	{"mbid": "...", "features": {"mfccs": [..], "bpm": [..]}}
type submissionLine struct {
	MBID     string               `json:"mbid"`
	Features map[string][]float32 `json:"features"`
}

var importCmd = &cobra.Command{
	Use:   "import <file.jsonl>",
	Short: "Import feature submissions from a JSON-lines file",
	Long: `Each line holds one submission: {"mbid": "<uuid>", "features": {"<metric>": [floats...]}}.
Repeated submissions of an mbid get increasing offsets. Use "-" to read stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = os.Stdin
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		log := logger.GetLogger()
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
		defer cancel()

		imported := 0
		err = decodeSubmissions(in, func(line submissionLine) error {
			offset, err := db.AddSubmission(ctx, line.MBID, line.Features)
			if err != nil {
				return err
			}
			log.Debugf("Imported %s:%d (%d metrics)", line.MBID, offset, len(line.Features))
			imported++
			return nil
		})
		if err != nil {
			return fmt.Errorf("after %d submissions: %w", imported, err)
		}

		fmt.Printf("✅ Imported %d submission(s) into %s\n", imported, dbPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}

// decodeSubmissions validates every non-empty line of r and hands it to fn.
// Unknown metrics are dropped from the feature map.
func decodeSubmissions(r io.Reader, fn func(submissionLine) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var line submissionLine
		if err := json.Unmarshal(raw, &line); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		mbid, err := utils.NormalizeMBID(line.MBID)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		line.MBID = mbid

		for metric := range line.Features {
			if !similarity.IsKnownMetric(metric) {
				delete(line.Features, metric)
			}
		}
		if len(line.Features) == 0 {
			return fmt.Errorf("line %d: no known metrics for %s", lineNo, mbid)
		}

		if err := fn(line); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	return scanner.Err()
}
