package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show stored submissions, metrics and built indices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		count, err := db.CountSubmissions(cmd.Context())
		if err != nil {
			return err
		}
		metrics, err := db.ListMetrics(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("\n📚 %d submission(s) in %s\n", count, dbPath)
		if len(metrics) > 0 {
			fmt.Printf("   Metrics: %s\n", strings.Join(metrics, ", "))
		}

		built, err := builtIndices(indexDir)
		if err != nil {
			return err
		}
		if len(built) == 0 {
			fmt.Printf("\n📭 No indices built in %s\n", indexDir)
			return nil
		}
		fmt.Printf("\n🗂  %d index(es) in %s:\n", len(built), indexDir)
		for _, name := range built {
			fmt.Printf("   %s\n", name)
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <mbid>",
	Short: "Delete every submission of a recording",
	Long:  "Deletes the stored submissions of a recording. Rebuild indices for the change to reach queries.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteRecording(cmd.Context(), strings.ToLower(args[0])); err != nil {
			return err
		}
		fmt.Printf("✅ Deleted submissions of %s\n", args[0])
		return nil
	},
}

// builtIndices lists the identities of the graph files in dir.
func builtIndices(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.hnsw"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), ".hnsw"))
	}
	sort.Strings(names)
	return names, nil
}

func init() {
	rootCmd.AddCommand(listCmd, deleteCmd)
}
