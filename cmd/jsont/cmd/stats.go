package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/benjaminschreck/go-jsont/pkg/jsont"
)

type statsReport struct {
	Total        int            `json:"total" yaml:"total"`
	Instructions map[string]int `json:"instructions" yaml:"instructions"`
	Formatters   map[string]int `json:"formatters" yaml:"formatters"`
	Predicates   map[string]int `json:"predicates" yaml:"predicates"`
}

func newStatsCmd(root *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats TEMPLATE",
		Short: "Count instructions, formatters and predicates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readTemplate(cmd, args[0])
			if err != nil {
				return err
			}
			stats := root.compiler().Validate(source).Stats
			report := statsReport{
				Total:        stats.TotalInstructions,
				Instructions: stats.InstructionCounts(),
				Formatters:   stats.Formatters,
				Predicates:   stats.Predicates,
			}

			out := cmd.OutOrStdout()
			switch format {
			case "text":
				writeStats(out, stats)
				return nil
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(report); err != nil {
					return err
				}
				return enc.Close()
			}
			return fmt.Errorf("unknown format %q, expected text, json or yaml", format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or yaml")
	return cmd
}

func writeStats(w io.Writer, stats *jsont.CodeStats) {
	fmt.Fprintf(w, "instructions: %d\n", stats.TotalInstructions)
	writeCounts(w, stats.InstructionCounts())
	if len(stats.Formatters) > 0 {
		fmt.Fprintln(w, "formatters:")
		writeCounts(w, stats.Formatters)
	}
	if len(stats.Predicates) > 0 {
		fmt.Fprintln(w, "predicates:")
		writeCounts(w, stats.Predicates)
	}
}

func writeCounts(w io.Writer, counts map[string]int) {
	for _, key := range slices.Sorted(maps.Keys(counts)) {
		fmt.Fprintf(w, "  %-14s %d\n", key, counts[key])
	}
}
