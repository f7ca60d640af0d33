package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"msfcomp/internal/record"
	"msfcomp/internal/scan"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	parseFormat string
	parseStrict bool
)

// parseCmd emits parsed records
var parseCmd = &cobra.Command{
	Use:   "parse [files or dirs...]",
	Short: "Parse records and print their fields as JSON or YAML",
	Long: `Parses every valid line and prints one entry per record.
Malformed lines are reported on stderr and skipped unless --strict is set.

Formats:
  json  one JSON object per line
  yaml  a YAML sequence`,
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringVarP(&parseFormat, "format", "f", "json", "Output format: json or yaml")
	parseCmd.Flags().BoolVar(&parseStrict, "strict", false, "Fail on the first malformed line")
}

// parsedEntry is the output shape of a single record.
type parsedEntry struct {
	Source string         `json:"source" yaml:"source"`
	Line   int            `json:"line" yaml:"line"`
	Fields *record.Record `json:"fields" yaml:"fields"`
}

func runParse(cmd *cobra.Command, args []string) error {
	if parseFormat != "json" && parseFormat != "yaml" {
		return fmt.Errorf("unknown format %q (want json or yaml)", parseFormat)
	}

	var entries []parsedEntry
	errOut := cmd.ErrOrStderr()
	stats, err := scanArgs(cmd, args, func(r scan.Result) error {
		if !r.Valid() {
			if parseStrict {
				return fmt.Errorf("%s:%d: %w", r.Source, r.Line, r.Err)
			}
			fmt.Fprintf(errOut, "%s:%d: skipped: %v\n", r.Source, r.Line, r.Err)
			return nil
		}
		entries = append(entries, parsedEntry{Source: r.Source, Line: r.Line, Fields: r.Record})
		return nil
	})
	if err != nil {
		return err
	}

	// Files are scanned concurrently; restore a stable order.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Source != entries[j].Source {
			return entries[i].Source < entries[j].Source
		}
		return entries[i].Line < entries[j].Line
	})

	out := cmd.OutOrStdout()
	switch parseFormat {
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return err
		}
	default:
		enc := json.NewEncoder(out)
		for _, e := range entries {
			if err := enc.Encode(e); err != nil {
				return fmt.Errorf("failed to encode json: %w", err)
			}
		}
	}

	logger.Debug("Parse finished", zap.Int("records", stats.Valid), zap.Int("skipped", stats.Invalid))
	return nil
}
