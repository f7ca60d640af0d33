package main

import (
	"encoding/json"
	"fmt"
	"time"

	"msfcomp/internal/store"

	"github.com/spf13/cobra"
)

var showJSON bool

// showCmd prints stored records
var showCmd = &cobra.Command{
	Use:   "show [record-id]",
	Short: "Print stored records with the given id",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

// batchesCmd lists ingest batches
var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "List stored ingest batches, newest first",
	Args:  cobra.NoArgs,
	RunE:  runBatches,
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Print records as JSON")
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	st, err := store.Open(databasePath())
	if err != nil {
		return err
	}
	defer st.Close()

	recs, err := st.RecordsByID(ctx, args[0])
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return fmt.Errorf("no stored record with id %q", args[0])
	}

	out := cmd.OutOrStdout()
	for _, r := range recs {
		if showJSON {
			data, err := json.Marshal(r)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			continue
		}
		fmt.Fprintln(out, r.String())
	}
	return nil
}

func runBatches(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	st, err := store.Open(databasePath())
	if err != nil {
		return err
	}
	defer st.Close()

	batches, err := st.Batches(ctx)
	if err != nil {
		return err
	}
	records, fields, err := st.Counts(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%d batches, %d records, %d fields", len(batches), records, fields)))
	for _, b := range batches {
		fmt.Fprintf(out, "%s  %s  %s  valid=%d invalid=%d\n",
			mutedStyle.Render(b.CreatedAt.Local().Format(time.RFC3339)), b.ID, b.Source, b.Valid, b.Invalid)
	}
	return nil
}
