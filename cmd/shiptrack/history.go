package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"shiptrack/internal/ingest"
	"shiptrack/internal/store"
)

// Local viewing history
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the local shipment viewing history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List history entries, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer h.Close()

		entries, err := h.List(cmd.Context())
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), nonNil(entries))
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No history entries")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-20s %-8s %-8s %s\n", "VIEWED", "IDENTITY", "POL", "POD", "KEY")
		for _, e := range entries {
			fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-20s %-8s %-8s %s\n",
				e.ViewedAt, e.Identity, e.Metadata.POL, e.Metadata.POD, e.Key)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show KEY",
	Short: "Print the stored document of a history entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer h.Close()

		e, err := h.Get(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("history entry %s: %w", args[0], err)
		}
		var doc any
		if err := json.Unmarshal(e.RawData, &doc); err != nil {
			return fmt.Errorf("history entry %s: %w", args[0], err)
		}
		return printJSON(cmd.OutOrStdout(), doc)
	},
}

var historyAddCmd = &cobra.Command{
	Use:   "add FILE...",
	Short: "Record shipment documents in the history",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer h.Close()

		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			meta, _, err := ingest.Describe(data)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			e := store.NewHistoryEntry(meta, data, time.Now())
			if err := h.Save(cmd.Context(), e); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s recorded as %s\n", path, e.Key)
		}
		return nil
	},
}

var historyRmCmd = &cobra.Command{
	Use:     "rm KEY...",
	Aliases: []string{"remove"},
	Short:   "Remove history entries",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer h.Close()

		for _, key := range args {
			if err := h.Remove(cmd.Context(), key); err != nil {
				return fmt.Errorf("history entry %s: %w", key, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s removed\n", key)
		}
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every history entry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer h.Close()

		if err := h.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ History cleared")
		return nil
	},
}

func init() {
	historyCmd.PersistentFlags().StringP("file", "f", defaultHistoryPath(), "History database file")
	historyCmd.PersistentFlags().Int("max", store.DefaultHistoryMax, "Maximum number of entries kept")
	historyListCmd.Flags().Bool("json", false, "Print JSON instead of text")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyAddCmd)
	historyCmd.AddCommand(historyRmCmd)
	historyCmd.AddCommand(historyClearCmd)
}

func defaultHistoryPath() string {
	if p := os.Getenv("HISTORY_PATH"); p != "" {
		return p
	}
	return "shiptrack-history.db"
}

func openHistory(cmd *cobra.Command) (*store.Bolt, error) {
	path, _ := cmd.Flags().GetString("file")
	max, _ := cmd.Flags().GetInt("max")
	return store.OpenBolt(path, max)
}
