package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"shiptrack/internal/alerts"
	"shiptrack/internal/buildinfo"
	"shiptrack/internal/ingest"
	"shiptrack/internal/log"
	"shiptrack/internal/model"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "shiptrack",
	Short: "shiptrack - container shipment tracking toolkit",
	Long: `shiptrack analyzes container shipment documents offline: status,
route, milestones, comparison of two documents and delay alerts.

It also manages the local viewing history, resolves location codes and
runs the Kafka shipment consumer.`,
	Version:       buildinfo.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		log.Init(log.Config{Level: log.Level(level), Output: cmd.ErrOrStderr()})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
	},
}

func init() {
	rootCmd.SetVersionTemplate(buildinfo.String() + "\n")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(locateCmd)
	rootCmd.AddCommand(importCSVCmd)
	rootCmd.AddCommand(consumeCmd)
}

// loadRecord reads and parses one shipment document. "-" reads stdin.
func loadRecord(path string, stdin io.Reader) (model.ShipmentRecord, ingest.Format, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return model.ShipmentRecord{}, "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	rec, format, err := ingest.Parse(data)
	if err != nil {
		return model.ShipmentRecord{}, "", fmt.Errorf("%s: %w", path, err)
	}
	return rec, format, nil
}

// thresholdFlags reads --pol-hours and --pod-hours. Zero keeps the default.
func thresholdFlags(cmd *cobra.Command) (alerts.Thresholds, error) {
	t := alerts.DefaultThresholds()
	pol, _ := cmd.Flags().GetFloat64("pol-hours")
	pod, _ := cmd.Flags().GetFloat64("pod-hours")
	if pol < 0 || pod < 0 {
		return t, fmt.Errorf("thresholds must not be negative")
	}
	if pol > 0 {
		t.POLDepartureHours = pol
	}
	if pod > 0 {
		t.PODArrivalHours = pod
	}
	return t, nil
}

func addThresholdFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("pol-hours", 0, "POL departure alert threshold in hours (default 24)")
	cmd.Flags().Float64("pod-hours", 0, "POD arrival alert threshold in hours (default 24)")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
