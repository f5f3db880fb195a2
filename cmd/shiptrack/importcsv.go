package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shiptrack/internal/alerts"
	"shiptrack/internal/ingest"
	"shiptrack/internal/integrations"
	"shiptrack/internal/integrations/csvfeed"
	"shiptrack/internal/mq"
	"shiptrack/internal/session"
	"shiptrack/internal/store"
)

var importCSVCmd = &cobra.Command{
	Use:   "import-csv FILE",
	Short: "Import a carrier CSV export",
	Long: `Read a carrier CSV export, group its rows into shipments and print the
status and route of each one.

With --history every shipment is recorded in the local history. With
--kafka-brokers every shipment is published to the shipments topic, where
the consume command picks it up.`,
	Args: cobra.ExactArgs(1),
	RunE: runImportCSV,
}

func init() {
	importCSVCmd.Flags().String("history", "", "History database file to record shipments in")
	importCSVCmd.Flags().StringSlice("kafka-brokers", nil, "Kafka brokers to publish shipments to")
	importCSVCmd.Flags().String("topic", "shipment.raw", "Kafka topic for published shipments")
	importCSVCmd.Flags().Bool("json", false, "Print JSON instead of text")
}

type importedShipment struct {
	ID        string   `json:"id"`
	Identity  string   `json:"identity"`
	Status    string   `json:"status"`
	Route     []string `json:"route"`
	Events    int      `json:"events"`
	Published bool     `json:"published,omitempty"`
	Recorded  bool     `json:"recorded,omitempty"`
}

func runImportCSV(cmd *cobra.Command, args []string) error {
	historyPath, _ := cmd.Flags().GetString("history")
	brokers, _ := cmd.Flags().GetStringSlice("kafka-brokers")
	topic, _ := cmd.Flags().GetString("topic")
	asJSON, _ := cmd.Flags().GetBool("json")
	ctx := cmd.Context()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer f.Close()

	var adapter integrations.FeedAdapter = csvfeed.Adapter{}
	raws, err := adapter.Fetch(ctx, f)
	if err != nil {
		return err
	}

	var h *store.Bolt
	if historyPath != "" {
		if h, err = store.OpenBolt(historyPath, store.DefaultHistoryMax); err != nil {
			return err
		}
		defer h.Close()
	}
	var pub func(ctx context.Context, key string, doc []byte) error
	if len(brokers) > 0 {
		w := mq.NewWriter(brokers, topic)
		defer w.Close()
		pub = func(ctx context.Context, key string, doc []byte) error {
			return mq.PublishJSON(ctx, w, key, json.RawMessage(doc))
		}
	}

	out := make([]importedShipment, 0, len(raws))
	for _, raw := range raws {
		doc, err := json.Marshal(raw)
		if err != nil {
			return err
		}
		rec := ingest.FromRaw(raw)
		meta, _, err := ingest.Describe(doc)
		if err != nil {
			return fmt.Errorf("shipment %s: %w", raw.ID, err)
		}
		a := session.Analyze(rec, nil, alerts.DefaultThresholds())
		item := importedShipment{
			ID:       raw.ID,
			Identity: meta.Identity(),
			Status:   string(a.Status.Kind),
			Events:   len(rec.Events),
		}
		for _, n := range a.Route {
			item.Route = append(item.Route, n.LocationCode)
		}
		if h != nil {
			if err := h.Save(ctx, store.NewHistoryEntry(meta, doc, time.Now())); err != nil {
				return err
			}
			item.Recorded = true
		}
		if pub != nil {
			pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := pub(pctx, item.Identity, doc)
			cancel()
			if err != nil {
				return fmt.Errorf("publish %s: %w", raw.ID, err)
			}
			item.Published = true
		}
		out = append(out, item)
	}

	if asJSON {
		return printJSON(cmd.OutOrStdout(), out)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d shipments from %s (%s feed)\n", len(out), args[0], adapter.Name())
	for _, s := range out {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-12s %-14s %3d events  %s\n", s.ID, s.Status, s.Events, strings.Join(s.Route, " -> "))
	}
	return nil
}
