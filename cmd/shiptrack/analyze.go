package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"shiptrack/internal/alerts"
	"shiptrack/internal/compare"
	"shiptrack/internal/geo"
	"shiptrack/internal/log"
	"shiptrack/internal/model"
	"shiptrack/internal/session"
	"shiptrack/internal/tracking"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze PRIMARY",
	Short: "Analyze a shipment document",
	Long: `Analyze a raw provider document or a display record: status, route,
milestones and summary. With --secondary the two documents are compared
and delay alerts are evaluated.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var statusCmd = &cobra.Command{
	Use:   "status FILE",
	Short: "Print the status of a shipment document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, _, err := loadRecord(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
		st := tracking.ClassifyStatus(rec)
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), st)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", st.Label, st.Description)
		return nil
	},
}

var routeCmd = &cobra.Command{
	Use:   "route FILE",
	Short: "Print the transport route of a shipment document",
	Long: `Print the ordered port route built from transport events. With
--locations, every port is resolved against a JSON or YAML location dataset
and the great-circle distance of the route is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runRoute,
}

var compareCmd = &cobra.Command{
	Use:   "compare PRIMARY SECONDARY",
	Short: "Compare two shipment documents",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		primary, _, err := loadRecord(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
		secondary, _, err := loadRecord(args[1], cmd.InOrStdin())
		if err != nil {
			return err
		}
		t, err := thresholdFlags(cmd)
		if err != nil {
			return err
		}
		diffs := compare.Compare(primary, secondary)
		found := alerts.NewEngine(t).Evaluate(primary, secondary)
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"differences": nonNil(diffs),
				"alerts":      nonNil(found),
			})
		}
		writeDifferences(cmd.OutOrStdout(), diffs)
		writeAlerts(cmd.OutOrStdout(), found)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringP("secondary", "s", "", "Second document to compare against")
	addThresholdFlags(analyzeCmd)
	addThresholdFlags(compareCmd)
	routeCmd.Flags().StringP("locations", "l", "", "Location dataset (JSON or YAML) used to resolve coordinates")

	for _, c := range []*cobra.Command{analyzeCmd, statusCmd, routeCmd, compareCmd} {
		c.Flags().Bool("json", false, "Print JSON instead of text")
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	secondaryPath, _ := cmd.Flags().GetString("secondary")
	asJSON, _ := cmd.Flags().GetBool("json")

	primary, format, err := loadRecord(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}
	t, err := thresholdFlags(cmd)
	if err != nil {
		return err
	}
	var secondary *model.ShipmentRecord
	if secondaryPath != "" {
		rec, _, err := loadRecord(secondaryPath, cmd.InOrStdin())
		if err != nil {
			return err
		}
		secondary = &rec
	}
	log.Logger.Debug().Str("format", string(format)).Int("events", len(primary.Events)).Msg("document parsed")

	a := session.Analyze(primary, secondary, t)
	if asJSON {
		return printJSON(cmd.OutOrStdout(), a)
	}
	writeAnalysis(cmd.OutOrStdout(), primary, a)
	return nil
}

func runRoute(cmd *cobra.Command, args []string) error {
	locations, _ := cmd.Flags().GetString("locations")
	asJSON, _ := cmd.Flags().GetBool("json")

	rec, _, err := loadRecord(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}
	route := tracking.BuildRoute(rec.TransportEvents)
	var distance *float64
	if locations != "" {
		ds, err := geo.LoadFile(locations)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		route, err = geo.ResolveRoute(ctx, ds, route, log.WithComponent("geo"))
		if err != nil {
			return err
		}
		d := geo.RouteDistanceKm(route)
		distance = &d
	}

	if asJSON {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"route":         nonNil(route),
			"vesselChanges": nonNil(tracking.VesselChanges(route)),
			"distanceKm":    distance,
		})
	}
	writeRoute(cmd.OutOrStdout(), route)
	if distance != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Distance: %.0f km\n", *distance)
	}
	return nil
}

func writeAnalysis(w io.Writer, rec model.ShipmentRecord, a *session.Analysis) {
	if rec.ShipmentID != "" {
		fmt.Fprintf(w, "Shipment:  %s\n", rec.ShipmentID)
	}
	if rec.ContainerNumber != "" {
		fmt.Fprintf(w, "Container: %s\n", rec.ContainerNumber)
	}
	fmt.Fprintf(w, "Status:    %s (%s)\n", a.Status.Label, a.Status.Description)
	fmt.Fprintf(w, "Events:    %d (%d undated)\n", a.Summary.TotalEvents, a.Summary.UndatedEvents)
	if p := a.Summary.Progress; p != nil {
		fmt.Fprintf(w, "Progress:  %d/%d legs (%d%%)\n", p.CompletedLegs, p.TotalLegs, p.Percent)
	}
	fmt.Fprintln(w)
	writeRoute(w, a.Route)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Milestones:")
	for _, m := range a.Milestones {
		mark := " "
		if m.Completed {
			mark = "x"
		}
		fmt.Fprintf(w, "  [%s] %-28s %-6s %s\n", mark, m.Label, m.LocationCode, tracking.FormatTime(m.Time))
	}
	if a.Compared {
		fmt.Fprintln(w)
		writeDifferences(w, a.Differences)
		writeAlerts(w, a.Alerts)
	}
}

func writeRoute(w io.Writer, route []model.PortNode) {
	if len(route) == 0 {
		fmt.Fprintln(w, "Route: no transport events")
		return
	}
	fmt.Fprintln(w, "Route:")
	for i, n := range route {
		line := fmt.Sprintf("  %d. %-6s %-20s", i+1, n.LocationCode, n.LocationName)
		if n.ArrivalTime != "" {
			line += " arr " + tracking.FormatTime(n.ArrivalTime)
		}
		if n.DepartureTime != "" {
			line += " dep " + tracking.FormatTime(n.DepartureTime)
		}
		if vessel, changed := tracking.VesselChangeAt(route, i); changed {
			line += " [vessel change: " + vessel + "]"
		}
		if c := n.Coordinates; c != nil {
			line += fmt.Sprintf(" (%.4f, %.4f)", c.Lat, c.Lng)
		}
		fmt.Fprintln(w, line)
	}
}

func writeDifferences(w io.Writer, diffs []model.Difference) {
	if len(diffs) == 0 {
		fmt.Fprintln(w, "Differences: none")
		return
	}
	fmt.Fprintf(w, "Differences (%d):\n", len(diffs))
	for _, d := range diffs {
		fmt.Fprintf(w, "  %s: %s | %s\n", d.Label, d.PrimaryValue, d.SecondaryValue)
	}
}

func writeAlerts(w io.Writer, found []model.Alert) {
	if len(found) == 0 {
		fmt.Fprintln(w, "Alerts: none")
		return
	}
	fmt.Fprintf(w, "Alerts (%d):\n", len(found))
	for _, a := range found {
		fmt.Fprintf(w, "  [%s] %s: %s\n", a.Level, a.Category, a.Message)
	}
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
