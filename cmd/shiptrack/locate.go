package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"shiptrack/internal/geo"
)

var locateCmd = &cobra.Command{
	Use:   "locate CODE...",
	Short: "Resolve UN/LOCODEs to coordinates",
	Long: `Resolve location codes against a JSON or YAML dataset, a PostGIS
locations table, or both. The dataset is consulted first.

With --import, the dataset is written to the database before lookups.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLocate,
}

func init() {
	locateCmd.Flags().StringP("locations", "l", os.Getenv("LOCATIONS_FILE"), "Location dataset (JSON or YAML)")
	locateCmd.Flags().String("database-url", os.Getenv("DATABASE_URL"), "Postgres DSN of the locations table")
	locateCmd.Flags().Bool("import", false, "Import the dataset into the database first")
	locateCmd.Flags().Bool("json", false, "Print JSON instead of text")
}

func runLocate(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("locations")
	dsn, _ := cmd.Flags().GetString("database-url")
	doImport, _ := cmd.Flags().GetBool("import")
	asJSON, _ := cmd.Flags().GetBool("json")
	ctx := cmd.Context()

	var (
		chain geo.Chain
		ds    *geo.Dataset
	)
	if file != "" {
		var err error
		if ds, err = geo.LoadFile(file); err != nil {
			return err
		}
		chain = append(chain, ds)
	}
	if dsn != "" {
		pg, err := geo.OpenPostgres(dsn)
		if err != nil {
			return fmt.Errorf("failed to open locations database: %w", err)
		}
		defer pg.DB().Close()
		if doImport {
			if ds == nil {
				return fmt.Errorf("--import needs --locations")
			}
			if err := pg.Migrate(ctx); err != nil {
				return err
			}
			n, err := pg.Import(ctx, ds)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ %d locations imported\n", n)
		}
		chain = append(chain, pg)
	}
	if len(chain) == 0 {
		return fmt.Errorf("no location source: set --locations or --database-url")
	}

	type result struct {
		Code  string   `json:"code"`
		Found bool     `json:"found"`
		Name  string   `json:"name,omitempty"`
		Lat   *float64 `json:"lat,omitempty"`
		Lng   *float64 `json:"lng,omitempty"`
	}
	results := make([]result, 0, len(args))
	for _, code := range args {
		code = geo.NormalizeCode(code)
		c, ok, err := chain.Lookup(ctx, code)
		if err != nil {
			return fmt.Errorf("lookup %s: %w", code, err)
		}
		r := result{Code: code, Found: ok}
		if ok {
			r.Name, r.Lat, r.Lng = c.Name, &c.Lat, &c.Lng
		}
		results = append(results, r)
	}

	if asJSON {
		return printJSON(cmd.OutOrStdout(), results)
	}
	for _, r := range results {
		if !r.Found {
			fmt.Fprintf(cmd.OutOrStdout(), "%-6s not found\n", r.Code)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-6s %9.4f %10.4f  %s\n", r.Code, *r.Lat, *r.Lng, r.Name)
	}
	return nil
}
