package geo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	postgis "github.com/cridenour/go-postgis"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"shiptrack/internal/model"
)

// PostgresSource reads port positions from a PostGIS table:
//
//	locations(unlocode text primary key, name text, location geography(point, 4326))
type PostgresSource struct {
	db *sql.DB
}

func NewPostgresSource(db *sql.DB) *PostgresSource { return &PostgresSource{db: db} }

// OpenPostgres opens dsn with the pgx driver.
func OpenPostgres(dsn string) (*PostgresSource, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &PostgresSource{db: db}, nil
}

func (p *PostgresSource) DB() *sql.DB { return p.db }

func (p *PostgresSource) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE EXTENSION IF NOT EXISTS postgis;
		CREATE TABLE IF NOT EXISTS locations (
			unlocode TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			location GEOGRAPHY(POINT, 4326)
		)`)
	return err
}

func (p *PostgresSource) Lookup(ctx context.Context, code string) (model.Coordinate, bool, error) {
	code = NormalizeCode(code)
	if code == "" {
		return model.Coordinate{}, false, nil
	}
	var (
		name  string
		point postgis.PointS
	)
	err := p.db.QueryRowContext(ctx,
		`SELECT name, ST_AsEWKB(location::geometry) FROM locations WHERE unlocode = $1 AND location IS NOT NULL`,
		code).Scan(&name, &point)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Coordinate{}, false, nil
	}
	if err != nil {
		return model.Coordinate{}, false, fmt.Errorf("geo: lookup %s: %w", code, err)
	}
	return toCoordinate(code, name, point), true, nil
}

// LookupMany resolves several codes in one query. Unknown codes are absent
// from the result.
func (p *PostgresSource) LookupMany(ctx context.Context, codes []string) (map[string]model.Coordinate, error) {
	norm := make([]string, 0, len(codes))
	for _, c := range codes {
		if c = NormalizeCode(c); c != "" {
			norm = append(norm, c)
		}
	}
	out := map[string]model.Coordinate{}
	if len(norm) == 0 {
		return out, nil
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT unlocode, name, ST_AsEWKB(location::geometry) FROM locations WHERE unlocode = ANY($1) AND location IS NOT NULL`,
		pq.Array(norm))
	if err != nil {
		return nil, fmt.Errorf("geo: lookup many: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			code, name string
			point      postgis.PointS
		)
		if err := rows.Scan(&code, &name, &point); err != nil {
			return nil, err
		}
		out[code] = toCoordinate(code, name, point)
	}
	return out, rows.Err()
}

// Upsert stores a position. X is longitude and Y latitude.
func (p *PostgresSource) Upsert(ctx context.Context, code string, c model.Coordinate) error {
	point := postgis.PointS{SRID: 4326, X: c.Lng, Y: c.Lat}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO locations (unlocode, name, location)
		VALUES ($1, $2, ST_GeomFromEWKB($3)::geography)
		ON CONFLICT (unlocode) DO UPDATE SET name = EXCLUDED.name, location = EXCLUDED.location`,
		NormalizeCode(code), c.Name, point)
	return err
}

// Import upserts every entry of a dataset that has parseable coordinates
// and returns how many were written.
func (p *PostgresSource) Import(ctx context.Context, d *Dataset) (int, error) {
	n := 0
	for code, e := range d.Entries() {
		c, ok := e.coordinate(code)
		if !ok {
			continue
		}
		if err := p.Upsert(ctx, code, c); err != nil {
			return n, fmt.Errorf("geo: import %s: %w", code, err)
		}
		n++
	}
	return n, nil
}

func toCoordinate(code, name string, p postgis.PointS) model.Coordinate {
	if name == "" {
		name = code
	}
	return model.Coordinate{Lat: p.Y, Lng: p.X, Name: name}
}
