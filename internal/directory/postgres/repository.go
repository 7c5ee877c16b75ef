package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/costnav/costnav/internal/directory"
)

type dbTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository is the read side of the provider directory.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping directory db: %w", err)
	}
	return nil
}

const searchSelect = `
SELECT p.provider_id, p.provider_name, p.provider_city, p.provider_state, p.provider_zip_code, AVG(r.rating) AS avg_rating
FROM providers AS p
LEFT JOIN ratings AS r ON r.provider_id = p.provider_id`

const searchGroupBy = `
GROUP BY p.provider_id, p.provider_name, p.provider_city, p.provider_state, p.provider_zip_code`

// buildSearchQuery assembles the grouped provider query from an explicit
// join plan plus a bound predicate; user input only ever travels as a
// positional argument.
func buildSearchQuery(filter directory.SearchFilter) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(searchSelect)

	if filter.DRG != "" {
		sb.WriteString("\nJOIN drg_prices AS dp ON dp.provider_id = p.provider_id")
		if id, ok := numericDRG(filter.DRG); ok {
			args = append(args, id)
			fmt.Fprintf(&sb, "\nWHERE dp.drg_id = $%d", len(args))
		} else {
			sb.WriteString("\nJOIN drgs AS d ON d.drg_id = dp.drg_id")
			args = append(args, "%"+filter.DRG+"%")
			fmt.Fprintf(&sb, "\nWHERE d.ms_drg_definition ILIKE $%d", len(args))
		}
	}

	sb.WriteString(searchGroupBy)
	return sb.String(), args
}

// numericDRG reports whether drg is an all-digit DRG id and parses it.
func numericDRG(drg string) (int64, bool) {
	for _, r := range drg {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(drg, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (r *Repository) SearchProviders(ctx context.Context, filter directory.SearchFilter) ([]directory.Provider, error) {
	query, args := buildSearchQuery(filter)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search providers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	providers := make([]directory.Provider, 0)
	for rows.Next() {
		var (
			provider  directory.Provider
			avgRating sql.NullFloat64
		)
		if err := rows.Scan(
			&provider.ProviderID,
			&provider.ProviderName,
			&provider.ProviderCity,
			&provider.ProviderState,
			&provider.ProviderZipCode,
			&avgRating,
		); err != nil {
			return nil, fmt.Errorf("scan provider row: %w", err)
		}
		if avgRating.Valid {
			// Truncate toward zero, matching integer conversion of the average.
			rating := int(avgRating.Float64)
			provider.Rating = &rating
		}
		providers = append(providers, provider)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate provider rows: %w", err)
	}
	return providers, nil
}

func (r *Repository) ZipCoordinates(ctx context.Context, zip string) (directory.Coordinates, error) {
	query := `
SELECT latitude, longitude
FROM zip_codes
WHERE zip_code = $1`

	var coords directory.Coordinates
	if err := r.db.QueryRowContext(ctx, query, zip).Scan(&coords.Latitude, &coords.Longitude); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return directory.Coordinates{}, directory.ErrNotFound
		}
		return directory.Coordinates{}, fmt.Errorf("zip coordinates for %s: %w", zip, err)
	}
	return coords, nil
}
