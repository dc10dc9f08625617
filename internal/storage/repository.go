package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neexbeast/takeabreak/internal/location"
)

// Querier abstracts the subset of pgxpool.Pool used by Repository.
// This allows injection of a mock in tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository reads and writes catalog records in the locations table.
type Repository struct {
	q Querier
}

// NewRepository constructs a Repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{q: pool}
}

// NewRepositoryWithQuerier constructs a Repository with a custom Querier (for tests).
func NewRepositoryWithQuerier(q Querier) *Repository {
	return &Repository{q: q}
}

// ListLocations returns every catalog record in catalog order.
// Order matters: recommendation resolution picks the first name match.
func (r *Repository) ListLocations(ctx context.Context) ([]location.Location, error) {
	const q = `
		SELECT name, address, lat, long, image_url, short_description, rating
		FROM locations
		ORDER BY position, id
	`

	rows, err := r.q.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying locations: %w", err)
	}
	defer rows.Close()

	var out []location.Location
	for rows.Next() {
		var l location.Location
		var imageURL *string

		if err := rows.Scan(
			&l.Name,
			&l.Address,
			&l.Coordinates.Lat,
			&l.Coordinates.Long,
			&imageURL,
			&l.ShortDescription,
			&l.Rating,
		); err != nil {
			return nil, fmt.Errorf("scanning location row: %w", err)
		}

		if imageURL != nil {
			l.ImageURL = *imageURL
		}
		out = append(out, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating location rows: %w", err)
	}

	return out, nil
}

// UpsertLocations writes records keyed by name, using slice index as position.
func (r *Repository) UpsertLocations(ctx context.Context, records []location.Location) error {
	const q = `
		INSERT INTO locations (position, name, address, lat, long, image_url, short_description, rating, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, NOW())
		ON CONFLICT (name) DO UPDATE
		SET position          = EXCLUDED.position,
		    address           = EXCLUDED.address,
		    lat               = EXCLUDED.lat,
		    long              = EXCLUDED.long,
		    image_url         = EXCLUDED.image_url,
		    short_description = EXCLUDED.short_description,
		    rating            = EXCLUDED.rating,
		    updated_at        = EXCLUDED.updated_at
	`

	for i, l := range records {
		if _, err := r.q.Exec(ctx, q,
			i, l.Name, l.Address, l.Coordinates.Lat, l.Coordinates.Long,
			l.ImageURL, l.ShortDescription, l.Rating,
		); err != nil {
			return fmt.Errorf("upserting location %s: %w", l.Name, err)
		}
	}

	return nil
}

// LoadCatalog reads the table and validates it into a Catalog.
func (r *Repository) LoadCatalog(ctx context.Context) (*location.Catalog, error) {
	records, err := r.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	return location.NewCatalog(records)
}
