package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/neexbeast/agroclima/internal/meteo"
)

// Querier is the subset of *pgxpool.Pool the repository uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// Repository is the observation log.
type Repository struct {
	q Querier
}

// NewRepository constructs a Repository over q.
func NewRepository(q Querier) *Repository {
	return &Repository{q: q}
}

// NormalizeQuery is the form a city query is stored and looked up under.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

const insertObservation = `INSERT INTO observations (query, city, latitude, longitude, data, retrieved_at)
VALUES ($1, $2, $3, $4, $5, $6)`

// RecordObservation appends cw to the log under query.
func (r *Repository) RecordObservation(ctx context.Context, query string, cw meteo.CityWeather) error {
	data, err := json.Marshal(cw.Data)
	if err != nil {
		return fmt.Errorf("encoding observation for %s: %w", query, err)
	}

	_, err = r.q.Exec(ctx, insertObservation,
		NormalizeQuery(query), cw.City, cw.Latitude, cw.Longitude, data, cw.RetrievedAt)
	if err != nil {
		return fmt.Errorf("recording observation for %s: %w", query, err)
	}
	return nil
}

const selectRecent = `SELECT id, query, city, latitude, longitude, data, retrieved_at, recorded_at
FROM observations
WHERE query = $1
ORDER BY recorded_at DESC, id DESC
LIMIT $2`

// RecentObservations returns up to limit observations for query, newest first.
func (r *Repository) RecentObservations(ctx context.Context, query string, limit int) ([]meteo.Observation, error) {
	rows, err := r.q.Query(ctx, selectRecent, NormalizeQuery(query), limit)
	if err != nil {
		return nil, fmt.Errorf("querying observations for %s: %w", query, err)
	}
	defer rows.Close()

	out := []meteo.Observation{}
	for rows.Next() {
		var (
			o    meteo.Observation
			data []byte
		)
		if err := rows.Scan(&o.ID, &o.Query, &o.Weather.City, &o.Weather.Latitude,
			&o.Weather.Longitude, &data, &o.Weather.RetrievedAt, &o.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning observation: %w", err)
		}
		if err := json.Unmarshal(data, &o.Weather.Data); err != nil {
			return nil, fmt.Errorf("decoding observation %d: %w", o.ID, err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating observations for %s: %w", query, err)
	}
	return out, nil
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.q.Ping(ctx)
}
