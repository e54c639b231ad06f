package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/usazehan/healthcare-admin-dashboard/retry"
)

const schema = `
CREATE TABLE IF NOT EXISTS model_versions (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL,
	version    TEXT NOT NULL,
	status     TEXT NOT NULL,
	run_id     TEXT NOT NULL,
	weights    JSONB NOT NULL,
	metrics    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (name, version)
)`

const uniqueViolation = "23505"

// Postgres is a Registry backed by the model_versions table.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// OpenPool dials Postgres and pings it, retrying with backoff.
func OpenPool(ctx context.Context, dsn string, log *zap.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("db pool init: %w", err)
	}
	if err := retry.Do(ctx, retry.Startup, log, "postgres", pool.Ping); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return pool, nil
}

func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create model_versions: %w", err)
	}
	return nil
}

func (p *Postgres) Save(ctx context.Context, mv *ModelVersion) error {
	if err := validateName(mv.Name, mv.Version); err != nil {
		return err
	}

	weights, err := json.Marshal(mv.Weights)
	if err != nil {
		return fmt.Errorf("encode weights: %w", err)
	}
	metrics, err := json.Marshal(mv.Metrics)
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}

	runID := uuid.NewString()
	insert := func(ctx context.Context, version string) error {
		err := p.pool.QueryRow(ctx, `
			INSERT INTO model_versions (name, version, status, run_id, weights, metrics)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at
		`, mv.Name, version, StatusReady, runID, weights, metrics).Scan(&mv.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return fmt.Errorf("%s/%s: %w", mv.Name, version, ErrVersionExists)
			}
			return fmt.Errorf("insert model version: %w", err)
		}
		return nil
	}

	if mv.Version != "" {
		if err := insert(ctx, mv.Version); err != nil {
			return err
		}
	} else {
		version, err := assignVersion(ctx, func(ctx context.Context) ([]string, error) {
			return p.versionNames(ctx, mv.Name)
		}, insert)
		if err != nil {
			return err
		}
		mv.Version = version
	}

	mv.Status = StatusReady
	mv.RunID = runID
	return nil
}

func (p *Postgres) versionNames(ctx context.Context, name string) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT version FROM model_versions WHERE name = $1`, name)
	if err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan versions: %w", err)
	}
	return names, nil
}

func (p *Postgres) Load(ctx context.Context, name, version string) (*ModelVersion, error) {
	query := `
		SELECT name, version, status, run_id, weights, metrics, created_at
		FROM model_versions
		WHERE name = $1 AND version = $2
	`
	args := []any{name, version}
	if version == Latest || version == "" {
		query = `
			SELECT name, version, status, run_id, weights, metrics, created_at
			FROM model_versions
			WHERE name = $1
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		`
		args = []any{name}
	}

	var mv ModelVersion
	var weights, metrics []byte
	err := p.pool.QueryRow(ctx, query, args...).Scan(
		&mv.Name, &mv.Version, &mv.Status, &mv.RunID, &weights, &metrics, &mv.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", name, version, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load model version: %w", err)
	}
	if err := json.Unmarshal(weights, &mv.Weights); err != nil {
		return nil, fmt.Errorf("decode weights: %w", err)
	}
	if err := json.Unmarshal(metrics, &mv.Metrics); err != nil {
		return nil, fmt.Errorf("decode metrics: %w", err)
	}
	return &mv, nil
}

func (p *Postgres) List(ctx context.Context, name string) ([]ModelVersion, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT name, version, status, run_id, metrics, created_at
		FROM model_versions
		WHERE name = $1
		ORDER BY created_at DESC, id DESC
	`, name)
	if err != nil {
		return nil, fmt.Errorf("query model versions: %w", err)
	}
	defer rows.Close()

	versions := []ModelVersion{}
	for rows.Next() {
		var mv ModelVersion
		var metrics []byte
		if err := rows.Scan(&mv.Name, &mv.Version, &mv.Status, &mv.RunID, &metrics, &mv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan model version: %w", err)
		}
		if err := json.Unmarshal(metrics, &mv.Metrics); err != nil {
			return nil, fmt.Errorf("decode metrics: %w", err)
		}
		versions = append(versions, mv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate model versions: %w", err)
	}
	return versions, nil
}
