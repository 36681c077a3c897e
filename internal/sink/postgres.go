package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createMeasurementsTable = `
CREATE TABLE IF NOT EXISTS aircasting_measurements (
	session_id     text        NOT NULL,
	stream_id      bigint      NOT NULL,
	sensor_name    text        NOT NULL,
	sensor_unit    text,
	discovered_via text,
	measured_at    timestamptz NOT NULL,
	value          double precision,
	fields         jsonb,
	ingested_at    timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (session_id, stream_id, measured_at)
)`

const upsertMeasurement = `
INSERT INTO aircasting_measurements
	(session_id, stream_id, sensor_name, sensor_unit, discovered_via, measured_at, value, fields)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (session_id, stream_id, measured_at) DO UPDATE
SET value = EXCLUDED.value,
    fields = EXCLUDED.fields,
    ingested_at = now()`

// PostgresSink upserts canonical records keyed on
// (session, stream, measured_at), so re-pulling an overlapping window is
// idempotent.
type PostgresSink struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresSink connects to the database and ensures the target table.
func NewPostgresSink(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, createMeasurementsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure measurements table: %w", err)
	}
	return &PostgresSink{pool: pool, logger: logger}, nil
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) Write(ctx context.Context, out Output) error {
	if len(out.Records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rec := range out.Records {
		fields, err := json.Marshal(rec.Fields)
		if err != nil {
			return fmt.Errorf("encode passthrough fields: %w", err)
		}
		batch.Queue(upsertMeasurement,
			out.Session.ID,
			out.Stream.StreamID,
			out.Stream.SensorName,
			out.Stream.SensorUnit,
			out.Session.DiscoveredVia,
			rec.Time,
			rec.Value,
			fields,
		)
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	for range out.Records {
		if _, err := res.Exec(); err != nil {
			return fmt.Errorf("upsert measurement: %w", err)
		}
	}

	s.logger.Info("records stored", "count", len(out.Records))
	return nil
}

func (s *PostgresSink) Close() {
	s.pool.Close()
}
