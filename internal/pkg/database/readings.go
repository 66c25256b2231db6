package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anicoll/sensorhub/internal/pkg/model"
	"github.com/anicoll/sensorhub/internal/pkg/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const readingColumns = `id, sensor_id, temperature, humidity, "timestamp"`

const readingFilter = `
	sensor_id = $1
	AND ($2::timestamptz IS NULL OR "timestamp" >= $2::timestamptz)
	AND ($3::timestamptz IS NULL OR "timestamp" <= $3::timestamptz)`

type readingQuery struct {
	pool     *pgxpool.Pool
	sensorID int64
	from, to *time.Time
}

var _ pagination.CountingQuery[model.Reading] = readingQuery{}

func (q readingQuery) Count(ctx context.Context) (int, error) {
	var n int
	if err := q.pool.QueryRow(ctx, `SELECT count(*) FROM readings WHERE `+readingFilter, q.sensorID, q.from, q.to).Scan(&n); err != nil {
		return 0, fmt.Errorf("database: count readings: %w", err)
	}
	return n, nil
}

func (q readingQuery) Slice(ctx context.Context, offset, limit int) ([]model.Reading, error) {
	readings, _, err := q.SliceWithCount(ctx, offset, limit)
	return readings, err
}

// SliceWithCount returns a page of readings and the total number in range
// from one statement.
func (q readingQuery) SliceWithCount(ctx context.Context, offset, limit int) ([]model.Reading, int, error) {
	query := `SELECT ` + readingColumns + `, count(*) OVER () FROM readings WHERE ` + readingFilter + `
	ORDER BY "timestamp", id
	LIMIT $4 OFFSET $5`

	rows, err := q.pool.Query(ctx, query, q.sensorID, q.from, q.to, limit, max(offset, 0))
	if err != nil {
		return nil, 0, fmt.Errorf("database: list readings: %w", err)
	}
	defer rows.Close()

	readings, total, err := scanReadings(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("database: list readings: %w", err)
	}
	return readings, total, nil
}

// ListReadings returns the readings of an owned sensor within the inclusive
// filter bounds, oldest first.
func (db *Database) ListReadings(ctx context.Context, ownerID, sensorID int64, filter model.ReadingFilter) (pagination.Query[model.Reading], error) {
	if _, err := db.GetSensor(ctx, ownerID, sensorID); err != nil {
		return nil, err
	}
	return readingQuery{pool: db.pool, sensorID: sensorID, from: filter.From, to: filter.To}, nil
}

// CreateReading inserts a reading for an owned sensor. Ownership check and
// insert are one statement; the unique (sensor_id, timestamp) constraint turns
// a duplicate into model.ErrConflict.
func (db *Database) CreateReading(ctx context.Context, ownerID, sensorID int64, fields model.ReadingFields) (model.Reading, error) {
	const insertSQL = `
	INSERT INTO readings (sensor_id, temperature, humidity, "timestamp")
	SELECT id, $3::double precision, $4::double precision, $5::timestamptz
	FROM sensors
	WHERE id = $1 AND owner_id = $2
	RETURNING ` + readingColumns

	row := db.pool.QueryRow(ctx, insertSQL, sensorID, ownerID, fields.Temperature, fields.Humidity, fields.Timestamp)
	var r model.Reading
	if err := row.Scan(&r.ID, &r.SensorID, &r.Temperature, &r.Humidity, &r.Timestamp); err != nil {
		switch {
		case isUniqueViolation(err):
			return model.Reading{}, model.ErrConflict
		case errors.Is(err, pgx.ErrNoRows):
			return model.Reading{}, model.ErrNotFound
		}
		return model.Reading{}, fmt.Errorf("database: create reading: %w", err)
	}
	r.Timestamp = r.Timestamp.UTC()
	return r, nil
}

func scanReadings(rows pgx.Rows) ([]model.Reading, int, error) {
	readings := []model.Reading{}
	total := 0
	for rows.Next() {
		var r model.Reading
		if err := rows.Scan(&r.ID, &r.SensorID, &r.Temperature, &r.Humidity, &r.Timestamp, &total); err != nil {
			return nil, 0, err
		}
		r.Timestamp = r.Timestamp.UTC()
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return readings, total, nil
}
