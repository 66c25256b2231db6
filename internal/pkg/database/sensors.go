package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anicoll/sensorhub/internal/pkg/model"
	"github.com/anicoll/sensorhub/internal/pkg/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const sensorColumns = `id, owner_id, name, model, description`

// $2 is the escaped search text; empty matches everything.
const sensorFilter = `
	owner_id = $1
	AND ($2::text = '' OR name ILIKE '%' || $2::text || '%' OR model ILIKE '%' || $2::text || '%')`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type sensorQuery struct {
	pool   *pgxpool.Pool
	owner  int64
	search string
}

var _ pagination.CountingQuery[model.Sensor] = sensorQuery{}

func (q sensorQuery) Count(ctx context.Context) (int, error) {
	var n int
	if err := q.pool.QueryRow(ctx, `SELECT count(*) FROM sensors WHERE `+sensorFilter, q.owner, q.search).Scan(&n); err != nil {
		return 0, fmt.Errorf("database: count sensors: %w", err)
	}
	return n, nil
}

func (q sensorQuery) Slice(ctx context.Context, offset, limit int) ([]model.Sensor, error) {
	sensors, _, err := q.SliceWithCount(ctx, offset, limit)
	return sensors, err
}

// SliceWithCount returns a page of sensors and the total number of matches
// from one statement.
func (q sensorQuery) SliceWithCount(ctx context.Context, offset, limit int) ([]model.Sensor, int, error) {
	query := `SELECT ` + sensorColumns + `, count(*) OVER () FROM sensors WHERE ` + sensorFilter + `
	ORDER BY id
	LIMIT $3 OFFSET $4`

	rows, err := q.pool.Query(ctx, query, q.owner, q.search, limit, max(offset, 0))
	if err != nil {
		return nil, 0, fmt.Errorf("database: list sensors: %w", err)
	}
	defer rows.Close()

	sensors, total, err := scanSensors(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("database: list sensors: %w", err)
	}
	return sensors, total, nil
}

// ListSensors returns the owner's sensors ordered by id. A non-empty search keeps
// sensors whose name or model contains it, ignoring case.
func (db *Database) ListSensors(_ context.Context, ownerID int64, search string) (pagination.Query[model.Sensor], error) {
	return sensorQuery{pool: db.pool, owner: ownerID, search: likeEscaper.Replace(search)}, nil
}

func (db *Database) GetSensor(ctx context.Context, ownerID, id int64) (model.Sensor, error) {
	query := `SELECT ` + sensorColumns + ` FROM sensors WHERE id = $1 AND owner_id = $2`
	return db.oneSensor(ctx, "get", query, id, ownerID)
}

func (db *Database) CreateSensor(ctx context.Context, ownerID int64, fields model.SensorFields) (model.Sensor, error) {
	query := `
	INSERT INTO sensors (owner_id, name, model, description)
	VALUES ($1, $2, $3, $4)
	RETURNING ` + sensorColumns
	return db.oneSensor(ctx, "create", query, ownerID, fields.Name, fields.Model, fields.Description)
}

func (db *Database) UpdateSensor(ctx context.Context, ownerID, id int64, fields model.SensorFields) (model.Sensor, error) {
	query := `
	UPDATE sensors SET name = $3, model = $4, description = $5
	WHERE id = $1 AND owner_id = $2
	RETURNING ` + sensorColumns
	return db.oneSensor(ctx, "update", query, id, ownerID, fields.Name, fields.Model, fields.Description)
}

// DeleteSensor removes the sensor; its readings go with it through the
// ON DELETE CASCADE foreign key in the same statement.
func (db *Database) DeleteSensor(ctx context.Context, ownerID, id int64) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM sensors WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("database: delete sensor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	db.logger.Debug("sensor deleted", zap.Int64("sensor_id", id), zap.Int64("owner_id", ownerID))
	return nil
}

func (db *Database) oneSensor(ctx context.Context, op, query string, args ...any) (model.Sensor, error) {
	var s model.Sensor
	err := db.pool.QueryRow(ctx, query, args...).Scan(&s.ID, &s.OwnerID, &s.Name, &s.Model, &s.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Sensor{}, model.ErrNotFound
		}
		return model.Sensor{}, fmt.Errorf("database: %s sensor: %w", op, err)
	}
	return s, nil
}

func scanSensors(rows pgx.Rows) ([]model.Sensor, int, error) {
	sensors := []model.Sensor{}
	total := 0
	for rows.Next() {
		var s model.Sensor
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Model, &s.Description, &total); err != nil {
			return nil, 0, err
		}
		sensors = append(sensors, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return sensors, total, nil
}
