package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/sensorhub/internal/pkg/model"
	"github.com/anicoll/sensorhub/internal/pkg/pagination"
	"github.com/anicoll/sensorhub/internal/pkg/timestamp"
)

// ImportedModel is the model given to sensors created from a device id.
const ImportedModel = "Imported"

var (
	ErrMissingColumns = errors.New("seed: csv is missing required columns")

	requiredColumns = []string{"timestamp", "device_id", "temperature", "humidity"}
)

type store interface {
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
	ListSensors(ctx context.Context, ownerID int64, search string) (pagination.Query[model.Sensor], error)
	CreateSensor(ctx context.Context, ownerID int64, fields model.SensorFields) (model.Sensor, error)
	CreateReading(ctx context.Context, ownerID, sensorID int64, fields model.ReadingFields) (model.Reading, error)
}

type userCreator interface {
	CreateUser(ctx context.Context, username, email, password string) (model.User, error)
}

// Options names the account that owns the imported data. It is created when
// missing and reused otherwise.
type Options struct {
	Username string
	Password string
	Email    string
}

func DefaultOptions() Options {
	return Options{Username: "demo", Password: "demo1234", Email: "demo@example.com"}
}

type Result struct {
	Sensors int
	Created int
	Skipped int
	Bad     int
}

type Importer struct {
	store    store
	identity userCreator
	logger   *zap.Logger
}

func NewImporter(store store, identity userCreator) *Importer {
	return &Importer{store: store, identity: identity, logger: zap.L()}
}

func (i *Importer) ImportFile(ctx context.Context, path string, opts Options) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("seed: %w", err)
	}
	defer f.Close()
	i.logger.Info("importing csv", zap.String("path", path))
	return i.Import(ctx, f, opts)
}

// Import loads long-format rows of timestamp, device_id, temperature and
// humidity. Readings already stored for a sensor and timestamp are skipped,
// so importing the same file twice creates nothing the second time.
func (i *Importer) Import(ctx context.Context, r io.Reader, opts Options) (Result, error) {
	rows, err := readRows(r)
	if err != nil {
		return Result{}, err
	}
	user, err := i.ensureUser(ctx, opts)
	if err != nil {
		return Result{}, err
	}
	sensors, err := i.ensureSensors(ctx, user.ID, rows)
	if err != nil {
		return Result{}, err
	}

	res := Result{Sensors: len(sensors)}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		fields, ok := row.fields()
		if !ok {
			res.Bad++
			continue
		}
		_, err := i.store.CreateReading(ctx, user.ID, sensors[row.deviceID], fields)
		switch {
		case err == nil:
			res.Created++
		case errors.Is(err, model.ErrConflict):
			res.Skipped++
		default:
			return res, fmt.Errorf("seed: line %d: %w", row.line, err)
		}
	}
	i.logger.Info("import finished",
		zap.Int("sensors", res.Sensors),
		zap.Int("created", res.Created),
		zap.Int("skipped", res.Skipped),
		zap.Int("bad", res.Bad),
	)
	return res, nil
}

func (i *Importer) ensureUser(ctx context.Context, opts Options) (model.User, error) {
	user, err := i.store.GetUserByUsername(ctx, opts.Username)
	if err == nil {
		i.logger.Info("seed user already exists", zap.String("username", user.Username))
		return user, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.User{}, fmt.Errorf("seed: lookup user: %w", err)
	}
	user, err = i.identity.CreateUser(ctx, opts.Username, opts.Email, opts.Password)
	if err != nil {
		return model.User{}, fmt.Errorf("seed: create user: %w", err)
	}
	return user, nil
}

// ensureSensors maps every device id in rows to a sensor named after it,
// reusing the owner's existing sensors.
func (i *Importer) ensureSensors(ctx context.Context, ownerID int64, rows []row) (map[string]int64, error) {
	query, err := i.store.ListSensors(ctx, ownerID, "")
	if err != nil {
		return nil, fmt.Errorf("seed: list sensors: %w", err)
	}
	total, err := query.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed: count sensors: %w", err)
	}
	existing, err := query.Slice(ctx, 0, total)
	if err != nil {
		return nil, fmt.Errorf("seed: list sensors: %w", err)
	}
	byName := make(map[string]int64, len(existing))
	for _, s := range existing {
		if _, ok := byName[s.Name]; !ok {
			byName[s.Name] = s.ID
		}
	}

	deviceIDs := lo.Uniq(lo.FilterMap(rows, func(r row, _ int) (string, bool) {
		return r.deviceID, r.deviceID != ""
	}))
	slices.Sort(deviceIDs)

	sensors := make(map[string]int64, len(deviceIDs))
	for _, id := range deviceIDs {
		if sensorID, ok := byName[id]; ok {
			sensors[id] = sensorID
			continue
		}
		sensor, err := i.store.CreateSensor(ctx, ownerID, model.SensorFields{Name: id, Model: ImportedModel})
		if err != nil {
			return nil, fmt.Errorf("seed: create sensor %q: %w", id, err)
		}
		sensors[id] = sensor.ID
	}
	return sensors, nil
}

type row struct {
	line        int
	timestamp   string
	deviceID    string
	temperature string
	humidity    string
}

func (r row) fields() (model.ReadingFields, bool) {
	if r.deviceID == "" || r.temperature == "" || r.humidity == "" {
		return model.ReadingFields{}, false
	}
	ts, err := timestamp.Normalize(r.timestamp)
	if err != nil || ts == nil {
		return model.ReadingFields{}, false
	}
	temperature, ok := parseNumber(r.temperature)
	if !ok {
		return model.ReadingFields{}, false
	}
	humidity, ok := parseNumber(r.humidity)
	if !ok {
		return model.ReadingFields{}, false
	}
	return model.ReadingFields{Temperature: temperature, Humidity: humidity, Timestamp: *ts}, true
}

// parseNumber accepts a decimal comma as well as a decimal point.
func parseNumber(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func readRows(r io.Reader) ([]row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(requiredColumns, ", "))
		}
		return nil, fmt.Errorf("seed: read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, ok := index[name]; !ok {
			index[name] = i
		}
	}
	if missing := lo.Filter(requiredColumns, func(c string, _ int) bool {
		_, ok := index[c]
		return !ok
	}); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	cell := func(record []string, column string) string {
		i := index[column]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("seed: read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, row{
			line:        line,
			timestamp:   cell(record, "timestamp"),
			deviceID:    cell(record, "device_id"),
			temperature: cell(record, "temperature"),
			humidity:    cell(record, "humidity"),
		})
	}
}
