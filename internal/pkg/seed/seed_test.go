package seed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/anicoll/sensorhub/internal/pkg/auth"
	"github.com/anicoll/sensorhub/internal/pkg/database/memory"
	"github.com/anicoll/sensorhub/internal/pkg/model"
	"github.com/anicoll/sensorhub/internal/pkg/pagination"
	"github.com/anicoll/sensorhub/pkg/hasher"
)

const sampleCSV = `timestamp,device_id,temperature,humidity
2024-08-01T00:00:00+00:00,device-002,21.5,40.1
2024-08-01 00:00:00 00:00,device-001,"20,5",41
2024-08-01T01:00:00Z,device-001,20.7,41.5
2024-08-01T01:00:00Z,device-001,99,99
not-a-time,device-001,20,40
2024-08-01T02:00:00Z,device-001,warm,40
2024-08-01T03:00:00Z,,20,40
2024-08-01T04:00:00Z,device-002,,40
2024-08-01T05:00:00Z,device-002,NaN,40
`

func newImporter(t *testing.T) (*Importer, *memory.Store) {
	t.Helper()
	restore := zap.ReplaceGlobals(zaptest.NewLogger(t))
	t.Cleanup(restore)
	store := memory.New()
	return NewImporter(store, auth.NewIdentity(store)), store
}

func sensorsOf(t *testing.T, store *memory.Store, ownerID int64) []model.Sensor {
	t.Helper()
	q, err := store.ListSensors(context.Background(), ownerID, "")
	require.NoError(t, err)
	page, err := pagination.Paginate(context.Background(), q, 1, 100)
	require.NoError(t, err)
	return page.Items
}

func readingsOf(t *testing.T, store *memory.Store, ownerID, sensorID int64) []model.Reading {
	t.Helper()
	q, err := store.ListReadings(context.Background(), ownerID, sensorID, model.ReadingFilter{})
	require.NoError(t, err)
	page, err := pagination.Paginate(context.Background(), q, 1, 100)
	require.NoError(t, err)
	return page.Items
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	importer, store := newImporter(t)

	res, err := importer.Import(ctx, strings.NewReader(sampleCSV), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, Result{Sensors: 2, Created: 3, Skipped: 1, Bad: 5}, res)

	user, err := store.GetUserByUsername(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, "demo@example.com", user.Email)
	assert.True(t, hasher.PasswordCorrect("demo1234", user.PasswordHash))

	sensors := sensorsOf(t, store, user.ID)
	require.Len(t, sensors, 2)
	assert.Equal(t, "device-001", sensors[0].Name, "sensors are created in device id order")
	assert.Equal(t, "device-002", sensors[1].Name)
	for _, s := range sensors {
		assert.Equal(t, ImportedModel, s.Model)
	}

	readings := readingsOf(t, store, user.ID, sensors[0].ID)
	require.Len(t, readings, 2)
	assert.True(t, readings[0].Timestamp.Equal(time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 20.5, readings[0].Temperature, "decimal comma")
	assert.Equal(t, 20.7, readings[1].Temperature, "first row for a timestamp wins")
}

func TestImport_Idempotent(t *testing.T) {
	ctx := context.Background()
	importer, store := newImporter(t)

	_, err := importer.Import(ctx, strings.NewReader(sampleCSV), DefaultOptions())
	require.NoError(t, err)
	res, err := importer.Import(ctx, strings.NewReader(sampleCSV), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, Result{Sensors: 2, Created: 0, Skipped: 4, Bad: 5}, res)

	user, err := store.GetUserByUsername(ctx, "demo")
	require.NoError(t, err)
	assert.Len(t, sensorsOf(t, store, user.ID), 2, "existing sensors are reused")
}

func TestImport_ExistingUserKeepsPassword(t *testing.T) {
	ctx := context.Background()
	importer, store := newImporter(t)
	identity := auth.NewIdentity(store)
	_, err := identity.CreateUser(ctx, "field", "field@example.com", "original")
	require.NoError(t, err)

	opts := Options{Username: "field", Password: "ignored", Email: "x@example.com"}
	_, err = importer.Import(ctx, strings.NewReader("timestamp,device_id,temperature,humidity\n"), opts)
	require.NoError(t, err)

	user, err := store.GetUserByUsername(ctx, "field")
	require.NoError(t, err)
	assert.True(t, hasher.PasswordCorrect("original", user.PasswordHash))
	assert.Equal(t, "field@example.com", user.Email)
}

func TestImport_Header(t *testing.T) {
	tests := map[string]struct {
		csv     string
		wantErr bool
	}{
		"missing humidity":  {csv: "timestamp,device_id,temperature\n", wantErr: true},
		"empty file":        {csv: "", wantErr: true},
		"padded header":     {csv: " timestamp , device_id ,temperature, humidity\n"},
		"byte order mark":   {csv: "\ufefftimestamp,device_id,temperature,humidity\n"},
		"reordered columns": {csv: "humidity,temperature,device_id,timestamp,extra\n"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			importer, _ := newImporter(t)
			_, err := importer.Import(context.Background(), strings.NewReader(tc.csv), DefaultOptions())
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrMissingColumns)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestImport_ShortRowsAreBad(t *testing.T) {
	importer, _ := newImporter(t)
	csv := "timestamp,device_id,temperature,humidity\n2024-08-01T00:00:00Z,d1\n2024-08-01T00:00:00Z,d1,1,2\n"
	res, err := importer.Import(context.Background(), strings.NewReader(csv), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, Result{Sensors: 1, Created: 1, Bad: 1}, res)
}

func TestImportFile(t *testing.T) {
	importer, _ := newImporter(t)
	path := filepath.Join(t.TempDir(), "sensor_readings_long.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))

	res, err := importer.ImportFile(context.Background(), path, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Created)

	_, err = importer.ImportFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), DefaultOptions())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseNumber(t *testing.T) {
	tests := map[string]struct {
		in   string
		want float64
		ok   bool
	}{
		"point":    {in: "21.5", want: 21.5, ok: true},
		"comma":    {in: "21,5", want: 21.5, ok: true},
		"integer":  {in: "-3", want: -3, ok: true},
		"text":     {in: "warm", ok: false},
		"nan":      {in: "NaN", ok: false},
		"infinity": {in: "+Inf", ok: false},
		"two sep":  {in: "1,2,3", ok: false},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, ok := parseNumber(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
