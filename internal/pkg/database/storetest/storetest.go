// Package storetest holds the behavioural suite every store backend must pass.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/anicoll/sensorhub/internal/pkg/model"
	"github.com/anicoll/sensorhub/internal/pkg/pagination"
)

type Store interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (model.User, error)
	GetUser(ctx context.Context, id int64) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)

	ListSensors(ctx context.Context, ownerID int64, search string) (pagination.Query[model.Sensor], error)
	GetSensor(ctx context.Context, ownerID, id int64) (model.Sensor, error)
	CreateSensor(ctx context.Context, ownerID int64, fields model.SensorFields) (model.Sensor, error)
	UpdateSensor(ctx context.Context, ownerID, id int64, fields model.SensorFields) (model.Sensor, error)
	DeleteSensor(ctx context.Context, ownerID, id int64) error

	ListReadings(ctx context.Context, ownerID, sensorID int64, filter model.ReadingFilter) (pagination.Query[model.Reading], error)
	CreateReading(ctx context.Context, ownerID, sensorID int64, fields model.ReadingFields) (model.Reading, error)
}

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Run executes the suite. newStore must return an empty store for every call.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	tests := map[string]func(t *testing.T, s Store){
		"users":                 testUsers,
		"sensor crud":           testSensorCRUD,
		"ownership isolation":   testIsolation,
		"search":                testSearch,
		"sensors ordered by id": testSensorOrder,
		"readings range":        testReadingsRange,
		"duplicate reading":     testDuplicateReading,
		"concurrent duplicates": testConcurrentDuplicates,
		"delete cascades":       testDeleteCascade,
		"pagination over store": testPagination,
	}
	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			fn(t, newStore(t))
		})
	}
}

func mustUser(t *testing.T, s Store, name string) model.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), name, name+"@example.com", "hash")
	require.NoError(t, err)
	return u
}

func mustSensor(t *testing.T, s Store, owner int64, name, sensorModel string) model.Sensor {
	t.Helper()
	sensor, err := s.CreateSensor(context.Background(), owner, model.SensorFields{Name: name, Model: sensorModel})
	require.NoError(t, err)
	return sensor
}

func all[T any](t *testing.T, q pagination.Query[T]) []T {
	t.Helper()
	ctx := context.Background()
	n, err := q.Count(ctx)
	require.NoError(t, err)
	if n == 0 {
		return []T{}
	}
	items, err := q.Slice(ctx, 0, n)
	require.NoError(t, err)
	require.Len(t, items, n)
	return items
}

func testUsers(t *testing.T, s Store) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	assert.NotZero(t, alice.ID)
	assert.Equal(t, "alice@example.com", alice.Email)

	_, err := s.CreateUser(ctx, "alice", "other@example.com", "hash")
	assert.ErrorIs(t, err, model.ErrUsernameTaken)

	got, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	got, err = s.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = s.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = s.GetUser(ctx, alice.ID+1000)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func testSensorCRUD(t *testing.T, s Store) {
	ctx := context.Background()
	owner := mustUser(t, s, "owner").ID

	created, err := s.CreateSensor(ctx, owner, model.SensorFields{Name: "s1", Model: "Env", Description: lo.ToPtr("roof")})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, owner, created.OwnerID)
	require.NotNil(t, created.Description)
	assert.Equal(t, "roof", *created.Description)

	got, err := s.GetSensor(ctx, owner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	updated, err := s.UpdateSensor(ctx, owner, created.ID, model.SensorFields{Name: "updated-name", Model: "NewModel"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, owner, updated.OwnerID)
	assert.Equal(t, "updated-name", updated.Name)
	assert.Equal(t, "NewModel", updated.Model)
	assert.Nil(t, updated.Description, "update replaces description")

	_, err = s.GetSensor(ctx, owner, created.ID+1000)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = s.UpdateSensor(ctx, owner, created.ID+1000, model.SensorFields{Name: "x", Model: "y"})
	assert.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, s.DeleteSensor(ctx, owner, created.ID))
	assert.ErrorIs(t, s.DeleteSensor(ctx, owner, created.ID), model.ErrNotFound)
}

func testIsolation(t *testing.T, s Store) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice").ID
	bob := mustUser(t, s, "bob").ID

	sensor := mustSensor(t, s, alice, "alice-sensor", "Env")
	_, err := s.CreateReading(ctx, alice, sensor.ID, model.ReadingFields{Temperature: 20, Humidity: 40, Timestamp: base})
	require.NoError(t, err)

	q, err := s.ListSensors(ctx, alice, "")
	require.NoError(t, err)
	assert.Len(t, all(t, q), 1)

	q, err = s.ListSensors(ctx, bob, "")
	require.NoError(t, err)
	assert.Empty(t, all(t, q))

	_, err = s.GetSensor(ctx, bob, sensor.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = s.UpdateSensor(ctx, bob, sensor.ID, model.SensorFields{Name: "stolen", Model: "x"})
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.ErrorIs(t, s.DeleteSensor(ctx, bob, sensor.ID), model.ErrNotFound)
	_, err = s.ListReadings(ctx, bob, sensor.ID, model.ReadingFilter{})
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = s.CreateReading(ctx, bob, sensor.ID, model.ReadingFields{Timestamp: base.Add(time.Hour)})
	assert.ErrorIs(t, err, model.ErrNotFound)

	got, err := s.GetSensor(ctx, alice, sensor.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice-sensor", got.Name)
	rq, err := s.ListReadings(ctx, alice, sensor.ID, model.ReadingFilter{})
	require.NoError(t, err)
	assert.Len(t, all(t, rq), 1)
}

func testSearch(t *testing.T, s Store) {
	ctx := context.Background()
	owner := mustUser(t, s, "searcher").ID
	mustSensor(t, s, owner, "device-001", "EnviroSense")
	mustSensor(t, s, owner, "other", "ClimaTrack")
	mustSensor(t, s, owner, "roof", "DEVICE-Pro")
	mustSensor(t, s, owner, "100%_humid", "Env")

	names := func(search string) []string {
		q, err := s.ListSensors(ctx, owner, search)
		require.NoError(t, err)
		return lo.Map(all(t, q), func(sensor model.Sensor, _ int) string { return sensor.Name })
	}

	assert.Equal(t, []string{"device-001", "roof"}, names("device"))
	assert.Equal(t, []string{"other"}, names("clima"))
	assert.Equal(t, []string{"100%_humid"}, names("%_"))
	assert.Empty(t, names("_x"))
	assert.Len(t, names(""), 4)
}

func testSensorOrder(t *testing.T, s Store) {
	owner := mustUser(t, s, "order").ID
	var want []int64
	for i := range 5 {
		want = append(want, mustSensor(t, s, owner, fmt.Sprintf("device-%d", i), "Env").ID)
	}
	q, err := s.ListSensors(context.Background(), owner, "")
	require.NoError(t, err)
	got := lo.Map(all(t, q), func(sensor model.Sensor, _ int) int64 { return sensor.ID })
	assert.Equal(t, want, got)
}

func testReadingsRange(t *testing.T, s Store) {
	ctx := context.Background()
	owner := mustUser(t, s, "reader").ID
	sensor := mustSensor(t, s, owner, "s1", "Env")

	// inserted out of order on purpose
	for _, i := range []int{3, 0, 4, 1, 2} {
		_, err := s.CreateReading(ctx, owner, sensor.ID, model.ReadingFields{
			Temperature: 20 + float64(i),
			Humidity:    40 + float64(i),
			Timestamp:   base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	hours := func(filter model.ReadingFilter) []int {
		q, err := s.ListReadings(ctx, owner, sensor.ID, filter)
		require.NoError(t, err)
		return lo.Map(all(t, q), func(r model.Reading, _ int) int {
			return int(r.Timestamp.Sub(base) / time.Hour)
		})
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4}, hours(model.ReadingFilter{}))
	assert.Equal(t, []int{0, 1, 2}, hours(model.ReadingFilter{From: lo.ToPtr(base), To: lo.ToPtr(base.Add(2 * time.Hour))}))
	assert.Equal(t, []int{3, 4}, hours(model.ReadingFilter{From: lo.ToPtr(base.Add(3 * time.Hour))}))
	assert.Equal(t, []int{0}, hours(model.ReadingFilter{To: lo.ToPtr(base)}))
	assert.Empty(t, hours(model.ReadingFilter{From: lo.ToPtr(base.Add(90 * time.Minute)), To: lo.ToPtr(base.Add(100 * time.Minute))}))

	q, err := s.ListReadings(ctx, owner, sensor.ID, model.ReadingFilter{To: lo.ToPtr(base)})
	require.NoError(t, err)
	first := all(t, q)[0]
	assert.Equal(t, sensor.ID, first.SensorID)
	assert.Equal(t, 20.0, first.Temperature)
	assert.Equal(t, 40.0, first.Humidity)
	assert.True(t, base.Equal(first.Timestamp))
}

func testDuplicateReading(t *testing.T, s Store) {
	ctx := context.Background()
	owner := mustUser(t, s, "dup").ID
	sensor := mustSensor(t, s, owner, "s1", "Env")
	other := mustSensor(t, s, owner, "s2", "Env")
	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	_, err := s.CreateReading(ctx, owner, sensor.ID, model.ReadingFields{Temperature: 21, Humidity: 45, Timestamp: ts})
	require.NoError(t, err)

	// same instant expressed in another zone is still the same instant
	_, err = s.CreateReading(ctx, owner, sensor.ID, model.ReadingFields{Temperature: 22, Humidity: 42, Timestamp: ts.In(time.FixedZone("CET", 3600))})
	assert.ErrorIs(t, err, model.ErrConflict)

	_, err = s.CreateReading(ctx, owner, other.ID, model.ReadingFields{Temperature: 22, Humidity: 42, Timestamp: ts})
	assert.NoError(t, err, "uniqueness is per sensor")

	q, err := s.ListReadings(ctx, owner, sensor.ID, model.ReadingFilter{})
	require.NoError(t, err)
	readings := all(t, q)
	require.Len(t, readings, 1)
	assert.Equal(t, 21.0, readings[0].Temperature)
}

func testConcurrentDuplicates(t *testing.T, s Store) {
	ctx := context.Background()
	owner := mustUser(t, s, "racer").ID
	sensor := mustSensor(t, s, owner, "s1", "Env")

	const workers = 16
	var created, conflicts atomic.Int32
	var eg errgroup.Group
	for i := range workers {
		eg.Go(func() error {
			_, err := s.CreateReading(ctx, owner, sensor.ID, model.ReadingFields{Temperature: float64(i), Timestamp: base})
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, model.ErrConflict):
				conflicts.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())
	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, int32(workers-1), conflicts.Load())

	q, err := s.ListReadings(ctx, owner, sensor.ID, model.ReadingFilter{})
	require.NoError(t, err)
	assert.Len(t, all(t, q), 1)
}

func testDeleteCascade(t *testing.T, s Store) {
	ctx := context.Background()
	owner := mustUser(t, s, "cascade").ID
	sensor := mustSensor(t, s, owner, "will-delete", "Env")
	keep := mustSensor(t, s, owner, "keep", "Env")
	for i := range 3 {
		_, err := s.CreateReading(ctx, owner, sensor.ID, model.ReadingFields{Timestamp: base.Add(time.Duration(i) * time.Minute)})
		require.NoError(t, err)
	}
	_, err := s.CreateReading(ctx, owner, keep.ID, model.ReadingFields{Timestamp: base})
	require.NoError(t, err)

	require.NoError(t, s.DeleteSensor(ctx, owner, sensor.ID))

	_, err = s.GetSensor(ctx, owner, sensor.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = s.ListReadings(ctx, owner, sensor.ID, model.ReadingFilter{})
	assert.ErrorIs(t, err, model.ErrNotFound)

	q, err := s.ListReadings(ctx, owner, keep.ID, model.ReadingFilter{})
	require.NoError(t, err)
	assert.Len(t, all(t, q), 1)
}

func testPagination(t *testing.T, s Store) {
	ctx := context.Background()
	owner := mustUser(t, s, "pager").ID
	for i := range 12 {
		mustSensor(t, s, owner, fmt.Sprintf("device-%d", i), "Env")
	}
	q, err := s.ListSensors(ctx, owner, "")
	require.NoError(t, err)

	page, err := pagination.Paginate(ctx, q, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, 12, page.Count)
	require.Len(t, page.Items, 5)
	assert.Equal(t, "device-5", page.Items[0].Name)

	page, err = pagination.Paginate(ctx, q, 3, 5)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)

	page, err = pagination.Paginate(ctx, q, 4, 5)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 12, page.Count)

	// (page-1)*page_size would overflow int here.
	huge := math.MaxInt/2 + 2
	page, err = pagination.Paginate(ctx, q, 3, huge)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 12, page.Count)

	page, err = pagination.Paginate(ctx, q, 1, huge)
	require.NoError(t, err)
	assert.Len(t, page.Items, 12)
	assert.Equal(t, 12, page.Count)

	sensor := mustSensor(t, s, owner, "reader", "Env")
	for i := range 3 {
		_, err := s.CreateReading(ctx, owner, sensor.ID, model.ReadingFields{Temperature: 1, Humidity: 2, Timestamp: base.Add(time.Duration(i) * time.Minute)})
		require.NoError(t, err)
	}
	rq, err := s.ListReadings(ctx, owner, sensor.ID, model.ReadingFilter{})
	require.NoError(t, err)
	readings, err := pagination.Paginate(ctx, rq, 3, huge)
	require.NoError(t, err)
	assert.Empty(t, readings.Items)
	assert.Equal(t, 3, readings.Count)

	readings, err = pagination.Paginate(ctx, rq, 2, 2)
	require.NoError(t, err)
	require.Len(t, readings.Items, 1)
	assert.Equal(t, 3, readings.Count)
	assert.True(t, readings.Items[0].Timestamp.Equal(base.Add(2*time.Minute)))
}
