// Package memory is an in-process store with the same owner-scoped method set
// as the PostgreSQL database. All mutations happen under a single write lock,
// which makes the reading uniqueness check and the sensor cascade atomic.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/anicoll/sensorhub/internal/pkg/model"
	"github.com/anicoll/sensorhub/internal/pkg/pagination"
)

type Store struct {
	mu sync.RWMutex

	lastUserID    int64
	lastSensorID  int64
	lastReadingID int64

	users     map[int64]model.User
	usernames map[string]int64
	sensors   map[int64]model.Sensor
	readings  map[int64][]model.Reading // sensor id -> readings sorted by timestamp
}

func New() *Store {
	return &Store{
		users:     make(map[int64]model.User),
		usernames: make(map[string]int64),
		sensors:   make(map[int64]model.Sensor),
		readings:  make(map[int64][]model.Reading),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) CreateUser(_ context.Context, username, email, passwordHash string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usernames[username]; ok {
		return model.User{}, model.ErrUsernameTaken
	}
	s.lastUserID++
	u := model.User{
		ID:           s.lastUserID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[u.ID] = u
	s.usernames[username] = u.ID
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usernames[username]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return s.users[id], nil
}

// ListSensors snapshots the owner's matching sensors ordered by id.
func (s *Store) ListSensors(_ context.Context, ownerID int64, search string) (pagination.Query[model.Sensor], error) {
	needle := strings.ToLower(search)

	s.mu.RLock()
	matched := lo.Filter(lo.Values(s.sensors), func(sensor model.Sensor, _ int) bool {
		if sensor.OwnerID != ownerID {
			return false
		}
		return needle == "" ||
			strings.Contains(strings.ToLower(sensor.Name), needle) ||
			strings.Contains(strings.ToLower(sensor.Model), needle)
	})
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b model.Sensor) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return pagination.FromSlice(lo.Map(matched, func(sensor model.Sensor, _ int) model.Sensor {
		return cloneSensor(sensor)
	})), nil
}

func (s *Store) GetSensor(_ context.Context, ownerID, id int64) (model.Sensor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sensor, err := s.ownedSensor(ownerID, id)
	if err != nil {
		return model.Sensor{}, err
	}
	return cloneSensor(sensor), nil
}

func (s *Store) CreateSensor(_ context.Context, ownerID int64, fields model.SensorFields) (model.Sensor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSensorID++
	sensor := model.Sensor{ID: s.lastSensorID, OwnerID: ownerID}
	applyFields(&sensor, fields)
	s.sensors[sensor.ID] = sensor
	return cloneSensor(sensor), nil
}

func (s *Store) UpdateSensor(_ context.Context, ownerID, id int64, fields model.SensorFields) (model.Sensor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sensor, err := s.ownedSensor(ownerID, id)
	if err != nil {
		return model.Sensor{}, err
	}
	applyFields(&sensor, fields)
	s.sensors[id] = sensor
	return cloneSensor(sensor), nil
}

func (s *Store) DeleteSensor(_ context.Context, ownerID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ownedSensor(ownerID, id); err != nil {
		return err
	}
	delete(s.sensors, id)
	delete(s.readings, id)
	return nil
}

func (s *Store) ListReadings(_ context.Context, ownerID, sensorID int64, filter model.ReadingFilter) (pagination.Query[model.Reading], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.ownedSensor(ownerID, sensorID); err != nil {
		return nil, err
	}
	matched := lo.Filter(s.readings[sensorID], func(r model.Reading, _ int) bool {
		return filter.Contains(r.Timestamp)
	})
	return pagination.FromSlice(matched), nil
}

// CreateReading keeps each sensor's readings sorted by timestamp; finding the
// insert position also detects a duplicate timestamp.
func (s *Store) CreateReading(_ context.Context, ownerID, sensorID int64, fields model.ReadingFields) (model.Reading, error) {
	ts := fields.Timestamp.UTC().Truncate(time.Microsecond)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ownedSensor(ownerID, sensorID); err != nil {
		return model.Reading{}, err
	}
	existing := s.readings[sensorID]
	idx, found := slices.BinarySearchFunc(existing, ts, func(r model.Reading, t time.Time) int {
		return r.Timestamp.Compare(t)
	})
	if found {
		return model.Reading{}, model.ErrConflict
	}

	s.lastReadingID++
	r := model.Reading{
		ID:          s.lastReadingID,
		SensorID:    sensorID,
		Temperature: fields.Temperature,
		Humidity:    fields.Humidity,
		Timestamp:   ts,
	}
	s.readings[sensorID] = slices.Insert(existing, idx, r)
	return r, nil
}

func (s *Store) ownedSensor(ownerID, id int64) (model.Sensor, error) {
	sensor, ok := s.sensors[id]
	if !ok || sensor.OwnerID != ownerID {
		return model.Sensor{}, model.ErrNotFound
	}
	return sensor, nil
}

func applyFields(sensor *model.Sensor, fields model.SensorFields) {
	sensor.Name = fields.Name
	sensor.Model = fields.Model
	sensor.Description = nil
	if fields.Description != nil {
		sensor.Description = lo.ToPtr(*fields.Description)
	}
}

func cloneSensor(sensor model.Sensor) model.Sensor {
	if sensor.Description != nil {
		sensor.Description = lo.ToPtr(*sensor.Description)
	}
	return sensor
}
