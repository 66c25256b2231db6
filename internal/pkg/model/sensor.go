package model

import "time"

// MaxNameLength bounds sensor name and model, in characters.
const MaxNameLength = 100

type Sensor struct {
	ID          int64   `json:"id"`
	OwnerID     int64   `json:"-"`
	Name        string  `json:"name"`
	Model       string  `json:"model"`
	Description *string `json:"description"`
}

// SensorFields is the mutable part of a sensor. Update replaces all of them.
type SensorFields struct {
	Name        string
	Model       string
	Description *string
}

type Reading struct {
	ID          int64     `json:"id"`
	SensorID    int64     `json:"-"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Timestamp   time.Time `json:"timestamp"`
}

type ReadingFields struct {
	Temperature float64
	Humidity    float64
	Timestamp   time.Time
}

// ReadingFilter holds inclusive timestamp bounds. A nil bound is not applied.
type ReadingFilter struct {
	From *time.Time
	To   *time.Time
}

// Contains reports whether ts lies within the filter bounds.
func (f ReadingFilter) Contains(ts time.Time) bool {
	if f.From != nil && ts.Before(*f.From) {
		return false
	}
	if f.To != nil && ts.After(*f.To) {
		return false
	}
	return true
}
