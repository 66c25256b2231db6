package server

import (
	"net/http"

	"github.com/anicoll/sensorhub/internal/pkg/model"
	"github.com/anicoll/sensorhub/internal/pkg/pagination"
	"github.com/anicoll/sensorhub/internal/pkg/timestamp"
)

type readingPayload struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	Timestamp   *string  `json:"timestamp"`
}

func (p *readingPayload) fields() (model.ReadingFields, error) {
	if p.Temperature == nil {
		return model.ReadingFields{}, model.NewValidationError("temperature", "this field is required")
	}
	if p.Humidity == nil {
		return model.ReadingFields{}, model.NewValidationError("humidity", "this field is required")
	}
	if p.Timestamp == nil {
		return model.ReadingFields{}, model.NewValidationError("timestamp", "this field is required")
	}
	ts, err := timestamp.Normalize(*p.Timestamp)
	if err != nil {
		return model.ReadingFields{}, model.NewValidationError("timestamp", "invalid datetime")
	}
	if ts == nil {
		return model.ReadingFields{}, model.NewValidationError("timestamp", "this field is required")
	}
	return model.ReadingFields{Temperature: *p.Temperature, Humidity: *p.Humidity, Timestamp: *ts}, nil
}

func (s *Server) listReadings(w http.ResponseWriter, r *http.Request) {
	sensorID, err := pathID(r, "sensorID")
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	values := r.URL.Query()
	filter := model.ReadingFilter{
		From: timestamp.Bound(values.Get("timestamp_from")),
		To:   timestamp.Bound(values.Get("timestamp_to")),
	}
	query, err := s.store.ListReadings(r.Context(), owner(r), sensorID, filter)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	page, pageSize := pagination.Params(values, pagination.DefaultPageSize)
	result, err := pagination.Paginate(r.Context(), query, page, pageSize)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) createReading(w http.ResponseWriter, r *http.Request) {
	sensorID, err := pathID(r, "sensorID")
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	payload, err := unmarshalPayload[readingPayload](r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	fields, err := payload.fields()
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	reading, err := s.store.CreateReading(r.Context(), owner(r), sensorID, fields)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reading)
}
