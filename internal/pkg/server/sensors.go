package server

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/anicoll/sensorhub/internal/pkg/model"
	"github.com/anicoll/sensorhub/internal/pkg/pagination"
)

type sensorPayload struct {
	Name        *string `json:"name"`
	Model       *string `json:"model"`
	Description *string `json:"description"`
}

func (p *sensorPayload) fields() (model.SensorFields, error) {
	name, err := requiredName("name", p.Name)
	if err != nil {
		return model.SensorFields{}, err
	}
	sensorModel, err := requiredName("model", p.Model)
	if err != nil {
		return model.SensorFields{}, err
	}
	return model.SensorFields{Name: name, Model: sensorModel, Description: p.Description}, nil
}

func requiredName(field string, v *string) (string, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return "", model.NewValidationError(field, "this field is required")
	}
	if utf8.RuneCountInString(*v) > model.MaxNameLength {
		return "", model.NewValidationError(field, "ensure this field has no more than 100 characters")
	}
	return *v, nil
}

func (s *Server) listSensors(w http.ResponseWriter, r *http.Request) {
	query, err := s.store.ListSensors(r.Context(), owner(r), strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	page, pageSize := pagination.Params(r.URL.Query(), pagination.DefaultPageSize)
	result, err := pagination.Paginate(r.Context(), query, page, pageSize)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) createSensor(w http.ResponseWriter, r *http.Request) {
	payload, err := unmarshalPayload[sensorPayload](r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	fields, err := payload.fields()
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	sensor, err := s.store.CreateSensor(r.Context(), owner(r), fields)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.logger.Info("sensor created", zap.Int64("sensor_id", sensor.ID), zap.Int64("owner_id", sensor.OwnerID))
	writeJSON(w, http.StatusCreated, sensor)
}

func (s *Server) getSensor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "sensorID")
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	sensor, err := s.store.GetSensor(r.Context(), owner(r), id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sensor)
}

func (s *Server) updateSensor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "sensorID")
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	payload, err := unmarshalPayload[sensorPayload](r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	fields, err := payload.fields()
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	sensor, err := s.store.UpdateSensor(r.Context(), owner(r), id, fields)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sensor)
}

func (s *Server) deleteSensor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "sensorID")
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if err := s.store.DeleteSensor(r.Context(), owner(r), id); err != nil {
		s.handleError(w, r, err)
		return
	}
	s.logger.Info("sensor deleted", zap.Int64("sensor_id", id), zap.Int64("owner_id", owner(r)))
	w.WriteHeader(http.StatusNoContent)
}
