package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/anicoll/sensorhub/internal/pkg/auth"
	"github.com/anicoll/sensorhub/internal/pkg/contxt"
	"github.com/anicoll/sensorhub/internal/pkg/model"
)

const (
	detailNotFound           = "Not found."
	detailDuplicateReading   = "Reading with this timestamp already exists for this sensor"
	detailUsernameTaken      = "A user with that username already exists"
	detailInvalidCredentials = "No active account found with the given credentials"
	detailInvalidToken       = "Token is invalid or expired"
	detailInternal           = "Internal server error"

	maxBodyBytes = 1 << 20
)

type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("failed to write response", zap.Error(err))
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

// handleError maps domain errors to their HTTP representation. Anything
// unrecognised is logged and reported as a generic 500.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		writeDetail(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, model.ErrNotFound):
		writeDetail(w, http.StatusNotFound, detailNotFound)
	case errors.Is(err, model.ErrConflict):
		writeDetail(w, http.StatusBadRequest, detailDuplicateReading)
	case errors.Is(err, model.ErrUsernameTaken):
		writeDetail(w, http.StatusBadRequest, detailUsernameTaken)
	case errors.Is(err, model.ErrInvalidCredentials):
		writeDetail(w, http.StatusUnauthorized, detailInvalidCredentials)
	case errors.Is(err, auth.ErrInvalidToken):
		writeDetail(w, http.StatusUnauthorized, detailInvalidToken)
	default:
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeDetail(w, http.StatusInternalServerError, detailInternal)
	}
}

// unmarshalPayload decodes a single JSON object, rejecting unknown fields.
func unmarshalPayload[T any](r *http.Request) (*T, error) {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	var out T
	if err := dec.Decode(&out); err != nil {
		return nil, model.NewValidationError("", describeDecodeError(err))
	}
	if dec.More() {
		return nil, model.NewValidationError("", "unexpected data after JSON object")
	}
	return &out, nil
}

func describeDecodeError(err error) string {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.Is(err, io.EOF):
		return "request body is empty"
	case errors.As(err, &typeErr):
		if typeErr.Field == "" {
			return "request body must be a JSON object"
		}
		return fmt.Sprintf("%s must be a %s", typeErr.Field, typeErr.Type)
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return "malformed JSON"
	default:
		return strings.TrimPrefix(err.Error(), "json: ")
	}
}

func pathID(r *http.Request, key string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id < 1 {
		return 0, model.NewValidationError(key, "must be a positive integer")
	}
	return id, nil
}

// owner returns the authenticated user id placed by the auth middleware.
func owner(r *http.Request) int64 {
	id, _ := contxt.Owner(r.Context())
	return id
}
