package server

import (
	"context"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/anicoll/sensorhub/internal/pkg/auth"
	"github.com/anicoll/sensorhub/internal/pkg/model"
	"github.com/anicoll/sensorhub/internal/pkg/pagination"
)

// Store is the owner-scoped persistence the handlers depend on.
type Store interface {
	GetUser(ctx context.Context, id int64) (model.User, error)

	ListSensors(ctx context.Context, ownerID int64, search string) (pagination.Query[model.Sensor], error)
	GetSensor(ctx context.Context, ownerID, id int64) (model.Sensor, error)
	CreateSensor(ctx context.Context, ownerID int64, fields model.SensorFields) (model.Sensor, error)
	UpdateSensor(ctx context.Context, ownerID, id int64, fields model.SensorFields) (model.Sensor, error)
	DeleteSensor(ctx context.Context, ownerID, id int64) error

	ListReadings(ctx context.Context, ownerID, sensorID int64, filter model.ReadingFilter) (pagination.Query[model.Reading], error)
	CreateReading(ctx context.Context, ownerID, sensorID int64, fields model.ReadingFields) (model.Reading, error)
}

type identityProvider interface {
	CreateUser(ctx context.Context, username, email, password string) (model.User, error)
	Authenticate(ctx context.Context, username, password string) (model.User, error)
}

type tokenProvider interface {
	IssueTokenPair(userID int64) (auth.TokenPair, error)
	ValidateToken(token string) (int64, error)
	Refresh(refreshToken string) (string, error)
}

type Server struct {
	store    Store
	identity identityProvider
	tokens   tokenProvider
	apiDoc   *openapi3.T
	logger   *zap.Logger
}

func New(store Store, identity identityProvider, tokens tokenProvider) (*Server, error) {
	doc, err := LoadAPIDescription()
	if err != nil {
		return nil, err
	}
	return &Server{
		store:    store,
		identity: identity,
		tokens:   tokens,
		apiDoc:   doc,
		logger:   zap.L(),
	}, nil
}

// Handler returns the routed API with its middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(LoggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/openapi.json", s.getAPIDescription)

		r.Post("/auth/register/", s.register)
		r.Post("/auth/token/", s.obtainToken)
		r.Post("/auth/token/refresh/", s.refreshToken)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(s.tokens, s.store))

			r.Get("/sensors/", s.listSensors)
			r.Post("/sensors/", s.createSensor)
			r.Get("/sensors/{sensorID}/", s.getSensor)
			r.Put("/sensors/{sensorID}/", s.updateSensor)
			r.Delete("/sensors/{sensorID}/", s.deleteSensor)

			r.Get("/sensors/{sensorID}/readings/", s.listReadings)
			r.Post("/sensors/{sensorID}/readings/", s.createReading)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, detailNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}
