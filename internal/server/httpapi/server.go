// Package httpapi is the REST surface of the service: a chi router with
// request logging, metrics, Basic authentication and the account, profile
// picture and health handlers.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/webapp/internal/common"
	"github.com/dmitrijs2005/webapp/internal/logging"
	"github.com/dmitrijs2005/webapp/internal/server/metrics"
	"github.com/dmitrijs2005/webapp/internal/server/models"
	"github.com/dmitrijs2005/webapp/internal/server/services"
)

// UserService is the account side of the state machine.
type UserService interface {
	Create(ctx context.Context, in services.CreateUserInput) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, id string, in services.UpdateUserInput) error
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	Verify(ctx context.Context, token, email string) error
}

// ImageService is the profile picture side of the state machine.
type ImageService interface {
	Upload(ctx context.Context, userID string, in services.UploadInput) (*models.Image, error)
	Get(ctx context.Context, userID string) (*models.Image, error)
	Delete(ctx context.Context, userID string) error
	MaxBytes() int64
}

// HealthChecker reports database reachability.
type HealthChecker interface {
	Check(ctx context.Context) error
}

type Server struct {
	users          UserService
	images         ImageService
	health         HealthChecker
	metrics        metrics.Recorder
	metricsHandler http.Handler
	logger         logging.Logger
}

// NewServer builds the HTTP layer. metricsHandler may be nil, in which case
// /metrics is not served.
func NewServer(users UserService, images ImageService, health HealthChecker,
	rec metrics.Recorder, metricsHandler http.Handler, logger logging.Logger) *Server {
	return &Server{
		users:          users,
		images:         images,
		health:         health,
		metrics:        rec,
		metricsHandler: metricsHandler,
		logger:         logger.With("module", "http"),
	}
}

// Router wires the routes. Methods not registered for a path answer 405
// before any authentication runs.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
	})

	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(s.recordMetrics)
	r.Use(noCache)

	r.HandleFunc("/healthz", s.handleHealthz)
	if s.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", s.metricsHandler)
	}

	r.Route(common.APIPrefix, func(r chi.Router) {
		r.Post("/user", s.handleCreateUser)
		r.Get("/user/self/verify", s.handleVerify)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate, s.requireVerified)

			r.Get("/user/self", s.handleGetSelf)
			r.Put("/user/self", s.handleUpdateSelf)

			r.Post("/user/self/pic", s.handleUploadPic)
			r.Get("/user/self/pic", s.handleGetPic)
			r.Delete("/user/self/pic", s.handleDeletePic)
		})
	})

	return r
}
