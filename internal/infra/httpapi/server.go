// Package httpapi is the inbound HTTP surface: actions, preferences, status
// and the operator triggers.
package httpapi

import (
	"net/http"
	"time"

	"health_notification_service/internal/app"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

// RequestRecorder receives per-request timings.
type RequestRecorder interface {
	RecordHTTPRequest(method, path string, status int, d time.Duration)
}

// Deps are the services the API routes to.
type Deps struct {
	Actions     *app.ActionService
	Preferences *app.PreferenceService
	Status      *app.StatusService
	Jobs        *app.Jobs
	Validator   *Validator
	Metrics     RequestRecorder
	Gatherer    prometheus.Gatherer
	Logger      *logrus.Entry

	AdminAPIKey    string
	AllowedOrigins []string
}

// Server routes HTTP requests to the app services.
type Server struct {
	actions     *app.ActionService
	preferences *app.PreferenceService
	status      *app.StatusService
	jobs        *app.Jobs
	validator   *Validator
	metrics     RequestRecorder
	logger      *logrus.Entry
	adminKey    string
	handler     http.Handler
}

func NewServer(d Deps) *Server {
	s := &Server{
		actions:     d.Actions,
		preferences: d.Preferences,
		status:      d.Status,
		jobs:        d.Jobs,
		validator:   d.Validator,
		metrics:     d.Metrics,
		logger:      d.Logger,
		adminKey:    d.AdminAPIKey,
	}

	hr := &httprouter.Router{
		RedirectTrailingSlash:  true,
		RedirectFixedPath:      true,
		HandleMethodNotAllowed: true,
		HandleOPTIONS:          true,
		SaveMatchedRoutePath:   true,
		NotFound: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, errorResponse{Message: "endpoint not found"}, http.StatusNotFound)
		}),
		MethodNotAllowed: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, errorResponse{Message: "method not allowed"}, http.StatusMethodNotAllowed)
		}),
	}

	hr.GET("/healthz", s.observe(s.healthz))
	if d.Gatherer != nil {
		hr.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	hr.POST("/notifications/register-token", s.observe(s.registerToken))
	hr.GET("/notifications/preferences", s.observe(s.getPreferences))
	hr.POST("/notifications/preferences", s.observe(s.savePreferences))
	hr.POST("/notifications/ack", s.observe(s.ack))
	hr.POST("/notifications/quick-log", s.observe(s.quickLog))
	hr.GET("/notifications/status", s.observe(s.listStatus))
	hr.POST("/notifications/send-test", s.observe(s.adminOnly(s.sendTest)))
	hr.POST("/notifications/seed", s.observe(s.adminOnly(s.seed)))
	hr.POST("/notifications/cycle", s.observe(s.adminOnly(s.cycle)))

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.handler = cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"*"},
	}).Handler(hr)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
