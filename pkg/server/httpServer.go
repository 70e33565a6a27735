package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/gorilla/mux"

	"github.com/uksf/uksf-api/pkg/application"
	"github.com/uksf/uksf-api/pkg/httpapi"
)

type Option func(*HTTPServer)

func WithNotFoundHandler(h http.Handler) Option {
	return func(s *HTTPServer) {
		s.NotFoundHandler = h
	}
}

func WithMethodNotAllowedHandler(h http.Handler) Option {
	return func(s *HTTPServer) {
		s.MethodNotAllowedHandler = h
	}
}

func WithReadHeaderTimeout(d time.Duration) Option {
	return func(s *HTTPServer) {
		s.ReadHeaderTimeout = d
	}
}

// NewHTTPServer collects the application's controllers and middleware.
// Unmatched routes and methods answer with the JSON error envelope unless an
// option replaces them.
func NewHTTPServer(app application.Application, opts ...Option) *HTTPServer {
	s := &HTTPServer{
		Controllers:             app.Controllers(),
		Middlewares:             app.Middleware(),
		NotFoundHandler:         errorHandler(http.StatusNotFound, "NOT_FOUND", "route not found"),
		MethodNotAllowedHandler: errorHandler(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed"),
		ReadHeaderTimeout:       10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func errorHandler(status int, code, message string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteRequestError(w, r, status, code, message)
	})
}

type HTTPServer struct {
	Controllers             []application.Controller
	Middlewares             []mux.MiddlewareFunc
	NotFoundHandler         http.Handler
	MethodNotAllowedHandler http.Handler
	ReadHeaderTimeout       time.Duration

	mu  sync.Mutex
	srv *http.Server
}

// Router wires the controllers. The fallback handlers are wrapped in the
// middleware chain by hand because mux only runs middleware on matches.
func (s *HTTPServer) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.Middlewares...)
	for _, controller := range s.Controllers {
		controller.Register(r)
	}
	r.NotFoundHandler = s.wrap(s.NotFoundHandler)
	r.MethodNotAllowedHandler = s.wrap(s.MethodNotAllowedHandler)
	return r
}

func (s *HTTPServer) wrap(h http.Handler) http.Handler {
	for i := len(s.Middlewares) - 1; i >= 0; i-- {
		h = s.Middlewares[i](h)
	}
	return h
}

func (s *HTTPServer) Handler() http.Handler {
	return gziphandler.GzipHandler(s.Router())
}

// Start blocks until the listener fails or Shutdown is called. A shutdown
// is not reported as an error.
func (s *HTTPServer) Start(socketAddress string) error {
	s.mu.Lock()
	s.srv = &http.Server{
		Addr:              socketAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.ReadHeaderTimeout,
	}
	srv := s.srv
	s.mu.Unlock()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
