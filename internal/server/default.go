package server

import (
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"

	"github.com/uksf/uksf-api/modules"
	"github.com/uksf/uksf-api/pkg/application"
	"github.com/uksf/uksf-api/pkg/configuration"
	"github.com/uksf/uksf-api/pkg/metrics"
	"github.com/uksf/uksf-api/pkg/middleware"
	"github.com/uksf/uksf-api/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
	Modules       []application.Module
}

// Default registers the shared middleware, loads the modules and builds the
// HTTP server. Shared middleware goes in first so module middleware sees the
// request logger and the authenticated actor.
func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application
	conf := options.Configuration

	middlewares := []mux.MiddlewareFunc{
		middleware.WithLogger(options.Logger, middleware.DefaultLoggerOptions()),
		middleware.TracedMiddleware("cors"),
		middleware.Cors(conf.Origin),
	}

	if conf.RateLimit.Enabled {
		var store limiter.Store
		var err error

		switch conf.RateLimit.Storage {
		case "redis":
			store, err = middleware.NewRedisStore(conf.RateLimit.RedisURL)
			if err != nil {
				options.Logger.WithError(err).Warn("Failed to create Redis store for rate limiting, falling back to memory")
				store = middleware.NewMemoryStore()
			}
		default:
			store = middleware.NewMemoryStore()
		}

		middlewares = append(middlewares,
			middleware.TracedMiddleware("rateLimit"),
			middleware.RateLimit(middleware.RateLimitConfig{
				RequestsPerPeriod: conf.RateLimit.GlobalRPS,
				Store:             store,
			}),
		)
	}

	middlewares = append(middlewares,
		middleware.TracedMiddleware("authenticate"),
		middleware.Authenticate(middleware.AuthOptions{
			Secret:     conf.Auth.JWTSecret,
			Issuer:     conf.Auth.Issuer,
			QueryParam: "access_token",
		}),
	)
	app.RegisterMiddleware(middlewares...)

	if err := modules.Load(app, options.Modules...); err != nil {
		return nil, err
	}

	if hub := app.Websocket(); hub != nil {
		app.RegisterControllers(NewRealtimeController(conf.Realtime.Path, hub))
	}
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path, options.Logger))
	}

	return server.NewHTTPServer(app), nil
}
