package metrics

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/uksf/uksf-api/pkg/application"
)

const DefaultPath = "/debug/prometheus"

// PrometheusController serves the default registry, where the datacontext
// and command collectors register through promauto.
type PrometheusController struct {
	path    string
	handler http.Handler
}

func NewPrometheusController(path string, logger *logrus.Logger) application.Controller {
	if path == "" {
		path = DefaultPath
	}
	opts := promhttp.HandlerOpts{
		ErrorHandling:     promhttp.ContinueOnError,
		EnableOpenMetrics: true,
	}
	if logger != nil {
		opts.ErrorLog = logger.WithField("component", "prometheus")
	}
	return &PrometheusController{
		path: path,
		handler: promhttp.InstrumentMetricHandler(
			prometheus.DefaultRegisterer,
			promhttp.HandlerFor(prometheus.DefaultGatherer, opts),
		),
	}
}

func (c *PrometheusController) Key() string {
	return c.path
}

func (c *PrometheusController) Register(r *mux.Router) {
	r.Handle(c.path, c.handler).Methods(http.MethodGet)
}
