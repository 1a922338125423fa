package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts failed Redis commands by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pinboard_redis_errors_total",
		Help: "Total number of failed Redis commands",
	}, []string{"command"})

	// UploadsTotal counts accepted and rejected uploads by form field.
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pinboard_uploads_total",
		Help: "Total number of uploads by field and outcome",
	}, []string{"field", "outcome"})

	// AuthAttempts counts login and registration attempts by outcome.
	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pinboard_auth_attempts_total",
		Help: "Total number of authentication attempts by kind and outcome",
	}, []string{"kind", "outcome"})
)

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// InitMetrics builds the fiber Prometheus middleware for the given service name.
// The collectors live in the default registry, so only the first call creates them.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New(serviceName)
	})
	return prom
}

// MetricsMiddleware returns the request instrumentation handler, skipping the scrape endpoint itself.
func MetricsMiddleware(p *fiberprometheus.FiberPrometheus) fiber.Handler {
	instrument := p.Middleware
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}
		return instrument(c)
	}
}
