package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/careagent/medai/pkg/config"
)

// CircuitBreaker sheds load when the whole request path is failing, on top
// of the per-adapter breakers around the AI provider and the backend.
func CircuitBreaker(cfg config.CircuitBreakerConfig, log *zap.Logger) fiber.Handler {
	maxRequests := cfg.MaxRequests
	if maxRequests == 0 {
		maxRequests = 3
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	threshold := cfg.FailureThreshold
	if threshold <= 0 {
		threshold = 0.6
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "medai-api",
		MaxRequests: maxRequests,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return func(c *fiber.Ctx) error {
		_, err := cb.Execute(func() (interface{}, error) {
			return nil, c.Next()
		})

		if err == gobreaker.ErrOpenState {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Service temporarily unavailable",
			})
		}

		return err
	}
}
