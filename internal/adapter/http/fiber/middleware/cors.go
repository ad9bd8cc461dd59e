package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	fibercors "github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/careagent/medai/pkg/config"
)

// NewCORS builds the CORS policy for the orchestrator API. The surface is
// JSON-over-POST plus GET health and metrics endpoints, so the defaults stay
// narrow; deployments widen them through config.
func NewCORS(cfg config.CORSConfig) fiber.Handler {
	return fibercors.New(fibercors.Config{
		AllowOrigins:     listOr(cfg.AllowedOrigins, "*"),
		AllowMethods:     listOr(cfg.AllowedMethods, "GET,POST,OPTIONS"),
		AllowHeaders:     listOr(cfg.AllowedHeaders, "Origin,Content-Type,Accept,Authorization"),
		ExposeHeaders:    listOr(cfg.ExposeHeaders, "Content-Length,Content-Type"),
		AllowCredentials: cfg.Credentials,
		MaxAge:           maxAgeOr(cfg.MaxAge, 3600),
	})
}

func listOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return strings.Join(values, ",")
}

func maxAgeOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
