package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/careagent/medai/internal/domain"
)

// ErrorHandler maps pipeline errors onto HTTP statuses. Domain errors carry
// their kind into the body so callers can branch without parsing messages.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var de *domain.Error
		if errors.As(err, &de) {
			code := domain.HTTPStatus(de.Kind)
			if code >= fiber.StatusInternalServerError {
				log.Error("Pipeline failure",
					zap.String("kind", string(de.Kind)),
					zap.String("path", c.Path()),
					zap.Error(err),
				)
			}
			return c.Status(code).JSON(fiber.Map{
				"error": de.Message,
				"kind":  string(de.Kind),
			})
		}

		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		if code == fiber.StatusInternalServerError {
			log.Error("Internal Server Error", zap.Error(err), zap.String("path", c.Path()))
		}

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
