package handlers

import (
	"errors"

	"challenge-tracking-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

var handlerLog = logrus.StandardLogger()

// respondError maps service-layer errors onto HTTP responses. Validation
// errors carry their similar-match list through so clients can offer
// force-create.
func respondError(c *fiber.Ctx, err error) error {
	var vErr *services.ValidationError
	if errors.As(err, &vErr) {
		body := fiber.Map{"error": vErr.Message}
		if len(vErr.Matches) > 0 {
			body["similar_challenges"] = vErr.Matches
		}
		return c.Status(fiber.StatusBadRequest).JSON(body)
	}

	var uErr *services.UnauthorizedError
	if errors.As(err, &uErr) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": uErr.Message})
	}

	var nErr *services.NotFoundError
	if errors.As(err, &nErr) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": nErr.Error()})
	}

	var cErr *services.ConflictError
	if errors.As(err, &cErr) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": cErr.Message})
	}

	handlerLog.WithError(err).Error("[HTTP] unhandled service error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}
