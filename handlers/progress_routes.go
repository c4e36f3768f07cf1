package handlers

import (
	"strconv"

	"challenge-tracking-system/middleware"
	"challenge-tracking-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProgressRoutes(app *fiber.App, auth *services.AuthService, progress *services.ProgressService) {
	secured := app.Group("/progress", middleware.RequireAuth(auth))

	secured.Post("/", func(c *fiber.Ctx) error {
		user, err := auth.GetUser(middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		var payload services.ProgressPayload
		if err := c.BodyParser(&payload); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		entry, err := progress.LogProgress(user, &payload)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(entry)
	})

	secured.Get("/", func(c *fiber.Ctx) error {
		user, err := auth.GetUser(middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}

		var challengeID *uint
		if raw := c.Query("challenge_id"); raw != "" {
			v, err := strconv.ParseUint(raw, 10, 32)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid challenge_id"})
			}
			id := uint(v)
			challengeID = &id
		}

		entries, err := progress.ListUserProgress(user, challengeID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"entries": entries, "count": len(entries)})
	})
}
