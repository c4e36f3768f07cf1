package handlers

import (
	"strconv"
	"time"

	"challenge-tracking-system/middleware"
	"challenge-tracking-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupChallengeRoutes(app *fiber.App, auth *services.AuthService, challenges *services.ChallengeService, analytics *services.AnalyticsService) {
	secured := app.Group("/", middleware.RequireAuth(auth))

	secured.Get("/challenges", func(c *fiber.Ctx) error {
		category := c.Query("category")
		minDuration := queryInt(c, "min_duration")
		maxDuration := queryInt(c, "max_duration")

		// Challenges the caller already joined are hidden unless asked for.
		var excludeUserID uint
		if c.Query("exclude_joined", "true") == "true" {
			excludeUserID = middleware.UserID(c)
		}

		list, err := challenges.GetFilteredChallenges(category, minDuration, maxDuration, excludeUserID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"challenges": list, "count": len(list)})
	})

	secured.Get("/challenges/:id", func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		challenge, err := challenges.GetChallenge(id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(challenge)
	})

	secured.Get("/users/me/challenges", func(c *fiber.Ctx) error {
		user, err := auth.GetUser(middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		list, err := challenges.GetUserChallenges(user)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"challenges": list, "count": len(list)})
	})

	secured.Post("/challenges", func(c *fiber.Ctx) error {
		user, err := auth.GetUser(middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		var payload services.ChallengePayload
		if err := c.BodyParser(&payload); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		challenge, err := challenges.CreateChallenge(user, &payload, payload.ForceCreate)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(challenge)
	})

	secured.Put("/challenges/:id", func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		user, err := auth.GetUser(middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		var payload services.ChallengePayload
		if err := c.BodyParser(&payload); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		challenge, err := challenges.UpdateChallenge(id, &payload, user)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(challenge)
	})

	secured.Delete("/challenges/:id", func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		user, err := auth.GetUser(middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		if err := challenges.SoftDeleteChallenge(id, user); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "challenge deleted"})
	})

	secured.Post("/challenges/:id/join", func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		user, err := auth.GetUser(middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		score, err := challenges.JoinChallenge(id, user)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "joined challenge", "trending_score": score})
	})

	secured.Post("/challenges/:id/leave", func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		user, err := auth.GetUser(middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		deleted, score, err := challenges.LeaveChallenge(id, user)
		if err != nil {
			return respondError(c, err)
		}
		if deleted {
			return c.JSON(fiber.Map{"message": "challenge deleted"})
		}
		return c.JSON(fiber.Map{"message": "left challenge", "trending_score": score})
	})

	secured.Get("/challenges/:id/analytics", func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		challenge, err := challenges.GetChallenge(id)
		if err != nil {
			return respondError(c, err)
		}

		start, err := queryTime(c, "start_date")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid start_date"})
		}
		end, err := queryTime(c, "end_date")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid end_date"})
		}

		report, err := analytics.GetChallengeAnalytics(challenge, start, end)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(report)
	})
}

func paramID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}

func queryInt(c *fiber.Ctx, name string) *int {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &v
}

func queryTime(c *fiber.Ctx, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, strconv.ErrSyntax
}
