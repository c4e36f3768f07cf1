package handlers

import (
	"challenge-tracking-system/middleware"
	"challenge-tracking-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupExerciseRoutes(app *fiber.App, auth *services.AuthService, exercises *services.ExerciseService) {
	// The catalog is readable by anyone
	app.Get("/exercises", func(c *fiber.Ctx) error {
		list, err := exercises.ListExercises(c.Query("category"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"exercises": list, "count": len(list)})
	})

	app.Get("/exercises/:id", func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		exercise, err := exercises.GetExercise(id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(exercise)
	})

	admin := app.Group("/admin/exercises", middleware.RequireAuth(auth), middleware.RequireAdmin())

	admin.Post("/", func(c *fiber.Ctx) error {
		var payload services.ExercisePayload
		if err := c.BodyParser(&payload); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		exercise, err := exercises.CreateExercise(&payload)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(exercise)
	})

	admin.Put("/:id", func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var payload services.ExercisePayload
		if err := c.BodyParser(&payload); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		exercise, err := exercises.UpdateExercise(id, &payload)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(exercise)
	})

	admin.Delete("/:id", func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		if err := exercises.DeleteExercise(id); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "exercise deleted"})
	})
}
