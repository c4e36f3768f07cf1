package handlers

import (
	"challenge-tracking-system/middleware"
	"challenge-tracking-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupWeatherRoutes(app *fiber.App, auth *services.AuthService, weather *services.WeatherService) {
	secured := app.Group("/weather", middleware.RequireAuth(auth))

	// Forecast for a free-form location, or for the user's stored
	// coordinates when no query is given.
	secured.Get("/", func(c *fiber.Ctx) error {
		var lat, lon float64

		if location := c.Query("location"); location != "" {
			loc, err := weather.GeocodeLocation(location)
			if err != nil {
				return respondError(c, err)
			}
			if loc == nil {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "location not found"})
			}
			lat, lon = loc.Latitude, loc.Longitude
		} else {
			user, err := auth.GetUser(middleware.UserID(c))
			if err != nil {
				return respondError(c, err)
			}
			if user.Latitude == nil || user.Longitude == nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "no location on profile, pass ?location= or set coordinates",
				})
			}
			lat, _ = user.Latitude.Float64()
			lon, _ = user.Longitude.Float64()
		}

		forecast, err := weather.GetForecast(lat, lon)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(forecast)
	})
}
