// Package server exposes calcflow units and the calculator pipeline over HTTP.
package server

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
	"github.com/sicko7947/calcflow"
	"github.com/sicko7947/calcflow/transport"
)

// ErrorResponse is the Lambda-style error payload returned by unit endpoints
type ErrorResponse struct {
	ErrorMessage string `json:"errorMessage"`
	ErrorType    string `json:"errorType"`
}

// NewUnitApp serves unit on the runtime emulator invoke route so the
// HTTP invoker can reach it like a locally emulated function
func NewUnitApp(unit *calcflow.Unit, logger zerolog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "calcflow-" + unit.ID,
	})

	logger = logger.With().Str("unit", unit.ID).Logger()

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"unit":   unit.ID,
			"name":   unit.Name,
			"policy": unit.Policy(),
		})
	})

	app.Post(transport.InvocationPath, func(c fiber.Ctx) error {
		result, err := unit.Process(c.Context(), c.Body(), logger)
		if err != nil {
			ie := calcflow.ToInvocationError(err)
			status := fiber.StatusInternalServerError
			if ie.Code == calcflow.ErrCodeValidation {
				status = fiber.StatusBadRequest
			}
			return c.Status(status).JSON(ErrorResponse{
				ErrorMessage: ie.Message,
				ErrorType:    ie.Code,
			})
		}

		return c.JSON(result)
	})

	return app
}
