package server

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
	"github.com/sicko7947/calcflow"
	"github.com/sicko7947/calcflow/calculator"
)

// maxListLimit caps GET /api/v1/runs
const maxListLimit = 100

// pipelineHandlers serves the calculator pipeline API
type pipelineHandlers struct {
	orchestrator *calculator.Orchestrator
	logger       zerolog.Logger
	policy       calcflow.InputPolicy
}

// PipelineAppOption configures the pipeline API
type PipelineAppOption func(*pipelineHandlers)

// WithInputPolicy sets how the calculate endpoint treats non-integer input.
// The default is calcflow.InputLenient.
func WithInputPolicy(policy calcflow.InputPolicy) PipelineAppOption {
	return func(h *pipelineHandlers) {
		h.policy = policy
	}
}

// NewPipelineApp exposes the calculator orchestrator as a JSON API
func NewPipelineApp(orchestrator *calculator.Orchestrator, logger zerolog.Logger, opts ...PipelineAppOption) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "calcflow-api",
	})

	h := &pipelineHandlers{
		orchestrator: orchestrator,
		logger:       logger,
		policy:       calcflow.InputLenient,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.registerRoutes(app)

	return app
}

// registerRoutes registers all HTTP routes
func (h *pipelineHandlers) registerRoutes(app *fiber.App) {
	// Health check endpoint
	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "calcflow-api",
		})
	})

	// Root endpoint
	app.Get("/", func(c fiber.Ctx) error {
		p := h.orchestrator.Pipeline()
		return c.JSON(fiber.Map{
			"service":     "calcflow",
			"pipeline":    p.ID(),
			"version":     p.Version(),
			"description": p.Description(),
			"endpoints": fiber.Map{
				"health":    "GET /health",
				"calculate": "POST /api/v1/pipelines/calculator",
				"listRuns":  "GET /api/v1/runs",
				"getStatus": "GET /api/v1/runs/:runId",
				"getStages": "GET /api/v1/runs/:runId/stages",
				"cancelRun": "POST /api/v1/runs/:runId/cancel",
			},
		})
	})

	// API v1 routes
	v1 := app.Group("/api/v1")

	v1.Post("/pipelines/calculator", h.handleCalculate)

	runs := v1.Group("/runs")
	runs.Get("/", h.handleListRuns)
	runs.Get("/:runId", h.handleGetStatus)
	runs.Get("/:runId/stages", h.handleGetStages)
	runs.Post("/:runId/cancel", h.handleCancel)
}

func errorBody(err error) fiber.Map {
	ie := calcflow.ToInvocationError(err)
	return fiber.Map{
		"error": ie.Message,
		"code":  ie.Code,
	}
}

// handleCalculate runs the calculator pipeline, synchronously unless ?async=true
func (h *pipelineHandlers) handleCalculate(c fiber.Ctx) error {
	input, err := calcflow.DecodeRequest(c.Body(), h.policy)
	if err != nil {
		calcflow.LogUnitInputRejected(h.logger, h.orchestrator.Pipeline().ID(), err)
		return c.Status(fiber.StatusBadRequest).JSON(errorBody(err))
	}
	if h.policy != calcflow.InputStrict {
		if fields := calcflow.InvalidFields(c.Body()); len(fields) > 0 {
			calcflow.LogUnitInputDefaulted(h.logger, h.orchestrator.Pipeline().ID(), fields)
		}
	}

	trigger := calcflow.WithTrigger(calcflow.TriggerAPI, c.IP())

	async, _ := strconv.ParseBool(c.Query("async"))
	if async {
		runID, err := h.orchestrator.Start(c.Context(), input, trigger)
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to start pipeline")
			return c.Status(fiber.StatusInternalServerError).JSON(errorBody(err))
		}

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"runId":   runID,
			"status":  calcflow.RunStatusPending,
			"message": "Pipeline started successfully",
		})
	}

	status, err := h.orchestrator.Run(c.Context(), input, trigger)
	if err != nil {
		if status == nil {
			h.logger.Error().Err(err).Msg("Failed to run pipeline")
			return c.Status(fiber.StatusInternalServerError).JSON(errorBody(err))
		}
		// The run itself failed at a unit
		return c.Status(fiber.StatusBadGateway).JSON(status)
	}

	return c.JSON(status)
}

// handleListRuns lists calculator runs, newest first
func (h *pipelineHandlers) handleListRuns(c fiber.Ctx) error {
	var status *calcflow.RunStatus
	if raw := strings.ToUpper(strings.TrimSpace(c.Query("status"))); raw != "" {
		s := calcflow.RunStatus(raw)
		known := false
		for _, candidate := range calcflow.AllRunStatuses {
			if candidate == s {
				known = true
				break
			}
		}
		if !known {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "unknown status " + raw,
				"code":  calcflow.ErrCodeValidation,
			})
		}
		status = &s
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "limit must be a positive integer",
				"code":  calcflow.ErrCodeValidation,
			})
		}
		limit = min(n, maxListLimit)
	}

	runs, err := h.orchestrator.ListRuns(c.Context(), status, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list runs")
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody(err))
	}

	return c.JSON(fiber.Map{
		"runs":  runs,
		"count": len(runs),
	})
}

// handleGetStatus retrieves run status, derived state and stage executions
func (h *pipelineHandlers) handleGetStatus(c fiber.Ctx) error {
	runID := c.Params("runId")

	status, err := h.orchestrator.Status(c.Context(), runID)
	if err != nil {
		if calcflow.IsNotFoundError(err) {
			return c.Status(fiber.StatusNotFound).JSON(errorBody(err))
		}
		h.logger.Error().Err(err).Str("run_id", runID).Msg("Failed to get pipeline run")
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody(err))
	}

	return c.JSON(status)
}

// handleGetStages lists a run's stage executions
func (h *pipelineHandlers) handleGetStages(c fiber.Ctx) error {
	runID := c.Params("runId")

	execs, err := h.orchestrator.StageExecutions(c.Context(), runID)
	if err != nil {
		if calcflow.IsNotFoundError(err) {
			return c.Status(fiber.StatusNotFound).JSON(errorBody(err))
		}
		h.logger.Error().Err(err).Str("run_id", runID).Msg("Failed to get stage executions")
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody(err))
	}

	return c.JSON(fiber.Map{
		"runId":  runID,
		"stages": execs,
	})
}

// handleCancel cancels a running pipeline
func (h *pipelineHandlers) handleCancel(c fiber.Ctx) error {
	runID := c.Params("runId")

	if err := h.orchestrator.Cancel(c.Context(), runID); err != nil {
		switch {
		case calcflow.IsNotFoundError(err):
			return c.Status(fiber.StatusNotFound).JSON(errorBody(err))
		case calcflow.IsValidationError(err):
			return c.Status(fiber.StatusConflict).JSON(errorBody(err))
		}
		h.logger.Error().Err(err).Str("run_id", runID).Msg("Failed to cancel pipeline run")
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody(err))
	}

	return c.JSON(fiber.Map{
		"runId":   runID,
		"status":  calcflow.RunStatusCancelled,
		"message": "Pipeline run cancelled",
	})
}
