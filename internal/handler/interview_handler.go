package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/interview-eval-api/internal/dto"
	"github.com/noah-isme/interview-eval-api/internal/service"
	"github.com/noah-isme/interview-eval-api/internal/utils"
)

// InterviewHandler exposes the evaluation trigger and the polling endpoints.
type InterviewHandler struct {
	service service.InterviewService
	logger  zerolog.Logger
}

// NewInterviewHandler constructs the handler.
func NewInterviewHandler(service service.InterviewService, logger zerolog.Logger) *InterviewHandler {
	return &InterviewHandler{
		service: service,
		logger:  logger.With().Str("component", "interview_handler").Logger(),
	}
}

// Register wires the handler endpoints into the router group.
func (h *InterviewHandler) Register(router fiber.Router) {
	router.Post("/:id/complete", h.complete)
	router.Get("/:id/results", h.results)
	router.Get("/:id/evaluation", h.evaluation)
}

func (h *InterviewHandler) complete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.Complete(c.UserContext(), dto.CompleteInterviewRequest{InterviewID: id})
	if err != nil {
		return h.handleError(c, err)
	}

	requestLogger(h.logger, c).Info().
		Uint("interview_id", response.InterviewID).
		Str("job_id", response.JobID).
		Msg("interview evaluation scheduled")

	return utils.SendAccepted(c, "evaluation scheduled", response)
}

func (h *InterviewHandler) results(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.GetResults(c.UserContext(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	message := "results retrieved"
	if response.Status == dto.ResultsStatusProcessing {
		message = "evaluation in progress"
	}
	return utils.SendSuccess(c, message, response)
}

func (h *InterviewHandler) evaluation(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.GetEvaluationJob(c.UserContext(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "evaluation status retrieved", response)
}

func (h *InterviewHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrInterviewNotFound), errors.Is(err, service.ErrEvaluationJobNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("interview operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
