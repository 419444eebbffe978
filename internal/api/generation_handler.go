package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"alcyxob/program-generator/internal/domain"
	"alcyxob/program-generator/internal/service"
)

type GenerationHandler struct {
	orchestrator   service.PhaseOrchestrator
	allowAnonymous bool
	logger         *slog.Logger
}

func NewGenerationHandler(orchestrator service.PhaseOrchestrator, allowAnonymous bool, logger *slog.Logger) *GenerationHandler {
	return &GenerationHandler{orchestrator: orchestrator, allowAnonymous: allowAnonymous, logger: logger}
}

// --- DTOs ---

type GeneratePhaseRequest struct {
	UserID             string                    `json:"userId"`
	Profile            *domain.UserProfile       `json:"profile"`
	IntakeData         *domain.IntakeData        `json:"intakeData"`
	PhaseNumber        int                       `json:"phaseNumber" binding:"required"`
	TotalPhases        int                       `json:"totalPhases" binding:"required"`
	PreviousPhases     []domain.ValidatedPhase   `json:"previousPhases"`
	ProgramID          string                    `json:"programId"`
	ProgramName        string                    `json:"programName" binding:"max=120"`
	ProgramDescription string                    `json:"programDescription" binding:"max=1000"`
	Context            *domain.GenerationContext `json:"context"`
}

type GeneratePhaseResponse struct {
	Success   bool                   `json:"success"`
	Phase     *domain.ValidatedPhase `json:"phase"`
	ProgramID string                 `json:"programId"`
	Metadata  service.PhaseMetadata  `json:"metadata"`
}

// --- Handler Methods ---

// GeneratePhase godoc
// @Summary Generate one phase of a program
// @Description Generates, validates and stores a single phase. Phase 1 creates the program and consumes one monthly credit.
// @Tags Generation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param phase body GeneratePhaseRequest true "Phase request"
// @Success 200 {object} GeneratePhaseResponse
// @Failure 400 {object} gin.H "Invalid request or phase number"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 403 {object} gin.H "Monthly generation limit reached"
// @Failure 429 {object} gin.H "Rate limited"
// @Failure 500 {object} gin.H "Generation or persistence failed"
// @Router /programs/generate/phase [post]
func (h *GenerationHandler) GeneratePhase(c *gin.Context) {
	var req GeneratePhaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	// Token identity wins over any body userId.
	userID, err := getUserIDFromContext(c)
	if err != nil {
		if !h.allowAnonymous || req.UserID == "" {
			abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
			return
		}
		userID = req.UserID
	}

	// A dispatched model call runs to completion or to generation.timeout; a
	// client disconnect does not cancel it.
	ctx := context.WithoutCancel(c.Request.Context())
	result, err := h.orchestrator.GeneratePhase(ctx, service.GeneratePhaseRequest{
		RequestID:          getRequestIDFromContext(c),
		UserID:             userID,
		Profile:            req.Profile,
		IntakeData:         req.IntakeData,
		PhaseNumber:        req.PhaseNumber,
		TotalPhases:        req.TotalPhases,
		PreviousPhases:     req.PreviousPhases,
		ProgramID:          req.ProgramID,
		ProgramName:        req.ProgramName,
		ProgramDescription: req.ProgramDescription,
		Context:            req.Context,
	})
	if err != nil {
		h.writeError(c, req.PhaseNumber, err)
		return
	}

	c.JSON(http.StatusOK, GeneratePhaseResponse{
		Success:   true,
		Phase:     result.Phase,
		ProgramID: result.ProgramID.Hex(),
		Metadata:  result.Metadata,
	})
}

// writeError maps the service error taxonomy onto response shapes.
func (h *GenerationHandler) writeError(c *gin.Context, phaseNumber int, err error) {
	var (
		validationErr *service.ValidationError
		authErr       *service.AuthError
		quotaErr      *service.QuotaExceededError
		generationErr *service.GenerationError
		persistErr    *service.PersistenceError
	)

	switch {
	case errors.As(err, &validationErr):
		abortWithError(c, http.StatusBadRequest, validationErr.Msg)
	case errors.As(err, &authErr):
		abortWithError(c, http.StatusUnauthorized, authErr.Msg)
	case errors.As(err, &quotaErr):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":   "generation_limit_reached",
			"message": "You have used all program generations for this month.",
			"limit":   quotaErr.Limit,
			"used":    quotaErr.Used,
		})
	case errors.As(err, &generationErr):
		abortWithPhaseFailure(c, phaseNumber, "Phase generation failed: "+generationErr.Reason+". Please retry this phase.")
	case errors.As(err, &persistErr):
		h.logger.Error("Failed to persist phase", "requestId", getRequestIDFromContext(c), "error", err)
		abortWithPhaseFailure(c, phaseNumber, "Failed to save the generated phase. Please retry this phase.")
	default:
		h.logger.Error("Unexpected phase generation error", "requestId", getRequestIDFromContext(c), "error", err)
		abortWithPhaseFailure(c, phaseNumber, "Internal error while generating the phase.")
	}
}

func abortWithPhaseFailure(c *gin.Context, phaseNumber int, message string) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"success":     false,
		"error":       message,
		"phaseNumber": phaseNumber,
	})
}
