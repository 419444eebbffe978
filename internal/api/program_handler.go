package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/program-generator/internal/domain"
	"alcyxob/program-generator/internal/service"
)

const (
	defaultLogLimit = 20
	maxLogLimit     = 100
)

type ProgramHandler struct {
	programService service.ProgramService
	creditService  service.CreditService
	usage          service.UsageRecorder
	logger         *slog.Logger
}

func NewProgramHandler(programService service.ProgramService, creditService service.CreditService, usage service.UsageRecorder, logger *slog.Logger) *ProgramHandler {
	return &ProgramHandler{
		programService: programService,
		creditService:  creditService,
		usage:          usage,
		logger:         logger,
	}
}

// GetProgram godoc
// @Summary Get a generated program
// @Description Returns the program with every persisted phase, workout and exercise. Owner only.
// @Tags Programs
// @Produce json
// @Security BearerAuth
// @Param programId path string true "Program's ObjectID Hex"
// @Success 200 {object} service.ProgramDetails
// @Failure 400 {object} gin.H "Invalid program ID format"
// @Failure 403 {object} gin.H "Program belongs to another user"
// @Failure 404 {object} gin.H "Program not found"
// @Router /programs/{programId} [get]
func (h *ProgramHandler) GetProgram(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}
	programID, err := primitive.ObjectIDFromHex(c.Param("programId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid program ID format.")
		return
	}

	details, err := h.programService.GetProgram(c.Request.Context(), userID, programID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProgramNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrProgramAccess):
			abortWithError(c, http.StatusForbidden, err.Error())
		default:
			h.logger.Error("Failed to load program", "programId", programID.Hex(), "error", err)
			abortWithError(c, http.StatusInternalServerError, "Failed to retrieve program.")
		}
		return
	}
	c.JSON(http.StatusOK, details)
}

// GetCredits godoc
// @Summary Get my generation credits
// @Description Applies the monthly reset rule and returns the caller's quota.
// @Tags Credits
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.CreditStatus
// @Router /credits [get]
func (h *ProgramHandler) GetCredits(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}
	status, err := h.creditService.Evaluate(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to evaluate credits", "userId", userID, "error", err)
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve credits.")
		return
	}
	c.JSON(http.StatusOK, status)
}

// GetGenerationLogs godoc
// @Summary List my generation usage
// @Description Most recent generation records, with transcript download links when archived.
// @Tags Credits
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Max records (default 20, max 100)"
// @Success 200 {array} domain.GenerationLog
// @Router /generation-logs [get]
func (h *ProgramHandler) GetGenerationLogs(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}

	limit := int64(defaultLogLimit)
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 {
			abortWithError(c, http.StatusBadRequest, "limit must be a positive integer.")
			return
		}
		limit = min(n, maxLogLimit)
	}

	logs, err := h.usage.List(c.Request.Context(), userID, limit)
	if err != nil {
		h.logger.Error("Failed to list generation logs", "userId", userID, "error", err)
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve generation logs.")
		return
	}
	if logs == nil {
		c.JSON(http.StatusOK, []domain.GenerationLog{})
		return
	}
	c.JSON(http.StatusOK, logs)
}
