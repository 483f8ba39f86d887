package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mverrett/ascend-backend/internal/platform/logger"
	"github.com/mverrett/ascend-backend/internal/services"
)

type InterventionHandler struct {
	log                 *logger.Logger
	interventionService services.InterventionService
}

func NewInterventionHandler(log *logger.Logger, interventionService services.InterventionService) *InterventionHandler {
	return &InterventionHandler{
		log:                 log.With("handler", "InterventionHandler"),
		interventionService: interventionService,
	}
}

// GET /api/users/:id/interventions?limit=50
func (h *InterventionHandler) ListByUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			RespondError(c, http.StatusBadRequest, "invalid_limit", err)
			return
		}
		limit = n
	}
	records, err := h.interventionService.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"interventions": records})
}

// POST /api/interventions/:id/resolve
func (h *InterventionHandler) Resolve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_intervention_id", err)
		return
	}
	if err := h.interventionService.Resolve(c.Request.Context(), id); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"resolved": true})
}
