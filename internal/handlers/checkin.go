package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mverrett/ascend-backend/internal/platform/logger"
	"github.com/mverrett/ascend-backend/internal/services"
)

type CheckInHandler struct {
	log            *logger.Logger
	checkinService services.CheckInService
}

func NewCheckInHandler(log *logger.Logger, checkinService services.CheckInService) *CheckInHandler {
	return &CheckInHandler{
		log:            log.With("handler", "CheckInHandler"),
		checkinService: checkinService,
	}
}

type recordCheckInBody struct {
	At       *time.Time               `json:"at"`
	Flags    services.CheckInFlags    `json:"flags"`
	Metadata services.CheckInMetadata `json:"metadata"`
}

// POST /api/users/:id/checkins
func (h *CheckInHandler) Record(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return
	}
	var body recordCheckInBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	req := services.RecordCheckInRequest{
		UserID:   userID,
		Flags:    body.Flags,
		Metadata: body.Metadata,
	}
	if body.At != nil {
		req.At = *body.At
	}

	transition, err := h.checkinService.RecordCheckIn(c.Request.Context(), req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"streak": transition})
}

type correctCheckInBody struct {
	Flags services.CheckInFlags `json:"flags"`
}

// PATCH /api/users/:id/checkins/:date
// Corrects the flags of an already recorded day. The streak is not
// re-evaluated; only the compliance score moves.
func (h *CheckInHandler) Correct(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return
	}
	localDate, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_date", err)
		return
	}
	var body correctCheckInBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	score, err := h.checkinService.CorrectCheckIn(c.Request.Context(), userID, localDate, body.Flags)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"compliance_score": score})
}

// GET /api/users/:id/checkins?days=14
func (h *CheckInHandler) ListRecent(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return
	}
	days := 0
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			RespondError(c, http.StatusBadRequest, "invalid_days", err)
			return
		}
		days = n
	}

	checkins, err := h.checkinService.ListRecent(c.Request.Context(), userID, days)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"checkins": checkins})
}

// GET /api/users/:id/streak
func (h *CheckInHandler) GetStreak(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return
	}
	state, err := h.checkinService.GetStreak(c.Request.Context(), userID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"streak": state})
}
