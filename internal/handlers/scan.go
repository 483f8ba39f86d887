package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/mverrett/ascend-backend/internal/platform/logger"
	"github.com/mverrett/ascend-backend/internal/services"
)

type ScanHandler struct {
	log         *logger.Logger
	scanService services.ScanService
}

func NewScanHandler(log *logger.Logger, scanService services.ScanService) *ScanHandler {
	return &ScanHandler{
		log:         log.With("handler", "ScanHandler"),
		scanService: scanService,
	}
}

// POST /internal/scan
// Runs a full scan synchronously and returns the summary. The scheduler
// (cron, systemd timer) is expected to call this on its cadence.
func (h *ScanHandler) Trigger(c *gin.Context) {
	summary, err := h.scanService.RunScan(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, summary)
}
