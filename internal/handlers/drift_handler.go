package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/recon"
)

// DriftHandler exposes the drift-correction batch over HTTP for on-demand
// runs from the admin UI.
type DriftHandler struct {
	corrector *recon.DriftCorrector
	log       *logrus.Entry
}

// NewDriftHandler creates a drift handler.
func NewDriftHandler(corrector *recon.DriftCorrector, log *logrus.Entry) *DriftHandler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &DriftHandler{corrector: corrector, log: log}
}

// Run executes a full drift-correction pass and returns the report.
// Per-product failures are inside the report; only a failure to scan the
// mirror collection is a 500.
func (h *DriftHandler) Run(c *gin.Context) {
	report, err := h.corrector.Run(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("drift correction run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": len(report.Errors) == 0, "report": report})
}
