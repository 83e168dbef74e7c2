package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/commerce"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/events"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/metrics"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/models"
	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/recon"
)

// signatureHeader carries the HMAC-SHA256 digest of the raw body.
const signatureHeader = "X-Shopify-Hmac-Sha256"

// WebhookHandler handles the inbound product upsert/delete webhooks.
type WebhookHandler struct {
	updater    *recon.MirrorUpdater
	propagator *recon.ReplicaPropagator
	corrector  *recon.DriftCorrector
	publisher  *events.Publisher
	secret     string
	log        *logrus.Entry
	metrics    *metrics.Metrics
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(updater *recon.MirrorUpdater, propagator *recon.ReplicaPropagator, corrector *recon.DriftCorrector, publisher *events.Publisher, secret string, log *logrus.Entry, m *metrics.Metrics) *WebhookHandler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &WebhookHandler{
		updater:    updater,
		propagator: propagator,
		corrector:  corrector,
		publisher:  publisher,
		secret:     secret,
		log:        log,
		metrics:    m,
	}
}

// readVerified reads the raw body and checks its signature. The signature
// gate runs before any parsing; a mismatch produces 401 with no side
// effects.
func (h *WebhookHandler) readVerified(c *gin.Context) ([]byte, bool) {
	h.metrics.WebhookReceived()
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "failed to read body"})
		return nil, false
	}
	if !commerce.VerifySignature(payload, c.GetHeader(signatureHeader), h.secret) {
		h.metrics.WebhookRejected()
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid signature"})
		return nil, false
	}
	return payload, true
}

// HandleProductUpsert processes a product create/update webhook: mirror
// update first, then replica propagation. A propagation failure on some
// storefronts does not roll anything back; the response reports which
// storefronts succeeded.
func (h *WebhookHandler) HandleProductUpsert(c *gin.Context) {
	payload, ok := h.readVerified(c)
	if !ok {
		return
	}

	canonical, err := models.ParseProductPayload(payload)
	if err != nil {
		h.metrics.WebhookFailed()
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	mirror, _, effects, err := h.updater.ApplyCanonicalUpdate(c.Request.Context(), canonical)
	if err != nil {
		h.metrics.WebhookFailed()
		h.log.WithError(err).WithField("productId", canonical.ID).Error("mirror update failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok":    false,
			"stage": "mirror",
			"error": err.Error(),
		})
		return
	}

	report, propEffects := h.propagator.Propagate(c.Request.Context(), mirror, canonical)
	effects = append(effects, propEffects...)

	storefronts := make([]string, 0, len(report.Succeeded))
	for _, s := range report.Succeeded {
		storefronts = append(storefronts, s.Storefront)
	}

	if !report.OK() {
		h.metrics.WebhookFailed()
		c.JSON(http.StatusMultiStatus, gin.H{
			"ok":        false,
			"stage":     "propagation",
			"productId": canonical.ID,
			"report":    report,
			"effects":   effectsBody(effects),
		})
		return
	}

	h.publisher.PublishReconciled(canonical.ID, storefronts)
	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"productId":   canonical.ID,
		"storefronts": storefronts,
		"report":      report,
		"effects":     effectsBody(effects),
	})
}

// HandleProductDelete processes a product delete webhook by running the
// full deletion cascade and returning the structured deletion report.
func (h *WebhookHandler) HandleProductDelete(c *gin.Context) {
	payload, ok := h.readVerified(c)
	if !ok {
		return
	}

	productID, err := models.ParseDeletePayload(payload)
	if err != nil {
		h.metrics.WebhookFailed()
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	report, err := h.corrector.DeleteProduct(c.Request.Context(), productID)
	if err != nil {
		h.metrics.WebhookFailed()
		h.log.WithError(err).WithField("productId", productID).Error("deletion cascade failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok":     false,
			"stage":  "deletion",
			"error":  err.Error(),
			"report": report,
		})
		return
	}

	h.publisher.PublishDeleted(productID, report.ReplicasDeleted, report.VariantsDeleted)
	c.JSON(http.StatusOK, gin.H{"ok": true, "report": report})
}

func effectsBody(effects []recon.EffectResult) []gin.H {
	out := make([]gin.H, 0, len(effects))
	for _, e := range effects {
		body := gin.H{"name": e.Name, "ok": e.OK}
		if e.Err != nil {
			body["error"] = e.Err.Error()
		}
		out = append(out, body)
	}
	return out
}
