package webhook

import (
	"encoding/json"
	"fmt"
	"net/http"

	"storefront-be/internal/logger"
	"storefront-be/internal/payment"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MoMoIPN handles POST /api/payments/momo/ipn. MoMo treats 204 as
// acknowledged and retries anything else, so only failures a retry could
// fix answer with an error status.
func (h *Handler) MoMoIPN(c *gin.Context) {
	params, err := decodeMoMoBody(c)
	if err != nil {
		logger.FromCtx(c.Request.Context()).Warn("malformed momo ipn body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	outcome := h.process(c.Request.Context(), payment.ProviderMoMo, params["orderId"], params)

	switch outcome {
	case payment.OutcomeSignatureInvalid:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
	case payment.OutcomeProcessingFailure:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "temporarily unavailable"})
	default:
		c.Status(http.StatusNoContent)
	}
}

// MoMoReturn handles the shopper's browser redirect back from MoMo.
func (h *Handler) MoMoReturn(c *gin.Context) {
	h.writeReturn(c, payment.ProviderMoMo, queryParams(c))
}

// decodeMoMoBody flattens the IPN JSON into strings. Numbers keep their
// literal form so the signature covers exactly what MoMo sent.
func decodeMoMoBody(c *gin.Context) (map[string]string, error) {
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}

	params := make(map[string]string, len(body))
	for k, v := range body {
		if v == nil {
			params[k] = ""
			continue
		}
		params[k] = fmt.Sprint(v)
	}
	return params, nil
}
