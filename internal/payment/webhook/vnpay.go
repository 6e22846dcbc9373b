package webhook

import (
	"net/http"

	"storefront-be/internal/payment"

	"github.com/gin-gonic/gin"
)

type vnpayAck struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

var vnpayAcks = map[payment.CallbackOutcome]vnpayAck{
	payment.OutcomeApplied:           {"00", "Confirm Success"},
	payment.OutcomeOrderNotFound:     {"01", "Order not found"},
	payment.OutcomeStale:             {"02", "Order already confirmed"},
	payment.OutcomeAmountMismatch:    {"04", "Invalid amount"},
	payment.OutcomeSignatureInvalid:  {"97", "Invalid signature"},
	payment.OutcomeProcessingFailure: {"99", "Unknown error"},
}

// VNPayIPN handles GET /api/payments/vnpay/ipn. VNPay expects HTTP 200 and
// reads the verdict from RspCode.
func (h *Handler) VNPayIPN(c *gin.Context) {
	params := queryParams(c)
	outcome := h.process(c.Request.Context(), payment.ProviderVNPay, params[payment.VNPTxnRef], params)

	ack, ok := vnpayAcks[outcome]
	if !ok {
		ack = vnpayAcks[payment.OutcomeProcessingFailure]
	}
	c.JSON(http.StatusOK, ack)
}

// VNPayReturn handles the shopper's browser redirect back from VNPay.
func (h *Handler) VNPayReturn(c *gin.Context) {
	h.writeReturn(c, payment.ProviderVNPay, queryParams(c))
}

func queryParams(c *gin.Context) map[string]string {
	params := make(map[string]string)
	for k, v := range c.Request.URL.Query() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params
}
