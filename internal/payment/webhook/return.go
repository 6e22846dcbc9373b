package webhook

import (
	"errors"
	"net/http"

	"storefront-be/internal/logger"
	"storefront-be/internal/payment"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type returnResponse struct {
	TxnRef  string `json:"txn_ref"`
	OrderID uint   `json:"order_id"`
	Paid    bool   `json:"paid"`
	Message string `json:"message"`
}

func (h *Handler) writeReturn(c *gin.Context, name payment.ProviderName, params map[string]string) {
	res, err := h.verifyOnly(name, params)
	if err != nil {
		logger.FromCtx(c.Request.Context()).Warn("payment return rejected",
			zap.String("provider", string(name)),
			zap.Error(err),
		)
		if errors.Is(err, payment.ErrSignatureInvalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment result"})
		return
	}

	resp := returnResponse{TxnRef: res.TxnRef, Paid: res.Paid}
	if orderID, _, err := payment.ParseTxnRef(res.TxnRef); err == nil {
		resp.OrderID = orderID
	}
	if res.Paid {
		resp.Message = "Thanh toán thành công, đơn hàng đang được xác nhận."
	} else {
		resp.Message = "Thanh toán chưa thành công, bạn có thể thử lại."
	}
	c.JSON(http.StatusOK, resp)
}
