package handler

import (
	"errors"
	"net/http"

	"storefront-be/internal/logger"
	"storefront-be/internal/order"
	"storefront-be/internal/payment"
	"storefront-be/internal/product"
	"storefront-be/internal/settlement"
	"storefront-be/internal/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorMapping struct {
	target  error
	status  int
	message string
}

// Checked in order; the first match wins. Messages are safe to show clients.
var errorTable = []errorMapping{
	{order.ErrInvalidInput, http.StatusBadRequest, "invalid order input"},
	{product.ErrVariantNotFound, http.StatusBadRequest, "variant not found"},
	{order.ErrOrderNotFound, http.StatusNotFound, "order not found"},
	{product.ErrProductNotFound, http.StatusNotFound, "product not found"},
	{order.ErrUnauthorized, http.StatusForbidden, "forbidden"},
	{order.ErrOutOfStock, http.StatusConflict, "insufficient stock"},
	{order.ErrInvalidStatus, http.StatusConflict, "invalid status transition"},
	{order.ErrStaleTransition, http.StatusConflict, "order changed, please reload"},
	{order.ErrPaymentUnavailable, http.StatusBadGateway, payment.ProviderErrorMessage},
	{user.ErrInvalidCredentials, http.StatusUnauthorized, "invalid email or password"},
	{user.ErrEmailExists, http.StatusConflict, "email already registered"},
	{settlement.ErrPassInProgress, http.StatusConflict, "settlement pass already running"},
}

func statusFor(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			return m.status, m.message
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

func writeError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.FromCtx(c.Request.Context()).Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
