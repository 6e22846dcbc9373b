package handler

import (
	"errors"
	"net/http"

	"storefront-be/internal/order"
	"storefront-be/internal/payment"
	"storefront-be/internal/utils"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	svc order.Service
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{svc: svc}
}

type checkoutRequest struct {
	Items         []order.CheckoutLine `json:"items" binding:"required,min=1,max=50,dive"`
	PaymentMethod order.PaymentMethod  `json:"payment_method" binding:"required"`
}

// Checkout handles POST /api/orders.
func (h *OrderHandler) Checkout(c *gin.Context) {
	userID, _ := currentUser(c)

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	res, err := h.svc.Checkout(c.Request.Context(), order.CheckoutInput{
		UserID:        userID,
		Items:         req.Items,
		PaymentMethod: req.PaymentMethod,
		ClientIP:      c.ClientIP(),
	})
	if err != nil {
		// The order exists; tell the shopper to retry the payment.
		if errors.Is(err, order.ErrPaymentUnavailable) && res != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": payment.ProviderErrorMessage, "order": res.Order})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// RetryPayment handles POST /api/orders/:id/pay.
func (h *OrderHandler) RetryPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	userID, _ := currentUser(c)

	res, err := h.svc.RetryPayment(c.Request.Context(), userID, id, c.ClientIP())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	userID, _ := currentUser(c)

	o, err := h.svc.GetOrderDetail(c.Request.Context(), userID, id, utils.IsAdmin(c.Request.Context()))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// ListMine handles GET /api/orders for the signed-in shopper.
func (h *OrderHandler) ListMine(c *gin.Context) {
	userID, _ := currentUser(c)

	filter, ok := listFilter(c)
	if !ok {
		return
	}
	filter.UserID = &userID

	res, err := h.svc.GetOrders(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func listFilter(c *gin.Context) (order.ListFilter, bool) {
	var f order.ListFilter

	limit, ok := queryInt(c, "limit")
	if !ok {
		return f, false
	}
	page, ok := queryInt(c, "page")
	if !ok {
		return f, false
	}
	f.Limit, f.Page = limit, page

	if raw := c.Query("status"); raw != "" {
		s := order.Status(raw)
		if !s.Valid() {
			badRequest(c, "invalid status")
			return f, false
		}
		f.Status = &s
	}
	if raw := c.Query("payment_status"); raw != "" {
		ps := order.PaymentStatus(raw)
		switch ps {
		case order.PaymentPending, order.PaymentPaid, order.PaymentFailed, order.PaymentCancelled:
			f.PaymentStatus = &ps
		default:
			badRequest(c, "invalid payment_status")
			return f, false
		}
	}
	return f, true
}
