package handler

import (
	"context"
	"net/http"

	"storefront-be/internal/order"
	"storefront-be/internal/settlement"

	"github.com/gin-gonic/gin"
)

type SettlementRunner interface {
	RunSettlementPass(ctx context.Context) (*settlement.Result, error)
}

type AdminHandler struct {
	orders order.Service
	settle SettlementRunner
}

func NewAdminHandler(orders order.Service, settle SettlementRunner) *AdminHandler {
	return &AdminHandler{orders: orders, settle: settle}
}

// ListOrders handles GET /api/admin/orders.
func (h *AdminHandler) ListOrders(c *gin.Context) {
	filter, ok := listFilter(c)
	if !ok {
		return
	}
	if _, set := c.GetQuery("user_id"); set {
		uid, ok := queryInt(c, "user_id")
		if !ok {
			return
		}
		id := uint(uid)
		filter.UserID = &id
	}

	res, err := h.orders.GetOrders(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type statusRequest struct {
	Status order.Status `json:"status" binding:"required"`
}

// UpdateStatus handles PATCH /api/admin/orders/:id/status.
func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	o, err := h.orders.UpdateOrderStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// RunSettlement handles POST /api/admin/settlement/run.
func (h *AdminHandler) RunSettlement(c *gin.Context) {
	res, err := h.settle.RunSettlementPass(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
