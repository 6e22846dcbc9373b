package handler

import (
	"net/http"

	"storefront-be/internal/product"

	"github.com/gin-gonic/gin"
)

type ProductHandler struct {
	svc product.Service
}

func NewProductHandler(svc product.Service) *ProductHandler {
	return &ProductHandler{svc: svc}
}

// List handles GET /api/products?page=&limit=&in_stock=true
func (h *ProductHandler) List(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	page, ok := queryInt(c, "page")
	if !ok {
		return
	}

	res, err := h.svc.GetList(c.Request.Context(), product.ListOptions{
		Limit:       limit,
		Page:        page,
		OnlyInStock: c.Query("in_stock") == "true",
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	p, err := h.svc.GetProductByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
