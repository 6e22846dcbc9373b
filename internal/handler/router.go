package handler

import (
	"net/http"

	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/middleware"
	"storefront-be/internal/payment/webhook"
	"storefront-be/internal/user"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type RouterDeps struct {
	ServiceName string
	Tokens      *user.TokenIssuer
	Limiter     *middleware.RateLimiter

	Products *ProductHandler
	Orders   *OrderHandler
	Admin    *AdminHandler
	Auth     *AuthHandler
	Webhooks *webhook.Handler
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery())
	// Trace context has to be extracted before anything logs.
	r.Use(otelgin.Middleware(d.ServiceName))
	r.Use(logger.RequestIDMiddleware())
	r.Use(logger.LoggingMiddleware())
	r.Use(metrics.MetricsMiddleware())
	r.Use(middleware.Auth(d.Tokens))
	if d.Limiter != nil {
		r.Use(d.Limiter.Middleware())
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	r.GET("/metrics", metrics.PrometheusHandler())

	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)

	api.GET("/products", d.Products.List)
	api.GET("/products/:id", d.Products.Get)

	payments := api.Group("/payments")
	payments.GET("/vnpay/ipn", d.Webhooks.VNPayIPN)
	payments.GET("/vnpay/return", d.Webhooks.VNPayReturn)
	payments.POST("/momo/ipn", d.Webhooks.MoMoIPN)
	payments.GET("/momo/return", d.Webhooks.MoMoReturn)

	orders := api.Group("/orders", middleware.RequireAuth())
	orders.POST("", d.Orders.Checkout)
	orders.GET("", d.Orders.ListMine)
	orders.GET("/:id", d.Orders.Get)
	orders.POST("/:id/pay", d.Orders.RetryPayment)

	admin := api.Group("/admin", middleware.RequireAdmin())
	admin.GET("/orders", d.Admin.ListOrders)
	admin.PATCH("/orders/:id/status", d.Admin.UpdateStatus)
	admin.POST("/settlement/run", d.Admin.RunSettlement)

	return r
}
