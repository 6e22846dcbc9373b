// Package app wires the storefront services together for the server and
// console binaries.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront-be/internal/config"
	"storefront-be/internal/db"
	"storefront-be/internal/events"
	"storefront-be/internal/handler"
	"storefront-be/internal/lock"
	"storefront-be/internal/logger"
	"storefront-be/internal/mailer"
	"storefront-be/internal/middleware"
	"storefront-be/internal/order"
	"storefront-be/internal/payment"
	"storefront-be/internal/payment/webhook"
	"storefront-be/internal/product"
	"storefront-be/internal/report"
	"storefront-be/internal/settlement"
	"storefront-be/internal/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const ServiceName = "storefront-be"

type App struct {
	Config *config.Config
	DB     *sql.DB

	Tokens     *user.TokenIssuer
	Users      user.Service
	Products   product.Service
	Orders     order.Service
	Webhooks   *webhook.Handler
	Settlement *settlement.Job
	Reports    report.Service

	closers []func() error
}

// New opens the database and builds every service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	database, err := db.NewDatabase(cfg)
	if err != nil {
		return nil, err
	}

	a, err := newWithDB(ctx, cfg, database)
	if err != nil {
		database.Close()
		return nil, err
	}
	a.closers = append(a.closers, database.Close)
	return a, nil
}

func newWithDB(ctx context.Context, cfg *config.Config, database *sql.DB) (*App, error) {
	a := &App{Config: cfg, DB: database}

	publisher, err := a.publisher(cfg.Kafka)
	if err != nil {
		a.Close()
		return nil, err
	}

	locker, err := a.locker(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	providers := []payment.Provider{
		payment.NewVNPay(cfg.VNPay),
		payment.NewMoMo(cfg.MoMo),
	}
	paymentRepo := payment.NewRepository(database)

	a.Tokens = user.NewTokenIssuer(cfg.JWTSecret, 0)
	a.Users = user.NewService(user.NewRepository(database), a.Tokens)
	a.Products = product.NewService(product.NewRepository(database))
	a.Orders = order.NewService(order.NewRepository(database), paymentRepo, providers, publisher)
	a.Webhooks = webhook.NewWebhookHandler(a.Orders, paymentRepo, providers, cfg.CallbackTimeout)

	a.Settlement = settlement.NewJob(a.Orders, locker, settlement.Config{
		Threshold:   cfg.Settlement.Threshold,
		PageSize:    cfg.Settlement.PageSize,
		SkipMethods: paymentMethods(cfg.Settlement.SkipMethods),
	}, nil)

	a.Reports = report.NewService(
		report.NewRepository(database),
		mailer.NewSMTPSender(cfg.SMTP),
		cfg.SMTP.Recipients,
		cfg.Location(),
	)

	return a, nil
}

func (a *App) publisher(cfg config.KafkaConfig) (events.Publisher, error) {
	if len(cfg.Brokers) == 0 {
		logger.L().Info("no kafka brokers configured, order events disabled")
		return events.NoopPublisher{}, nil
	}

	producer, err := events.NewKafkaProducer(cfg.Brokers)
	if err != nil {
		return nil, err
	}
	p := events.NewKafkaPublisher(producer, cfg.OrderTopic)
	a.closers = append(a.closers, p.Close)
	return p, nil
}

func (a *App) locker(ctx context.Context, cfg *config.Config) (lock.Locker, error) {
	switch strings.ToLower(cfg.Settlement.LockBackend) {
	case "", "postgres":
		return lock.NewPostgresLocker(a.DB), nil
	case "redis":
		client, err := lock.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return lock.NewRedisLocker(client, 0), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.Settlement.LockBackend)
	}
}

// Router builds the HTTP surface. limiter may be nil.
func (a *App) Router(limiter *middleware.RateLimiter) *gin.Engine {
	return handler.NewRouter(handler.RouterDeps{
		ServiceName: ServiceName,
		Tokens:      a.Tokens,
		Limiter:     limiter,
		Products:    handler.NewProductHandler(a.Products),
		Orders:      handler.NewOrderHandler(a.Orders),
		Admin:       handler.NewAdminHandler(a.Orders, a.Settlement),
		Auth:        handler.NewAuthHandler(a.Users, 0),
		Webhooks:    a.Webhooks,
	})
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		logger.L().Warn("shutdown finished with errors", zap.Error(err))
		return err
	}
	return nil
}

func paymentMethods(names []string) []order.PaymentMethod {
	out := make([]order.PaymentMethod, 0, len(names))
	for _, n := range names {
		m := order.PaymentMethod(strings.ToUpper(n))
		if m.Valid() {
			out = append(out, m)
		}
	}
	return out
}
