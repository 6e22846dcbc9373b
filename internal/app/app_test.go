package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront-be/internal/config"
	"storefront-be/internal/lock"
	"storefront-be/internal/order"
	"storefront-be/internal/scheduler"
	"storefront-be/internal/settlement"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:    "test",
		Timezone:  "Asia/Ho_Chi_Minh",
		JWTSecret: "testsecret",
		Settlement: config.SettlementConfig{
			Threshold:   time.Hour,
			PageSize:    50,
			SkipMethods: []string{"cod", "bogus"},
			LockBackend: "postgres",
		},
		CallbackTimeout: time.Second,
	}
}

func TestNewWithDB(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	a, err := newWithDB(context.Background(), testConfig(), db)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Users)
	assert.NotNil(t, a.Products)
	assert.NotNil(t, a.Orders)
	assert.NotNil(t, a.Webhooks)
	assert.NotNil(t, a.Settlement)
	assert.NotNil(t, a.Reports)

	w := httptest.NewRecorder()
	a.Router(nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	s := scheduler.New(context.Background(), time.UTC)
	require.NoError(t, a.RegisterJobs(s))
	assert.Len(t, s.Entries(), 2)
}

func TestUnknownLockBackend(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg := testConfig()
	cfg.Settlement.LockBackend = "zookeeper"

	_, err = newWithDB(context.Background(), cfg, db)
	assert.ErrorContains(t, err, "zookeeper")
}

func TestPaymentMethods(t *testing.T) {
	assert.Equal(t, []order.PaymentMethod{order.MethodCOD, order.MethodMoMo}, paymentMethods([]string{"cod", "bogus", "MOMO"}))
	assert.Empty(t, paymentMethods(nil))
}

type busyLocker struct{ err error }

func (l busyLocker) TryAcquire(context.Context, string) (func(), error) {
	return nil, l.err
}

type emptyStore struct{}

func (emptyStore) ListStaleOrderIDs(context.Context, time.Time, uint, int, []order.PaymentMethod) ([]uint, error) {
	return nil, nil
}

func (emptyStore) CancelStale(context.Context, uint, time.Time) error { return nil }

func TestRunAutoCancel(t *testing.T) {
	t.Run("LockHeldElsewhere", func(t *testing.T) {
		a := &App{Settlement: settlement.NewJob(emptyStore{}, busyLocker{err: lock.ErrNotAcquired}, settlement.Config{}, nil)}
		assert.NoError(t, a.RunAutoCancel(context.Background()))
	})

	t.Run("LockError", func(t *testing.T) {
		boom := errors.New("connection reset")
		a := &App{Settlement: settlement.NewJob(emptyStore{}, busyLocker{err: boom}, settlement.Config{}, nil)}
		assert.ErrorIs(t, a.RunAutoCancel(context.Background()), boom)
	})
}
