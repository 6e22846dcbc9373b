package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func hcm(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	require.NoError(t, err)
	return loc
}

func TestLastFullMonth(t *testing.T) {
	loc := hcm(t)

	tests := []struct {
		name      string
		now       time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "MidMonth",
			now:       time.Date(2025, 3, 15, 10, 0, 0, 0, loc),
			wantStart: time.Date(2025, 2, 1, 0, 0, 0, 0, loc),
			wantEnd:   time.Date(2025, 3, 1, 0, 0, 0, 0, loc),
		},
		{
			name:      "January",
			now:       time.Date(2025, 1, 1, 8, 0, 0, 0, loc),
			wantStart: time.Date(2024, 12, 1, 0, 0, 0, 0, loc),
			wantEnd:   time.Date(2025, 1, 1, 0, 0, 0, 0, loc),
		},
		{
			// 2025-02-28 17:30 UTC is already March 1st in Ho Chi Minh City.
			name:      "UTCStillPreviousDay",
			now:       time.Date(2025, 2, 28, 17, 30, 0, 0, time.UTC),
			wantStart: time.Date(2025, 2, 1, 0, 0, 0, 0, loc),
			wantEnd:   time.Date(2025, 3, 1, 0, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := LastFullMonth(tt.now, loc)
			assert.True(t, tt.wantStart.Equal(start), "start %s", start)
			assert.True(t, tt.wantEnd.Equal(end), "end %s", end)
		})
	}
}

func TestRepository_MonthlySummary(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\), .* FROM orders WHERE created_at >= \$1 AND created_at < \$2`).
		WithArgs(start, end).
		WillReturnRows(sqlmock.NewRows([]string{"count", "paid", "cancelled", "revenue"}).
			AddRow(12, 7, 3, "4350000"))
	mock.ExpectQuery(`FROM order_items oi JOIN orders o .* GROUP BY p.id, p.name`).
		WithArgs(start, end, topProductsLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "qty", "revenue"}).
			AddRow(1, "Áo thun", 9, "1350000").
			AddRow(2, "Quần jean", 4, "1800000"))

	rep, err := NewRepository(db).MonthlySummary(context.Background(), start, end)
	require.NoError(t, err)

	assert.Equal(t, int64(12), rep.OrderCount)
	assert.Equal(t, int64(7), rep.PaidCount)
	assert.Equal(t, int64(3), rep.CancelledCount)
	assert.True(t, decimal.NewFromInt(4350000).Equal(rep.Revenue))
	require.Len(t, rep.TopProducts, 2)
	assert.Equal(t, "Áo thun", rep.TopProducts[0].Name)
	assert.Equal(t, int64(9), rep.TopProducts[0].Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_MonthlySummaryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM orders`).WillReturnError(errors.New("timeout"))

	_, err = NewRepository(db).MonthlySummary(context.Background(), time.Now(), time.Now())
	assert.Error(t, err)
}

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) MonthlySummary(ctx context.Context, start, end time.Time) (*MonthlyReport, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*MonthlyReport), args.Error(1)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, to []string, subject, body string) error {
	return m.Called(ctx, to, subject, body).Error(0)
}

func TestService_SendMonthly(t *testing.T) {
	loc := hcm(t)
	ctx := context.Background()
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, loc)
	end := time.Date(2025, 3, 1, 0, 0, 0, 0, loc)
	recipients := []string{"admin@shop.vn"}

	rep := &MonthlyReport{
		PeriodStart: start,
		PeriodEnd:   end,
		OrderCount:  12,
		PaidCount:   7,
		Revenue:     decimal.NewFromInt(4350000),
		TopProducts: []ProductSales{{ProductID: 1, Name: "Áo thun", Quantity: 9, Revenue: decimal.NewFromInt(1350000)}},
	}

	newService := func(repo Repository, sender *MockSender) *service {
		s := NewService(repo, sender, recipients, loc).(*service)
		s.now = func() time.Time { return time.Date(2025, 3, 1, 8, 0, 0, 0, loc) }
		return s
	}

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		sender := new(MockSender)
		repo.On("MonthlySummary", ctx, start, end).Return(rep, nil)
		sender.On("Send", ctx, recipients, "Báo cáo doanh thu tháng 02/2025", mock.MatchedBy(func(body string) bool {
			return strings.Contains(body, "4.350.000 ₫") &&
				strings.Contains(body, "01/02/2025 - 28/02/2025") &&
				strings.Contains(body, "Áo thun")
		})).Return(nil)

		got, err := newService(repo, sender).SendMonthly(ctx)
		require.NoError(t, err)
		assert.Equal(t, rep, got)
		sender.AssertExpectations(t)
	})

	t.Run("AggregationFails", func(t *testing.T) {
		repo := new(MockRepository)
		sender := new(MockSender)
		repo.On("MonthlySummary", ctx, start, end).Return(nil, errors.New("db down"))

		_, err := newService(repo, sender).SendMonthly(ctx)
		assert.Error(t, err)
		sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("SendFails", func(t *testing.T) {
		repo := new(MockRepository)
		sender := new(MockSender)
		repo.On("MonthlySummary", ctx, start, end).Return(rep, nil)
		sender.On("Send", ctx, recipients, mock.Anything, mock.Anything).Return(errors.New("smtp 421"))

		got, err := newService(repo, sender).SendMonthly(ctx)
		assert.Error(t, err)
		assert.NotNil(t, got)
	})
}

func TestRender_EscapesProductNames(t *testing.T) {
	body, err := Render(&MonthlyReport{
		PeriodStart: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		TopProducts: []ProductSales{{Name: "<script>x</script>"}},
	})
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "0 ₫")
}
