package report

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductSales struct {
	ProductID uint
	Name      string
	Quantity  int64
	Revenue   decimal.Decimal
}

type MonthlyReport struct {
	PeriodStart    time.Time
	PeriodEnd      time.Time
	OrderCount     int64
	PaidCount      int64
	CancelledCount int64
	// Revenue counts online orders that were paid and COD orders that were delivered.
	Revenue     decimal.Decimal
	TopProducts []ProductSales
}
