package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"storefront-be/internal/logger"
	"storefront-be/internal/mailer"
	"storefront-be/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const JobName = "reports:send-monthly"

var monthlyTemplate = template.Must(template.New("monthly").Funcs(template.FuncMap{
	"vnd":  func(d decimal.Decimal) string { return utils.FormatVND(d.IntPart()) },
	"date": func(t time.Time) string { return t.Format("02/01/2006") },
}).Parse(`<!DOCTYPE html>
<html>
<body>
<h2>Báo cáo bán hàng {{date .PeriodStart}} - {{date .LastDay}}</h2>
<table>
<tr><td>Tổng số đơn</td><td>{{.OrderCount}}</td></tr>
<tr><td>Đơn đã thanh toán</td><td>{{.PaidCount}}</td></tr>
<tr><td>Đơn đã hủy</td><td>{{.CancelledCount}}</td></tr>
<tr><td>Doanh thu</td><td>{{vnd .Revenue}}</td></tr>
</table>
{{if .TopProducts}}
<h3>Sản phẩm bán chạy</h3>
<ol>
{{range .TopProducts}}<li>{{.Name}}: {{.Quantity}} ({{vnd .Revenue}})</li>
{{end}}</ol>
{{end}}
</body>
</html>`))

type Service interface {
	SendMonthly(ctx context.Context) (*MonthlyReport, error)
}

type service struct {
	repo       Repository
	sender     mailer.Sender
	recipients []string
	loc        *time.Location
	now        func() time.Time
}

func NewService(repo Repository, sender mailer.Sender, recipients []string, loc *time.Location) Service {
	return &service{
		repo:       repo,
		sender:     sender,
		recipients: recipients,
		loc:        loc,
		now:        time.Now,
	}
}

// SendMonthly builds last month's report and mails it to the admins.
func (s *service) SendMonthly(ctx context.Context) (*MonthlyReport, error) {
	start, end := LastFullMonth(s.now(), s.loc)
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "SendMonthly"),
		zap.Time("period_start", start),
	)

	rep, err := s.repo.MonthlySummary(ctx, start, end)
	if err != nil {
		log.Error("failed to aggregate report", zap.Error(err))
		return nil, err
	}

	body, err := Render(rep)
	if err != nil {
		return nil, err
	}

	subject := fmt.Sprintf("Báo cáo doanh thu tháng %s", start.Format("01/2006"))
	if err := s.sender.Send(ctx, s.recipients, subject, body); err != nil {
		log.Error("failed to send report", zap.Error(err))
		return rep, err
	}

	log.Info("monthly report sent",
		zap.Int64("orders", rep.OrderCount),
		zap.String("revenue", rep.Revenue.String()),
	)
	return rep, nil
}

func Render(rep *MonthlyReport) (string, error) {
	var buf bytes.Buffer
	data := struct {
		*MonthlyReport
		LastDay time.Time
	}{rep, rep.PeriodEnd.AddDate(0, 0, -1)}

	if err := monthlyTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}
