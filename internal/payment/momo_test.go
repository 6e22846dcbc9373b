package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"storefront-be/internal/config"
	"storefront-be/internal/logger"
	"storefront-be/internal/signature"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// MockRoundTripper allows us to mock the HTTP response
type MockRoundTripper func(req *http.Request) *http.Response

func (f MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

type MockRoundTripperWithError func(req *http.Request) (*http.Response, error)

func (f MockRoundTripperWithError) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestMoMo() *momoGateway {
	gw := NewMoMo(config.MoMoConfig{
		PartnerCode: "MOMOTEST",
		AccessKey:   "access",
		SecretKey:   "momo-secret",
		Endpoint:    "https://test-payment.momo.vn/v2/gateway/api/create",
		RedirectURL: "https://shop.vn/payment/return",
		IPNURL:      "https://shop.vn/api/payments/momo/ipn",
	}).(*momoGateway)
	gw.now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }
	return gw
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func TestMoMoGateway_CreateIntent(t *testing.T) {
	req := IntentRequest{OrderID: 42, TxnRef: "42-1", Amount: 150000, OrderInfo: "Thanh toan don hang 42"}

	t.Run("Success", func(t *testing.T) {
		gw := newTestMoMo()
		gw.httpClient.Transport = MockRoundTripper(func(r *http.Request) *http.Response {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var body momoCreateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "42-1", body.OrderID)
			assert.Equal(t, int64(150000), body.Amount)
			assert.Equal(t, "captureWallet", body.RequestType)

			raw := "accessKey=access&amount=150000&extraData=&ipnUrl=" + body.IPNURL +
				"&orderId=42-1&orderInfo=" + body.OrderInfo + "&partnerCode=MOMOTEST&redirectUrl=" +
				body.RedirectURL + "&requestId=" + body.RequestID + "&requestType=captureWallet"
			assert.Equal(t, signature.HMACSHA256("momo-secret", raw), body.Signature)

			return jsonResponse(http.StatusOK, `{"resultCode":0,"message":"Thành công.","payUrl":"https://test-payment.momo.vn/pay/abc","orderId":"42-1"}`)
		})

		resp, err := gw.CreateIntent(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, ProviderMoMo, resp.Provider)
		assert.Equal(t, "https://test-payment.momo.vn/pay/abc", resp.RedirectURL)
		assert.Equal(t, gw.now().Add(momoIntentTTL), resp.ExpiresAt)
	})

	t.Run("Rejected", func(t *testing.T) {
		gw := newTestMoMo()
		gw.httpClient.Transport = MockRoundTripper(func(r *http.Request) *http.Response {
			return jsonResponse(http.StatusOK, `{"resultCode":22,"message":"Số tiền không hợp lệ"}`)
		})

		core, observed := observer.New(zapcore.InfoLevel)
		defer logger.Replace(zap.New(core))()

		_, err := gw.CreateIntent(context.Background(), req)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrProviderUnreachable)

		rejected := observed.FilterMessage("momo rejected payment request").All()
		require.Len(t, rejected, 1)
		assert.Equal(t, zapcore.WarnLevel, rejected[0].Level)
		assert.EqualValues(t, 22, rejected[0].ContextMap()["result_code"])
		assert.Equal(t, 1, observed.FilterMessage("sending payment request to momo").Len())
	})

	t.Run("NetworkError", func(t *testing.T) {
		gw := newTestMoMo()
		gw.httpClient.Transport = MockRoundTripperWithError(func(r *http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		})

		_, err := gw.CreateIntent(context.Background(), req)
		assert.ErrorIs(t, err, ErrProviderUnreachable)
	})

	t.Run("ServerError", func(t *testing.T) {
		gw := newTestMoMo()
		gw.httpClient.Transport = MockRoundTripper(func(r *http.Request) *http.Response {
			return jsonResponse(http.StatusBadGateway, `upstream down`)
		})

		_, err := gw.CreateIntent(context.Background(), req)
		assert.ErrorIs(t, err, ErrProviderUnreachable)
	})

	t.Run("BreakerOpens", func(t *testing.T) {
		gw := newTestMoMo()
		calls := 0
		gw.httpClient.Transport = MockRoundTripperWithError(func(r *http.Request) (*http.Response, error) {
			calls++
			return nil, errors.New("timeout")
		})

		for i := 0; i < 6; i++ {
			_, err := gw.CreateIntent(context.Background(), req)
			assert.ErrorIs(t, err, ErrProviderUnreachable)
		}
		assert.Equal(t, 5, calls, "open breaker short-circuits the sixth call")
	})

	t.Run("NonPositiveAmount", func(t *testing.T) {
		gw := newTestMoMo()
		_, err := gw.CreateIntent(context.Background(), IntentRequest{TxnRef: "1-1", Amount: 0})
		assert.ErrorIs(t, err, ErrAmountMismatch)
	})
}

func momoIPN(gw *momoGateway, resultCode string) map[string]string {
	p := map[string]string{
		"partnerCode":  "MOMOTEST",
		"orderId":      "42-1",
		"requestId":    "MOMO-20250301-000000-000-0001",
		"amount":       "150000",
		"orderInfo":    "Thanh toan don hang 42",
		"orderType":    "momo_wallet",
		"transId":      "2821937891",
		"resultCode":   resultCode,
		"message":      "Successful.",
		"payType":      "qr",
		"responseTime": "1740787200000",
		"extraData":    "",
	}
	signed := map[string]string{}
	for k, v := range p {
		signed[k] = v
	}
	p["signature"] = gw.sign(signed)
	return p
}

func TestMoMoGateway_ParseCallback(t *testing.T) {
	gw := newTestMoMo()

	t.Run("Paid", func(t *testing.T) {
		res, err := gw.ParseCallback(momoIPN(gw, "0"))
		require.NoError(t, err)
		assert.True(t, res.Paid)
		assert.Equal(t, int64(150000), res.Amount)
		assert.Equal(t, "42-1", res.TxnRef)
		assert.Equal(t, "2821937891", res.ProviderTxnID)
	})

	t.Run("Failed", func(t *testing.T) {
		res, err := gw.ParseCallback(momoIPN(gw, "1006"))
		require.NoError(t, err)
		assert.False(t, res.Paid)
	})

	t.Run("Tampered", func(t *testing.T) {
		p := momoIPN(gw, "0")
		p["amount"] = "1"

		_, err := gw.ParseCallback(p)
		assert.ErrorIs(t, err, ErrSignatureInvalid)
	})

	t.Run("MissingSignature", func(t *testing.T) {
		p := momoIPN(gw, "0")
		delete(p, "signature")

		_, err := gw.ParseCallback(p)
		assert.ErrorIs(t, err, ErrSignatureInvalid)
	})
}
