package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"storefront-be/internal/config"
	"storefront-be/internal/logger"
	"storefront-be/internal/signature"
	"storefront-be/internal/utils"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	momoRequestType = "captureWallet"
	momoLang        = "vi"
	momoIntentTTL   = 10 * time.Minute

	MoMoResultSuccess = "0"
)

// Fields MoMo signs on its IPN, besides accessKey.
var momoIPNFields = []string{
	"amount", "extraData", "message", "orderId", "orderInfo", "orderType",
	"partnerCode", "payType", "requestId", "responseTime", "resultCode", "transId",
}

type momoCreateRequest struct {
	PartnerCode string `json:"partnerCode"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	OrderInfo   string `json:"orderInfo"`
	RedirectURL string `json:"redirectUrl"`
	IPNURL      string `json:"ipnUrl"`
	RequestType string `json:"requestType"`
	ExtraData   string `json:"extraData"`
	Lang        string `json:"lang"`
	AutoCapture bool   `json:"autoCapture"`
	Signature   string `json:"signature"`
}

type momoCreateResponse struct {
	PartnerCode string `json:"partnerCode"`
	OrderID     string `json:"orderId"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	ResultCode  int    `json:"resultCode"`
	Message     string `json:"message"`
	PayURL      string `json:"payUrl"`
}

type momoGateway struct {
	cfg        config.MoMoConfig
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	now        func() time.Time
}

func NewMoMo(cfg config.MoMoConfig) Provider {
	if cfg.SecretKey == "" {
		logger.L().Warn("momo secret key is empty")
	}

	return &momoGateway{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "momo",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
		}),
		now: time.Now,
	}
}

func (m *momoGateway) Name() ProviderName { return ProviderMoMo }

func (m *momoGateway) CreateIntent(ctx context.Context, req IntentRequest) (*IntentResponse, error) {
	log := logger.FromCtx(ctx).With(
		zap.Uint("order_id", req.OrderID),
		zap.String("txn_ref", req.TxnRef),
		zap.Int64("amount", req.Amount),
	)

	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: momo requires a positive amount", ErrAmountMismatch)
	}

	redirect := req.ReturnURL
	if redirect == "" {
		redirect = m.cfg.RedirectURL
	}

	body := momoCreateRequest{
		PartnerCode: m.cfg.PartnerCode,
		RequestID:   utils.NewRequestID("MOMO", m.now()),
		Amount:      req.Amount,
		OrderID:     req.TxnRef,
		OrderInfo:   req.OrderInfo,
		RedirectURL: redirect,
		IPNURL:      m.cfg.IPNURL,
		RequestType: momoRequestType,
		Lang:        momoLang,
		AutoCapture: true,
	}
	body.Signature = m.sign(map[string]string{
		"amount":      strconv.FormatInt(body.Amount, 10),
		"extraData":   body.ExtraData,
		"ipnUrl":      body.IPNURL,
		"orderId":     body.OrderID,
		"orderInfo":   body.OrderInfo,
		"partnerCode": body.PartnerCode,
		"redirectUrl": body.RedirectURL,
		"requestId":   body.RequestID,
		"requestType": body.RequestType,
	})

	jsonBody, err := json.Marshal(body)
	if err != nil {
		log.Error("failed to marshal momo request", zap.Error(err))
		return nil, err
	}

	log.Info("sending payment request to momo")

	out, err := m.breaker.Execute(func() (interface{}, error) {
		return m.send(ctx, jsonBody)
	})
	if err != nil {
		log.Error("momo request failed", zap.Error(err))
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnreachable, err)
		}
		return nil, err
	}

	res := out.(*momoCreateResponse)
	if strconv.Itoa(res.ResultCode) != MoMoResultSuccess || res.PayURL == "" {
		log.Warn("momo rejected payment request",
			zap.Int("result_code", res.ResultCode),
			zap.String("message", res.Message),
		)
		return nil, fmt.Errorf("momo error %d: %s", res.ResultCode, res.Message)
	}

	log.Info("momo payment created", zap.String("request_id", res.RequestID))

	return &IntentResponse{
		Provider:    ProviderMoMo,
		TxnRef:      req.TxnRef,
		RedirectURL: res.PayURL,
		ExpiresAt:   m.now().Add(momoIntentTTL),
	}, nil
}

// send only reports transport-level failures so the breaker trips on outages,
// not on business rejections.
func (m *momoGateway) send(ctx context.Context, payload []byte) (*momoCreateResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnreachable, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read momo response: %v", ErrProviderUnreachable, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: momo status %d", ErrProviderUnreachable, resp.StatusCode)
	}

	var res momoCreateResponse
	if err := json.Unmarshal(bodyBytes, &res); err != nil {
		return nil, fmt.Errorf("failed decoding momo response: %w", err)
	}
	return &res, nil
}

func (m *momoGateway) ParseCallback(params map[string]string) (*CallbackResult, error) {
	signed := map[string]string{"accessKey": m.cfg.AccessKey}
	for _, f := range momoIPNFields {
		signed[f] = params[f]
	}

	received := params["signature"]
	if received == "" || !signature.Equal(m.sign(signed), received) {
		return nil, ErrSignatureInvalid
	}

	ref := params["orderId"]
	if ref == "" {
		return nil, fmt.Errorf("%w: missing orderId", ErrMalformedReference)
	}

	amount, err := strconv.ParseInt(params["amount"], 10, 64)
	if err != nil || amount < 0 {
		return nil, fmt.Errorf("%w: amount %q", ErrAmountMismatch, params["amount"])
	}

	code := params["resultCode"]
	return &CallbackResult{
		Provider:      ProviderMoMo,
		TxnRef:        ref,
		Amount:        amount,
		Paid:          code == MoMoResultSuccess,
		ResponseCode:  code,
		ProviderTxnID: params["transId"],
		BankCode:      params["payType"],
	}, nil
}

func (m *momoGateway) sign(fields map[string]string) string {
	fields["accessKey"] = m.cfg.AccessKey
	return signature.HMACSHA256(m.cfg.SecretKey, signature.Raw(fields))
}
