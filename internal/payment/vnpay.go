package payment

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"storefront-be/internal/config"
	"storefront-be/internal/logger"
	"storefront-be/internal/signature"

	"go.uber.org/zap"
)

const (
	VNPVersion           = "vnp_Version"
	VNPTmnCode           = "vnp_TmnCode"
	VNPAmount            = "vnp_Amount"
	VNPCommand           = "vnp_Command"
	VNPCreateDate        = "vnp_CreateDate"
	VNPExpireDate        = "vnp_ExpireDate"
	VNPCurrCode          = "vnp_CurrCode"
	VNPIpAddr            = "vnp_IpAddr"
	VNPLocale            = "vnp_Locale"
	VNPOrderInfo         = "vnp_OrderInfo"
	VNPOrderType         = "vnp_OrderType"
	VNPReturnURL         = "vnp_ReturnUrl"
	VNPTxnRef            = "vnp_TxnRef"
	VNPResponseCode      = "vnp_ResponseCode"
	VNPTransactionStatus = "vnp_TransactionStatus"
	VNPTransactionNo     = "vnp_TransactionNo"
	VNPBankCode          = "vnp_BankCode"
)

const (
	// TimestampLayout is the fourteen digit YYYYMMDDHHMMSS format.
	TimestampLayout = "20060102150405"

	VNPayCodeSuccess = "00"

	vnpCommandPay   = "pay"
	vnpCurrency     = "VND"
	vnpOrderType    = "other"
	vnpIntentExpiry = 15 * time.Minute
)

type VNPay struct {
	cfg config.VNPayConfig
	loc *time.Location
	now func() time.Time
}

func NewVNPay(cfg config.VNPayConfig) *VNPay {
	if cfg.HashSecret == "" {
		logger.L().Warn("vnpay hash secret is empty")
	}

	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		logger.L().Error("failed to load Ho Chi Minh location, defaulting to UTC", zap.Error(err))
		loc = time.UTC
	}

	return &VNPay{cfg: cfg, loc: loc, now: time.Now}
}

func (v *VNPay) Name() ProviderName { return ProviderVNPay }

// BuildPaymentURL assembles and signs the redirect URL for one attempt.
func (v *VNPay) BuildPaymentURL(req IntentRequest) (string, error) {
	if req.TxnRef == "" {
		return "", ErrMalformedReference
	}

	scaled, err := Scale(req.Amount)
	if err != nil {
		return "", err
	}

	created := req.CreatedAt
	if created.IsZero() {
		created = v.now()
	}
	created = created.In(v.loc)

	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = v.cfg.ReturnURL
	}

	params := map[string]string{
		VNPVersion:    v.cfg.Version,
		VNPTmnCode:    v.cfg.TmnCode,
		VNPAmount:     strconv.FormatInt(scaled, 10),
		VNPCommand:    vnpCommandPay,
		VNPCreateDate: created.Format(TimestampLayout),
		VNPExpireDate: created.Add(vnpIntentExpiry).Format(TimestampLayout),
		VNPCurrCode:   vnpCurrency,
		VNPIpAddr:     req.ClientIP,
		VNPLocale:     v.cfg.Locale,
		VNPOrderInfo:  req.OrderInfo,
		VNPOrderType:  vnpOrderType,
		VNPReturnURL:  returnURL,
		VNPTxnRef:     req.TxnRef,
	}

	query := signature.Canonical(params)
	hash := signature.HMACSHA512(v.cfg.HashSecret, query)

	return v.cfg.PayURL + "?" + query + "&" + signature.FieldSecureHash + "=" + hash, nil
}

func (v *VNPay) CreateIntent(ctx context.Context, req IntentRequest) (*IntentResponse, error) {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = v.now()
	}

	redirect, err := v.BuildPaymentURL(req)
	if err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Info("vnpay payment url built",
		zap.Uint("order_id", req.OrderID),
		zap.String("txn_ref", req.TxnRef),
		zap.Int64("amount", req.Amount),
	)

	return &IntentResponse{
		Provider:    ProviderVNPay,
		TxnRef:      req.TxnRef,
		RedirectURL: redirect,
		ExpiresAt:   req.CreatedAt.Add(vnpIntentExpiry),
	}, nil
}

func (v *VNPay) ParseCallback(params map[string]string) (*CallbackResult, error) {
	if err := signature.Verify(params, v.cfg.HashSecret); err != nil {
		return nil, err
	}

	ref := params[VNPTxnRef]
	if ref == "" {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedReference, VNPTxnRef)
	}

	amount, err := DescaleString(params[VNPAmount])
	if err != nil {
		return nil, err
	}

	code := params[VNPResponseCode]
	txStatus := params[VNPTransactionStatus]

	return &CallbackResult{
		Provider:      ProviderVNPay,
		TxnRef:        ref,
		Amount:        amount,
		Paid:          code == VNPayCodeSuccess && (txStatus == "" || txStatus == VNPayCodeSuccess),
		ResponseCode:  code,
		ProviderTxnID: params[VNPTransactionNo],
		BankCode:      params[VNPBankCode],
	}, nil
}
