// Package signature builds the canonical strings payment providers sign and
// computes or verifies their HMAC digests.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strings"
)

const (
	FieldSecureHash     = "vnp_SecureHash"
	FieldSecureHashType = "vnp_SecureHashType"
)

var ErrSignatureInvalid = errors.New("signature invalid")

// Canonical returns the sorted, form-encoded k=v&k=v string used as HMAC input.
func Canonical(params map[string]string) string {
	return join(params, url.QueryEscape)
}

// Raw is Canonical without encoding. MoMo signs this form.
func Raw(params map[string]string) string {
	return join(params, func(s string) string { return s })
}

func join(params map[string]string, encode func(string) string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(encode(k))
		b.WriteByte('=')
		b.WriteString(encode(params[k]))
	}
	return b.String()
}

func HMACSHA512(secret, data string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

func HMACSHA256(secret, data string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// Sign signs the canonical form of params with HMAC-SHA512.
func Sign(params map[string]string, secret string) string {
	return HMACSHA512(secret, Canonical(params))
}

// Verify checks the vnp_SecureHash carried in params against every other
// parameter except the hash fields themselves.
func Verify(params map[string]string, secret string) error {
	received := params[FieldSecureHash]
	if received == "" {
		return ErrSignatureInvalid
	}

	signed := make(map[string]string, len(params))
	for k, v := range params {
		if k == FieldSecureHash || k == FieldSecureHashType {
			continue
		}
		signed[k] = v
	}

	if !Equal(Sign(signed, secret), received) {
		return ErrSignatureInvalid
	}
	return nil
}

// Equal compares two hex digests in constant time, ignoring case.
func Equal(expected, received string) bool {
	return hmac.Equal([]byte(strings.ToLower(expected)), []byte(strings.ToLower(received)))
}
