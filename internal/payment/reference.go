package payment

import (
	"fmt"
	"strconv"
	"strings"
)

// TxnRef builds the per-attempt transaction reference "<orderID>-<attempt>".
func TxnRef(orderID uint, attempt int) string {
	return fmt.Sprintf("%d-%d", orderID, attempt)
}

func ParseTxnRef(ref string) (uint, int, error) {
	orderPart, attemptPart, ok := strings.Cut(ref, "-")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedReference, ref)
	}

	orderID, err := strconv.ParseUint(orderPart, 10, 64)
	if err != nil || orderID == 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedReference, ref)
	}
	attempt, err := strconv.Atoi(attemptPart)
	if err != nil || attempt < 1 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedReference, ref)
	}

	return uint(orderID), attempt, nil
}
