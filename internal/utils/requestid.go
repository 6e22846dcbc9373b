package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewRequestID builds an outbound request id such as
// MOMO-20251027103000-9f1c2a7b. Gateways cap the field at 50 characters.
func NewRequestID(prefix string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format("20060102150405"), suffix)
}
