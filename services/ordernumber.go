package services

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultOrderPrefix = "EZC"

// OrderPrefix returns the configured human-facing order number prefix.
func OrderPrefix() string {
	if prefix := os.Getenv("ORDER_PREFIX"); prefix != "" {
		return prefix
	}
	return defaultOrderPrefix
}

// GenerateOrderNumber builds a human-readable order number of the form
// <PREFIX>-<epoch-millis-last-8>-<random>. There is no coordinated sequence;
// the unique index on orders.order_number is the correctness backstop and the
// persistence layer regenerates once on a collision.
func GenerateOrderNumber(prefix string) string {
	millis := fmt.Sprintf("%d", time.Now().UnixMilli())
	if len(millis) > 8 {
		millis = millis[len(millis)-8:]
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s-%s-%s", prefix, millis, suffix)
}
