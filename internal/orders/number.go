package orders

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const orderNumberPrefix = "HO"

// NewOrderNumber returns a customer-facing order number such as HO-261017-483920.
// The value stays short enough to carry a gateway transaction suffix.
func NewOrderNumber(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%06d", orderNumberPrefix, now.UTC().Format("060102"), n.Int64()), nil
}
