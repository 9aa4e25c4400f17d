package keygen

import (
	"fmt"
	"strconv"
	"strings"

	nanoid "github.com/jaevor/go-nanoid"
)

const (
	// Unambiguous uppercase alphabet for codes people type by hand
	referralAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	referralLength   = 8
	nonceLength      = 12
)

var (
	referralGen func() string
	nonceGen    func() string
)

func init() {
	var err error
	referralGen, err = nanoid.CustomASCII(referralAlphabet, referralLength)
	if err != nil {
		panic(err)
	}
	nonceGen, err = nanoid.Standard(nonceLength)
	if err != nil {
		panic(err)
	}
}

// ReferralCode returns a new affiliate code, e.g. "K7MQ2XPA"
func ReferralCode() string {
	return referralGen()
}

// Nonce returns a URL-safe random token
func Nonce() string {
	return nonceGen()
}

// OrderID builds a payment order id of the form <user_id>:<plan>:<nonce>
func OrderID(userID uint, plan string) string {
	return fmt.Sprintf("%d:%s:%s", userID, plan, Nonce())
}

// ParseOrderID splits an order id built by OrderID
func ParseOrderID(orderID string) (userID uint, plan string, err error) {
	parts := strings.SplitN(orderID, ":", 3)
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return 0, "", fmt.Errorf("malformed order id %q", orderID)
	}
	id, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil || id == 0 {
		return 0, "", fmt.Errorf("malformed order id %q: bad user id", orderID)
	}
	return uint(id), parts[1], nil
}
