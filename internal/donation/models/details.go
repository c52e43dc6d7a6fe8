package models

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// Details is the category-specific part of a donation. Exactly one variant
// exists per category: FoodDetails for food, FinancialDetails for financial,
// ItemDetails for everything else.
type Details interface {
	isDetails()
}

// FoodDetails carries the expiry checked at creation time.
type FoodDetails struct {
	Expiry   time.Time
	Quantity int
}

// FinancialDetails carries a positive amount in minor units.
type FinancialDetails struct {
	AmountCents int64
}

// ItemDetails carries the number of goods offered.
type ItemDetails struct {
	Quantity int
}

func (FoodDetails) isDetails()      {}
func (FinancialDetails) isDetails() {}
func (ItemDetails) isDetails()      {}

// Amount renders cents as a decimal string with two fractional digits.
func (f FinancialDetails) Amount() string {
	return fmt.Sprintf("%d.%02d", f.AmountCents/100, f.AmountCents%100)
}

// maxAmountCents caps pledges at one trillion minor units.
const maxAmountCents = int64(1_000_000_000_000)

// maxAmountExponent bounds exponent forms before any arithmetic.
const maxAmountExponent = 15

// ParseAmount converts a decimal string into cents. The value must be
// positive with at most two fractional digits. Exponent forms such as "1e3"
// or "2.5E+1", which JSON numbers may use, are accepted when exact.
func ParseAmount(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("amount is required")
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("amount must be positive")
	}
	s = strings.TrimPrefix(s, "+")
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		return parseExponentAmount(s[:i], s[i+1:])
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if hasFrac && (frac == "" || len(frac) > 2) {
		return 0, fmt.Errorf("amount must have at most two decimal places")
	}
	if !isDigits(whole) || !isDigits(frac) {
		return 0, fmt.Errorf("amount must be a decimal number")
	}
	if len(frac) == 1 {
		frac += "0"
	}
	if frac == "" {
		frac = "00"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units > maxAmountCents/100 {
		return 0, fmt.Errorf("amount is too large")
	}
	cents, _ := strconv.ParseInt(frac, 10, 64)
	total := units*100 + cents
	if total <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}
	return total, nil
}

func parseExponentAmount(mantissa, exponent string) (int64, error) {
	whole, frac, _ := strings.Cut(mantissa, ".")
	if whole+frac == "" || !isDigits(whole) || !isDigits(frac) {
		return 0, fmt.Errorf("amount must be a decimal number")
	}
	exp, err := strconv.Atoi(exponent)
	if err != nil {
		return 0, fmt.Errorf("amount must be a decimal number")
	}
	if exp > maxAmountExponent {
		return 0, fmt.Errorf("amount is too large")
	}
	if exp < -maxAmountExponent {
		return 0, fmt.Errorf("amount must have at most two decimal places")
	}

	r, ok := new(big.Rat).SetString(mantissa + "e" + strconv.Itoa(exp))
	if !ok {
		return 0, fmt.Errorf("amount must be a decimal number")
	}
	r.Mul(r, big.NewRat(100, 1))
	if !r.IsInt() {
		return 0, fmt.Errorf("amount must have at most two decimal places")
	}
	cents := r.Num()
	if !cents.IsInt64() || cents.Int64() > maxAmountCents {
		return 0, fmt.Errorf("amount is too large")
	}
	if cents.Sign() <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}
	return cents.Int64(), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
