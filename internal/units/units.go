// Package units converts between on-chain wei amounts and the ETH decimal
// strings shown to and typed by users.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// EtherDecimals is the number of fractional digits between wei and ether.
const EtherDecimals = 18

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidInteger = errors.New("invalid integer")
)

// ToWei parses a non-negative ETH decimal string ("1", "1.5", ".25") into wei.
func ToWei(ether string) (*big.Int, error) {
	s := strings.TrimSpace(ether)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if !plainDecimal(s) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, ether)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, ether)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, ether)
	}
	wei := d.Shift(EtherDecimals)
	if !wei.IsInteger() {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, ether, EtherDecimals)
	}
	return wei.BigInt(), nil
}

// FromWei renders wei as the shortest ETH decimal string. Nil renders as "0".
func FromWei(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -EtherDecimals).String()
}

// ParseUint parses a base-10 unsigned integer typed into a form field.
func ParseUint(value string) (uint64, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidInteger, value)
	}
	return n, nil
}

// ParseBigUint is ParseUint for uint256 contract arguments.
func ParseBigUint(value string) (*big.Int, error) {
	s := strings.TrimSpace(value)
	if s == "" || !digitsOnly(s) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidInteger, value)
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidInteger, value)
	}
	return n, nil
}

// ParseEtherList parses a comma separated list of ETH amounts into wei.
func ParseEtherList(list string) ([]*big.Int, error) {
	parts := strings.Split(list, ",")
	out := make([]*big.Int, 0, len(parts))
	for i, part := range parts {
		wei, err := ToWei(part)
		if err != nil {
			return nil, fmt.Errorf("amount %d: %w", i, err)
		}
		out = append(out, wei)
	}
	return out, nil
}

// plainDecimal accepts digits with at most one dot, so exponent and signed
// forms never reach the decimal parser.
func plainDecimal(s string) bool {
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return false
	}
	return digitsOnly(whole) && digitsOnly(frac)
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
