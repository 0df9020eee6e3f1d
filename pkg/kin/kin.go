// Package kin converts between Kin amounts and base units. One Kin is
// 10^18 base units, like ether and wei.
package kin

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

// Decimals is the number of fractional digits of one Kin.
const Decimals = 18

var unit = big.NewInt(params.Ether)

// ErrTooPrecise is returned when an amount has more than 18 fractional digits.
var ErrTooPrecise = errors.New("amount has more than 18 decimal places")

// ToBase parses a decimal Kin amount such as "1.5" into base units.
func ToBase(amount string) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	r, ok := new(big.Rat).SetString(amount)
	if !ok || strings.ContainsAny(amount, "/eE") {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	r.Mul(r, new(big.Rat).SetInt(unit))
	if !r.IsInt() {
		return nil, ErrTooPrecise
	}
	return new(big.Int).Set(r.Num()), nil
}

// FromBase formats base units as a decimal Kin amount without trailing
// zeros.
func FromBase(base *big.Int) string {
	if base == nil {
		return "0"
	}
	s := new(big.Rat).SetFrac(base, unit).FloatString(Decimals)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
