package asset

import (
	"fmt"
	"math/big"
)

// maxUint128 = 2^128 - 1, the largest amount representable on the wire.
var maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// Uint128 is a non-negative integer amount in [0, 2^128-1].
// Amounts cross the wire as decimal strings so the full range survives
// JSON number parsing in every client.
type Uint128 struct {
	i big.Int
}

// Zero returns the zero amount.
func Zero() Uint128 {
	return Uint128{}
}

// NewUint128 builds an amount from a uint64 (convenient for config and tests).
func NewUint128(v uint64) Uint128 {
	var u Uint128
	u.i.SetUint64(v)
	return u
}

// ParseUint128 parses a decimal-digit string into an amount.
// Rejects empty strings, signs, leading "+", non-digits, and values over 2^128-1.
func ParseUint128(s string) (Uint128, error) {
	if len(s) == 0 {
		return Uint128{}, fmt.Errorf("empty amount")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return Uint128{}, fmt.Errorf("invalid amount %q: not a decimal-digit string", s)
		}
	}
	var u Uint128
	if _, ok := u.i.SetString(s, 10); !ok {
		return Uint128{}, fmt.Errorf("invalid amount %q", s)
	}
	if u.i.Cmp(maxUint128) > 0 {
		return Uint128{}, fmt.Errorf("amount %s exceeds 128 bits", s)
	}
	return u, nil
}

// MustUint128 parses a decimal string or panics. Test helper.
func MustUint128(s string) Uint128 {
	u, err := ParseUint128(s)
	if err != nil {
		panic(err)
	}
	return u
}

// Add returns u + v. Panics if the sum overflows 128 bits, which can only
// happen on amounts that were never accepted from the wire.
func (u Uint128) Add(v Uint128) Uint128 {
	var out Uint128
	out.i.Add(&u.i, &v.i)
	if out.i.Cmp(maxUint128) > 0 {
		panic(fmt.Sprintf("uint128 overflow: %s + %s", u.String(), v.String()))
	}
	return out
}

// Sub returns u - v. Panics on underflow; custody accounting never
// releases more than it holds.
func (u Uint128) Sub(v Uint128) Uint128 {
	if u.Cmp(v) < 0 {
		panic(fmt.Sprintf("uint128 underflow: %s - %s", u.String(), v.String()))
	}
	var out Uint128
	out.i.Sub(&u.i, &v.i)
	return out
}

// Cmp compares u and v: -1 if u < v, 0 if equal, +1 if u > v.
func (u Uint128) Cmp(v Uint128) int {
	return u.i.Cmp(&v.i)
}

// IsZero reports whether the amount is zero.
func (u Uint128) IsZero() bool {
	return u.i.Sign() == 0
}

// String returns the decimal representation.
func (u Uint128) String() string {
	return u.i.String()
}

// MarshalJSON encodes the amount as a decimal string.
func (u Uint128) MarshalJSON() ([]byte, error) {
	return []byte(`"` + u.i.String() + `"`), nil
}

// UnmarshalJSON decodes a decimal string, enforcing the digit-only format
// and the 128-bit range.
func (u *Uint128) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("amount must be a string, got %s", string(data))
	}
	parsed, err := ParseUint128(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
