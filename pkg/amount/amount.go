// Package amount implements the signed 128-bit integer used for every asset
// quantity on the ledger.
//
// All arithmetic is checked: an operation whose exact result does not fit
// in 128 bits returns ErrOverflow instead of wrapping.
package amount

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"math/bits"
	"strings"
)

var (
	// ErrOverflow is returned when a result is not representable. Division
	// by zero reports it as well.
	ErrOverflow = errors.New("amount: arithmetic overflow")
	// ErrSyntax is returned by Parse for malformed input.
	ErrSyntax = errors.New("amount: invalid syntax")
)

// Amount is a signed 128-bit two's complement integer. The zero value is 0.
type Amount struct {
	hi uint64
	lo uint64
}

var (
	Zero = Amount{}
	Max  = Amount{hi: math.MaxInt64, lo: math.MaxUint64}
	Min  = Amount{hi: 1 << 63}
)

// New returns the Amount for v.
func New(v int64) Amount {
	return Amount{hi: uint64(v >> 63), lo: uint64(v)}
}

func (a Amount) negative() bool {
	return a.hi>>63 == 1
}

// Sign returns -1, 0 or +1.
func (a Amount) Sign() int {
	switch {
	case a.negative():
		return -1
	case a.hi == 0 && a.lo == 0:
		return 0
	default:
		return 1
	}
}

func (a Amount) IsZero() bool     { return a.hi == 0 && a.lo == 0 }
func (a Amount) IsPositive() bool { return a.Sign() > 0 }

// Cmp returns -1, 0 or +1 depending on whether a is less than, equal to or
// greater than b.
func (a Amount) Cmp(b Amount) int {
	if a.hi != b.hi {
		if int64(a.hi) < int64(b.hi) {
			return -1
		}
		return 1
	}
	switch {
	case a.lo < b.lo:
		return -1
	case a.lo > b.lo:
		return 1
	}
	return 0
}

func (a Amount) Add(b Amount) (Amount, error) {
	lo, carry := bits.Add64(a.lo, b.lo, 0)
	hi, _ := bits.Add64(a.hi, b.hi, carry)
	r := Amount{hi: hi, lo: lo}
	if a.negative() == b.negative() && r.negative() != a.negative() {
		return Zero, ErrOverflow
	}
	return r, nil
}

func (a Amount) Sub(b Amount) (Amount, error) {
	lo, borrow := bits.Sub64(a.lo, b.lo, 0)
	hi, _ := bits.Sub64(a.hi, b.hi, borrow)
	r := Amount{hi: hi, lo: lo}
	if a.negative() != b.negative() && r.negative() != a.negative() {
		return Zero, ErrOverflow
	}
	return r, nil
}

// Neg returns -a. Negating Min overflows.
func (a Amount) Neg() (Amount, error) {
	return Zero.Sub(a)
}

func (a Amount) Mul(b Amount) (Amount, error) {
	x, y := a.magnitude(), b.magnitude()
	if x.hi != 0 && y.hi != 0 {
		return Zero, ErrOverflow
	}
	hi, lo := bits.Mul64(x.lo, y.lo)
	c1hi, c1lo := bits.Mul64(x.hi, y.lo)
	c2hi, c2lo := bits.Mul64(x.lo, y.hi)
	if c1hi != 0 || c2hi != 0 {
		return Zero, ErrOverflow
	}
	var carry uint64
	hi, carry = bits.Add64(hi, c1lo, 0)
	if carry != 0 {
		return Zero, ErrOverflow
	}
	hi, carry = bits.Add64(hi, c2lo, 0)
	if carry != 0 {
		return Zero, ErrOverflow
	}
	return fromMagnitude(u128{hi: hi, lo: lo}, a.negative() != b.negative())
}

// Quo returns a/b truncated toward zero.
func (a Amount) Quo(b Amount) (Amount, error) {
	if b.IsZero() {
		return Zero, ErrOverflow
	}
	q := a.magnitude().quo(b.magnitude())
	return fromMagnitude(q, a.negative() != b.negative())
}

// Int64 returns a as an int64 and whether the conversion was exact.
func (a Amount) Int64() (int64, bool) {
	v := int64(a.lo)
	return v, a.hi == uint64(v>>63)
}

// Big returns a as a new big.Int.
func (a Amount) Big() *big.Int {
	m := a.magnitude()
	b := new(big.Int).SetUint64(m.hi)
	b.Lsh(b, 64)
	b.Or(b, new(big.Int).SetUint64(m.lo))
	if a.negative() {
		b.Neg(b)
	}
	return b
}

var maxUint64 = new(big.Int).SetUint64(math.MaxUint64)

// FromBig converts b, failing with ErrOverflow when it is out of range.
func FromBig(b *big.Int) (Amount, error) {
	if b.BitLen() > 128 {
		return Zero, ErrOverflow
	}
	abs := new(big.Int).Abs(b)
	lo := new(big.Int).And(abs, maxUint64).Uint64()
	hi := abs.Rsh(abs, 64).Uint64()
	return fromMagnitude(u128{hi: hi, lo: lo}, b.Sign() < 0)
}

// Parse reads a base-10 integer with an optional sign.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrSyntax
	}
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Zero, fmt.Errorf("%w: %q", ErrSyntax, s)
	}
	return FromBig(b)
}

// MustParse is Parse for constants in tests and fixtures.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) String() string {
	if v, ok := a.Int64(); ok {
		return fmt.Sprint(v)
	}
	return a.Big().String()
}

// MarshalJSON encodes a as a decimal string so that clients without 128-bit
// integers do not lose precision.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts either a decimal string or a JSON integer.
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = s
	}
	v, err := Parse(raw)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// MarshalBinary encodes a as 16 big-endian bytes. CBOR encoders pick this up
// and store amounts as a fixed-width byte string.
func (a Amount) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[:8], a.hi)
	binary.BigEndian.PutUint64(buf[8:], a.lo)
	return buf, nil
}

func (a *Amount) UnmarshalBinary(data []byte) error {
	if len(data) != 16 {
		return fmt.Errorf("amount: binary form must be 16 bytes, got %d", len(data))
	}
	a.hi = binary.BigEndian.Uint64(data[:8])
	a.lo = binary.BigEndian.Uint64(data[8:])
	return nil
}
