package amount

import "math/bits"

// u128 is an unsigned magnitude. Magnitudes of Amount values never exceed
// 2^127, which keeps the long division below free of a 129th bit.
type u128 struct {
	hi uint64
	lo uint64
}

func (a Amount) magnitude() u128 {
	if !a.negative() {
		return u128{hi: a.hi, lo: a.lo}
	}
	lo, borrow := bits.Sub64(0, a.lo, 0)
	hi, _ := bits.Sub64(0, a.hi, borrow)
	return u128{hi: hi, lo: lo}
}

func fromMagnitude(m u128, neg bool) (Amount, error) {
	if neg {
		if m.hi > 1<<63 || (m.hi == 1<<63 && m.lo != 0) {
			return Zero, ErrOverflow
		}
		lo, borrow := bits.Sub64(0, m.lo, 0)
		hi, _ := bits.Sub64(0, m.hi, borrow)
		return Amount{hi: hi, lo: lo}, nil
	}
	if m.hi>>63 != 0 {
		return Zero, ErrOverflow
	}
	return Amount{hi: m.hi, lo: m.lo}, nil
}

func (u u128) cmp(v u128) int {
	switch {
	case u.hi < v.hi:
		return -1
	case u.hi > v.hi:
		return 1
	case u.lo < v.lo:
		return -1
	case u.lo > v.lo:
		return 1
	}
	return 0
}

func (u u128) sub(v u128) u128 {
	lo, borrow := bits.Sub64(u.lo, v.lo, 0)
	hi, _ := bits.Sub64(u.hi, v.hi, borrow)
	return u128{hi: hi, lo: lo}
}

func (u u128) bit(i uint) uint64 {
	if i >= 64 {
		return (u.hi >> (i - 64)) & 1
	}
	return (u.lo >> i) & 1
}

// quo divides u by a non-zero v.
func (u u128) quo(v u128) u128 {
	if v.hi == 0 {
		qhi := u.hi / v.lo
		qlo, _ := bits.Div64(u.hi%v.lo, u.lo, v.lo)
		return u128{hi: qhi, lo: qlo}
	}

	var q, r u128
	for i := 127; i >= 0; i-- {
		r = u128{hi: r.hi<<1 | r.lo>>63, lo: r.lo<<1 | u.bit(uint(i))}
		if r.cmp(v) >= 0 {
			r = r.sub(v)
			if i >= 64 {
				q.hi |= 1 << uint(i-64)
			} else {
				q.lo |= 1 << uint(i)
			}
		}
	}
	return q
}
