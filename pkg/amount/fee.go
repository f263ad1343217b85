package amount

// BasisPointsScale is the number of basis points in 100%.
const BasisPointsScale = 10_000

// FeeFor returns floor(a * bps / 10000) for non-negative a. Overflow of the
// intermediate product is reported rather than wrapped.
func FeeFor(a Amount, bps uint32) (Amount, error) {
	product, err := a.Mul(New(int64(bps)))
	if err != nil {
		return Zero, err
	}
	return product.Quo(New(BasisPointsScale))
}
