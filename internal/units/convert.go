package units

// Convert converts value from one unit into another unit of the same quantity.
// No rounding is applied.
func Convert(value float64, from, to Unit) (float64, error) {
	if err := compatible(from, to); err != nil {
		return 0, err
	}
	if from == to {
		return value, nil
	}
	return unitTable[to].fromBase(unitTable[from].toBase(value)), nil
}

// ConvertSum converts the sum of count values measured in from into the sum of
// the same values measured in to. Linear units convert the sum directly; affine
// units convert the mean and scale it back by count, which equals converting
// each value before summation.
func ConvertSum(sum float64, count int64, from, to Unit) (float64, error) {
	if err := compatible(from, to); err != nil {
		return 0, err
	}
	if from == to || count == 0 {
		return sum, nil
	}
	if from.Linear() && to.Linear() {
		return Convert(sum, from, to)
	}

	n := float64(count)
	mean, err := Convert(sum/n, from, to)
	if err != nil {
		return 0, err
	}
	return mean * n, nil
}

// MustConvert is Convert for callers that already validated both units
func MustConvert(value float64, from, to Unit) float64 {
	v, err := Convert(value, from, to)
	if err != nil {
		panic(err)
	}
	return v
}

func compatible(from, to Unit) error {
	if !from.Valid() {
		return &UnknownUnitError{Symbol: from.String()}
	}
	if !to.Valid() {
		return &UnknownUnitError{Symbol: to.String()}
	}
	if from.Quantity() != to.Quantity() {
		return &IncompatibleUnitsError{From: from, To: to}
	}
	return nil
}
