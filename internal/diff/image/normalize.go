package image

// NormalizeLinear rescales field so that its minimum maps to newMin and its
// maximum to newMax. A constant field maps entirely to newMin.
//
// https://en.wikipedia.org/wiki/Normalization_(image_processing)
func NormalizeLinear(field ScalarField, newMin float64, newMax float64) ScalarField {
	normalized := make(ScalarField, len(field))
	if len(field) == 0 {
		return normalized
	}

	lo, hi := field[0], field[0]
	for _, v := range field[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	denominator := hi - lo
	if denominator <= 0 {
		denominator = 1.0
	}
	ratio := (newMax - newMin) / denominator

	for i, v := range field {
		normalized[i] = (v-lo)*ratio + newMin
	}

	return normalized
}
