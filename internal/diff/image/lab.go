package image

import "math"

// LabDiff scores two images by the mean CIE76 delta E between their
// L*a*b* pixels.
type LabDiff struct{}

func NewLabDiff() *LabDiff {
	return &LabDiff{}
}

func (l *LabDiff) Calculate(reference PixelBuffer, source PixelBuffer) *DiffResult {
	referenceLab := RGBToLab(reference)
	sourceLab := RGBToLab(source)

	errs := make(ErrorField, len(referenceLab)/3)
	var sum float64
	for i := range errs {
		dl := sourceLab[3*i+0] - referenceLab[3*i+0]
		da := sourceLab[3*i+1] - referenceLab[3*i+1]
		db := sourceLab[3*i+2] - referenceLab[3*i+2]

		// https://sensing.konicaminolta.us/us/blog/identifying-color-differences-using-l-a-b-or-l-c-h-coordinates/
		errs[i] = math.Sqrt(dl*dl + da*da + db*db)
		sum += errs[i]
	}

	return &DiffResult{
		Errors: errs,
		Score:  mean(sum, len(errs)),
	}
}
