package image

// LumaDiff scores two images by the mean squared error of their luminance,
// each normalized to [0, 1] first.
type LumaDiff struct{}

func NewLumaDiff() *LumaDiff {
	return &LumaDiff{}
}

func (l *LumaDiff) Calculate(reference PixelBuffer, source PixelBuffer) *DiffResult {
	referenceLuma := NormalizeLinear(Luminance(reference), 0.0, 1.0)
	sourceLuma := NormalizeLinear(Luminance(source), 0.0, 1.0)

	errs := make(ErrorField, len(referenceLuma))
	var sum float64
	for i := range errs {
		d := referenceLuma[i] - sourceLuma[i]
		errs[i] = d * d
		sum += errs[i]
	}

	return &DiffResult{
		Errors: errs,
		Score:  mean(sum, len(errs)),
	}
}

func mean(sum float64, n int) float64 {
	if n == 0 {
		return 0.0
	}
	return sum / float64(n)
}
