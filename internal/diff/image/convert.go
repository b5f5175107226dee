package image

import "math"

// BT.709 luma coefficients.
const (
	lumaR = 0.2126
	lumaG = 0.7152
	lumaB = 0.0722
)

// D65/2° reference white.
const (
	whiteX = 95.047
	whiteY = 100.000
	whiteZ = 108.883
)

// Luminance returns the BT.709 luma of every pixel with channels scaled to
// [0, 1]. len(pixels) must be a multiple of 3.
func Luminance(pixels PixelBuffer) ScalarField {
	n := pixels.Pixels()
	luma := make(ScalarField, n)

	for i := 0; i < n; i++ {
		r := float64(pixels[3*i+0]) / 255.0
		g := float64(pixels[3*i+1]) / 255.0
		b := float64(pixels[3*i+2]) / 255.0

		luma[i] = r*lumaR + g*lumaG + b*lumaB
	}

	return luma
}

// RGBToLab converts sRGB pixels to interleaved L*a*b* triples through XYZ
// (D65/2°). len(pixels) must be a multiple of 3.
//
// Formulas follow http://www.easyrgb.com/en/math.php
func RGBToLab(pixels PixelBuffer) ScalarField {
	n := pixels.Pixels()
	lab := make(ScalarField, 3*n)

	for i := 0; i < n; i++ {
		r := linearize(float64(pixels[3*i+0]) / 255.0)
		g := linearize(float64(pixels[3*i+1]) / 255.0)
		b := linearize(float64(pixels[3*i+2]) / 255.0)

		x := r*0.4124 + g*0.3576 + b*0.1805
		y := r*0.2126 + g*0.7152 + b*0.0722
		z := r*0.0193 + g*0.1192 + b*0.9505

		fx := labF(x / whiteX)
		fy := labF(y / whiteY)
		fz := labF(z / whiteZ)

		lab[3*i+0] = 116.0*fy - 16.0
		lab[3*i+1] = 500.0 * (fx - fy)
		lab[3*i+2] = 200.0 * (fy - fz)
	}

	return lab
}

// linearize undoes the sRGB transfer curve and scales to [0, 100].
func linearize(c float64) float64 {
	if c > 0.04045 {
		c = math.Pow((c+0.055)/1.055, 2.4)
	} else {
		c /= 12.92
	}
	return c * 100.0
}

func labF(t float64) float64 {
	if t > 0.008856 {
		return math.Pow(t, 1.0/3.0)
	}
	return 7.787*t + 16.0/116.0
}
