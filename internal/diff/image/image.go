package image

import (
	"errors"
	"strings"

	"golang.org/x/xerrors"
)

var (
	ErrImageLoad         = errors.New("failed to load image")
	ErrEmptyImage        = errors.New("image is empty")
	ErrDimensionMismatch = errors.New("reference and source dimensions do not match")
	ErrInvalidMode       = errors.New("invalid comparison mode")
)

// PixelBuffer holds interleaved 8-bit RGB triples, row-major.
type PixelBuffer []uint8

// Pixels returns the number of RGB triples in the buffer.
func (p PixelBuffer) Pixels() int {
	return len(p) / 3
}

// ScalarField is one value per pixel, or three per pixel for Lab.
type ScalarField []float64

// ErrorField is one non-negative divergence value per pixel.
type ErrorField = ScalarField

type DiffResult struct {
	// Errors is the un-normalized per-pixel error.
	Errors ErrorField
	// Score is the mean of Errors: MSE for Luma, mean delta E for Lab.
	Score float64
}

// Differ computes a per-pixel error field and its aggregate score.
// Reference and source must hold the same number of pixels.
type Differ interface {
	Calculate(reference PixelBuffer, source PixelBuffer) *DiffResult
}

type Mode string

const (
	ModeLuma Mode = "Luma"
	ModeLab  Mode = "Lab"
)

func Modes() []Mode {
	return []Mode{ModeLuma, ModeLab}
}

func ParseMode(s string) (Mode, error) {
	for _, m := range Modes() {
		if strings.EqualFold(string(m), strings.TrimSpace(s)) {
			return m, nil
		}
	}
	return "", xerrors.Errorf("%q (want Luma or Lab): %w", s, ErrInvalidMode)
}

func NewDiffer(mode Mode) (Differ, error) {
	switch mode {
	case ModeLuma:
		return NewLumaDiff(), nil
	case ModeLab:
		return NewLabDiff(), nil
	default:
		return nil, xerrors.Errorf("%q: %w", mode, ErrInvalidMode)
	}
}
