package colormap

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/exp/constraints"
	"golang.org/x/xerrors"
)

// Colormap maps a normalized scalar in [0, 1] to a color.
type Colormap int

const (
	Parula Colormap = iota
	Heat
	Hot
	Jet
	Gray
	Magma
	Inferno
	Plasma
	Viridis
	Cividis
	Github
)

// Default is used by ParseOrDefault when a name is not recognized.
const Default = Hot

var ErrUnknownColormap = errors.New("unknown colormap")

var names = [...]string{
	Parula:  "Parula",
	Heat:    "Heat",
	Hot:     "Hot",
	Jet:     "Jet",
	Gray:    "Gray",
	Magma:   "Magma",
	Inferno: "Inferno",
	Plasma:  "Plasma",
	Viridis: "Viridis",
	Cividis: "Cividis",
	Github:  "Github",
}

// Names returns every supported colormap name in declaration order.
func Names() []string {
	return append([]string(nil), names[:]...)
}

func (c Colormap) String() string {
	if c < 0 || int(c) >= len(names) {
		return "Colormap(" + strconv.Itoa(int(c)) + ")"
	}
	return names[c]
}

// Parse looks up a colormap by name, ignoring case.
func Parse(name string) (Colormap, error) {
	for i, n := range names {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return Colormap(i), nil
		}
	}
	return Default, xerrors.Errorf("%q (want one of %s): %w", name, strings.Join(names[:], ", "), ErrUnknownColormap)
}

// ParseOrDefault is Parse with a silent fallback to Default.
func ParseOrDefault(name string) Colormap {
	c, err := Parse(name)
	if err != nil {
		return Default
	}
	return c
}

// At returns the color for t. Values outside [0, 1] are clamped and NaN is
// treated as 0.
func (c Colormap) At(t float64) colorful.Color {
	if math.IsNaN(t) {
		t = 0
	}
	t = clamp(t, 0, 1)

	switch c {
	case Heat:
		return heat(t)
	case Hot:
		return hot(t)
	case Jet:
		return jet(t)
	case Gray:
		return colorful.Color{R: t, G: t, B: t}
	}

	stops, ok := tables[c]
	if !ok {
		return hot(t)
	}
	return interpolate(stops, t)
}

// RGB returns the 8-bit channels of At(t).
func (c Colormap) RGB(t float64) (uint8, uint8, uint8) {
	return c.At(t).Clamped().RGB255()
}

func hot(t float64) colorful.Color {
	switch {
	case t < 0.4:
		return colorful.Color{R: t / 0.4}
	case t < 0.8:
		return colorful.Color{R: 1, G: (t - 0.4) / 0.4}
	default:
		return colorful.Color{R: 1, G: 1, B: (t - 0.8) / 0.2}
	}
}

func heat(t float64) colorful.Color {
	switch {
	case t < 0.25:
		return colorful.Color{G: 4 * t, B: 1}
	case t < 0.5:
		return colorful.Color{G: 1, B: 1 + 4*(0.25-t)}
	case t < 0.75:
		return colorful.Color{R: 4 * (t - 0.5), G: 1}
	default:
		return colorful.Color{R: 1, G: 1 + 4*(0.75-t)}
	}
}

func jet(t float64) colorful.Color {
	return colorful.Color{
		R: clamp(min(4*t-1.5, -4*t+4.5), 0, 1),
		G: clamp(min(4*t-0.5, -4*t+3.5), 0, 1),
		B: clamp(min(4*t+0.5, -4*t+2.5), 0, 1),
	}
}

// interpolate blends linearly in RGB between evenly spaced stops.
func interpolate(stops []colorful.Color, t float64) colorful.Color {
	if len(stops) == 1 {
		return stops[0]
	}
	pos := t * float64(len(stops)-1)
	i := int(math.Floor(pos))
	if i >= len(stops)-1 {
		return stops[len(stops)-1]
	}
	return stops[i].BlendRgb(stops[i+1], pos-float64(i))
}

func clamp[T constraints.Float](v T, lo T, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
