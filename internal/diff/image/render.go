package image

import (
	"colorimgdiff/internal/colormap"
	"errors"
	"image"
	"image/png"
	"io"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/xerrors"
)

var ErrUnknownFormat = errors.New("unknown output format")

// Format is a lossless raster format for diff images.
type Format string

const (
	FormatPNG  Format = "png"
	FormatTIFF Format = "tiff"
	FormatBMP  Format = "bmp"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "png":
		return FormatPNG, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	case "bmp":
		return FormatBMP, nil
	default:
		return "", xerrors.Errorf("%q (want png, tiff or bmp): %w", s, ErrUnknownFormat)
	}
}

func (f Format) Extension() string {
	return "." + string(f)
}

// Render maps a normalized error field through cmap. field must hold exactly
// width*height values in [0, 1].
func Render(field ErrorField, width int, height int, cmap colormap.Colormap) (*image.RGBA, error) {
	if width <= 0 || height <= 0 || len(field) != width*height {
		return nil, xerrors.Errorf("field of %d values for %dx%d image: %w", len(field), width, height, ErrDimensionMismatch)
	}

	diff := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, v := range field {
		r, g, b := cmap.RGB(v)
		diff.Pix[4*i+0] = r
		diff.Pix[4*i+1] = g
		diff.Pix[4*i+2] = b
		diff.Pix[4*i+3] = 255
	}

	return diff, nil
}

func Encode(w io.Writer, img image.Image, format Format) error {
	var err error
	switch format {
	case FormatPNG, "":
		err = png.Encode(w, img)
	case FormatTIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	case FormatBMP:
		err = bmp.Encode(w, img)
	default:
		return xerrors.Errorf("%q: %w", format, ErrUnknownFormat)
	}
	if err != nil {
		return xerrors.Errorf("failed to encode %s image: %w", format, err)
	}
	return nil
}
