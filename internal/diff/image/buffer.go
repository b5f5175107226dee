package image

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/xerrors"
)

// Metadata describes a decoded PixelBuffer.
type Metadata struct {
	Width    int
	Height   int
	Channels int
}

func (m Metadata) String() string {
	return fmt.Sprintf("%dx%d", m.Width, m.Height)
}

// CheckDimensions reports ErrDimensionMismatch unless both images have the
// same width and height.
func CheckDimensions(reference Metadata, source Metadata) error {
	if reference.Width != source.Width || reference.Height != source.Height {
		return xerrors.Errorf("reference is %s, source is %s: %w", reference, source, ErrDimensionMismatch)
	}
	return nil
}

// Decode reads any registered image format into an RGB PixelBuffer.
func Decode(data []byte) (PixelBuffer, Metadata, error) {
	if len(data) == 0 {
		return nil, Metadata{}, xerrors.Errorf("no data: %w", ErrEmptyImage)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, Metadata{}, xerrors.Errorf("%v: %w", err, ErrImageLoad)
	}

	pixels, metadata := FromImage(img)
	if len(pixels) == 0 {
		return nil, Metadata{}, xerrors.Errorf("%s image has no pixels: %w", format, ErrEmptyImage)
	}

	return pixels, metadata, nil
}

// FromImage flattens img into RGB triples. Alpha is dropped without
// premultiplying.
func FromImage(img image.Image) (PixelBuffer, Metadata) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Bounds().Min != (image.Point{}) || nrgba.Stride != 4*width {
		nrgba = image.NewNRGBA(image.Rect(0, 0, width, height))
		draw.Draw(nrgba, nrgba.Bounds(), img, bounds.Min, draw.Src)
	}

	pixels := make(PixelBuffer, 3*width*height)
	for i := 0; i < width*height; i++ {
		pixels[3*i+0] = nrgba.Pix[4*i+0]
		pixels[3*i+1] = nrgba.Pix[4*i+1]
		pixels[3*i+2] = nrgba.Pix[4*i+2]
	}

	return pixels, Metadata{
		Width:    width,
		Height:   height,
		Channels: 3,
	}
}

// ToImage expands a PixelBuffer back into an opaque image.
func ToImage(pixels PixelBuffer, width int, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 || len(pixels) != 3*width*height {
		return nil, xerrors.Errorf("%d bytes for %dx%d image: %w", len(pixels), width, height, ErrDimensionMismatch)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		img.Pix[4*i+0] = pixels[3*i+0]
		img.Pix[4*i+1] = pixels[3*i+1]
		img.Pix[4*i+2] = pixels[3*i+2]
		img.Pix[4*i+3] = 255
	}
	return img, nil
}
