package comparator

import (
	"bytes"
	"colorimgdiff/internal/colormap"
	diffimage "colorimgdiff/internal/diff/image"
	"colorimgdiff/internal/storage"
	"context"
	"errors"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/xerrors"
)

var (
	ErrOutputWrite              = errors.New("failed to write diff image")
	ErrNotYetComputed           = errors.New("score has not been computed yet")
	ErrUnsupportedInterpolation = errors.New("unsupported colormap interpolation")
)

// Interpolation selects how normalized errors are looked up in a colormap.
type Interpolation int

const (
	InterpolationContinuous Interpolation = iota
	// InterpolationStepped is reserved; New rejects it.
	InterpolationStepped
)

type Config struct {
	// Key is passed to Storage.Put for the rendered diff.
	Key           string
	Width         int
	Height        int
	Colormap      colormap.Colormap
	Interpolation Interpolation
	Format        diffimage.Format
}

type Result struct {
	Score   float64
	DiffURL string
	Data    []byte
	Width   int
	Height  int
}

type Option func(*Comparator)

func WithLogger(logger logr.Logger) Option {
	return func(c *Comparator) {
		c.log = logger
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Comparator) {
		c.tracer = tracer
	}
}

// Comparator scores a source image against a reference and stores a
// colormapped rendering of the per-pixel error. It is not safe for
// concurrent use.
type Comparator struct {
	differ  diffimage.Differ
	storage storage.Storage
	config  Config

	log    logr.Logger
	tracer trace.Tracer

	score    float64
	computed bool
}

func New(differ diffimage.Differ, s storage.Storage, config Config, opts ...Option) (*Comparator, error) {
	if differ == nil {
		return nil, xerrors.New("differ must not be nil")
	}
	if s == nil {
		return nil, xerrors.New("storage must not be nil")
	}
	if config.Key == "" {
		return nil, xerrors.New("output key must not be empty")
	}
	if config.Width <= 0 || config.Height <= 0 {
		return nil, xerrors.Errorf("%dx%d: %w", config.Width, config.Height, diffimage.ErrDimensionMismatch)
	}
	if config.Interpolation != InterpolationContinuous {
		return nil, xerrors.Errorf("interpolation %d: %w", config.Interpolation, ErrUnsupportedInterpolation)
	}
	if config.Format == "" {
		config.Format = diffimage.FormatPNG
	}

	c := &Comparator{
		differ:  differ,
		storage: s,
		config:  config,
		log:     logr.Discard(),
		tracer:  otel.Tracer("colorimgdiff/internal/comparator"),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Compare validates both buffers, scores them and writes the diff image.
// Nothing is written when validation fails.
func (c *Comparator) Compare(ctx context.Context, reference diffimage.PixelBuffer, source diffimage.PixelBuffer) (*Result, error) {
	ctx, span := c.tracer.Start(ctx, "Compare", trace.WithAttributes(
		attribute.Int("width", c.config.Width),
		attribute.Int("height", c.config.Height),
		attribute.String("colormap", c.config.Colormap.String()),
	))
	defer span.End()

	result, err := c.compare(ctx, reference, source)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Float64("score", result.Score))

	return result, nil
}

func (c *Comparator) compare(ctx context.Context, reference diffimage.PixelBuffer, source diffimage.PixelBuffer) (*Result, error) {
	if err := c.validate(reference, source); err != nil {
		return nil, err
	}

	diffResult := c.differ.Calculate(reference, source)
	c.log.V(1).Info("Calculated error field", "pixels", len(diffResult.Errors), "score", diffResult.Score)

	normalized := diffimage.NormalizeLinear(diffResult.Errors, 0.0, 1.0)

	diff, err := diffimage.Render(normalized, c.config.Width, c.config.Height, c.config.Colormap)
	if err != nil {
		return nil, xerrors.Errorf("failed to render diff: %w", err)
	}

	var buffer bytes.Buffer
	if err := diffimage.Encode(&buffer, diff, c.config.Format); err != nil {
		return nil, xerrors.Errorf("%v: %w", err, ErrOutputWrite)
	}

	url, err := c.storage.Put(ctx, c.config.Key, buffer.Bytes())
	if err != nil {
		return nil, xerrors.Errorf("%v: %w", err, ErrOutputWrite)
	}
	c.log.V(1).Info("Saved diff image", "url", url, "format", c.config.Format)

	c.score = diffResult.Score
	c.computed = true

	return &Result{
		Score:   diffResult.Score,
		DiffURL: url,
		Data:    buffer.Bytes(),
		Width:   c.config.Width,
		Height:  c.config.Height,
	}, nil
}

func (c *Comparator) validate(reference diffimage.PixelBuffer, source diffimage.PixelBuffer) error {
	if len(reference) == 0 {
		return xerrors.Errorf("reference: %w", diffimage.ErrEmptyImage)
	}
	if len(source) == 0 {
		return xerrors.Errorf("source: %w", diffimage.ErrEmptyImage)
	}
	if len(reference)%3 != 0 || len(source)%3 != 0 {
		return xerrors.Errorf("buffers of %d and %d bytes are not RGB triples: %w", len(reference), len(source), diffimage.ErrDimensionMismatch)
	}
	if len(reference) != len(source) {
		return xerrors.Errorf("reference has %d pixels, source has %d: %w", reference.Pixels(), source.Pixels(), diffimage.ErrDimensionMismatch)
	}
	if want := 3 * c.config.Width * c.config.Height; len(reference) != want {
		return xerrors.Errorf("%d pixels for a %dx%d image: %w", reference.Pixels(), c.config.Width, c.config.Height, diffimage.ErrDimensionMismatch)
	}
	return nil
}

// Score returns the score of the last successful Compare.
func (c *Comparator) Score() (float64, error) {
	if !c.computed {
		return 0, ErrNotYetComputed
	}
	return c.score, nil
}
