package main

import (
	"colorimgdiff/internal/callback"
	"colorimgdiff/internal/colormap"
	"colorimgdiff/internal/comparator"
	"colorimgdiff/internal/config"
	diffimage "colorimgdiff/internal/diff/image"
	"colorimgdiff/internal/retry"
	"colorimgdiff/internal/storage"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var errUsage = errors.New("usage error")

type DiffOutput struct {
	DiffPath string   `json:"diffPath"`
	Mode     string   `json:"mode"`
	Colormap string   `json:"colormap"`
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	Score    float64  `json:"score"`
	RMSE     *float64 `json:"rmse,omitempty"`
}

type options struct {
	reference      string
	source         string
	out            string
	colormap       colormap.Colormap
	mode           diffimage.Mode
	format         diffimage.Format
	verbose        bool
	storageBackend string
	directory      string
	bucket         string
	endpointURL    string
	callbackURL    string
	retryOn        *retry.Condition
}

func parseOptions(args []string, stderr io.Writer) (*options, error) {
	flags := pflag.NewFlagSet("colorimgdiff", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintf(stderr, "Creates a diff image of ref(erence) and src (source) images and reports their difference.\n\n")
		fmt.Fprintf(stderr, "Usage: colorimgdiff [flags] [ref src]\n\n")
		flags.PrintDefaults()
	}

	var o options
	var colormapName, modeName, formatName, retryOn string
	flags.StringVarP(&o.reference, "ref", "r", config.EnvOrDefault("REF", ""), "Path to reference image with extension")
	flags.StringVarP(&o.source, "src", "s", config.EnvOrDefault("SRC", ""), "Path to source image with extension")
	flags.StringVarP(&o.out, "out", "o", config.EnvOrDefault("OUT", "output_diff"), "Path to output image without extension")
	flags.StringVarP(&colormapName, "colormap", "c", config.EnvOrDefault("COLORMAP", colormap.Default.String()), "Colormap ("+strings.Join(colormap.Names(), ", ")+")")
	flags.StringVarP(&modeName, "mode", "m", config.EnvOrDefault("MODE", string(diffimage.ModeLuma)), "Comparison mode (Luma or Lab)")
	flags.StringVarP(&formatName, "format", "f", config.EnvOrDefault("FORMAT", string(diffimage.FormatPNG)), "Output format (png, tiff or bmp)")
	flags.BoolVarP(&o.verbose, "verbose", "v", config.EnvOrDefault("VERBOSE", false), "Verbose output")
	flags.StringVar(&o.storageBackend, "storage-backend", config.EnvOrDefault("STORAGE_BACKEND", string(storage.BackendFile)), "Storage backend (file or s3)")
	flags.StringVar(&o.directory, "directory", config.EnvOrDefault("DIRECTORY", "."), "Output directory for the file backend")
	flags.StringVar(&o.bucket, "s3-bucket", config.EnvOrDefault("S3_BUCKET", ""), "Bucket for the s3 backend")
	flags.StringVar(&o.endpointURL, "s3-endpoint-url", config.EnvOrDefault("S3_ENDPOINT_URL", ""), "Endpoint for an S3 compatible service")
	flags.StringVar(&o.callbackURL, "callback-url", config.EnvOrDefault("CALLBACK_URL", ""), "URL the JSON result is PATCHed to")
	flags.StringVar(&retryOn, "callback-retry-on", config.EnvOrDefault("CALLBACK_RETRY_ON", ""), "Comma separated callback retry conditions (5xx, gateway-error, connect-failure, retriable-4xx or status codes)")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, xerrors.Errorf("%v: %w", err, errUsage)
	}

	positional := flags.Args()
	if o.reference == "" && len(positional) > 0 {
		o.reference, positional = positional[0], positional[1:]
	}
	if o.source == "" && len(positional) > 0 {
		o.source, positional = positional[0], positional[1:]
	}
	if len(positional) > 0 {
		return nil, xerrors.Errorf("unexpected arguments %v: %w", positional, errUsage)
	}
	if o.reference == "" || o.source == "" {
		flags.Usage()
		return nil, xerrors.Errorf("reference and source images must both be specified: %w", errUsage)
	}

	var err error
	if o.colormap, err = colormap.Parse(colormapName); err != nil {
		return nil, xerrors.Errorf("%v: %w", err, errUsage)
	}
	if o.mode, err = diffimage.ParseMode(modeName); err != nil {
		return nil, xerrors.Errorf("%v: %w", err, errUsage)
	}
	if o.format, err = diffimage.ParseFormat(formatName); err != nil {
		return nil, xerrors.Errorf("%v: %w", err, errUsage)
	}
	if retryOn != "" {
		if o.retryOn, err = retry.ParseCondition(retryOn); err != nil {
			return nil, xerrors.Errorf("%v: %w", err, errUsage)
		}
	}

	return &o, nil
}

func load(ctx context.Context, s storage.Storage, path string) (diffimage.PixelBuffer, diffimage.Metadata, error) {
	data, err := s.Get(ctx, path)
	if err != nil {
		return nil, diffimage.Metadata{}, xerrors.Errorf("couldn't load %s: %v: %w", path, err, diffimage.ErrImageLoad)
	}
	pixels, metadata, err := diffimage.Decode(data)
	if err != nil {
		return nil, diffimage.Metadata{}, xerrors.Errorf("couldn't load %s: %w", path, err)
	}
	return pixels, metadata, nil
}

func run(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) int {
	o, err := parseOptions(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return exitUsage
	}

	logger, err := config.NewLogger(stderr, o.verbose)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return exitUsage
	}
	if err := compare(ctx, o, stdout, logger); err != nil {
		logger.Error("comparison failed", "error", err)
		if errors.Is(err, storage.ErrUnknownBackend) || errors.Is(err, storage.ErrMissingBucket) {
			return exitUsage
		}
		return exitError
	}
	return exitOK
}

func compare(ctx context.Context, o *options, stdout io.Writer, logger *slog.Logger) error {
	s, err := storage.New(ctx, storage.Config{
		Backend: storage.Backend(o.storageBackend),
		File:    storage.FileConfig{Directory: o.directory},
		S3:      storage.S3Config{Bucket: o.bucket, EndpointURL: o.endpointURL},
	})
	if err != nil {
		return xerrors.Errorf("failed to create storage backend: %w", err)
	}

	var reference, source diffimage.PixelBuffer
	var referenceMetadata, sourceMetadata diffimage.Metadata
	{
		eg, ctx := errgroup.WithContext(ctx)

		eg.Go(func() error {
			pixels, metadata, err := load(ctx, s, o.reference)
			if err != nil {
				return err
			}
			reference, referenceMetadata = pixels, metadata
			return nil
		})

		eg.Go(func() error {
			pixels, metadata, err := load(ctx, s, o.source)
			if err != nil {
				return err
			}
			source, sourceMetadata = pixels, metadata
			return nil
		})

		if err := eg.Wait(); err != nil {
			return err
		}
	}

	if err := diffimage.CheckDimensions(referenceMetadata, sourceMetadata); err != nil {
		return xerrors.Errorf("ref and src images' dimensions don't match: %w", err)
	}

	differ, err := diffimage.NewDiffer(o.mode)
	if err != nil {
		return err
	}

	c, err := comparator.New(differ, s, comparator.Config{
		Key:      o.out + o.format.Extension(),
		Width:    referenceMetadata.Width,
		Height:   referenceMetadata.Height,
		Colormap: o.colormap,
		Format:   o.format,
	}, comparator.WithLogger(logr.FromSlogHandler(logger.Handler())))
	if err != nil {
		return err
	}

	switch o.mode {
	case diffimage.ModeLuma:
		logger.Debug("Comparing luminance...")
	case diffimage.ModeLab:
		logger.Debug("Comparing color in L*a*b* space...")
	}

	result, err := c.Compare(ctx, reference, source)
	if err != nil {
		return err
	}

	output := DiffOutput{
		DiffPath: result.DiffURL,
		Mode:     string(o.mode),
		Colormap: o.colormap.String(),
		Width:    result.Width,
		Height:   result.Height,
		Score:    result.Score,
	}
	logger.Debug("Saved image " + result.DiffURL)
	if o.mode == diffimage.ModeLuma {
		rmse := math.Sqrt(result.Score)
		output.RMSE = &rmse
		logger.Debug("Luma difference", "MSE", result.Score, "RMSE", rmse)
	} else {
		logger.Debug("Lab difference", "delta E*ab", result.Score)
	}

	if err := json.NewEncoder(stdout).Encode(output); err != nil {
		return xerrors.Errorf("failed to encode result: %w", err)
	}

	if o.callbackURL != "" {
		if err := callback.NewNotifier(logr.FromSlogHandler(logger.Handler()), o.retryOn).Notify(ctx, o.callbackURL, output); err != nil {
			return xerrors.Errorf("failed to deliver result: %w", err)
		}
	}

	return nil
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(exitUsage)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
