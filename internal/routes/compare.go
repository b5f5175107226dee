package routes

import (
	"colorimgdiff/internal/colormap"
	"colorimgdiff/internal/comparator"
	diffimage "colorimgdiff/internal/diff/image"
	"colorimgdiff/internal/myhttp"
	"colorimgdiff/internal/storage"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/xerrors"
)

type CompareResponse struct {
	DiffURL  string   `json:"diffUrl"`
	DiffData string   `json:"diffData"`
	Mode     string   `json:"mode"`
	Colormap string   `json:"colormap"`
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	Score    float64  `json:"score"`
	RMSE     *float64 `json:"rmse,omitempty"`
}

type CompareMetrics struct {
	Comparisons metric.Int64Counter
	Scores      metric.Float64Histogram
}

type CompareOptions struct {
	Storage        storage.Storage
	Metrics        CompareMetrics
	MaxUploadBytes int64
	Now            func() time.Time
	Tracer         trace.Tracer
}

// Compare handles a multipart upload of a reference and a source image and
// responds with the score and the rendered diff.
func Compare(o CompareOptions) http.HandlerFunc {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Tracer == nil {
		o.Tracer = otel.Tracer("colorimgdiff/internal/routes")
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := myhttp.Logger(ctx)

		r.Body = http.MaxBytesReader(w, r.Body, o.MaxUploadBytes)
		if err := r.ParseMultipartForm(o.MaxUploadBytes); err != nil {
			logger.Debug("failed to parse multipart form", "error", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		mode, err := diffimage.ParseMode(formValueOr(r, "mode", string(diffimage.ModeLuma)))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		cmap, err := colormap.Parse(formValueOr(r, "colormap", colormap.Default.String()))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		format, err := diffimage.ParseFormat(r.FormValue("format"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		referenceData, err := readFormFile(r, "reference")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sourceData, err := readFormFile(r, "source")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		reference, referenceMetadata, err := diffimage.Decode(referenceData)
		if err != nil {
			http.Error(w, fmt.Sprintf("reference: %s", err), http.StatusBadRequest)
			return
		}
		source, sourceMetadata, err := diffimage.Decode(sourceData)
		if err != nil {
			http.Error(w, fmt.Sprintf("source: %s", err), http.StatusBadRequest)
			return
		}
		if err := diffimage.CheckDimensions(referenceMetadata, sourceMetadata); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}

		differ, err := diffimage.NewDiffer(mode)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		h := sha256.New()
		h.Write(referenceData)
		h.Write(sourceData)
		hash := fmt.Sprintf("%x", h.Sum(nil))[:16]
		key := fmt.Sprintf("Compare/diff/%s/%s%s", hash, o.Now().Format("20060102150405"), format.Extension())

		c, err := comparator.New(differ, o.Storage, comparator.Config{
			Key:      key,
			Width:    referenceMetadata.Width,
			Height:   referenceMetadata.Height,
			Colormap: cmap,
			Format:   format,
		}, comparator.WithLogger(logr.FromSlogHandler(logger.Handler())), comparator.WithTracer(o.Tracer))
		if err != nil {
			logger.Error("failed to create comparator", "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		result, err := c.Compare(ctx, reference, source)
		if err != nil {
			if errors.Is(err, diffimage.ErrDimensionMismatch) {
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
				return
			}
			logger.Error("failed to compare images", "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		attributes := metric.WithAttributes(
			attribute.String("mode", string(mode)),
			attribute.String("colormap", cmap.String()),
		)
		if o.Metrics.Comparisons != nil {
			o.Metrics.Comparisons.Add(ctx, 1, attributes)
		}
		if o.Metrics.Scores != nil {
			o.Metrics.Scores.Record(ctx, result.Score, attributes)
		}

		response := CompareResponse{
			DiffURL:  result.DiffURL,
			DiffData: base64.StdEncoding.EncodeToString(result.Data),
			Mode:     string(mode),
			Colormap: cmap.String(),
			Width:    result.Width,
			Height:   result.Height,
			Score:    result.Score,
		}
		if mode == diffimage.ModeLuma {
			rmse := math.Sqrt(result.Score)
			response.RMSE = &rmse
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			logger.Error("failed to encode response", "error", err)
		}
	}
}

func formValueOr(r *http.Request, key string, defaultValue string) string {
	if v := r.FormValue(key); v != "" {
		return v
	}
	return defaultValue
}

func readFormFile(r *http.Request, key string) ([]byte, error) {
	file, _, err := r.FormFile(key)
	if err != nil {
		return nil, xerrors.Errorf("missing %s file: %w", key, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, xerrors.Errorf("failed to read %s file: %w", key, err)
	}
	return data, nil
}
