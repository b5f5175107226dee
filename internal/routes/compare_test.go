package routes

import (
	"bytes"
	"colorimgdiff/internal/colormap"
	diffimage "colorimgdiff/internal/diff/image"
	"colorimgdiff/internal/storage"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func pngOf(t *testing.T, pixels ...color.NRGBA) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, len(pixels), 1))
	for x, c := range pixels {
		img.SetNRGBA(x, 0, c)
	}
	var buffer bytes.Buffer
	if err := png.Encode(&buffer, img); err != nil {
		t.Fatal(err)
	}
	return buffer.Bytes()
}

func multipartBody(t *testing.T, files map[string][]byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, data := range files {
		part, err := writer.CreateFormFile(name, name+".png")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatal(err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	return &body, writer.FormDataContentType()
}

func TestCompare(t *testing.T) {
	black := color.NRGBA{A: 255}
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	blackWhite := pngOf(t, black, white)
	whiteBlack := pngOf(t, white, black)

	type want struct {
		code     int
		mode     string
		colormap string
		score    float64
	}

	tests := []struct {
		name   string
		files  map[string][]byte
		fields map[string]string
		want   want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			map[string][]byte{"reference": blackWhite, "source": whiteBlack},
			map[string]string{},
			want{http.StatusOK, "Luma", "Hot", 1.0},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			map[string][]byte{"reference": blackWhite, "source": blackWhite},
			map[string]string{"mode": "lab", "colormap": "viridis", "format": "tiff"},
			want{http.StatusOK, "Lab", "Viridis", 0.0},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			map[string][]byte{"reference": blackWhite, "source": pngOf(t, black)},
			map[string]string{},
			want{code: http.StatusUnprocessableEntity},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			map[string][]byte{"reference": blackWhite, "source": []byte("garbage")},
			map[string]string{},
			want{code: http.StatusBadRequest},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			map[string][]byte{"reference": blackWhite},
			map[string]string{},
			want{code: http.StatusBadRequest},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			map[string][]byte{"reference": blackWhite, "source": whiteBlack},
			map[string]string{"mode": "ssim"},
			want{code: http.StatusBadRequest},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			map[string][]byte{"reference": blackWhite, "source": whiteBlack},
			map[string]string{"colormap": "rainbow"},
			want{code: http.StatusBadRequest},
		},
	}
	for _, tt := range tests {
		name := tt.name
		files := tt.files
		fields := tt.fields
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			directory := t.TempDir()
			s, err := storage.NewFileStorage(context.Background(), storage.FileConfig{Directory: directory})
			if err != nil {
				t.Fatal(err)
			}
			handler := Compare(CompareOptions{
				Storage:        s,
				MaxUploadBytes: 1 << 20,
				Now:            func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) },
			})

			body, contentType := multipartBody(t, files, fields)
			request := httptest.NewRequest(http.MethodPost, "/compare", body)
			request.Header.Set("Content-Type", contentType)
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, request)

			if diff := cmp.Diff(want.code, recorder.Code); diff != "" {
				t.Fatalf("(-want +got):\n%s\n%s", diff, recorder.Body.String())
			}
			if want.code != http.StatusOK {
				return
			}

			var response CompareResponse
			if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(want.mode, response.Mode); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(want.colormap, response.Colormap); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(want.score, response.Score, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
			if (response.RMSE != nil) != (want.mode == "Luma") {
				t.Errorf("unexpected rmse %v for mode %s", response.RMSE, want.mode)
			}
			if filepath.Base(response.DiffURL) != "20240102030405"+filepath.Ext(response.DiffURL) {
				t.Errorf("unexpected diff URL %s", response.DiffURL)
			}

			data, err := base64.StdEncoding.DecodeString(response.DiffData)
			if err != nil {
				t.Fatal(err)
			}
			stored, err := s.Get(context.Background(), response.DiffURL)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(data, stored) {
				t.Error("diffData does not match the stored diff")
			}

			pixels, metadata, err := diffimage.Decode(data)
			if err != nil {
				t.Fatal(err)
			}
			if metadata.Width != 2 || metadata.Height != 1 {
				t.Errorf("want 2x1, got %s", metadata)
			}
			cmap, _ := colormap.Parse(want.colormap)
			r, g, b := cmap.RGB(0)
			if diff := cmp.Diff(diffimage.PixelBuffer{r, g, b, r, g, b}, pixels); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompareTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	s, err := storage.NewFileStorage(context.Background(), storage.FileConfig{Directory: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	handler := Compare(CompareOptions{
		Storage:        s,
		MaxUploadBytes: 1 << 20,
		Tracer:         provider.Tracer("test"),
	})

	black := color.NRGBA{A: 255}
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	body, contentType := multipartBody(t, map[string][]byte{
		"reference": pngOf(t, black, white),
		"source":    pngOf(t, white, black),
	}, nil)
	request := httptest.NewRequest(http.MethodPost, "/compare", body)
	request.Header.Set("Content-Type", contentType)
	response := httptest.NewRecorder()

	handler.ServeHTTP(response, request)

	if response.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", response.Code, response.Body.String())
	}
	spans := recorder.Ended()
	if len(spans) != 1 || spans[0].Name() != "Compare" {
		t.Fatalf("want one Compare span, got %v", spans)
	}
}

func TestHealthz(t *testing.T) {
	recorder := httptest.NewRecorder()
	Healthz(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if recorder.Code != http.StatusOK || recorder.Body.String() != "OK" {
		t.Errorf("unexpected response %d %q", recorder.Code, recorder.Body.String())
	}
}
