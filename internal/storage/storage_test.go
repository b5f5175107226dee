package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFileStorage(t *testing.T) {
	ctx := context.Background()
	directory := t.TempDir()

	s, err := New(ctx, Config{Backend: BackendFile, File: FileConfig{Directory: directory}})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("RelativeKey", func(t *testing.T) {
		url, err := s.Put(ctx, "nested/dir/diff.png", []byte("first"))
		if err != nil {
			t.Fatal(err)
		}
		if want := filepath.Join(directory, "nested", "dir", "diff.png"); url != want {
			t.Errorf("want %s, got %s", want, url)
		}

		data, err := s.Get(ctx, url)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]byte("first"), data); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		if _, err := s.Put(ctx, "same.png", []byte("old")); err != nil {
			t.Fatal(err)
		}
		url, err := s.Put(ctx, "same.png", []byte("new"))
		if err != nil {
			t.Fatal(err)
		}

		data, err := s.Get(ctx, url)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "new" {
			t.Errorf("want new, got %s", data)
		}

		entries, err := os.ReadDir(directory)
		if err != nil {
			t.Fatal(err)
		}
		for _, e := range entries {
			if e.Name()[0] == '.' {
				t.Errorf("temporary file %s left behind", e.Name())
			}
		}
	})

	t.Run("AbsoluteKey", func(t *testing.T) {
		key := filepath.Join(t.TempDir(), "abs.png")

		url, err := s.Put(ctx, key, []byte("abs"))
		if err != nil {
			t.Fatal(err)
		}
		if url != key {
			t.Errorf("want %s, got %s", key, url)
		}
	})

	t.Run("UnwritableDirectory", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(blocker, nil, 0644); err != nil {
			t.Fatal(err)
		}

		if _, err := s.Put(ctx, filepath.Join(blocker, "diff.png"), []byte("x")); err == nil {
			t.Error("Expected an error writing below a regular file")
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		if _, err := s.Get(ctx, filepath.Join(directory, "missing.png")); err == nil {
			t.Error("Expected an error reading a missing file")
		}
	})
}

func TestNewUnknownBackend(t *testing.T) {
	if _, err := New(context.Background(), Config{Backend: "gcs"}); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("Expected ErrUnknownBackend, got %v", err)
	}
	if _, err := New(context.Background(), Config{Backend: "S3"}); !errors.Is(err, ErrMissingBucket) {
		t.Errorf("Expected ErrMissingBucket, got %v", err)
	}
}

func TestParseS3URL(t *testing.T) {
	type out struct {
		bucket string
		key    string
		err    bool
	}

	tests := []struct {
		name string
		in   string
		want out
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"s3://bucket/Compare/diff/a.png",
			out{"bucket", "Compare/diff/a.png", false},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"/Compare/diff/a.png",
			out{"default", "Compare/diff/a.png", false},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"s3://bucket",
			out{"", "", true},
		},
	}
	for _, tt := range tests {
		name := tt.name
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			bucket, key, err := parseS3URL(in, "default")
			got := out{bucket, key, err != nil}
			if diff := cmp.Diff(want, got, cmp.AllowUnexported(out{})); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestContentType(t *testing.T) {
	if got := contentType("diff.png", nil); got != "image/png" {
		t.Errorf("want image/png, got %s", got)
	}
	if got := contentType("diff", []byte("BM\x00\x00")); got != "image/bmp" {
		t.Errorf("want image/bmp, got %s", got)
	}
}
