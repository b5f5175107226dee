package storage

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/xerrors"
)

var (
	ErrUnknownBackend = errors.New("unknown storage backend")
	ErrMissingBucket  = errors.New("S3_BUCKET must be set for the s3 storage backend")
)

type Storage interface {
	// Put stores data with the given key and returns the storage URL
	Put(ctx context.Context, key string, data []byte) (string, error)
	// Get retrieves data from the given storage URL
	Get(ctx context.Context, url string) ([]byte, error)
}

type Backend string

const (
	BackendFile Backend = "file"
	BackendS3   Backend = "s3"
)

type Config struct {
	Backend Backend
	File    FileConfig
	S3      S3Config
}

// New builds the backend named by c.Backend. An empty name selects the file
// backend.
func New(ctx context.Context, c Config) (Storage, error) {
	switch Backend(strings.ToLower(string(c.Backend))) {
	case BackendFile, "":
		return NewFileStorage(ctx, c.File)
	case BackendS3:
		if c.S3.Bucket == "" {
			return nil, ErrMissingBucket
		}
		return NewS3Storage(ctx, c.S3)
	default:
		return nil, xerrors.Errorf("%q (want file or s3): %w", c.Backend, ErrUnknownBackend)
	}
}
