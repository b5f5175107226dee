package main

import (
	"colorimgdiff/internal/config"
	"colorimgdiff/internal/runnable"
	"colorimgdiff/internal/storage"
	"context"
	"log"

	"github.com/spf13/pflag"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}

	var backend string
	var directory string
	var bucket string
	var endpointURL string
	pflag.StringVar(&backend, "storage-backend", config.EnvOrDefault("STORAGE_BACKEND", string(storage.BackendFile)), "Storage backend (file or s3)")
	pflag.StringVar(&directory, "directory", config.EnvOrDefault("DIRECTORY", "/tmp"), "Output directory for the file backend")
	pflag.StringVar(&bucket, "s3-bucket", config.EnvOrDefault("S3_BUCKET", ""), "Bucket for the s3 backend")
	pflag.StringVar(&endpointURL, "s3-endpoint-url", config.EnvOrDefault("S3_ENDPOINT_URL", ""), "Endpoint for an S3 compatible service")
	pflag.BoolVar(&runnable.Debug, "debug", config.EnvOrDefault("DEBUG", false), "Text logs and pprof endpoints")
	pflag.Parse()

	ctx := context.Background()

	s, err := storage.New(ctx, storage.Config{
		Backend: storage.Backend(backend),
		File:    storage.FileConfig{Directory: directory},
		S3:      storage.S3Config{Bucket: bucket, EndpointURL: endpointURL},
	})
	if err != nil {
		log.Fatalf("Failed to create storage backend: %v", err)
	}

	if err := runnable.NewServer(s).Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
