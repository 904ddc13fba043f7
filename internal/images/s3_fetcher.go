package images

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/wolfman30/wa-campaign-sender/pkg/logging"
)

// S3API is the subset of the S3 client used by S3Fetcher.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher downloads s3://bucket/key images into a local cache directory.
// Each object is fetched at most once per process.
type S3Fetcher struct {
	client   S3API
	cacheDir string
	logger   *logging.Logger

	mu     sync.Mutex
	cached map[string]string
}

func NewS3Fetcher(client S3API, cacheDir string, logger *logging.Logger) *S3Fetcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &S3Fetcher{
		client:   client,
		cacheDir: cacheDir,
		logger:   logger,
		cached:   make(map[string]string),
	}
}

// Fetch implements Fetcher.
func (f *S3Fetcher) Fetch(ctx context.Context, uri string) (string, error) {
	bucket, key, err := parseS3URI(uri)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if local, ok := f.cached[uri]; ok {
		return local, nil
	}

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("images: s3 get %s: %w", uri, err)
	}
	defer out.Body.Close()

	if err := os.MkdirAll(f.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("images: create cache dir: %w", err)
	}
	sum := sha256.Sum256([]byte(uri))
	local := filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8])+"-"+path.Base(key))

	file, err := os.Create(local)
	if err != nil {
		return "", fmt.Errorf("images: create %s: %w", local, err)
	}
	if _, err := io.Copy(file, out.Body); err != nil {
		_ = file.Close()
		_ = os.Remove(local)
		return "", fmt.Errorf("images: download %s: %w", uri, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("images: close %s: %w", local, err)
	}

	f.cached[uri] = local
	f.logger.Info("image fetched from s3", "uri", uri, "path", local)
	return local, nil
}

func parseS3URI(uri string) (string, string, error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("images: not an s3 uri: %q", uri)
	}
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("images: malformed s3 uri: %q", uri)
	}
	return bucket, key, nil
}
