package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

const s3Scheme = "s3://"

var ErrInvalidS3Path = errors.New("invalid s3 path")

// Downloader fetches an S3 object into w. s3manager.Downloader satisfies it.
type Downloader interface {
	DownloadWithContext(ctx aws.Context, w io.WriterAt, input *s3.GetObjectInput, opts ...func(*s3manager.Downloader)) (int64, error)
}

// IsRemote reports whether path names an S3 object.
func IsRemote(path string) bool {
	return strings.HasPrefix(path, s3Scheme)
}

// SplitS3Path splits s3://bucket/some/key.csv into bucket and key.
func SplitS3Path(path string) (bucket, key string, err error) {
	if !IsRemote(path) {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidS3Path, path)
	}

	parts := strings.SplitN(strings.TrimPrefix(path, s3Scheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || strings.HasSuffix(parts[1], "/") {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidS3Path, path)
	}

	return parts[0], parts[1], nil
}

// Resolver turns user-supplied paths into local files.
type Resolver struct {
	once       sync.Once
	downloader Downloader
	initErr    error
	tempDir    string
}

// NewResolver builds a Resolver backed by the default AWS session. The
// session is created lazily so local-only runs never need credentials.
func NewResolver() *Resolver {
	return &Resolver{tempDir: os.TempDir()}
}

// NewResolverWithDownloader is used when the caller owns the S3 client.
func NewResolverWithDownloader(d Downloader, tempDir string) *Resolver {
	return &Resolver{downloader: d, tempDir: tempDir}
}

// Resolve returns a local path for path. Local paths come back unchanged
// with a no-op cleanup. S3 objects are downloaded to a temp file that
// cleanup removes.
func (r *Resolver) Resolve(ctx context.Context, path string) (local string, cleanup func(), err error) {
	noop := func() {}

	if !IsRemote(path) {
		return path, noop, nil
	}

	bucket, key, err := SplitS3Path(path)
	if err != nil {
		return "", noop, err
	}

	downloader, err := r.client()
	if err != nil {
		return "", noop, err
	}

	// Keep the extension so the parser can pick a format
	f, err := os.CreateTemp(r.tempDir, "csvrange-*"+filepath.Ext(key))
	if err != nil {
		return "", noop, fmt.Errorf("failed to create file: %w", err)
	}
	cleanup = func() { _ = os.Remove(f.Name()) }

	n, err := downloader.DownloadWithContext(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	closeErr := f.Close()
	if err != nil {
		cleanup()
		return "", noop, fmt.Errorf("failed to download file from S3: %w", err)
	}
	if closeErr != nil {
		cleanup()
		return "", noop, closeErr
	}

	slog.Info("file downloaded", "bucket", bucket, "key", key, "bytes", n)

	return f.Name(), cleanup, nil
}

// client creates the S3 downloader on first use. Loads may overlap when a
// selection is cancelled and restarted, so creation happens once.
func (r *Resolver) client() (Downloader, error) {
	r.once.Do(func() {
		if r.downloader != nil {
			return
		}
		sess, err := session.NewSession()
		if err != nil {
			r.initErr = fmt.Errorf("create aws session: %w", err)
			return
		}
		r.downloader = s3manager.NewDownloader(sess)
	})
	return r.downloader, r.initErr
}
