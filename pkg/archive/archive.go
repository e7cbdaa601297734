package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cuemby/fsbench/pkg/config"
	"github.com/cuemby/fsbench/pkg/log"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

// ErrNotConfigured is returned when no bucket is set
var ErrNotConfigured = errors.New("archive bucket not configured")

// Putter is the part of the S3 client the archiver needs
type Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver uploads run directories to an S3-compatible bucket
type Archiver struct {
	client Putter
	bucket string
	prefix string
	logger zerolog.Logger
}

// New builds an Archiver from configuration. Static credentials are used
// when both keys are set; otherwise the default AWS credential chain
// applies. A custom endpoint switches to path-style addressing, which is
// what most S3-compatible stores expect.
func New(ctx context.Context, cfg config.ArchiveConfig) (*Archiver, error) {
	if cfg.Bucket == "" {
		return nil, ErrNotConfigured
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client Putter, bucket, prefix string) *Archiver {
	return &Archiver{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: log.WithComponent("archive"),
	}
}

// Key returns the object key of a file inside a run directory:
// <prefix>/<run dir name>/<relative path>
func (a *Archiver) Key(runDir, file string) (string, error) {
	rel, err := filepath.Rel(runDir, file)
	if err != nil {
		return "", err
	}
	return path.Join(a.prefix, filepath.Base(runDir), filepath.ToSlash(rel)), nil
}

// UploadDir uploads every regular file under runDir and returns how many
// objects were written. It stops at the first failed upload.
func (a *Archiver) UploadDir(ctx context.Context, runDir string) (int, error) {
	var (
		count int
		total uint64
	)
	err := filepath.WalkDir(runDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		key, err := a.Key(runDir, p)
		if err != nil {
			return err
		}
		size, err := a.put(ctx, key, p)
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", key, err)
		}
		count++
		total += size
		return nil
	})
	if err != nil {
		return count, err
	}

	a.logger.Info().
		Str("dir", runDir).
		Str("bucket", a.bucket).
		Int("objects", count).
		Str("size", humanize.Bytes(total)).
		Msg("Run directory archived")
	return count, nil
}

func (a *Archiver) put(ctx context.Context, key, file string) (uint64, error) {
	f, err := os.Open(file)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType(key)),
	})
	if err != nil {
		return 0, err
	}
	a.logger.Debug().Str("key", key).Int64("bytes", info.Size()).Msg("Uploaded")
	return uint64(info.Size()), nil
}

func contentType(key string) string {
	switch path.Ext(key) {
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	case ".txt":
		return "text/plain"
	}
	return "application/octet-stream"
}
