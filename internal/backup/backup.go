// Package backup uploads point-in-time copies of the ledger database to S3.
package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rpggio/tt/internal/config"
)

const keyTimeLayout = "20060102T150405Z"

// ErrMissingBucket indicates no destination bucket was configured.
var ErrMissingBucket = errors.New("backup bucket is required")

// Uploader is the subset of the S3 client used to store snapshots.
type Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Snapshotter writes a consistent copy of the database to a file.
type Snapshotter interface {
	Snapshot(ctx context.Context, path string) error
}

// Result describes one uploaded snapshot.
type Result struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Size   int64  `json:"size"`
}

// Service snapshots the database into a temporary file and uploads it.
type Service struct {
	db     Snapshotter
	client Uploader
	bucket string
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a backup service writing to bucket under prefix.
func NewService(db Snapshotter, client Uploader, bucket, prefix string, logger *slog.Logger) (*Service, error) {
	if bucket == "" {
		return nil, ErrMissingBucket
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{db: db, client: client, bucket: bucket, prefix: prefix, logger: logger, now: time.Now}, nil
}

// NewS3Client builds an S3 client from cfg. A custom endpoint switches to
// path-style addressing, which S3-compatible stores such as MinIO expect.
func NewS3Client(ctx context.Context, cfg config.BackupConfig) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Run snapshots the database and uploads it. The object key is
// <prefix><UTC timestamp>-<uuid>.sqlite so repeated runs never collide.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	dir, err := os.MkdirTemp("", "tt-backup-")
	if err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "tt.sqlite")
	if err := s.db.Snapshot(ctx, path); err != nil {
		return nil, fmt.Errorf("snapshot database: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}

	key := s.key()
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String("application/vnd.sqlite3"),
	})
	if err != nil {
		return nil, fmt.Errorf("upload snapshot to s3://%s/%s: %w", s.bucket, key, err)
	}

	s.logger.Info("backup uploaded", "bucket", s.bucket, "key", key, "bytes", info.Size())
	return &Result{Bucket: s.bucket, Key: key, Size: info.Size()}, nil
}

func (s *Service) key() string {
	prefix := s.prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + s.now().UTC().Format(keyTimeLayout) + "-" + uuid.NewString() + ".sqlite"
}
