package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"tfm-tracker/internal/config"
	"tfm-tracker/internal/constants"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog"
)

// Putter is the slice of the S3 API the archiver needs.
type Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver copies exports into a bucket. A nil *Archiver is valid and does nothing.
type Archiver struct {
	client Putter
	bucket string
	logger zerolog.Logger
}

func New(cfg *config.Config, logger zerolog.Logger) (*Archiver, error) {
	if !cfg.Archive.Enabled() {
		logger.Info().Msg("export archiving disabled")
		return nil, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Archive.Region),
	}
	if cfg.Archive.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.Archive.AccessKeyID, cfg.Archive.SecretAccessKey, "",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load archive config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Archive.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Archive.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Info().Str("bucket", cfg.Archive.Bucket).Str("endpoint", cfg.Archive.Endpoint).Msg("export archiving enabled")
	return NewWithClient(client, cfg.Archive.Bucket, logger), nil
}

func NewWithClient(client Putter, bucket string, logger zerolog.Logger) *Archiver {
	return &Archiver{client: client, bucket: bucket, logger: logger}
}

// Key places an export under a per-exporter prefix.
func Key(exportedBy, filename string) string {
	return path.Join("exports", slug.Make(exportedBy), filename)
}

func (a *Archiver) Enabled() bool { return a != nil }

// Store uploads one export and returns its object key.
func (a *Archiver) Store(ctx context.Context, filename string, body []byte) (string, error) {
	if a == nil {
		return "", nil
	}
	ctx, cancel := context.WithTimeout(ctx, constants.ArchiveTimeout)
	defer cancel()

	key := Key(constants.ExportedBy, filename)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		a.logger.Error().Err(err).Str("bucket", a.bucket).Str("key", key).Msg("failed to archive export")
		return "", fmt.Errorf("failed to upload export: %w", err)
	}

	a.logger.Info().Str("bucket", a.bucket).Str("key", key).Int("bytes", len(body)).Msg("export archived")
	return key, nil
}
