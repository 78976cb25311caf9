// Package storage archives carrier label documents in object storage so
// they outlive the carrier's short-lived download URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/retailops/fulfillment/internal/domain/shipping"
	infraconfig "github.com/retailops/fulfillment/internal/infrastructure/config"
)

// maxLabelBytes caps the label download size. Carrier labels are small
// PDFs, anything larger indicates a broken URL.
const maxLabelBytes = 10 << 20

// S3LabelStore downloads a carrier label and archives it in an
// S3-compatible bucket. It works with AWS S3, MinIO, and similar stores.
type S3LabelStore struct {
	client     *s3.Client
	httpClient *http.Client
	bucket     string
	prefix     string
	logger     *zap.Logger
}

// NewS3LabelStore creates a label store from storage configuration.
func NewS3LabelStore(cfg *infraconfig.StorageConfig, logger *zap.Logger) (*S3LabelStore, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return NewS3LabelStoreWithClient(client, cfg.Bucket, cfg.Prefix, logger), nil
}

// NewS3LabelStoreWithClient wraps an existing S3 client, mainly for tests.
func NewS3LabelStoreWithClient(client *s3.Client, bucket, prefix string, logger *zap.Logger) *S3LabelStore {
	return &S3LabelStore{
		client:     client,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		bucket:     bucket,
		prefix:     prefix,
		logger:     logger,
	}
}

// Store fetches the label document from the carrier URL and uploads it
// under labels/<shipment-id>.pdf. It returns the archived object URL.
func (s *S3LabelStore) Store(ctx context.Context, shipmentID uuid.UUID, labelURL string) (string, error) {
	if labelURL == "" {
		return "", errors.New("label URL is required")
	}

	data, contentType, err := s.download(ctx, labelURL)
	if err != nil {
		return "", err
	}

	key := s.objectKey(shipmentID, contentType)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(string(data)),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive label: %w", err)
	}

	s.logger.Debug("label archived",
		zap.String("shipment_id", shipmentID.String()),
		zap.String("key", key),
	)
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

func (s *S3LabelStore) download(ctx context.Context, labelURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, labelURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid label URL: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download label: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("label download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxLabelBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read label body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}
	return data, contentType, nil
}

func (s *S3LabelStore) objectKey(shipmentID uuid.UUID, contentType string) string {
	ext := ".pdf"
	if strings.HasPrefix(contentType, "image/png") {
		ext = ".png"
	}
	return s.prefix + shipmentID.String() + ext
}

var _ shipping.LabelStore = (*S3LabelStore)(nil)
