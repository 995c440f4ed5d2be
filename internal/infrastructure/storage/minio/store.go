// Package minio persists compiled report artifacts in S3-compatible object
// storage, keyed by property address and document hash so identical
// compilations are naturally idempotent.
package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/appraisehub/valuation-platform/internal/config"
	"github.com/appraisehub/valuation-platform/internal/domain/report"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/monitoring/logging"
	"github.com/appraisehub/valuation-platform/pkg/errors"
	"github.com/appraisehub/valuation-platform/pkg/types/common"
)

// ArtifactStore implements the application's ArtifactStore port.
type ArtifactStore struct {
	client        *minio.Client
	bucket        string
	presignExpiry time.Duration
	log           logging.Logger
}

// NewArtifactStore connects to the object store and ensures the bucket
// exists.
func NewArtifactStore(ctx context.Context, cfg config.MinIOConfig, log logging.Logger) (*ArtifactStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to create object-store client")
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to check bucket")
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to create bucket")
		}
	}

	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}

	log.Info("object store connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket))

	return &ArtifactStore{
		client:        client,
		bucket:        cfg.Bucket,
		presignExpiry: expiry,
		log:           log.Named("minio"),
	}, nil
}

// objectKey derives the storage key.  Hash-addressed keys make re-uploads of
// identical reports overwrites, never duplicates.
func objectKey(address common.PropertyAddress, documentHash string) string {
	return fmt.Sprintf("reports/%s/%s.json", url.PathEscape(address.String()), documentHash)
}

// PutReport implements report artifact persistence: the compiled report is
// serialized to JSON and stored under its hash-addressed key.  Returns the
// object key.
func (s *ArtifactStore) PutReport(ctx context.Context, r *report.CompiledReport) (string, error) {
	payload, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode compiled report")
	}

	key := objectKey(r.PropertyAddress, r.DocumentHash)
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeExternalService, "failed to store compiled report")
	}

	s.log.Info("report artifact stored",
		logging.String("key", key),
		logging.Int("bytes", len(payload)))
	return key, nil
}

// PresignedURL returns a time-limited download link for a stored report.
func (s *ArtifactStore) PresignedURL(ctx context.Context, address common.PropertyAddress, documentHash string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket,
		objectKey(address, documentHash), s.presignExpiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeExternalService, "failed to presign report url")
	}
	return u.String(), nil
}
