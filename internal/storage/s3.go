package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"accountd/internal/domain"
)

// S3Service writes account snapshots to Amazon S3 (or compatible APIs).
type S3Service struct {
	client *s3.Client
}

func NewS3Service(client *s3.Client) *S3Service {
	return &S3Service{client: client}
}

func (s *S3Service) UploadSnapshot(ctx context.Context, users []domain.User, bucket, keyPrefix string) (ExportResult, error) {
	if bucket == "" {
		return ExportResult{}, fmt.Errorf("storage bucket is required")
	}

	reps := make([]domain.Representation, len(users))
	for i := range users {
		reps[i] = domain.ToRepresentation(users[i])
	}

	body, err := json.Marshal(reps)
	if err != nil {
		return ExportResult{}, fmt.Errorf("encode snapshot: %w", err)
	}

	keyPrefix = strings.Trim(keyPrefix, "/")
	if keyPrefix == "" {
		keyPrefix = "accounts"
	}
	key := fmt.Sprintf("%s/%s-%s.json", keyPrefix, time.Now().UTC().Format("20060102T150405Z"), uuid.NewString())

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return ExportResult{}, fmt.Errorf("put snapshot object: %w", err)
	}

	return ExportResult{
		Location: fmt.Sprintf("s3://%s/%s", bucket, key),
		Count:    len(users),
	}, nil
}
