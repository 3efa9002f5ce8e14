package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/spothole/spothole-api/internal/dto"
	"github.com/spothole/spothole-api/internal/models"
)

// Presigner issues time-limited PUT URLs. *s3.PresignClient satisfies it.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type UploadService struct {
	presigner Presigner
	bucket    string
	expiry    time.Duration
}

func NewUploadService(presigner Presigner, bucket string, expiry time.Duration) *UploadService {
	if expiry <= 0 {
		expiry = 60 * time.Second
	}
	return &UploadService{presigner: presigner, bucket: bucket, expiry: expiry}
}

// NewS3Presigner builds a presign client from static credentials. Empty
// credentials fall back to the SDK's default chain.
func NewS3Presigner(ctx context.Context, region, accessKeyID, secretKey string) (*s3.PresignClient, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKeyID != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewPresignClient(s3.NewFromConfig(cfg)), nil
}

// Presign returns an upload URL for a new object of the given MIME type.
// The object key is a random id with the MIME subtype as extension.
func (s *UploadService) Presign(ctx context.Context, fileType string) (*dto.UploadResponse, error) {
	fileType = strings.TrimSpace(fileType)
	if fileType == "" {
		return nil, models.NewValidationError("fileType", "File type is required.")
	}
	ext, err := extensionFor(fileType)
	if err != nil {
		return nil, err
	}

	key := uuid.NewString() + "." + ext
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(fileType),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return nil, fmt.Errorf("presign put object: %w", err)
	}
	return &dto.UploadResponse{Success: true, URL: req.URL, Key: key}, nil
}

func extensionFor(fileType string) (string, error) {
	parts := strings.SplitN(fileType, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", models.NewValidationError("fileType", "File type must look like image/jpeg.")
	}
	ext := strings.ToLower(parts[1])
	// Drop parameters such as "; charset=binary".
	if i := strings.IndexByte(ext, ';'); i >= 0 {
		ext = strings.TrimSpace(ext[:i])
	}
	if ext == "" || strings.ContainsAny(ext, "/\\ ") {
		return "", models.NewValidationError("fileType", "File type must look like image/jpeg.")
	}
	return ext, nil
}
