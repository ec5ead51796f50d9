package uploads

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config configures the S3 (or S3-compatible) signer. Logical buckets map
// to key prefixes inside one physical bucket.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	// PublicBaseURL is where objects are served from, e.g. a CDN in front of the bucket.
	PublicBaseURL string
}

// S3Signer presigns PUT requests with the AWS SDK.
type S3Signer struct {
	bucket    string
	publicURL string
	presign   *s3.PresignClient
}

// NewS3Signer builds a presign client from static credentials.
func NewS3Signer(ctx context.Context, cfg S3Config) (*S3Signer, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("s3: S3_BUCKET and S3_REGION are required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return &S3Signer{bucket: cfg.Bucket, publicURL: publicURL, presign: s3.NewPresignClient(client)}, nil
}

func (s *S3Signer) SignUpload(ctx context.Context, bucket, path, contentType string) (string, string, error) {
	key := bucket + "/" + path
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(signedURLTTL))
	if err != nil {
		return "", "", fmt.Errorf("failed to presign PUT for key %s: %w", key, err)
	}
	return req.URL, s.publicURL + "/" + key, nil
}
