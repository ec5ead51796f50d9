package uploads

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"handover-backend/internal/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const signedURLTTL = time.Hour

// Logical buckets. With S3 they become key prefixes.
const (
	BucketListingImages = "listing-images"
	BucketValuationDocs = "valuation-docs"
)

// Signer issues a direct-upload URL for bucket/path and reports the URL the
// object will be readable at.
type Signer interface {
	SignUpload(ctx context.Context, bucket, path, contentType string) (uploadURL, publicURL string, err error)
}

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".heic": "image/heic",
	".pdf":  "application/pdf",
}

var allowedExt = map[string][]string{
	BucketListingImages: {".jpg", ".jpeg", ".png", ".webp", ".heic"},
	BucketValuationDocs: {".pdf", ".jpg", ".jpeg", ".png"},
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9._-]+`)

// Service encapsulates upload logic.
type Service struct {
	Signer Signer
	Clock  func() time.Time
}

// UploadResult is returned to clients, which PUT the file to UploadURL and
// then submit PublicURL with the listing.
type UploadResult struct {
	UploadURL   string `json:"uploadUrl"`
	PublicURL   string `json:"publicUrl"`
	Path        string `json:"path"`
	ContentType string `json:"contentType"`
}

// SignListingImage signs an upload into the listing image bucket.
func (s *Service) SignListingImage(ctx context.Context, userID uuid.UUID, fileName string) (*UploadResult, error) {
	return s.sign(ctx, BucketListingImages, userID, fileName)
}

// SignValuationDoc signs an upload of an appraisal or receipt.
func (s *Service) SignValuationDoc(ctx context.Context, userID uuid.UUID, fileName string) (*UploadResult, error) {
	return s.sign(ctx, BucketValuationDocs, userID, fileName)
}

func (s *Service) sign(ctx context.Context, bucket string, userID uuid.UUID, fileName string) (*UploadResult, error) {
	if userID == uuid.Nil {
		return nil, apperror.Unauthorized("Unauthorized")
	}
	name, ext, err := cleanFileName(fileName)
	if err != nil {
		return nil, err
	}
	if !extAllowed(bucket, ext) {
		return nil, apperror.Validation(fmt.Sprintf("File type %s is not allowed here", ext))
	}
	now := time.Now()
	if s.Clock != nil {
		now = s.Clock()
	}
	path := fmt.Sprintf("%s/%d-%s", userID, now.UnixMilli(), name)
	contentType := contentTypes[ext]

	uploadURL, publicURL, err := s.Signer.SignUpload(ctx, bucket, path, contentType)
	if err != nil {
		log.Error().Err(err).Str("bucket", bucket).Msg("upload: failed to generate signed URL")
		return nil, apperror.Server("Failed to generate upload URL", err)
	}
	return &UploadResult{UploadURL: uploadURL, PublicURL: publicURL, Path: path, ContentType: contentType}, nil
}

// cleanFileName lowercases the base name and strips directories and unsafe characters.
func cleanFileName(fileName string) (string, string, error) {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "", "", apperror.Validation("file_name is required")
	}
	base = strings.ToLower(base)
	ext := filepath.Ext(base)
	stem := strings.Trim(unsafeChars.ReplaceAllString(strings.TrimSuffix(base, ext), "-"), "-.")
	if stem == "" {
		stem = "file"
	}
	return stem + ext, ext, nil
}

func extAllowed(bucket, ext string) bool {
	for _, e := range allowedExt[bucket] {
		if e == ext {
			return true
		}
	}
	return false
}
