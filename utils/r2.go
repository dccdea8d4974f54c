// utils/r2.go
package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const maxIconBytes = 2 << 20

var iconTypes = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

// R2Config holds Cloudflare R2 credentials and the public CDN base.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

// R2Store uploads badge icons to a Cloudflare R2 bucket.
type R2Store struct {
	client     *s3.Client
	bucket     string
	cdnBaseURL string
}

func NewR2Store(ctx context.Context, rc R2Config) (*R2Store, error) {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", rc.AccountID)
	cdnBaseURL := strings.TrimRight(rc.CDNBaseURL, "/")
	if cdnBaseURL == "" {
		cdnBaseURL = endpoint + "/" + rc.Bucket
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			rc.AccessKeyID, rc.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return &R2Store{client: client, bucket: rc.Bucket, cdnBaseURL: cdnBaseURL}, nil
}

// IconKey is the object key for a badge icon of the given content type.
func IconKey(badgeID, contentType string) (string, error) {
	ext, ok := iconTypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", fmt.Errorf("unsupported icon type %q", contentType)
	}
	return path.Join("badges", badgeID+ext), nil
}

// UploadBadgeIcon stores the icon and returns its public CDN URL.
func (r *R2Store) UploadBadgeIcon(ctx context.Context, badgeID string, fileHeader *multipart.FileHeader) (string, error) {
	contentType := fileHeader.Header.Get("Content-Type")
	key, err := IconKey(badgeID, contentType)
	if err != nil {
		return "", err
	}
	if fileHeader.Size > maxIconBytes {
		return "", fmt.Errorf("icon is %d bytes, limit is %d", fileHeader.Size, maxIconBytes)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, file); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(r.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(buf.Bytes()),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=86400"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}

	return fmt.Sprintf("%s/%s", r.cdnBaseURL, key), nil
}
