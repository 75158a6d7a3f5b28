// Package s3 stores product images in an S3 bucket under images/products/.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-faster/errors"
)

// ErrInvalidImageName is returned when an uploaded file name does not carry a
// recognized image extension.
var ErrInvalidImageName = errors.New("invalid image file name")

const keyPrefix = "images/products/"

var imageExtRe = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp|svg|bmp)$`)

// Config holds the object storage connection settings.
type Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint overrides the AWS endpoint for S3-compatible stores. Empty
	// means real AWS.
	Endpoint string
}

// ImageStore uploads and deletes product images.
type ImageStore struct {
	client *awss3.Client
	bucket string
	now    func() time.Time
}

// New creates an ImageStore from explicit credentials.
func New(ctx context.Context, cfg Config) (*ImageStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &ImageStore{client: client, bucket: cfg.Bucket, now: time.Now}, nil
}

// ValidImageName reports whether the file name has an allowed image extension.
func ValidImageName(name string) bool {
	return imageExtRe.MatchString(name)
}

// NormalizeFileName rewrites an uploaded file name to
// "<base>-<unixmillis><ext>", with spaces in the base replaced by dashes.
// It fails on names without a recognized image extension.
func NormalizeFileName(name string, at time.Time) (string, error) {
	if !ValidImageName(name) {
		return "", ErrInvalidImageName
	}
	ext := strings.ToLower(path.Ext(name))
	base := strings.TrimSuffix(name, path.Ext(name))
	base = strings.ReplaceAll(strings.TrimSpace(base), " ", "-")
	if base == "" {
		return "", ErrInvalidImageName
	}
	return fmt.Sprintf("%s-%d%s", base, at.UnixMilli(), ext), nil
}

// Upload stores the image bytes and returns the public image path
// ("/images/products/<name>").
func (s *ImageStore) Upload(ctx context.Context, fileName string, data []byte, contentType string) (string, error) {
	name, err := NormalizeFileName(fileName, s.now())
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "image/jpg"
	}

	_, err = s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(keyPrefix + name),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", errors.Wrap(err, "put object")
	}
	return "/" + keyPrefix + name, nil
}

// Delete removes a previously stored image by its public path. Paths outside
// the product image prefix are ignored.
func (s *ImageStore) Delete(ctx context.Context, imagePath string) error {
	key := strings.TrimPrefix(imagePath, "/")
	if !strings.HasPrefix(key, keyPrefix) {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errors.Wrap(err, "delete object")
	}
	return nil
}
