package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	S3UploadTimeout   = 60 * time.Second
	S3DownloadTimeout = 30 * time.Second
	S3PingTimeout     = 5 * time.Second
)

var (
	awsRegionDotted = regexp.MustCompile(`s3\.([a-z]{2}-[a-z]+-\d+)\.amazonaws\.com`)
	awsRegionDashed = regexp.MustCompile(`s3-([a-z]{2}-[a-z]+-\d+)\.amazonaws\.com`)
)

// S3Target identifies the single object holding the credential document
type S3Target struct {
	Endpoint  string
	Bucket    string
	Key       string
	Region    string
	UseSSL    bool
	AccessKey string
	SecretKey string
}

// S3TargetFromURI resolves the object location and credentials for an S3 URI.
// token is ACCESS_KEY:SECRET_KEY or empty for environment/IAM credentials.
func S3TargetFromURI(uri *StorageURI, token string) (S3Target, error) {
	if !uri.IsS3Scheme() {
		return S3Target{}, fmt.Errorf("expected S3 URI, got scheme: %s", uri.Scheme)
	}
	accessKey, secretKey, err := ParseS3Token(token)
	if err != nil {
		return S3Target{}, fmt.Errorf("failed to parse S3 credentials: %w", err)
	}
	region := uri.S3Region()
	if region == "" {
		region = ExtractRegionFromEndpoint(uri.S3Endpoint())
	}
	return S3Target{
		Endpoint:  uri.S3Endpoint(),
		Bucket:    uri.S3Bucket(),
		Key:       uri.S3Key(),
		Region:    region,
		UseSSL:    uri.S3UseSSL(),
		AccessKey: accessKey,
		SecretKey: secretKey,
	}, nil
}

// S3Client reads and writes one object through the MinIO SDK
type S3Client struct {
	client *minio.Client
	target S3Target
	logger *slog.Logger
}

// NewS3Client creates a client for target. No request is made until first use.
func NewS3Client(target S3Target, logger *slog.Logger) (*S3Client, error) {
	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(target.AccessKey, target.SecretKey, ""),
		Secure: target.UseSSL,
	}
	if target.Region != "" {
		opts.Region = target.Region
	}

	client, err := minio.New(target.Endpoint, opts)
	if err != nil {
		logger.Error("Failed to create S3 client",
			"endpoint", target.Endpoint,
			"bucket", target.Bucket,
			"error", err)
		return nil, CategorizeS3Error(S3OpConnect, target.Endpoint, fmt.Errorf("failed to create S3 client: %w", err))
	}

	logger.Info("S3 client created",
		"endpoint", target.Endpoint,
		"bucket", target.Bucket,
		"key", target.Key,
		"ssl", target.UseSSL,
		"region", target.Region)

	return &S3Client{client: client, target: target, logger: logger}, nil
}

// ValidateBucket checks that the bucket exists and the credentials can see it
func (c *S3Client) ValidateBucket(ctx context.Context) error {
	start := time.Now()

	exists, err := c.client.BucketExists(ctx, c.target.Bucket)
	if err != nil {
		c.logger.Error("S3 bucket validation failed",
			"bucket", c.target.Bucket,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return CategorizeS3Error(S3OpConnect, c.target.Endpoint, err)
	}
	if !exists {
		return NewS3StorageError(S3OpConnect, fmt.Errorf("bucket %q does not exist", c.target.Bucket))
	}

	c.logger.Debug("S3 bucket validated",
		"bucket", c.target.Bucket,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Exists reports whether the credential object has been written yet
func (c *S3Client) Exists(ctx context.Context) (bool, error) {
	_, err := c.client.StatObject(ctx, c.target.Bucket, c.target.Key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		c.logger.Error("S3 existence check failed",
			"bucket", c.target.Bucket,
			"key", c.target.Key,
			"error", err)
		return false, CategorizeS3Error(S3OpConnect, c.target.Endpoint, err)
	}
	return true, nil
}

// Upload replaces the credential object with data
func (c *S3Client) Upload(ctx context.Context, data []byte) error {
	return c.put(ctx, c.target.Key, data)
}

// UploadAside stores data next to the credential object under key + suffix
func (c *S3Client) UploadAside(ctx context.Context, suffix string, data []byte) (string, error) {
	key := c.target.Key + suffix
	return key, c.put(ctx, key, data)
}

func (c *S3Client) put(ctx context.Context, key string, data []byte) error {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, S3UploadTimeout)
	defer cancel()

	_, err := c.client.PutObject(ctx, c.target.Bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		c.logger.Error("S3 upload failed",
			"bucket", c.target.Bucket,
			"key", key,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return CategorizeS3Error(S3OpUpload, c.target.Endpoint, err)
	}

	c.logger.Debug("S3 upload completed",
		"bucket", c.target.Bucket,
		"key", key,
		"size_bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Download fetches the credential object
func (c *S3Client) Download(ctx context.Context) ([]byte, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, S3DownloadTimeout)
	defer cancel()

	obj, err := c.client.GetObject(ctx, c.target.Bucket, c.target.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, CategorizeS3Error(S3OpDownload, c.target.Endpoint, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		c.logger.Error("S3 download failed",
			"bucket", c.target.Bucket,
			"key", c.target.Key,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return nil, CategorizeS3Error(S3OpDownload, c.target.Endpoint, err)
	}

	c.logger.Debug("S3 download completed",
		"bucket", c.target.Bucket,
		"key", c.target.Key,
		"size_bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds())
	return data, nil
}

// ParseS3Token parses the storage token into access key and secret key.
// Token format: ACCESS_KEY:SECRET_KEY
// Falls back to AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY env vars if token is empty.
func ParseS3Token(token string) (accessKey, secretKey string, err error) {
	if token == "" {
		accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
		if accessKey != "" && secretKey != "" {
			return accessKey, secretKey, nil
		}
		// Both empty means IAM role authentication
		if accessKey == "" && secretKey == "" {
			return "", "", nil
		}
		return "", "", fmt.Errorf("S3 credentials incomplete: set both AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY, or use --storage-token ACCESS_KEY:SECRET_KEY")
	}

	// Secret keys may contain colons
	accessKey, secretKey, ok := strings.Cut(token, ":")
	if !ok {
		return "", "", fmt.Errorf("invalid token format: expected ACCESS_KEY:SECRET_KEY")
	}
	if accessKey == "" {
		return "", "", fmt.Errorf("invalid token format: access key cannot be empty")
	}
	if secretKey == "" {
		return "", "", fmt.Errorf("invalid token format: secret key cannot be empty")
	}
	return accessKey, secretKey, nil
}

// ExtractRegionFromEndpoint extracts the AWS region from s3.REGION.amazonaws.com
// or s3-REGION.amazonaws.com endpoints
func ExtractRegionFromEndpoint(endpoint string) string {
	if m := awsRegionDotted.FindStringSubmatch(endpoint); len(m) > 1 {
		return m[1]
	}
	if m := awsRegionDashed.FindStringSubmatch(endpoint); len(m) > 1 {
		return m[1]
	}
	return ""
}
