package storage

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
)

// S3 error categories
const (
	S3CategoryAuth    = "authentication"
	S3CategoryNetwork = "network"
	S3CategoryStorage = "storage"
)

// S3 operations
const (
	S3OpUpload   = "upload"
	S3OpDownload = "download"
	S3OpConnect  = "connect"
)

// S3Error is a categorized S3 failure. Every S3Error counts as
// ErrStorageUnavailable so callers never need to know about S3.
type S3Error struct {
	Category string
	Op       string
	Err      error
}

func (e *S3Error) Error() string {
	return fmt.Sprintf("S3 %s error during %s: %v", e.Category, e.Op, e.Err)
}

func (e *S3Error) Unwrap() error {
	return e.Err
}

// Is matches ErrStorageUnavailable
func (e *S3Error) Is(target error) bool {
	return target == ErrStorageUnavailable
}

func NewS3AuthError(op string, err error) *S3Error {
	return &S3Error{Category: S3CategoryAuth, Op: op, Err: err}
}

func NewS3NetworkError(op string, err error) *S3Error {
	return &S3Error{Category: S3CategoryNetwork, Op: op, Err: err}
}

func NewS3StorageError(op string, err error) *S3Error {
	return &S3Error{Category: S3CategoryStorage, Op: op, Err: err}
}

// CategorizeS3Error classifies err from an S3 call against endpoint.
// MinIO error responses are matched by code; otherwise network and
// string patterns are tried before falling back to a storage error.
func CategorizeS3Error(op, endpoint string, err error) *S3Error {
	if err == nil {
		return nil
	}

	var s3Err *S3Error
	if errors.As(err, &s3Err) {
		return s3Err
	}

	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) && minioErr.Code != "" {
		return categorizeMinioError(op, endpoint, minioErr)
	}

	errStr := err.Error()
	for _, code := range []string{"AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken"} {
		if strings.Contains(errStr, code) {
			return NewS3AuthError(op, fmt.Errorf("authentication failed: %v%s", err, s3ProviderAuthHint(endpoint)))
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return NewS3NetworkError(op, fmt.Errorf("network error: cannot resolve S3 endpoint hostname"))
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return NewS3NetworkError(op, fmt.Errorf("network timeout: unable to reach S3 endpoint"))
		}
		return NewS3NetworkError(op, fmt.Errorf("network error: unable to reach S3 endpoint"))
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return NewS3NetworkError(op, fmt.Errorf("network timeout: unable to reach S3 endpoint"))
		}
		return NewS3NetworkError(op, fmt.Errorf("network error: unable to reach S3 endpoint"))
	}

	if strings.Contains(errStr, "NoSuchBucket") {
		return NewS3StorageError(op, fmt.Errorf("bucket not found: verify bucket exists and name is correct"))
	}

	return NewS3StorageError(op, err)
}

func categorizeMinioError(op, endpoint string, minioErr minio.ErrorResponse) *S3Error {
	switch minioErr.Code {
	case "AccessDenied":
		return NewS3AuthError(op, fmt.Errorf("access denied: credentials lack required permissions%s", s3ProviderAuthHint(endpoint)))
	case "InvalidAccessKeyId":
		return NewS3AuthError(op, fmt.Errorf("invalid access key: verify credentials are correct"))
	case "SignatureDoesNotMatch":
		return NewS3AuthError(op, fmt.Errorf("signature mismatch: verify secret key is correct"))
	case "ExpiredToken":
		return NewS3AuthError(op, fmt.Errorf("token expired: refresh credentials"))
	case "NoSuchBucket":
		return NewS3StorageError(op, fmt.Errorf("bucket not found: verify bucket exists and name is correct"))
	case "NoSuchKey":
		return NewS3StorageError(op, fmt.Errorf("object not found"))
	case "InternalError", "ServiceUnavailable", "SlowDown":
		return NewS3StorageError(op, fmt.Errorf("S3 service unavailable: %s", minioErr.Message))
	default:
		return NewS3StorageError(op, fmt.Errorf("%s: %s", minioErr.Code, minioErr.Message))
	}
}

// s3ProviderAuthHint returns a provider-specific hint for authentication failures
func s3ProviderAuthHint(endpoint string) string {
	e := strings.ToLower(endpoint)
	switch {
	case strings.Contains(e, "amazonaws.com"):
		return " (AWS S3: check IAM policy has s3:GetObject, s3:PutObject, s3:HeadObject permissions)"
	case strings.Contains(e, "minio") || strings.HasSuffix(e, ":9000"):
		return " (MinIO: verify access key and secret key are correct)"
	case strings.Contains(e, "digitaloceanspaces.com"):
		return " (DigitalOcean Spaces: verify endpoint region matches bucket region)"
	case strings.Contains(e, "backblazeb2.com"):
		return " (Backblaze B2: check application key has read/write permissions)"
	}
	return ""
}
