package storage

import (
	"errors"
	"net"
	"net/url"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
)

func TestCategorizeS3Error_Nil(t *testing.T) {
	assert.Nil(t, CategorizeS3Error(S3OpUpload, "", nil))
}

func TestCategorizeS3Error_MinioCodes(t *testing.T) {
	tests := []struct {
		code     string
		category string
	}{
		{"AccessDenied", S3CategoryAuth},
		{"InvalidAccessKeyId", S3CategoryAuth},
		{"SignatureDoesNotMatch", S3CategoryAuth},
		{"ExpiredToken", S3CategoryAuth},
		{"NoSuchBucket", S3CategoryStorage},
		{"ServiceUnavailable", S3CategoryStorage},
		{"SomethingElse", S3CategoryStorage},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := CategorizeS3Error(S3OpDownload, "minio.local:9000", minio.ErrorResponse{Code: tt.code, Message: "msg"})
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, S3OpDownload, err.Op)
		})
	}
}

func TestCategorizeS3Error_AccessDeniedHint(t *testing.T) {
	err := CategorizeS3Error(S3OpUpload, "s3.us-east-1.amazonaws.com", minio.ErrorResponse{Code: "AccessDenied"})
	assert.Contains(t, err.Error(), "AWS S3")
}

func TestCategorizeS3Error_Network(t *testing.T) {
	urlErr := &url.Error{Op: "Put", URL: "http://localhost:1", Err: errors.New("connection refused")}
	err := CategorizeS3Error(S3OpUpload, "localhost:1", urlErr)
	assert.Equal(t, S3CategoryNetwork, err.Category)

	dnsErr := &net.DNSError{Err: "no such host", Name: "nowhere.invalid"}
	err = CategorizeS3Error(S3OpConnect, "nowhere.invalid", dnsErr)
	assert.Equal(t, S3CategoryNetwork, err.Category)
	assert.Contains(t, err.Error(), "cannot resolve")
}

func TestCategorizeS3Error_StringPatterns(t *testing.T) {
	err := CategorizeS3Error(S3OpConnect, "", errors.New("InvalidAccessKeyId: nope"))
	assert.Equal(t, S3CategoryAuth, err.Category)

	err = CategorizeS3Error(S3OpConnect, "", errors.New("boom"))
	assert.Equal(t, S3CategoryStorage, err.Category)
}

func TestCategorizeS3Error_AlreadyCategorized(t *testing.T) {
	original := NewS3NetworkError(S3OpUpload, errors.New("x"))
	assert.Same(t, original, CategorizeS3Error(S3OpDownload, "", original))
}

func TestS3Error_IsStorageUnavailable(t *testing.T) {
	err := NewS3AuthError(S3OpUpload, errors.New("denied"))
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Contains(t, err.Error(), "S3 authentication error during upload")
}
