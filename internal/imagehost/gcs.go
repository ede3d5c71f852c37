package imagehost

import (
	"context"
	"fmt"
	"net/url"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

const gcsPublicBaseURL = "https://storage.googleapis.com"

// GCSUploader はGoogle Cloud Storageのバケットに画像を保存する。
type GCSUploader struct {
	client  *storage.Client
	bucket  string
	maxSize int64
	newID   func() string
}

// NewGCSUploader はGCSUploaderを生成する。
func NewGCSUploader(client *storage.Client, bucket string, maxSize int64) *GCSUploader {
	return &GCSUploader{
		client:  client,
		bucket:  bucket,
		maxSize: maxSize,
		newID:   func() string { return uuid.New().String() },
	}
}

// Upload は画像をuploads/{uuid}{ext}に書き込み、公開URLを返す。
func (u *GCSUploader) Upload(ctx context.Context, data []byte, _ string) (string, error) {
	if err := checkSize(data, u.maxSize); err != nil {
		return "", err
	}
	contentType, ext, ok := extensionFor(data)
	if !ok {
		return "", fmt.Errorf("unsupported image type %q", contentType)
	}

	name := objectName(u.newID(), ext)
	obj := u.client.Bucket(u.bucket).Object(name)

	// 同名オブジェクトを上書きしない
	w := obj.If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType
	w.ChunkSize = 0

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("while writing image to object writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("while closing object writer: %w", err)
	}

	return publicURL(u.bucket, name), nil
}

func objectName(id, ext string) string {
	return "uploads/" + id + ext
}

func publicURL(bucket, name string) string {
	return gcsPublicBaseURL + "/" + url.PathEscape(bucket) + "/" + name
}

// compile-time interface check
var _ Uploader = (*GCSUploader)(nil)
