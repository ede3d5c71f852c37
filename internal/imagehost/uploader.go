// Package imagehost はユーザーがアップロードした画像を外部ホスティングへ保存する。
package imagehost

import (
	"context"
	"errors"
	"net/http"
)

// ErrEmptyImage は空の画像データが渡された場合に返される。
var ErrEmptyImage = errors.New("image data is empty")

// ErrTooLarge は画像サイズが上限を超えた場合に返される。
var ErrTooLarge = errors.New("image exceeds maximum upload size")

// Uploader は画像をアップロードし、公開URLを返す。
type Uploader interface {
	Upload(ctx context.Context, data []byte, name string) (string, error)
}

// extensionFor は画像データのMIMEタイプから拡張子を決める。
// 画像でない場合は空文字列とfalseを返す。
func extensionFor(data []byte) (string, string, bool) {
	contentType := http.DetectContentType(data)
	switch contentType {
	case "image/png":
		return contentType, ".png", true
	case "image/jpeg":
		return contentType, ".jpg", true
	case "image/gif":
		return contentType, ".gif", true
	case "image/webp":
		return contentType, ".webp", true
	default:
		return contentType, "", false
	}
}

func checkSize(data []byte, maxSize int64) error {
	if len(data) == 0 {
		return ErrEmptyImage
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return ErrTooLarge
	}
	return nil
}
