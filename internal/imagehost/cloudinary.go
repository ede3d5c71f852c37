package imagehost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const defaultCloudinaryBaseURL = "https://api.cloudinary.com"

// CloudinaryConfig はCloudinaryへの署名なしアップロードの設定。
type CloudinaryConfig struct {
	CloudName    string
	UploadPreset string
	MaxSize      int64 // バイト数。0は無制限

	// テスト用にオーバーライド可能なURL
	BaseURL string
}

// CloudinaryUploader はCloudinaryのupload APIに画像を送信する。
type CloudinaryUploader struct {
	config CloudinaryConfig
	client *http.Client
}

// NewCloudinaryUploader はCloudinaryUploaderを生成する。
func NewCloudinaryUploader(config CloudinaryConfig, client *http.Client) *CloudinaryUploader {
	if config.BaseURL == "" {
		config.BaseURL = defaultCloudinaryBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &CloudinaryUploader{config: config, client: client}
}

type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Upload は画像をmultipart/form-dataで送信し、secure_urlを返す。
func (u *CloudinaryUploader) Upload(ctx context.Context, data []byte, name string) (string, error) {
	if err := checkSize(data, u.config.MaxSize); err != nil {
		return "", err
	}
	if name == "" {
		name = "upload"
	}

	// 1. multipartボディの組み立て
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write image data: %w", err)
	}
	if err := mw.WriteField("upload_preset", u.config.UploadPreset); err != nil {
		return "", fmt.Errorf("failed to write upload preset: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	// 2. 送信
	endpoint := fmt.Sprintf("%s/v1_1/%s/image/upload", u.config.BaseURL, u.config.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read upload response: %w", err)
	}

	// 3. レスポンスの解釈
	var parsed cloudinaryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse upload response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return "", fmt.Errorf("upload rejected with status %d: %s", resp.StatusCode, msg)
	}
	if parsed.SecureURL == "" {
		return "", fmt.Errorf("upload response has no secure_url")
	}

	return parsed.SecureURL, nil
}

// compile-time interface check
var _ Uploader = (*CloudinaryUploader)(nil)
