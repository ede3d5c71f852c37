package imagehost

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// 最小のPNGシグネチャ
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestCloudinaryUploader_Upload_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/v1_1/demo-cloud/image/upload" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		if got := r.FormValue("upload_preset"); got != "unsigned-preset" {
			t.Errorf("upload_preset = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != string(pngBytes) {
			t.Error("uploaded bytes differ")
		}
		if header.Filename != "cover.png" {
			t.Errorf("filename = %q", header.Filename)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"secure_url":"https://res.cloudinary.com/demo-cloud/image/upload/v1/cover.png"}`))
	}))
	defer srv.Close()

	u := NewCloudinaryUploader(CloudinaryConfig{
		CloudName:    "demo-cloud",
		UploadPreset: "unsigned-preset",
		BaseURL:      srv.URL,
	}, srv.Client())

	url, err := u.Upload(context.Background(), pngBytes, "cover.png")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "https://res.cloudinary.com/demo-cloud/image/upload/v1/cover.png" {
		t.Errorf("url = %q", url)
	}
}

func TestCloudinaryUploader_Upload_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"拒否レスポンス", http.StatusBadRequest, `{"error":{"message":"Upload preset not found"}}`},
		{"secure_urlなし", http.StatusOK, `{}`},
		{"JSONでないレスポンス", http.StatusBadGateway, `<html>bad gateway</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			u := NewCloudinaryUploader(CloudinaryConfig{CloudName: "c", BaseURL: srv.URL}, srv.Client())
			if _, err := u.Upload(context.Background(), pngBytes, "a.png"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCloudinaryUploader_Upload_SizeChecks(t *testing.T) {
	u := NewCloudinaryUploader(CloudinaryConfig{CloudName: "c", MaxSize: 4}, nil)

	if _, err := u.Upload(context.Background(), nil, "a.png"); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("err = %v, want ErrEmptyImage", err)
	}
	if _, err := u.Upload(context.Background(), pngBytes, "a.png"); !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
}

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantExt string
		wantOK  bool
	}{
		{"png", pngBytes, ".png", true},
		{"jpeg", []byte("\xff\xd8\xff\xe0\x00\x10JFIF"), ".jpg", true},
		{"gif", []byte("GIF89a......"), ".gif", true},
		{"テキスト", []byte("hello world"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ext, ok := extensionFor(tt.data)
			if ext != tt.wantExt || ok != tt.wantOK {
				t.Errorf("extensionFor = (%q, %v), want (%q, %v)", ext, ok, tt.wantExt, tt.wantOK)
			}
		})
	}
}

func TestGCSObjectNaming(t *testing.T) {
	name := objectName("1234-abcd", ".png")
	if name != "uploads/1234-abcd.png" {
		t.Errorf("objectName = %q", name)
	}
	if got := publicURL("cm-images", name); got != "https://storage.googleapis.com/cm-images/uploads/1234-abcd.png" {
		t.Errorf("publicURL = %q", got)
	}
}
