package handler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/codersmeet/internal/content"
	"github.com/hitoshi/codersmeet/internal/model"
	"github.com/hitoshi/codersmeet/internal/session"
)

// defaultMaxImageSize は添付画像の既定の上限（5MB）。
const defaultMaxImageSize = 5 << 20

// ContentHandler はコンテンツ作成フォームのHTTPハンドラー。
type ContentHandler struct {
	forms        *content.Registry
	maxImageSize int64
}

// NewContentHandler はContentHandlerを生成する。maxImageSizeが0以下の場合は5MBとする。
func NewContentHandler(forms *content.Registry, maxImageSize int64) *ContentHandler {
	if maxImageSize <= 0 {
		maxImageSize = defaultMaxImageSize
	}
	return &ContentHandler{
		forms:        forms,
		maxImageSize: maxImageSize,
	}
}

// createRequest はJSONでの作成リクエスト。画像はBase64で受け取る。
type createRequest struct {
	content.Draft
	ImageBase64 string `json:"imageBase64"`
}

// createResponse はコンテンツ作成のAPIレスポンス。
type createResponse struct {
	Path              string `json:"path"`
	ID                string `json:"id"`
	ImageURL          string `json:"imageUrl,omitempty"`
	ImageUploadFailed bool   `json:"imageUploadFailed"`
}

// Create はフォームの入力内容からコンテンツを1件作成する。
// POST /api/create/{type}
// JSONまたはmultipart/form-data（画像はimageフィールド）を受け付ける。
func (h *ContentHandler) Create(w http.ResponseWriter, r *http.Request) {
	kind, ok := model.ParseKind(chi.URLParam(r, "type"))
	if !ok {
		handleServiceError(w, model.NewUnknownKindError(chi.URLParam(r, "type")))
		return
	}

	store, ok := session.FromContext(r.Context())
	if !ok || store.CurrentUser() == nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	author := store.CurrentUser()

	draft, err := h.readDraft(w, r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// ユーザーと種別ごとのフォームで送信する。送信中なら409
	form, err := h.forms.For(author.ID, kind)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	defer h.forms.Release(author.ID, kind)

	result, err := form.SubmitDraft(r.Context(), author, draft)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if result.Redirect != "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	writeJSON(w, http.StatusCreated, createResponse{
		Path:              result.Path,
		ID:                result.ID,
		ImageURL:          result.ImageURL,
		ImageUploadFailed: result.ImageUploadFailed,
	})
}

// readDraft はリクエストボディから入力内容を読み取る。
func (h *ContentHandler) readDraft(w http.ResponseWriter, r *http.Request) (content.Draft, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return h.readMultipartDraft(w, r)
	}

	var req createRequest
	if err := decodeJSON(r, &req); err != nil {
		return content.Draft{}, err
	}
	draft := req.Draft
	if req.ImageBase64 != "" {
		img, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			return content.Draft{}, model.NewInvalidInputError("imageBase64")
		}
		if int64(len(img)) > h.maxImageSize {
			return content.Draft{}, model.NewInvalidInputError(fmt.Sprintf("画像は%dバイト以下にしてください", h.maxImageSize))
		}
		draft.Image = img
	}
	return draft, nil
}

func (h *ContentHandler) readMultipartDraft(w http.ResponseWriter, r *http.Request) (content.Draft, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxImageSize+maxJSONBodySize)
	if err := r.ParseMultipartForm(h.maxImageSize); err != nil {
		return content.Draft{}, model.NewInvalidInputError("multipart")
	}

	draft := content.Draft{
		Title:        r.FormValue("title"),
		Body:         r.FormValue("body"),
		Category:     r.FormValue("category"),
		Tags:         r.FormValue("tags"),
		Excerpt:      r.FormValue("excerpt"),
		Language:     r.FormValue("language"),
		Description:  r.FormValue("description"),
		Technologies: r.FormValue("technologies"),
		GithubLink:   r.FormValue("githubLink"),
		LiveDemo:     r.FormValue("liveDemo"),
		Visibility:   r.FormValue("visibility"),
	}

	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return draft, nil
	}
	if err != nil {
		return content.Draft{}, model.NewInvalidInputError("image")
	}
	defer file.Close()

	img, err := io.ReadAll(io.LimitReader(file, h.maxImageSize+1))
	if err != nil {
		return content.Draft{}, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(img)) > h.maxImageSize {
		return content.Draft{}, model.NewInvalidInputError(fmt.Sprintf("画像は%dバイト以下にしてください", h.maxImageSize))
	}
	draft.Image = img
	return draft, nil
}
