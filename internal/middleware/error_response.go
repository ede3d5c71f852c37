package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/codersmeet/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// ErrCodeInternal はAPIError以外のエラーに使うコード。
const ErrCodeInternal = "INTERNAL_ERROR"

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: model.CategorySystem,
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// WriteError はエラーをHTTPステータスに変換して書き込む。
// APIError以外のエラーはログに記録し、500を返す。
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		WriteErrorResponse(w, StatusForAPIError(apiErr), apiErr)
		return
	}
	slog.Error("internal server error", slog.String("error", err.Error()))
	WriteInternalServerError(w)
}

// StatusForAPIError はAPIErrorコードからHTTPステータスコードにマッピングする。
func StatusForAPIError(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidCredentials, model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeUserCancelled, model.ErrCodePopupBlocked:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorizedOrigin, model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeEmailInUse, model.ErrCodeSubmitInProgress:
		return http.StatusConflict
	case model.ErrCodeWeakPassword, model.ErrCodeValidationFailed, model.ErrCodeInvalidURL, model.ErrCodeUnknownKind:
		return http.StatusBadRequest
	case model.ErrCodeNetworkError, model.ErrCodeUploadFailed:
		return http.StatusBadGateway
	case model.ErrCodeProviderDisabled:
		return http.StatusNotImplemented
	case model.ErrCodeDocumentMissing:
		return http.StatusNotFound
	case model.ErrCodeWriteRejected:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
