// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, data, upload, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// エラーカテゴリ
const (
	CategoryAuth       = "auth"
	CategoryData       = "data"
	CategoryUpload     = "upload"
	CategoryValidation = "validation"
	CategorySystem     = "system"
)

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUserCancelled      = "USER_CANCELLED"
	ErrCodePopupBlocked       = "POPUP_BLOCKED"
	ErrCodeUnauthorizedOrigin = "UNAUTHORIZED_ORIGIN"
	ErrCodeEmailInUse         = "EMAIL_IN_USE"
	ErrCodeWeakPassword       = "WEAK_PASSWORD"
	ErrCodeNetworkError       = "NETWORK_ERROR"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeProviderDisabled   = "PROVIDER_DISABLED"

	ErrCodeDocumentMissing = "DOCUMENT_MISSING"
	ErrCodeWriteRejected   = "WRITE_REJECTED"

	ErrCodeUploadFailed = "UPLOAD_FAILED"

	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInvalidURL       = "INVALID_URL"
	ErrCodeUnknownKind      = "UNKNOWN_KIND"
	ErrCodeSubmitInProgress = "SUBMIT_IN_PROGRESS"
)

// NewInvalidCredentialsError はメールアドレスまたはパスワード不一致のエラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: CategoryAuth,
		Action:   "入力内容を確認して再度サインインしてください。",
	}
}

// NewUserCancelledError はプロバイダー認証がユーザーにより中断された場合のエラーを生成する。
func NewUserCancelledError() *APIError {
	return &APIError{
		Code:     ErrCodeUserCancelled,
		Message:  "Sign in cancelled by user",
		Category: CategoryAuth,
		Action:   "もう一度サインインをお試しください。",
	}
}

// NewPopupBlockedError はブラウザがポップアップをブロックした場合のエラーを生成する。
func NewPopupBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodePopupBlocked,
		Message:  "サインイン用のポップアップがブロックされました。",
		Category: CategoryAuth,
		Action:   "ブラウザのポップアップ設定を許可してから再度お試しください。",
	}
}

// NewUnauthorizedOriginError は許可されていないオリジンからの認証要求のエラーを生成する。
func NewUnauthorizedOriginError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorizedOrigin,
		Message:  "このオリジンからのサインインは許可されていません。",
		Category: CategoryAuth,
		Action:   "正しいURLからアクセスしてください。",
	}
}

// NewEmailInUseError はメールアドレスが登録済みの場合のエラーを生成する。
func NewEmailInUseError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailInUse,
		Message:  "このメールアドレスは既に使用されています。",
		Category: CategoryAuth,
		Action:   "別のメールアドレスを使用するか、サインインしてください。",
	}
}

// NewWeakPasswordError はパスワード強度不足のエラーを生成する。
func NewWeakPasswordError(minLength int) *APIError {
	return &APIError{
		Code:     ErrCodeWeakPassword,
		Message:  fmt.Sprintf("パスワードは%d文字以上で入力してください。", minLength),
		Category: CategoryAuth,
		Action:   "より長いパスワードを設定してください。",
	}
}

// NewNetworkError は認証プロバイダーとの通信失敗のエラーを生成する。
func NewNetworkError() *APIError {
	return &APIError{
		Code:     ErrCodeNetworkError,
		Message:  "認証サーバーとの通信に失敗しました。",
		Category: CategoryAuth,
		Action:   "ネットワーク接続を確認し、しばらく待ってから再度お試しください。",
	}
}

// NewUnauthorizedError は未認証リクエストのエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: CategoryAuth,
		Action:   "サインインしてください。",
	}
}

// NewProviderDisabledError は外部プロバイダーが設定されていない場合のエラーを生成する。
func NewProviderDisabledError() *APIError {
	return &APIError{
		Code:     ErrCodeProviderDisabled,
		Message:  "外部プロバイダーでのサインインは現在利用できません。",
		Category: CategoryAuth,
		Action:   "メールアドレスとパスワードでサインインしてください。",
	}
}

// NewDocumentMissingError はドキュメント未検出エラーを生成する。
func NewDocumentMissingError(path, id string) *APIError {
	return &APIError{
		Code:     ErrCodeDocumentMissing,
		Message:  fmt.Sprintf("指定されたドキュメントが見つかりません: %s/%s", path, id),
		Category: CategoryData,
		Action:   "IDを確認してください。",
	}
}

// NewWriteRejectedError は書き込みが拒否された場合のエラーを生成する。
func NewWriteRejectedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeWriteRejected,
		Message:  fmt.Sprintf("書き込みが拒否されました: %s", reason),
		Category: CategoryData,
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUploadFailedError は画像アップロード失敗のエラーを生成する。
func NewUploadFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeUploadFailed,
		Message:  "Image upload failed!",
		Category: CategoryUpload,
		Action:   "画像を選び直して再度お試しください。",
	}
}

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("必須項目が入力されていません: %s", field),
		Category: CategoryValidation,
		Action:   "Please fill all required fields!",
	}
}

// NewInvalidInputError は入力値が不正な場合の検証エラーを生成する。
func NewInvalidInputError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力値が不正です: %s", reason),
		Category: CategoryValidation,
		Action:   "入力内容を確認してください。",
	}
}

// NewForbiddenError は権限のない操作のエラーを生成する。
func NewForbiddenError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  fmt.Sprintf("この操作は許可されていません: %s", reason),
		Category: CategoryValidation,
		Action:   "自分のリソースに対してのみ操作できます。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: CategoryValidation,
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewUnknownKindError は未対応のコンテンツ種別のエラーを生成する。
func NewUnknownKindError(kind string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownKind,
		Message:  fmt.Sprintf("未対応のコンテンツ種別です: %s", kind),
		Category: CategoryValidation,
		Action:   "post、blog、snippet、project のいずれかを指定してください。",
	}
}

// NewSubmitInProgressError は送信処理が進行中の場合のエラーを生成する。
func NewSubmitInProgressError() *APIError {
	return &APIError{
		Code:     ErrCodeSubmitInProgress,
		Message:  "送信処理が進行中です。",
		Category: CategoryValidation,
		Action:   "完了するまでお待ちください。",
	}
}
