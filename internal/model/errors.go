// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, event, registration, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeEventNotFound        = "EVENT_NOT_FOUND"
	ErrCodeRegistrationNotFound = "REGISTRATION_NOT_FOUND"
	ErrCodeAlreadyRegistered    = "ALREADY_REGISTERED"
	ErrCodeCapacityExceeded     = "CAPACITY_EXCEEDED"
	ErrCodeInvalidToken         = "INVALID_TOKEN"
	ErrCodeNotRegistrationOwner = "NOT_REGISTRATION_OWNER"
	ErrCodeNotEventOrganizer    = "NOT_EVENT_ORGANIZER"
	ErrCodeAdminRequired        = "ADMIN_REQUIRED"
	ErrCodeInvalidEvent         = "INVALID_EVENT"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
)

// NewEventNotFoundError はイベント未検出エラーを生成する。
func NewEventNotFoundError(eventID string) *APIError {
	return &APIError{
		Code:     ErrCodeEventNotFound,
		Message:  fmt.Sprintf("指定されたイベントが見つかりません: %s", eventID),
		Category: "event",
		Action:   "イベントIDを確認してください。",
	}
}

// NewRegistrationNotFoundError は登録未検出エラーを生成する。
// キャンセル済み登録への再キャンセルもこのエラーとして報告する
// （カウンタは変更されない）。
func NewRegistrationNotFoundError(registrationID string) *APIError {
	return &APIError{
		Code:     ErrCodeRegistrationNotFound,
		Message:  fmt.Sprintf("指定された登録が見つかりません: %s", registrationID),
		Category: "registration",
		Action:   "登録IDを確認してください。",
	}
}

// NewAlreadyRegisteredError は重複登録エラーを生成する。
func NewAlreadyRegisteredError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyRegistered,
		Message:  "このイベントには既に登録済みです。",
		Category: "registration",
		Action:   "登録一覧から該当イベントを確認してください。",
	}
}

// NewCapacityExceededError は定員超過エラーを生成する。
func NewCapacityExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeCapacityExceeded,
		Message:  "イベントの定員に達しています。",
		Category: "registration",
		Action:   "キャンセルが出た場合に再度お試しください。",
	}
}

// NewInvalidTokenError は無効なチェックインコードのエラーを生成する。
// キャンセル済み登録のコードも有効な登録に解決されないため、このエラーになる。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "無効なチェックインコードです。",
		Category: "registration",
		Action:   "コードを確認し、登録が有効か参加者に確認してください。",
	}
}

// NewNotRegistrationOwnerError は他ユーザーの登録操作を拒否するエラーを生成する。
func NewNotRegistrationOwnerError() *APIError {
	return &APIError{
		Code:     ErrCodeNotRegistrationOwner,
		Message:  "自分の登録のみキャンセルできます。",
		Category: "auth",
		Action:   "自分の登録一覧から操作してください。",
	}
}

// NewNotEventOrganizerError は主催者以外の操作を拒否するエラーを生成する。
// チェックインと参加者一覧の取得で使用する。
func NewNotEventOrganizerError() *APIError {
	return &APIError{
		Code:     ErrCodeNotEventOrganizer,
		Message:  "この操作はイベントの主催者のみ実行できます。",
		Category: "auth",
		Action:   "主催者アカウントでログインしてください。",
	}
}

// NewAdminRequiredError は管理者権限が必要な操作のエラーを生成する。
func NewAdminRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeAdminRequired,
		Message:  "この操作には管理者権限が必要です。",
		Category: "auth",
		Action:   "管理者アカウントでログインしてください。",
	}
}

// NewInvalidEventError はイベント入力値が無効な場合のエラーを生成する。
func NewInvalidEventError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEvent,
		Message:  fmt.Sprintf("イベントの入力値が無効です: %s", reason),
		Category: "validation",
		Action:   "タイトル、開催日時、定員（0以上）を確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
