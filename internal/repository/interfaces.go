// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/eventman/internal/model"
)

// リポジトリ層のセンチネルエラー。
// サービス層はこれらをmodel.APIErrorに変換して呼び出し元へ返す。
var (
	// ErrEventFull は定員に達しているため条件付きカウンタ加算が失敗したことを表す。
	ErrEventFull = errors.New("イベントの定員に達しています")
	// ErrDuplicateRegistration は(event_id, user_id)の一意制約に抵触したことを表す。
	// 同一ユーザーの並行登録で敗者側が観測する。
	ErrDuplicateRegistration = errors.New("同一イベントへの登録が既に存在します")
	// ErrDuplicateToken はチェックインコードの一意制約に抵触したことを表す。
	// 呼び出し側はコードを再生成してリトライできる。
	ErrDuplicateToken = errors.New("チェックインコードが衝突しました")
	// ErrAlreadyCancelled はキャンセル済み登録への再キャンセルを表す。
	// カウンタは変更されない。
	ErrAlreadyCancelled = errors.New("登録は既にキャンセルされています")
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpdateName はユーザーの表示名を更新する。
	// IdP側で名前が変わった場合にログイン時に同期する。
	UpdateName(ctx context.Context, id, name string) error

	// UpdateRole はユーザーのロールを更新する。
	UpdateRole(ctx context.Context, id string, role model.Role) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// EventRepository はイベントデータの永続化インターフェース。
// registration_countの増減はRegistrationRepositoryのトランザクション内で
// 条件付きUPDATEとして行われるため、ここには現れない。
type EventRepository interface {
	// FindByID は指定IDのイベントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Event, error)

	// Create はイベントを作成する。
	Create(ctx context.Context, event *model.Event) error

	// ListUpcoming は開催日時が指定時刻以降のイベントをstart_date昇順で返す。
	ListUpcoming(ctx context.Context, from time.Time, limit int) ([]*model.Event, error)
}

// RegistrationRepository は参加登録台帳の永続化インターフェース。
// カウンタを伴う書き込みはすべて単一トランザクション内の条件付きUPDATEで行い、
// 定員チェックと台帳書き込みの間に競合が入り込まないことを保証する。
type RegistrationRepository interface {
	// FindByID は指定IDの登録を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Registration, error)

	// FindByEventAndUser はイベントIDとユーザーIDで登録を検索する。
	// ステータスは問わない。見つからない場合はnilを返す。
	FindByEventAndUser(ctx context.Context, eventID, userID string) (*model.Registration, error)

	// FindConfirmedByToken はチェックインコードで確定済み登録を検索する。
	// キャンセル済み登録は検索対象から除外される。見つからない場合はnilを返す。
	FindConfirmedByToken(ctx context.Context, token string) (*model.Registration, error)

	// CreateWithCounter は登録の新規作成とイベントカウンタの加算を
	// 同一トランザクションで行う。
	// 定員超過の場合はErrEventFull、(event,user)重複の場合はErrDuplicateRegistration、
	// コード衝突の場合はErrDuplicateTokenを返し、いずれも一切の書き込みを残さない。
	CreateWithCounter(ctx context.Context, reg *model.Registration) error

	// ReactivateWithCounter はキャンセル済み登録の再有効化とカウンタ加算を
	// 同一トランザクションで行う。新しいチェックインコードを発行し、
	// registered_atを更新する。
	// 定員超過の場合はErrEventFull、既に確定済み（並行再登録に敗北）の場合は
	// ErrDuplicateRegistration、コード衝突の場合はErrDuplicateTokenを返す。
	ReactivateWithCounter(ctx context.Context, registrationID, eventID, token string, registeredAt time.Time) error

	// CancelWithCounter は登録のキャンセルとカウンタ減算を同一トランザクションで行う。
	// 減算は0で打ち止めし、負値には決してしない。
	// 既にキャンセル済みの場合はErrAlreadyCancelledを返し、カウンタは変更しない。
	CancelWithCounter(ctx context.Context, registrationID, eventID string) error

	// CheckIn はchecked_inをfalseからtrueへ遷移させる。
	// 確定済みかつ未チェックインの場合のみ成功しtrueを返す。
	// 条件付きUPDATEのためキャンセル直後の古い読み取りでは成功しない。
	CheckIn(ctx context.Context, registrationID string, at time.Time) (bool, error)

	// ListByUserIDWithEvent はユーザーの全登録をイベント情報付きで
	// registered_at降順で返す。
	ListByUserIDWithEvent(ctx context.Context, userID string) ([]RegistrationWithEvent, error)

	// ListByEventID はイベントの全登録（ステータス不問）を返す。
	ListByEventID(ctx context.Context, eventID string) ([]*model.Registration, error)
}

// RegistrationWithEvent は登録とイベント情報を結合した構造体。
type RegistrationWithEvent struct {
	model.Registration
	Event model.Event
}
