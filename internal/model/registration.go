package model

import "time"

// RegistrationStatus は登録の状態を表す。
type RegistrationStatus string

const (
	// RegistrationStatusConfirmed は確定済みの登録状態。
	RegistrationStatusConfirmed RegistrationStatus = "confirmed"
	// RegistrationStatusCancelled はキャンセル済みの登録状態。
	// 行は削除せず、再登録時に同じ行を再有効化する。
	RegistrationStatusCancelled RegistrationStatus = "cancelled"
)

// Registration はイベントへの参加登録を表す。
// (event_id, user_id) の組につき1行のみ存在し、物理削除は行わない。
// tokenは会場チェックイン用の照合コードで、ストア全体で一意。
// 再登録時には新しいtokenを発行し、古いtokenは無効になる。
type Registration struct {
	ID            string
	EventID       string
	UserID        string
	AttendeeName  string
	AttendeeEmail string
	Token         string
	Status        RegistrationStatus
	CheckedIn     bool
	CheckedInAt   *time.Time
	RegisteredAt  time.Time
	UpdatedAt     time.Time
}

// IsConfirmed は登録が確定済みかを返す。
func (r *Registration) IsConfirmed() bool {
	return r.Status == RegistrationStatusConfirmed
}
