package model

import "time"

// Event は開催イベントを表す。
// registration_countは確定済み登録数のキャッシュで、
// 0 <= registration_count <= capacity を常に満たす。
type Event struct {
	ID                string
	OrganizerID       string
	Title             string
	Description       string
	Category          string
	City              string
	State             string
	StartDate         time.Time
	Capacity          int
	RegistrationCount int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsFull は定員に達しているかを返す。
// 最終判定はDB側の条件付きUPDATEで行うため、これは事前チェック用。
func (e *Event) IsFull() bool {
	return e.RegistrationCount >= e.Capacity
}
