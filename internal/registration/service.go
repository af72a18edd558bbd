// Package registration は参加登録のドメインロジックを提供する。
// 登録・キャンセル・再登録は、定員カウンタと台帳書き込みを単一の
// アトミックな単位として扱うリポジトリ操作に委譲する。
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/eventman/internal/model"
	"github.com/hitoshi/eventman/internal/repository"
)

// maxTokenAttempts はチェックインコード衝突時の再生成回数の上限。
const maxTokenAttempts = 3

// MetricsRecorder は登録メトリクスの記録インターフェース。
// metrics.Collectorの部分集合として定義する。
type MetricsRecorder interface {
	RecordRegistration()
	RecordRegistrationFailure(reason string)
	RecordCancellation()
}

// Service は参加登録のサービス層。
// 登録、キャンセル、再登録、一覧取得のビジネスロジックを提供する。
// 呼び出し元の識別子はすべて明示的な引数として受け取る。
type Service struct {
	regRepo   repository.RegistrationRepository
	eventRepo repository.EventRepository
	metrics   MetricsRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilでもよい。
func NewService(
	regRepo repository.RegistrationRepository,
	eventRepo repository.EventRepository,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		regRepo:   regRepo,
		eventRepo: eventRepo,
		metrics:   metrics,
	}
}

// Register はイベントへの参加登録を行う。
// 既存の登録がなければ新規作成し、キャンセル済みの登録があれば
// 同じ行を再有効化して新しいチェックインコードを発行する。
// 確定済みの登録が既にある場合はAlreadyRegisteredを返す。
// 定員チェックとカウンタ加算はリポジトリのトランザクション内で
// アトミックに行われるため、並行登録でも定員を超えない。
func (s *Service) Register(ctx context.Context, eventID, attendeeName, attendeeEmail, callerUserID string) (*model.Registration, error) {
	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if event == nil {
		return nil, model.NewEventNotFoundError(eventID)
	}

	// 事前チェック: 満員が確定している場合は書き込みを試みない。
	// 最終判定はリポジトリ側の条件付きUPDATEが行う。
	if event.IsFull() {
		s.recordFailure("capacity_exceeded")
		return nil, model.NewCapacityExceededError()
	}

	existing, err := s.regRepo.FindByEventAndUser(ctx, eventID, callerUserID)
	if err != nil {
		return nil, fmt.Errorf("既存登録の検索に失敗しました: %w", err)
	}

	if existing == nil {
		return s.create(ctx, event, attendeeName, attendeeEmail, callerUserID)
	}

	if existing.IsConfirmed() {
		s.recordFailure("already_registered")
		return nil, model.NewAlreadyRegisteredError()
	}

	return s.reactivate(ctx, existing)
}

// create は新規登録を作成する。
func (s *Service) create(ctx context.Context, event *model.Event, attendeeName, attendeeEmail, callerUserID string) (*model.Registration, error) {
	now := time.Now()
	reg := &model.Registration{
		ID:            uuid.New().String(),
		EventID:       event.ID,
		UserID:        callerUserID,
		AttendeeName:  attendeeName,
		AttendeeEmail: attendeeEmail,
		Status:        model.RegistrationStatusConfirmed,
		CheckedIn:     false,
		RegisteredAt:  now,
		UpdatedAt:     now,
	}

	for attempt := 1; ; attempt++ {
		token, err := GenerateToken(time.Now())
		if err != nil {
			return nil, err
		}
		reg.Token = token

		err = s.regRepo.CreateWithCounter(ctx, reg)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrDuplicateToken) && attempt < maxTokenAttempts {
			slog.Warn("check-in token collision, regenerating",
				slog.String("event_id", event.ID),
				slog.Int("attempt", attempt),
			)
			continue
		}
		return nil, s.translateWriteError(err)
	}

	slog.Info("registration created",
		slog.String("registration_id", reg.ID),
		slog.String("event_id", event.ID),
		slog.String("user_id", callerUserID),
	)
	if s.metrics != nil {
		s.metrics.RecordRegistration()
	}
	return reg, nil
}

// reactivate はキャンセル済み登録を再有効化する。
// 登録IDは据え置き、チェックインコードは新規発行する。
func (s *Service) reactivate(ctx context.Context, existing *model.Registration) (*model.Registration, error) {
	now := time.Now()

	for attempt := 1; ; attempt++ {
		token, err := GenerateToken(time.Now())
		if err != nil {
			return nil, err
		}

		err = s.regRepo.ReactivateWithCounter(ctx, existing.ID, existing.EventID, token, now)
		if err == nil {
			existing.Token = token
			break
		}
		if errors.Is(err, repository.ErrDuplicateToken) && attempt < maxTokenAttempts {
			slog.Warn("check-in token collision, regenerating",
				slog.String("event_id", existing.EventID),
				slog.Int("attempt", attempt),
			)
			continue
		}
		return nil, s.translateWriteError(err)
	}

	existing.Status = model.RegistrationStatusConfirmed
	existing.RegisteredAt = now
	existing.UpdatedAt = now

	slog.Info("registration reactivated",
		slog.String("registration_id", existing.ID),
		slog.String("event_id", existing.EventID),
	)
	if s.metrics != nil {
		s.metrics.RecordRegistration()
	}
	return existing, nil
}

// Cancel は参加登録をキャンセルする。
// 本人以外の登録は操作できない。カウンタ減算は0で打ち止めされるため、
// 二重キャンセルの競合でも負値にはならない。
// 既にキャンセル済みの登録は未検出として報告し、カウンタには触れない。
func (s *Service) Cancel(ctx context.Context, registrationID, callerUserID string) error {
	reg, err := s.regRepo.FindByID(ctx, registrationID)
	if err != nil {
		return fmt.Errorf("登録の取得に失敗しました: %w", err)
	}
	if reg == nil {
		return model.NewRegistrationNotFoundError(registrationID)
	}
	if reg.UserID != callerUserID {
		return model.NewNotRegistrationOwnerError()
	}

	if err := s.regRepo.CancelWithCounter(ctx, registrationID, reg.EventID); err != nil {
		if errors.Is(err, repository.ErrAlreadyCancelled) {
			return model.NewRegistrationNotFoundError(registrationID)
		}
		return fmt.Errorf("登録のキャンセルに失敗しました: %w", err)
	}

	slog.Info("registration cancelled",
		slog.String("registration_id", registrationID),
		slog.String("event_id", reg.EventID),
	)
	if s.metrics != nil {
		s.metrics.RecordCancellation()
	}
	return nil
}

// ListMine は呼び出しユーザーの全登録をイベント情報付きで
// registered_at降順で返す。副作用はない。
func (s *Service) ListMine(ctx context.Context, callerUserID string) ([]repository.RegistrationWithEvent, error) {
	results, err := s.regRepo.ListByUserIDWithEvent(ctx, callerUserID)
	if err != nil {
		return nil, fmt.Errorf("登録一覧の取得に失敗しました: %w", err)
	}
	return results, nil
}

// ListForEvent はイベントの全登録（ステータス不問）を返す。
// イベントの主催者のみが取得できる。
func (s *Service) ListForEvent(ctx context.Context, eventID, callerUserID string) ([]*model.Registration, error) {
	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if event == nil {
		return nil, model.NewEventNotFoundError(eventID)
	}
	if event.OrganizerID != callerUserID {
		return nil, model.NewNotEventOrganizerError()
	}

	regs, err := s.regRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("イベントの登録一覧の取得に失敗しました: %w", err)
	}
	return regs, nil
}

// CheckRegistration は呼び出しユーザーのイベントへの登録を返す。
// 確定済みの場合のみ返し、未登録またはキャンセル済みの場合はnilを返す。
func (s *Service) CheckRegistration(ctx context.Context, eventID, callerUserID string) (*model.Registration, error) {
	reg, err := s.regRepo.FindByEventAndUser(ctx, eventID, callerUserID)
	if err != nil {
		return nil, fmt.Errorf("登録の検索に失敗しました: %w", err)
	}
	if reg == nil || !reg.IsConfirmed() {
		return nil, nil
	}
	return reg, nil
}

// translateWriteError はリポジトリのセンチネルエラーをAPIErrorに変換する。
func (s *Service) translateWriteError(err error) error {
	switch {
	case errors.Is(err, repository.ErrEventFull):
		s.recordFailure("capacity_exceeded")
		return model.NewCapacityExceededError()
	case errors.Is(err, repository.ErrDuplicateRegistration):
		s.recordFailure("already_registered")
		return model.NewAlreadyRegisteredError()
	default:
		return fmt.Errorf("登録の書き込みに失敗しました: %w", err)
	}
}

// recordFailure は失敗メトリクスを記録する。
func (s *Service) recordFailure(reason string) {
	if s.metrics != nil {
		s.metrics.RecordRegistrationFailure(reason)
	}
}
