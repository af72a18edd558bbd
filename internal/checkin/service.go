// Package checkin は会場チェックインのドメインロジックを提供する。
package checkin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/eventman/internal/model"
	"github.com/hitoshi/eventman/internal/repository"
)

// チェックイン結果のメッセージ。クライアント表示にそのまま使われる。
const (
	messageSuccess          = "Check-in successful"
	messageAlreadyCheckedIn = "Already checked in"
)

// MetricsRecorder はチェックインメトリクスの記録インターフェース。
type MetricsRecorder interface {
	RecordCheckIn()
	RecordCheckInDuplicate()
}

// Result はチェックイン操作の結果。
// 既にチェックイン済みの場合はエラーではなくSuccess=falseとして返す。
type Result struct {
	Success      bool
	Message      string
	Registration *model.Registration
}

// Service は会場チェックインのサービス層。
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

// CheckInAttendee はチェックインコードで参加者をチェックインする。
// コードはイベントの主催者のみ照合できる。
// キャンセル済み登録のコードは有効な登録に解決されず、InvalidTokenになる。
// チェックイン済みの登録への再実行はエラーではなく、
// Success=falseの結果として報告する（記録は変更されない）。
func (s *Service) CheckInAttendee(ctx context.Context, token, callerUserID string) (*Result, error) {
	reg, err := s.regRepo.FindConfirmedByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("チェックインコードの照合に失敗しました: %w", err)
	}
	if reg == nil {
		return nil, model.NewInvalidTokenError()
	}

	event, err := s.eventRepo.FindByID(ctx, reg.EventID)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if event == nil {
		return nil, model.NewEventNotFoundError(reg.EventID)
	}
	if event.OrganizerID != callerUserID {
		return nil, model.NewNotEventOrganizerError()
	}

	if reg.CheckedIn {
		return s.alreadyCheckedIn(reg), nil
	}

	now := time.Now()
	ok, err := s.regRepo.CheckIn(ctx, reg.ID, now)
	if err != nil {
		return nil, fmt.Errorf("チェックインの記録に失敗しました: %w", err)
	}
	if !ok {
		// 条件付きUPDATEに敗北した場合は現在の状態を読み直して判定する。
		// 並行チェックインならAlready checked in、並行キャンセルならInvalidToken。
		current, err := s.regRepo.FindConfirmedByToken(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("チェックイン状態の再取得に失敗しました: %w", err)
		}
		if current == nil {
			return nil, model.NewInvalidTokenError()
		}
		return s.alreadyCheckedIn(current), nil
	}

	reg.CheckedIn = true
	reg.CheckedInAt = &now
	reg.UpdatedAt = now

	slog.Info("attendee checked in",
		slog.String("registration_id", reg.ID),
		slog.String("event_id", reg.EventID),
	)
	if s.metrics != nil {
		s.metrics.RecordCheckIn()
	}
	return &Result{
		Success:      true,
		Message:      messageSuccess,
		Registration: reg,
	}, nil
}

// alreadyCheckedIn はチェックイン済み登録に対する結果を生成する。
func (s *Service) alreadyCheckedIn(reg *model.Registration) *Result {
	slog.Info("duplicate check-in attempt",
		slog.String("registration_id", reg.ID),
		slog.String("event_id", reg.EventID),
	)
	if s.metrics != nil {
		s.metrics.RecordCheckInDuplicate()
	}
	return &Result{
		Success:      false,
		Message:      messageAlreadyCheckedIn,
		Registration: reg,
	}
}
