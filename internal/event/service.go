// Package event はイベント管理のドメインロジックを提供する。
package event

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/eventman/internal/model"
	"github.com/hitoshi/eventman/internal/repository"
	"github.com/hitoshi/eventman/internal/security"
)

// defaultListLimit は一覧取得のデフォルト上限件数。
const defaultListLimit = 100

// CreateInput はイベント作成の入力値。
type CreateInput struct {
	Title       string
	Description string
	Category    string
	City        string
	State       string
	StartDate   time.Time
	Capacity    int
}

// Service はイベント管理のサービス層。
// 作成、取得、開催予定一覧のビジネスロジックを提供する。
type Service struct {
	eventRepo repository.EventRepository
	sanitizer security.ContentSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(eventRepo repository.EventRepository, sanitizer security.ContentSanitizerService) *Service {
	return &Service{
		eventRepo: eventRepo,
		sanitizer: sanitizer,
	}
}

// Create はイベントを作成する。呼び出しユーザーが主催者になる。
// 説明文は保存前にサニタイズされる。
func (s *Service) Create(ctx context.Context, input CreateInput, organizerID string) (*model.Event, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	description := input.Description
	if s.sanitizer != nil {
		description = s.sanitizer.Sanitize(description)
	}

	now := time.Now()
	event := &model.Event{
		ID:          uuid.New().String(),
		OrganizerID: organizerID,
		Title:       strings.TrimSpace(input.Title),
		Description: description,
		Category:    input.Category,
		City:        input.City,
		State:       input.State,
		StartDate:   input.StartDate,
		Capacity:    input.Capacity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("イベントの作成に失敗しました: %w", err)
	}

	slog.Info("event created",
		slog.String("event_id", event.ID),
		slog.String("organizer_id", organizerID),
		slog.Int("capacity", event.Capacity),
	)
	return event, nil
}

// Get は指定IDのイベントを取得する。
func (s *Service) Get(ctx context.Context, eventID string) (*model.Event, error) {
	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if event == nil {
		return nil, model.NewEventNotFoundError(eventID)
	}
	return event, nil
}

// ListUpcoming は現時点以降に開催されるイベントをstart_date昇順で返す。
func (s *Service) ListUpcoming(ctx context.Context) ([]*model.Event, error) {
	events, err := s.eventRepo.ListUpcoming(ctx, time.Now(), defaultListLimit)
	if err != nil {
		return nil, fmt.Errorf("イベント一覧の取得に失敗しました: %w", err)
	}
	return events, nil
}

// validateInput はイベント入力値を検証する。
func validateInput(input CreateInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return model.NewInvalidEventError("タイトルは必須です")
	}
	if input.StartDate.IsZero() {
		return model.NewInvalidEventError("開催日時は必須です")
	}
	if input.Capacity < 0 {
		return model.NewInvalidEventError("定員は0以上で指定してください")
	}
	return nil
}
