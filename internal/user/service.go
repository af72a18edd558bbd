// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/eventman/internal/model"
	"github.com/hitoshi/eventman/internal/repository"
)

// Service はユーザー管理のサービス層。
// ロール変更のビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{
		userRepo: userRepo,
	}
}

// SetRole は対象ユーザーのロールを変更する。
// 呼び出しユーザーが管理者でない場合はAdminRequiredを返す。
func (s *Service) SetRole(ctx context.Context, targetUserID string, role model.Role, callerUserID string) error {
	caller, err := s.userRepo.FindByID(ctx, callerUserID)
	if err != nil {
		return fmt.Errorf("呼び出しユーザーの取得に失敗しました: %w", err)
	}
	if caller == nil {
		return model.NewUserNotFoundError()
	}
	if caller.Role != model.RoleAdmin {
		return model.NewAdminRequiredError()
	}

	target, err := s.userRepo.FindByID(ctx, targetUserID)
	if err != nil {
		return fmt.Errorf("対象ユーザーの取得に失敗しました: %w", err)
	}
	if target == nil {
		return model.NewUserNotFoundError()
	}

	if err := s.userRepo.UpdateRole(ctx, targetUserID, role); err != nil {
		return fmt.Errorf("ロールの更新に失敗しました: %w", err)
	}

	slog.Info("user role updated",
		slog.String("user_id", targetUserID),
		slog.String("role", string(role)),
		slog.String("updated_by", callerUserID),
	)
	return nil
}

// Get は指定IDのユーザーを取得する。
func (s *Service) Get(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}
