// Package user はユーザープロフィールとブロック管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/woogie/woogie-server/internal/model"
	"github.com/woogie/woogie-server/internal/notification"
	"github.com/woogie/woogie-server/internal/repository"
	"github.com/woogie/woogie-server/internal/security"
)

// maxNameLength はユーザー名の最大文字数。
const maxNameLength = 50

// ProfileInput はプロフィール更新の入力を表す。
// nilのフィールドは更新しない。
type ProfileInput struct {
	Name      *string
	Photo     *string
	PushToken *string
}

// Service はユーザープロフィールとブロックのサービス層。
type Service struct {
	userRepo  repository.UserRepository
	sanitizer security.TextSanitizerService
	ssrfGuard security.SSRFGuardService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sanitizer security.TextSanitizerService,
	ssrfGuard security.SSRFGuardService,
) *Service {
	return &Service{
		userRepo:  userRepo,
		sanitizer: sanitizer,
		ssrfGuard: ssrfGuard,
	}
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

// UpdateProfile はユーザーのプロフィールを更新する。
// 名前はサニタイズし、写真URLとプッシュトークンは形式を検証する。
func (s *Service) UpdateProfile(ctx context.Context, userID string, input ProfileInput) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	if input.Name != nil {
		name := s.sanitizer.Sanitize(*input.Name)
		if name == "" {
			return nil, model.NewInvalidProfileError("名前が空です")
		}
		if len([]rune(name)) > maxNameLength {
			return nil, model.NewInvalidProfileError(fmt.Sprintf("名前が長すぎます（最大%d文字）", maxNameLength))
		}
		user.Name = name
	}

	if input.Photo != nil {
		if *input.Photo != "" {
			if err := s.ssrfGuard.ValidateURL(*input.Photo); err != nil {
				return nil, model.NewInvalidProfileError(fmt.Sprintf("写真URLが不正です: %v", err))
			}
		}
		user.Photo = *input.Photo
	}

	if input.PushToken != nil {
		if *input.PushToken != "" && !notification.ValidPushToken(*input.PushToken) {
			return nil, model.NewInvalidProfileError("プッシュトークンの形式が不正です")
		}
		user.PushToken = *input.PushToken
	}

	user.UpdatedAt = time.Now()

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}

	slog.Info("プロフィールを更新", "user_id", userID)
	return user, nil
}

// Block は対象ユーザーをブロックする。
// ブロックしたユーザーのイベントはフィードから除外される。既にブロック済みでもエラーにしない。
func (s *Service) Block(ctx context.Context, userID, targetID string) error {
	if userID == targetID {
		return model.NewInvalidProfileError("自分自身はブロックできません")
	}

	target, err := s.userRepo.FindByID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if target == nil {
		return model.NewUserNotFoundError()
	}

	if err := s.userRepo.Block(ctx, userID, targetID); err != nil {
		return fmt.Errorf("ブロックの登録に失敗しました: %w", err)
	}

	slog.Info("ユーザーをブロック", "user_id", userID, "blocked_id", targetID)
	return nil
}

// Unblock は対象ユーザーのブロックを解除する。
// ブロックしていない場合でもエラーにしない。
func (s *Service) Unblock(ctx context.Context, userID, targetID string) error {
	if err := s.userRepo.Unblock(ctx, userID, targetID); err != nil {
		return fmt.Errorf("ブロックの解除に失敗しました: %w", err)
	}

	slog.Info("ブロックを解除", "user_id", userID, "blocked_id", targetID)
	return nil
}
