// Package review はレビュー投稿とレーティングの再計算を提供する。
package review

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/woogie/woogie-server/internal/model"
	"github.com/woogie/woogie-server/internal/repository"
)

// ReviewService はレビュー投稿と対象ユーザーの派生値更新を統括する。
// レビューは(投稿者, 対象)の組につき1件で、再投稿は上書きになる。
type ReviewService struct {
	reviewRepo repository.ReviewRepository
	userRepo   repository.UserRepository
}

// NewReviewService はReviewServiceの新しいインスタンスを生成する。
func NewReviewService(reviewRepo repository.ReviewRepository, userRepo repository.UserRepository) *ReviewService {
	return &ReviewService{
		reviewRepo: reviewRepo,
		userRepo:   userRepo,
	}
}

// Post はレビューを投稿し、対象ユーザーのstarsとratingを再計算する。
// フロー: 入力検証 → 対象ユーザー確認 → UPSERT → 全星数の取得 → 派生値の更新
func (s *ReviewService) Post(ctx context.Context, authorID, targetUserID string, stars int, text string) (*model.Review, error) {
	if stars < 1 || stars > 5 {
		return nil, model.NewInvalidReviewError(fmt.Sprintf("stars=%d", stars))
	}
	if authorID == targetUserID {
		return nil, model.NewInvalidReviewError("自分自身へのレビューはできません")
	}

	target, err := s.userRepo.FindByID(ctx, targetUserID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if target == nil {
		return nil, model.NewUserNotFoundError()
	}

	now := time.Now()
	review := &model.Review{
		ID:        uuid.New().String(),
		AuthorID:  authorID,
		UserID:    targetUserID,
		Stars:     stars,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.reviewRepo.Upsert(ctx, review); err != nil {
		return nil, fmt.Errorf("レビューの保存に失敗しました: %w", err)
	}

	// 派生値の再計算。全レビューの星数から計算し直す。
	allStars, err := s.reviewRepo.ListStarsByUser(ctx, targetUserID)
	if err != nil {
		return nil, fmt.Errorf("レビューの集計に失敗しました: %w", err)
	}

	newStars, newRating := RatingFromStars(allStars)
	if err := s.userRepo.UpdateRating(ctx, targetUserID, newStars, newRating); err != nil {
		return nil, fmt.Errorf("レーティングの更新に失敗しました: %w", err)
	}

	slog.Info("レビューを投稿",
		"author_id", authorID,
		"user_id", targetUserID,
		"stars", stars,
		"new_stars", newStars,
		"new_rating", newRating,
	)
	return review, nil
}

// RatingFromStars は受けたレビューの星数から表示用starsとフィード並び替え用ratingを算出する。
// stars = round(平均)、rating = round(平均 / 2.5 * 件数)。レビューが無い場合はどちらも0。
func RatingFromStars(allStars []int) (stars, rating int) {
	if len(allStars) == 0 {
		return 0, 0
	}

	sum := 0
	for _, s := range allStars {
		sum += s
	}
	mean := float64(sum) / float64(len(allStars))

	stars = int(math.Round(mean))
	rating = int(math.Round(mean / 2.5 * float64(len(allStars))))
	return stars, rating
}
