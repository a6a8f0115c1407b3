// Package match はスワイプとマッチ確定のドメインロジックを提供する。
package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/woogie/woogie-server/internal/metrics"
	"github.com/woogie/woogie-server/internal/model"
	"github.com/woogie/woogie-server/internal/repository"
)

// MatchService はマッチのライフサイクル（作成・承認・削除）を統括する。
// 状態遷移: proposed → accepted または dismissed。dismissedは終端状態。
// フィードキャッシュには触れない。マッチ状態のフィードへの反映は
// キャッシュのTTL失効に任せる。
type MatchService struct {
	matchRepo repository.MatchRepository
	eventRepo repository.EventRepository
	notifRepo repository.NotificationRepository
	metrics   metrics.MetricsCollector
}

// NewMatchService はMatchServiceの新しいインスタンスを生成する。
// collectorはnilでもよい。
func NewMatchService(
	matchRepo repository.MatchRepository,
	eventRepo repository.EventRepository,
	notifRepo repository.NotificationRepository,
	collector metrics.MetricsCollector,
) *MatchService {
	return &MatchService{
		matchRepo: matchRepo,
		eventRepo: eventRepo,
		notifRepo: notifRepo,
		metrics:   collector,
	}
}

// Create はスワイプ結果を記録する。
// dismissed=falseは「行きたい」でイベント作者に通知が飛ぶ。
// dismissed=trueは「見送り」で通知は飛ばず、以後そのイベントはフィードに出ない。
// フロー: イベント存在確認 → 自作イベント拒否 → マッチ作成（重複は一意制約で検出） → 通知
func (s *MatchService) Create(ctx context.Context, userID, eventID string, dismissed bool) (*model.Match, error) {
	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if event == nil {
		return nil, model.NewEventNotFoundError(eventID)
	}
	if event.AuthorID == userID {
		return nil, model.NewOwnEventMatchError()
	}

	match := &model.Match{
		ID:        uuid.New().String(),
		UserID:    userID,
		EventID:   eventID,
		Accepted:  false,
		Dismissed: dismissed,
		CreatedAt: time.Now(),
	}

	if err := s.matchRepo.Create(ctx, match); err != nil {
		if errors.Is(err, repository.ErrDuplicateMatch) {
			return nil, model.NewDuplicateMatchError()
		}
		return nil, fmt.Errorf("マッチの作成に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordMatchMutation("create")
	}

	// 見送りは作者に知らせない
	if !dismissed {
		s.enqueueNotification(ctx, event.AuthorID, "You got a new match", fmt.Sprintf("Someone wants to join %s", event.Title))
	}

	slog.Info("マッチを作成",
		"match_id", match.ID,
		"event_id", eventID,
		"user_id", userID,
		"dismissed", dismissed,
	)
	return match, nil
}

// Accept はイベント作者がマッチを承認する。
// 承認済みマッチへの再承認は冪等に成功し、見送り済みマッチへの承認はエラーになる。
// フロー: マッチ取得 → イベント取得 → 作者権限確認 → 状態確認 → 枠確認 → 承認 → 通知
func (s *MatchService) Accept(ctx context.Context, matchID, authorID string) (*model.Match, error) {
	match, err := s.matchRepo.FindByID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("マッチの取得に失敗しました: %w", err)
	}
	if match == nil {
		return nil, model.NewMatchNotFoundError(matchID)
	}

	event, err := s.eventRepo.FindByID(ctx, match.EventID)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if event == nil {
		return nil, model.NewEventNotFoundError(match.EventID)
	}
	if event.AuthorID != authorID {
		return nil, model.NewForbiddenError()
	}

	if match.Dismissed {
		return nil, model.NewMatchAlreadyDecidedError()
	}
	if match.Accepted {
		// 冪等: 既に承認済みならそのまま返す
		return match, nil
	}

	accepted, err := s.matchRepo.CountAcceptedByEvent(ctx, match.EventID)
	if err != nil {
		return nil, fmt.Errorf("承認済みマッチ数の取得に失敗しました: %w", err)
	}
	if accepted >= event.Slots {
		return nil, model.NewEventFullError()
	}

	if err := s.matchRepo.UpdateAccepted(ctx, matchID, true); err != nil {
		return nil, fmt.Errorf("マッチの承認に失敗しました: %w", err)
	}
	match.Accepted = true

	if s.metrics != nil {
		s.metrics.RecordMatchMutation("accept")
	}

	s.enqueueNotification(ctx, match.UserID, "You matched!", fmt.Sprintf("You matched to %s", event.Title))

	slog.Info("マッチを承認",
		"match_id", matchID,
		"event_id", match.EventID,
		"author_id", authorID,
	)
	return match, nil
}

// Delete はマッチを無条件に削除する。
// マッチしたユーザー本人またはイベント作者のみ実行できる。通知は飛ばない。
func (s *MatchService) Delete(ctx context.Context, matchID, requesterID string) error {
	match, err := s.matchRepo.FindByID(ctx, matchID)
	if err != nil {
		return fmt.Errorf("マッチの取得に失敗しました: %w", err)
	}
	if match == nil {
		return model.NewMatchNotFoundError(matchID)
	}

	if match.UserID != requesterID {
		event, err := s.eventRepo.FindByID(ctx, match.EventID)
		if err != nil {
			return fmt.Errorf("イベントの取得に失敗しました: %w", err)
		}
		if event == nil || event.AuthorID != requesterID {
			return model.NewForbiddenError()
		}
	}

	if err := s.matchRepo.Delete(ctx, matchID); err != nil {
		return fmt.Errorf("マッチの削除に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordMatchMutation("delete")
	}

	slog.Info("マッチを削除", "match_id", matchID, "requester_id", requesterID)
	return nil
}

// enqueueNotification は通知をアウトボックスに積む。
// 積み込み失敗はログ出力のみで、元のマッチ操作には影響しない。
func (s *MatchService) enqueueNotification(ctx context.Context, recipientID, title, body string) {
	if s.notifRepo == nil {
		return
	}

	n := &model.Notification{
		ID:          uuid.New().String(),
		RecipientID: recipientID,
		Title:       title,
		Body:        body,
		Status:      model.NotificationStatusPending,
		CreatedAt:   time.Now(),
	}
	if err := s.notifRepo.Enqueue(ctx, n); err != nil {
		slog.Warn("通知の積み込みに失敗", "recipient_id", recipientID, "error", err)
	}
}
