// Package event はイベント投稿・管理のドメインロジックを提供する。
package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/woogie/woogie-server/internal/config"
	"github.com/woogie/woogie-server/internal/feed"
	"github.com/woogie/woogie-server/internal/geo"
	"github.com/woogie/woogie-server/internal/model"
	"github.com/woogie/woogie-server/internal/repository"
	"github.com/woogie/woogie-server/internal/security"
)

// maxTitleLength はイベントタイトルの最大文字数。
const maxTitleLength = 120

// maxTextLength はイベント本文の最大文字数。
const maxTextLength = 2000

// CreateInput はイベント作成の入力を表す。
type CreateInput struct {
	Title     string
	Text      string
	Photo     string
	Time      time.Time
	Slots     int
	Latitude  float64
	Longitude float64
}

// EventService はイベントの作成・取得・削除を統括する。
// フィードキャッシュには触れない。作成・削除のフィードへの反映は
// キャッシュのTTL失効に任せる。
type EventService struct {
	eventRepo  repository.EventRepository
	sanitizer  security.TextSanitizerService
	ssrfGuard  security.SSRFGuardService
	cutoffMode config.CutoffMode
}

// NewEventService はEventServiceの新しいインスタンスを生成する。
func NewEventService(
	eventRepo repository.EventRepository,
	sanitizer security.TextSanitizerService,
	ssrfGuard security.SSRFGuardService,
	cutoffMode config.CutoffMode,
) *EventService {
	return &EventService{
		eventRepo:  eventRepo,
		sanitizer:  sanitizer,
		ssrfGuard:  ssrfGuard,
		cutoffMode: cutoffMode,
	}
}

// Create はイベントを作成する。
// フロー: テキストのサニタイズ → 入力検証 → 写真URL検証 → 保存
func (s *EventService) Create(ctx context.Context, authorID string, input CreateInput) (*model.Event, error) {
	title := s.sanitizer.Sanitize(input.Title)
	text := s.sanitizer.Sanitize(input.Text)

	if title == "" {
		return nil, model.NewInvalidEventError("タイトルが空です")
	}
	if len([]rune(title)) > maxTitleLength {
		return nil, model.NewInvalidEventError(fmt.Sprintf("タイトルが長すぎます（最大%d文字）", maxTitleLength))
	}
	if len([]rune(text)) > maxTextLength {
		return nil, model.NewInvalidEventError(fmt.Sprintf("本文が長すぎます（最大%d文字）", maxTextLength))
	}
	if input.Slots < 1 {
		return nil, model.NewInvalidEventError(fmt.Sprintf("slots=%d", input.Slots))
	}
	if input.Time.Before(time.Now()) {
		return nil, model.NewInvalidEventError("開催時刻が過去です")
	}
	if !geo.ValidLatitude(input.Latitude) {
		return nil, model.NewInvalidLocationError(fmt.Sprintf("latitude=%v", input.Latitude))
	}
	if !geo.ValidLongitude(input.Longitude) {
		return nil, model.NewInvalidLocationError(fmt.Sprintf("longitude=%v", input.Longitude))
	}

	if input.Photo != "" {
		if err := s.ssrfGuard.ValidateURL(input.Photo); err != nil {
			return nil, model.NewInvalidEventError(fmt.Sprintf("写真URLが不正です: %v", err))
		}
	}

	event := &model.Event{
		ID:        uuid.New().String(),
		AuthorID:  authorID,
		Title:     title,
		Text:      text,
		Photo:     input.Photo,
		Time:      input.Time,
		Slots:     input.Slots,
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
		CreatedAt: time.Now(),
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("イベントの保存に失敗しました: %w", err)
	}

	slog.Info("イベントを作成", "event_id", event.ID, "author_id", authorID, "slots", event.Slots)
	return event, nil
}

// Get は指定IDのイベントを取得する。
func (s *EventService) Get(ctx context.Context, eventID string) (*model.Event, error) {
	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if event == nil {
		return nil, model.NewEventNotFoundError(eventID)
	}
	return event, nil
}

// Delete はイベントを削除する。作者のみ実行でき、
// マッチが1件でも参照しているイベントは削除できない。
func (s *EventService) Delete(ctx context.Context, eventID, requesterID string) error {
	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if event == nil {
		return model.NewEventNotFoundError(eventID)
	}
	if event.AuthorID != requesterID {
		return model.NewForbiddenError()
	}

	hasMatches, err := s.eventRepo.HasMatches(ctx, eventID)
	if err != nil {
		return fmt.Errorf("マッチの確認に失敗しました: %w", err)
	}
	if hasMatches {
		return model.NewEventHasMatchesError()
	}

	if err := s.eventRepo.Delete(ctx, eventID); err != nil {
		return fmt.Errorf("イベントの削除に失敗しました: %w", err)
	}

	slog.Info("イベントを削除", "event_id", eventID, "author_id", requesterID)
	return nil
}

// LastEvent は作者の最新イベントを未承認マッチ付きで取得する。
// 作者の承認画面で使用する。該当イベントが無い場合はnilを返す（エラーにはしない）。
func (s *EventService) LastEvent(ctx context.Context, authorID string) (*model.EventWithGraph, error) {
	cutoff := feed.CutoffTime(time.Now(), s.cutoffMode)
	last, err := s.eventRepo.LastByAuthor(ctx, authorID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("最新イベントの取得に失敗しました: %w", err)
	}
	return last, nil
}
