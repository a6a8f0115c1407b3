// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/woogie/woogie-server/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// UpdateProfile はユーザーのプロフィール（名前・写真・プッシュトークン）を更新する。
	UpdateProfile(ctx context.Context, user *model.User) error

	// UpdateRating はレビュー再計算後の派生値（stars, rating）を更新する。
	UpdateRating(ctx context.Context, userID string, stars, rating int) error

	// ListBlockedIDs は指定ユーザーがブロックしたユーザーIDの一覧を返す。
	ListBlockedIDs(ctx context.Context, userID string) ([]string, error)

	// Block はユーザーをブロックする。既にブロック済みの場合は何もしない。
	Block(ctx context.Context, userID, blockedID string) error

	// Unblock はブロックを解除する。
	Unblock(ctx context.Context, userID, blockedID string) error
}

// EventRepository はイベントデータの永続化インターフェース。
type EventRepository interface {
	// FindByID は指定IDのイベントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Event, error)

	// Create はイベントを作成する。
	Create(ctx context.Context, event *model.Event) error

	// Delete は指定IDのイベントを削除する。
	Delete(ctx context.Context, id string) error

	// HasMatches はイベントを参照するマッチが存在するかを返す。
	HasMatches(ctx context.Context, eventID string) (bool, error)

	// ListSince は開催時刻がcutoff以降のイベントを作者サマリと全マッチ付きで取得する。
	// 作者のrating降順で返す。フィードキャッシュの再取得で使用する。
	ListSince(ctx context.Context, cutoff time.Time) ([]model.EventWithGraph, error)

	// LastByAuthor は作者の最新イベント（開催時刻がcutoff以降）を
	// 未承認マッチ付きで取得する。見つからない場合はnilを返す。
	// 作者の承認画面で使用する。
	LastByAuthor(ctx context.Context, authorID string, cutoff time.Time) (*model.EventWithGraph, error)
}

// MatchRepository はマッチデータの永続化インターフェース。
type MatchRepository interface {
	// FindByID は指定IDのマッチを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Match, error)

	// FindByUserAndEvent はユーザーIDとイベントIDでマッチを検索する。見つからない場合はnilを返す。
	FindByUserAndEvent(ctx context.Context, userID, eventID string) (*model.Match, error)

	// Create はマッチを作成する。(user_id, event_id)の一意制約違反はエラーになる。
	Create(ctx context.Context, match *model.Match) error

	// UpdateAccepted はマッチの承認状態を更新する。
	UpdateAccepted(ctx context.Context, id string, accepted bool) error

	// Delete は指定IDのマッチを削除する。
	Delete(ctx context.Context, id string) error

	// CountAcceptedByEvent はイベントの承認済みマッチ数を返す。
	CountAcceptedByEvent(ctx context.Context, eventID string) (int, error)
}

// ReviewRepository はレビューデータの永続化インターフェース。
type ReviewRepository interface {
	// Upsert はレビューを(author_id, user_id)の組で冪等にUPSERTする。
	Upsert(ctx context.Context, review *model.Review) error

	// ListStarsByUser は指定ユーザーが受けた全レビューの星数を返す。
	// rating再計算で使用する。レビューが無い場合は空スライスを返す。
	ListStarsByUser(ctx context.Context, userID string) ([]int, error)
}

// ReportRepository は通報データの永続化インターフェース。
type ReportRepository interface {
	// Create は通報を作成する。
	Create(ctx context.Context, report *model.Report) error
}

// NotificationRepository はプッシュ通知アウトボックスの永続化インターフェース。
type NotificationRepository interface {
	// Enqueue は通知をpending状態で積む。
	Enqueue(ctx context.Context, n *model.Notification) error

	// ListPending は未送信の通知を古い順に最大limit件取得する。
	// FOR UPDATE SKIP LOCKEDで複数ワーカーの二重送信を防ぐ。
	ListPending(ctx context.Context, limit int) ([]*model.Notification, error)

	// MarkSent は通知を送信済みにする。
	MarkSent(ctx context.Context, id string, sentAt time.Time) error

	// MarkFailed は通知を送信失敗にし、試行回数を加算する。
	MarkFailed(ctx context.Context, id string) error
}
