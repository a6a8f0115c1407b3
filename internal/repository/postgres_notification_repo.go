package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/woogie/woogie-server/internal/model"
)

// PostgresNotificationRepo はPostgreSQLを使用した通知アウトボックスリポジトリ。
type PostgresNotificationRepo struct {
	db *sql.DB
}

// NewPostgresNotificationRepo はPostgresNotificationRepoを生成する。
func NewPostgresNotificationRepo(db *sql.DB) *PostgresNotificationRepo {
	return &PostgresNotificationRepo{db: db}
}

// Enqueue は通知をpending状態で積む。
func (r *PostgresNotificationRepo) Enqueue(ctx context.Context, n *model.Notification) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, recipient_id, title, body, status, attempts, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.RecipientID, n.Title, n.Body, n.Status, n.Attempts, n.CreatedAt,
	)
	if err != nil {
		return storeError("通知の登録に失敗しました", err)
	}
	return nil
}

// ListPending は未送信の通知を古い順に最大limit件取得する。
// FOR UPDATE SKIP LOCKEDで複数ワーカーの二重送信を防ぐ。
func (r *PostgresNotificationRepo) ListPending(ctx context.Context, limit int) ([]*model.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, recipient_id, title, body, status, attempts, created_at
		 FROM notifications
		 WHERE status = 'pending'
		 ORDER BY created_at ASC
		 LIMIT $1
		 FOR UPDATE SKIP LOCKED`,
		limit,
	)
	if err != nil {
		return nil, storeError("未送信通知の取得に失敗しました", err)
	}
	defer rows.Close()

	var notifications []*model.Notification
	for rows.Next() {
		n := &model.Notification{}
		if err := rows.Scan(
			&n.ID, &n.RecipientID, &n.Title, &n.Body, &n.Status, &n.Attempts, &n.CreatedAt,
		); err != nil {
			return nil, storeError("未送信通知の読み取りに失敗しました", err)
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, storeError("未送信通知の走査に失敗しました", err)
	}

	return notifications, nil
}

// MarkSent は通知を送信済みにする。
func (r *PostgresNotificationRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET status = 'sent', sent_at = $2, attempts = attempts + 1 WHERE id = $1`,
		id, sentAt,
	)
	if err != nil {
		return storeError("通知の送信済み更新に失敗しました", err)
	}
	return nil
}

// MarkFailed は通知を送信失敗にし、試行回数を加算する。
func (r *PostgresNotificationRepo) MarkFailed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET status = 'failed', attempts = attempts + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return storeError("通知の失敗更新に失敗しました", err)
	}
	return nil
}

// compile-time interface check
var _ NotificationRepository = (*PostgresNotificationRepo)(nil)
