// Package cleanup は古いデータの自動削除ジョブを提供する。
// 保持期間を超過した送信済み通知と、開催時刻が過ぎたマッチなしイベントを
// 日次バッチで削除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CleanupJob は保持期間を超過したデータの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	db     Executor
	logger *slog.Logger

	// NotificationRetentionDays は送信済み・失敗通知の保持日数（デフォルト: 30）
	NotificationRetentionDays int
	// EventRetentionDays は開催時刻を過ぎたマッチなしイベントの保持日数（デフォルト: 30）
	EventRetentionDays int
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの保持日数はどちらも30日。
func NewCleanupJob(db Executor, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		db:                        db,
		logger:                    logger,
		NotificationRetentionDays: 30,
		EventRetentionDays:        30,
	}
}

// Run は保持期間を超過したデータを削除する。
// 通知とイベントの削除を順に実行し、どちらかが失敗しても
// もう一方は実行する。冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	notifErr := j.cleanupNotifications(ctx)
	eventErr := j.cleanupEvents(ctx)

	if notifErr != nil {
		return notifErr
	}
	return eventErr
}

// cleanupNotifications は決着済み（sent/failed）の古い通知を削除する。
func (j *CleanupJob) cleanupNotifications(ctx context.Context) error {
	start := time.Now()
	interval := fmt.Sprintf("%d days", j.NotificationRetentionDays)

	query := `DELETE FROM notifications WHERE status IN ('sent', 'failed') AND created_at < now() - $1::interval`
	result, err := j.db.ExecContext(ctx, query, interval)
	if err != nil {
		j.logger.Error("通知クリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.NotificationRetentionDays),
		)
		return fmt.Errorf("通知クリーンアップの実行に失敗: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	j.logger.Info("通知クリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.NotificationRetentionDays),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// cleanupEvents は開催時刻が保持期間より前で、マッチが1件も無いイベントを削除する。
// マッチ付きイベントは履歴として残す。
func (j *CleanupJob) cleanupEvents(ctx context.Context) error {
	start := time.Now()
	interval := fmt.Sprintf("%d days", j.EventRetentionDays)

	query := `DELETE FROM events
		WHERE time < now() - $1::interval
		AND NOT EXISTS (SELECT 1 FROM matches WHERE matches.event_id = events.id)`
	result, err := j.db.ExecContext(ctx, query, interval)
	if err != nil {
		j.logger.Error("イベントクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.EventRetentionDays),
		)
		return fmt.Errorf("イベントクリーンアップの実行に失敗: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	j.logger.Info("イベントクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.EventRetentionDays),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}
