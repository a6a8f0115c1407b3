package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/woogie/woogie-server/internal/model"
)

// ErrDuplicateMatch は(user_id, event_id)の一意制約違反を表す。
// サービス層で重複スワイプエラーに変換される。
var ErrDuplicateMatch = errors.New("match already exists for this user and event")

// PostgresMatchRepo はPostgreSQLを使用したマッチリポジトリ。
type PostgresMatchRepo struct {
	db *sql.DB
}

// NewPostgresMatchRepo はPostgresMatchRepoを生成する。
func NewPostgresMatchRepo(db *sql.DB) *PostgresMatchRepo {
	return &PostgresMatchRepo{db: db}
}

// FindByID は指定IDのマッチを取得する。見つからない場合はnilを返す。
func (r *PostgresMatchRepo) FindByID(ctx context.Context, id string) (*model.Match, error) {
	match := &model.Match{}

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, event_id, accepted, dismissed, created_at
		 FROM matches WHERE id = $1`,
		id,
	).Scan(
		&match.ID, &match.UserID, &match.EventID,
		&match.Accepted, &match.Dismissed, &match.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("マッチの取得に失敗しました", err)
	}

	return match, nil
}

// FindByUserAndEvent はユーザーIDとイベントIDでマッチを検索する。見つからない場合はnilを返す。
func (r *PostgresMatchRepo) FindByUserAndEvent(ctx context.Context, userID, eventID string) (*model.Match, error) {
	match := &model.Match{}

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, event_id, accepted, dismissed, created_at
		 FROM matches WHERE user_id = $1 AND event_id = $2`,
		userID, eventID,
	).Scan(
		&match.ID, &match.UserID, &match.EventID,
		&match.Accepted, &match.Dismissed, &match.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("マッチの検索に失敗しました", err)
	}

	return match, nil
}

// Create はマッチを作成する。
// (user_id, event_id)の一意制約違反の場合はErrDuplicateMatchを返す。
func (r *PostgresMatchRepo) Create(ctx context.Context, match *model.Match) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO matches (id, user_id, event_id, accepted, dismissed, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		match.ID, match.UserID, match.EventID,
		match.Accepted, match.Dismissed, match.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicateMatch
		}
		return storeError("マッチの作成に失敗しました", err)
	}
	return nil
}

// UpdateAccepted はマッチの承認状態を更新する。
func (r *PostgresMatchRepo) UpdateAccepted(ctx context.Context, id string, accepted bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE matches SET accepted = $2 WHERE id = $1`,
		id, accepted,
	)
	if err != nil {
		return storeError("マッチの更新に失敗しました", err)
	}
	return nil
}

// Delete は指定IDのマッチを削除する。
func (r *PostgresMatchRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return storeError("マッチの削除に失敗しました", err)
	}
	return nil
}

// CountAcceptedByEvent はイベントの承認済みマッチ数を返す。
func (r *PostgresMatchRepo) CountAcceptedByEvent(ctx context.Context, eventID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM matches WHERE event_id = $1 AND accepted = true`,
		eventID,
	).Scan(&count)
	if err != nil {
		return 0, storeError("承認済みマッチ数の取得に失敗しました", err)
	}
	return count, nil
}

// compile-time interface check
var _ MatchRepository = (*PostgresMatchRepo)(nil)
