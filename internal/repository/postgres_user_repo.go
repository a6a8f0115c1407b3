package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/woogie/woogie-server/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	var photo, pushToken sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, photo, push_token, stars, rating, created_at, updated_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(
		&user.ID, &user.Name, &user.Email, &photo, &pushToken,
		&user.Stars, &user.Rating, &user.CreatedAt, &user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("ユーザーの取得に失敗しました", err)
	}

	user.Photo = nullStringValue(photo)
	user.PushToken = nullStringValue(pushToken)

	return user, nil
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, photo, push_token, stars, rating, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.ID, user.Name, user.Email, nullString(user.Photo), nullString(user.PushToken),
		user.Stars, user.Rating, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return storeError("ユーザーの作成に失敗しました", err)
	}
	return nil
}

// UpdateProfile はユーザーのプロフィールを更新する。
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET
		    name = $2, photo = $3, push_token = $4, updated_at = now()
		 WHERE id = $1`,
		user.ID, user.Name, nullString(user.Photo), nullString(user.PushToken),
	)
	if err != nil {
		return storeError("プロフィールの更新に失敗しました", err)
	}
	return nil
}

// UpdateRating はレビュー再計算後の派生値を更新する。
func (r *PostgresUserRepo) UpdateRating(ctx context.Context, userID string, stars, rating int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET stars = $2, rating = $3, updated_at = now() WHERE id = $1`,
		userID, stars, rating,
	)
	if err != nil {
		return storeError("評価の更新に失敗しました", err)
	}
	return nil
}

// ListBlockedIDs は指定ユーザーがブロックしたユーザーIDの一覧を返す。
func (r *PostgresUserRepo) ListBlockedIDs(ctx context.Context, userID string) ([]string, error) {
	var blocked []string
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(array_agg(blocked_id), '{}') FROM blocks WHERE user_id = $1`,
		userID,
	).Scan(pq.Array(&blocked))
	if err != nil {
		return nil, storeError("ブロック一覧の取得に失敗しました", err)
	}
	return blocked, nil
}

// Block はユーザーをブロックする。既にブロック済みの場合は何もしない。
func (r *PostgresUserRepo) Block(ctx context.Context, userID, blockedID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO blocks (user_id, blocked_id, created_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (user_id, blocked_id) DO NOTHING`,
		userID, blockedID,
	)
	if err != nil {
		return storeError("ブロックの作成に失敗しました", err)
	}
	return nil
}

// Unblock はブロックを解除する。
func (r *PostgresUserRepo) Unblock(ctx context.Context, userID, blockedID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM blocks WHERE user_id = $1 AND blocked_id = $2`,
		userID, blockedID,
	)
	if err != nil {
		return storeError("ブロックの解除に失敗しました", err)
	}
	return nil
}

// nullString は空文字列をsql.NullStringに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
