package repository

import (
	"context"
	"database/sql"

	"github.com/woogie/woogie-server/internal/model"
)

// PostgresReviewRepo はPostgreSQLを使用したレビューリポジトリ。
type PostgresReviewRepo struct {
	db *sql.DB
}

// NewPostgresReviewRepo はPostgresReviewRepoを生成する。
func NewPostgresReviewRepo(db *sql.DB) *PostgresReviewRepo {
	return &PostgresReviewRepo{db: db}
}

// Upsert はレビューを(author_id, user_id)の組で冪等にUPSERTする。
// 同じ組への再投稿は星数と本文を上書きする。
func (r *PostgresReviewRepo) Upsert(ctx context.Context, review *model.Review) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reviews (id, author_id, user_id, stars, text, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (author_id, user_id)
		 DO UPDATE SET stars = EXCLUDED.stars, text = EXCLUDED.text, updated_at = EXCLUDED.updated_at`,
		review.ID, review.AuthorID, review.UserID, review.Stars,
		nullString(review.Text), review.CreatedAt, review.UpdatedAt,
	)
	if err != nil {
		return storeError("レビューの保存に失敗しました", err)
	}
	return nil
}

// ListStarsByUser は指定ユーザーが受けた全レビューの星数を返す。
func (r *PostgresReviewRepo) ListStarsByUser(ctx context.Context, userID string) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT stars FROM reviews WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, storeError("レビューの取得に失敗しました", err)
	}
	defer rows.Close()

	var stars []int
	for rows.Next() {
		var s int
		if err := rows.Scan(&s); err != nil {
			return nil, storeError("レビューの読み取りに失敗しました", err)
		}
		stars = append(stars, s)
	}

	if err := rows.Err(); err != nil {
		return nil, storeError("レビューの走査に失敗しました", err)
	}

	return stars, nil
}

// compile-time interface check
var _ ReviewRepository = (*PostgresReviewRepo)(nil)
