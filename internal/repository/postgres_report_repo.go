package repository

import (
	"context"
	"database/sql"

	"github.com/woogie/woogie-server/internal/model"
)

// PostgresReportRepo はPostgreSQLを使用した通報リポジトリ。
type PostgresReportRepo struct {
	db *sql.DB
}

// NewPostgresReportRepo はPostgresReportRepoを生成する。
func NewPostgresReportRepo(db *sql.DB) *PostgresReportRepo {
	return &PostgresReportRepo{db: db}
}

// Create は通報を作成する。
func (r *PostgresReportRepo) Create(ctx context.Context, report *model.Report) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reports (id, reporter_id, target_type, target_id, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		report.ID, report.ReporterID, report.TargetType, report.TargetID,
		nullString(report.Reason), report.CreatedAt,
	)
	if err != nil {
		return storeError("通報の作成に失敗しました", err)
	}
	return nil
}

// compile-time interface check
var _ ReportRepository = (*PostgresReportRepo)(nil)
