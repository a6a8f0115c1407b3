package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/woogie/woogie-server/internal/model"
)

// PostgresEventRepo はPostgreSQLを使用したイベントリポジトリ。
type PostgresEventRepo struct {
	db *sql.DB
}

// NewPostgresEventRepo はPostgresEventRepoを生成する。
func NewPostgresEventRepo(db *sql.DB) *PostgresEventRepo {
	return &PostgresEventRepo{db: db}
}

// FindByID は指定IDのイベントを取得する。見つからない場合はnilを返す。
func (r *PostgresEventRepo) FindByID(ctx context.Context, id string) (*model.Event, error) {
	event := &model.Event{}
	var text, photo sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, author_id, title, text, photo, time, slots, latitude, longitude, created_at
		 FROM events WHERE id = $1`,
		id,
	).Scan(
		&event.ID, &event.AuthorID, &event.Title, &text, &photo,
		&event.Time, &event.Slots, &event.Latitude, &event.Longitude, &event.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("イベントの取得に失敗しました", err)
	}

	event.Text = nullStringValue(text)
	event.Photo = nullStringValue(photo)

	return event, nil
}

// Create はイベントを作成する。
func (r *PostgresEventRepo) Create(ctx context.Context, event *model.Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO events (id, author_id, title, text, photo, time, slots, latitude, longitude, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		event.ID, event.AuthorID, event.Title, nullString(event.Text), nullString(event.Photo),
		event.Time, event.Slots, event.Latitude, event.Longitude, event.CreatedAt,
	)
	if err != nil {
		return storeError("イベントの作成に失敗しました", err)
	}
	return nil
}

// Delete は指定IDのイベントを削除する。
func (r *PostgresEventRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return storeError("イベントの削除に失敗しました", err)
	}
	return nil
}

// HasMatches はイベントを参照するマッチが存在するかを返す。
func (r *PostgresEventRepo) HasMatches(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM matches WHERE event_id = $1)`,
		eventID,
	).Scan(&exists)
	if err != nil {
		return false, storeError("マッチ有無の確認に失敗しました", err)
	}
	return exists, nil
}

// ListSince は開催時刻がcutoff以降のイベントを作者サマリと全マッチ付きで取得する。
// 作者のrating降順で返す。マッチはイベントID一括指定の2本目のクエリで取得し、
// イベント側にまとめてからスナップショットとして返す。
func (r *PostgresEventRepo) ListSince(ctx context.Context, cutoff time.Time) ([]model.EventWithGraph, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.id, e.author_id, e.title, e.text, e.photo, e.time, e.slots,
		        e.latitude, e.longitude, e.created_at,
		        u.name, u.photo, u.stars, u.rating
		 FROM events e
		 INNER JOIN users u ON e.author_id = u.id
		 WHERE e.time >= $1
		 ORDER BY u.rating DESC`,
		cutoff,
	)
	if err != nil {
		return nil, storeError("候補イベントの取得に失敗しました", err)
	}
	defer rows.Close()

	var result []model.EventWithGraph
	var eventIDs []string
	indexByID := make(map[string]int)

	for rows.Next() {
		var ewg model.EventWithGraph
		var text, photo, authorPhoto sql.NullString

		if err := rows.Scan(
			&ewg.Event.ID, &ewg.Event.AuthorID, &ewg.Event.Title, &text, &photo,
			&ewg.Event.Time, &ewg.Event.Slots, &ewg.Event.Latitude, &ewg.Event.Longitude,
			&ewg.Event.CreatedAt,
			&ewg.Author.Name, &authorPhoto, &ewg.Author.Stars, &ewg.Author.Rating,
		); err != nil {
			return nil, storeError("候補イベントの読み取りに失敗しました", err)
		}

		ewg.Event.Text = nullStringValue(text)
		ewg.Event.Photo = nullStringValue(photo)
		ewg.Author.ID = ewg.Event.AuthorID
		ewg.Author.Photo = nullStringValue(authorPhoto)

		indexByID[ewg.Event.ID] = len(result)
		eventIDs = append(eventIDs, ewg.Event.ID)
		result = append(result, ewg)
	}

	if err := rows.Err(); err != nil {
		return nil, storeError("候補イベントの走査に失敗しました", err)
	}

	if len(eventIDs) == 0 {
		return result, nil
	}

	matchRows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, event_id, accepted, dismissed, created_at
		 FROM matches WHERE event_id = ANY($1)`,
		pq.Array(eventIDs),
	)
	if err != nil {
		return nil, storeError("候補イベントのマッチ取得に失敗しました", err)
	}
	defer matchRows.Close()

	for matchRows.Next() {
		var m model.Match
		if err := matchRows.Scan(
			&m.ID, &m.UserID, &m.EventID, &m.Accepted, &m.Dismissed, &m.CreatedAt,
		); err != nil {
			return nil, storeError("マッチの読み取りに失敗しました", err)
		}
		if i, ok := indexByID[m.EventID]; ok {
			result[i].Matches = append(result[i].Matches, m)
		}
	}

	if err := matchRows.Err(); err != nil {
		return nil, storeError("マッチの走査に失敗しました", err)
	}

	return result, nil
}

// LastByAuthor は作者の最新イベント（開催時刻がcutoff以降）を未承認マッチ付きで取得する。
// 見つからない場合はnilを返す。
func (r *PostgresEventRepo) LastByAuthor(ctx context.Context, authorID string, cutoff time.Time) (*model.EventWithGraph, error) {
	ewg := &model.EventWithGraph{}
	var text, photo, authorPhoto sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT e.id, e.author_id, e.title, e.text, e.photo, e.time, e.slots,
		        e.latitude, e.longitude, e.created_at,
		        u.name, u.photo, u.stars, u.rating
		 FROM events e
		 INNER JOIN users u ON e.author_id = u.id
		 WHERE e.author_id = $1 AND e.time >= $2
		 ORDER BY e.created_at DESC
		 LIMIT 1`,
		authorID, cutoff,
	).Scan(
		&ewg.Event.ID, &ewg.Event.AuthorID, &ewg.Event.Title, &text, &photo,
		&ewg.Event.Time, &ewg.Event.Slots, &ewg.Event.Latitude, &ewg.Event.Longitude,
		&ewg.Event.CreatedAt,
		&ewg.Author.Name, &authorPhoto, &ewg.Author.Stars, &ewg.Author.Rating,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("最新イベントの取得に失敗しました", err)
	}

	ewg.Event.Text = nullStringValue(text)
	ewg.Event.Photo = nullStringValue(photo)
	ewg.Author.ID = ewg.Event.AuthorID
	ewg.Author.Photo = nullStringValue(authorPhoto)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, event_id, accepted, dismissed, created_at
		 FROM matches
		 WHERE event_id = $1 AND accepted = false AND dismissed = false
		 ORDER BY created_at ASC`,
		ewg.Event.ID,
	)
	if err != nil {
		return nil, storeError("未承認マッチの取得に失敗しました", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m model.Match
		if err := rows.Scan(
			&m.ID, &m.UserID, &m.EventID, &m.Accepted, &m.Dismissed, &m.CreatedAt,
		); err != nil {
			return nil, storeError("未承認マッチの読み取りに失敗しました", err)
		}
		ewg.Matches = append(ewg.Matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, storeError("未承認マッチの走査に失敗しました", err)
	}

	return ewg, nil
}

// compile-time interface check
var _ EventRepository = (*PostgresEventRepo)(nil)
