package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/woogie/woogie-server/internal/config"
	"github.com/woogie/woogie-server/internal/geo"
	"github.com/woogie/woogie-server/internal/metrics"
	"github.com/woogie/woogie-server/internal/model"
)

// UniverseSource はフィード候補の全体集合の供給元。
// テスタビリティのためEventCacheを抽象化する。
type UniverseSource interface {
	Universe(ctx context.Context, cutoff time.Time) ([]model.EventWithGraph, error)
}

// BlockSource はリクエストユーザーのブロックリストの供給元。
type BlockSource interface {
	ListBlockedIDs(ctx context.Context, userID string) ([]string, error)
}

// FeedEngine はリクエストユーザーの位置と状態に応じたフィードを組み立てる。
// 共有スナップショットから除外条件を適用し、距離注釈とレーティング順の並びを付ける。
type FeedEngine struct {
	universe       UniverseSource
	blocks         BlockSource
	cutoffMode     config.CutoffMode
	defaultMaxDist float64
	metrics        metrics.MetricsCollector
	now            func() time.Time
}

// NewFeedEngine はFeedEngineの新しいインスタンスを生成する。
// collectorはnilでもよく、その場合はメトリクスを記録しない。
func NewFeedEngine(
	universe UniverseSource,
	blocks BlockSource,
	cutoffMode config.CutoffMode,
	defaultMaxDist float64,
	collector metrics.MetricsCollector,
) *FeedEngine {
	return &FeedEngine{
		universe:       universe,
		blocks:         blocks,
		cutoffMode:     cutoffMode,
		defaultMaxDist: defaultMaxDist,
		metrics:        collector,
		now:            time.Now,
	}
}

// Compute はリクエストユーザー向けのフィード候補を組み立てる。
// フロー: 座標検証 → 全体集合取得 → ブロックリスト取得 → 除外フィルタ → 距離注釈 → レーティング降順
// スナップショットの要素はコピーして返し、保持データは変更しない。
func (e *FeedEngine) Compute(ctx context.Context, requesterID string, lat, lon, maxDistance float64) ([]model.Candidate, error) {
	start := e.now()
	if e.metrics != nil {
		e.metrics.RecordFeedRequest()
		defer func() {
			e.metrics.RecordFeedLatency(time.Since(start))
		}()
	}

	// 1. 座標検証
	if !geo.ValidLatitude(lat) {
		return nil, model.NewInvalidLocationError(fmt.Sprintf("latitude=%v", lat))
	}
	if !geo.ValidLongitude(lon) {
		return nil, model.NewInvalidLocationError(fmt.Sprintf("longitude=%v", lon))
	}
	if maxDistance <= 0 {
		maxDistance = e.defaultMaxDist
	}

	// 2. 全体集合の取得
	cutoff := CutoffTime(start, e.cutoffMode)
	universe, err := e.universe.Universe(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	// 3. ブロックリストの取得
	blockedIDs, err := e.blocks.ListBlockedIDs(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("ブロックリストの取得に失敗しました: %w", err)
	}
	blocked := make(map[string]bool, len(blockedIDs))
	for _, id := range blockedIDs {
		blocked[id] = true
	}

	// 4. 除外フィルタと距離注釈
	candidates := make([]model.Candidate, 0, len(universe))
	for _, ev := range universe {
		if excludeEvent(&ev, requesterID, blocked, cutoff) {
			continue
		}

		dist := geo.Kilometers(lat, lon, ev.Event.Latitude, ev.Event.Longitude)
		// NaN距離は比較を満たさないため自然に除外される
		if !(dist <= maxDistance) {
			continue
		}

		candidates = append(candidates, model.Candidate{
			Event:      ev.Event,
			Author:     ev.Author,
			DistanceKM: dist,
			Matches:    acceptedMatches(ev.Matches),
		})
	}

	// 5. レーティング降順。同値の相対順はスナップショットの順序を保つ。
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Author.Rating > candidates[j].Author.Rating
	})

	slog.Debug("フィードを組み立て",
		"requester_id", requesterID,
		"candidate_count", len(candidates),
		"universe_count", len(universe),
		"max_distance", maxDistance,
	)

	return candidates, nil
}

// excludeEvent はイベントをフィードから除外すべきかを判定する。
// 除外条件: 開催時刻がカットオフより前 / 自分のイベント / ブロック済み作者 /
// スワイプ済み（状態を問わない） / 募集人数に達している
func excludeEvent(ev *model.EventWithGraph, requesterID string, blocked map[string]bool, cutoff time.Time) bool {
	if ev.Event.Time.Before(cutoff) {
		return true
	}
	if ev.Event.AuthorID == requesterID {
		return true
	}
	if blocked[ev.Event.AuthorID] {
		return true
	}

	accepted := 0
	for _, m := range ev.Matches {
		if m.UserID == requesterID {
			// dismissedを含む全状態で除外。見送りは取り消せない。
			return true
		}
		if m.Accepted {
			accepted++
		}
	}
	return accepted >= ev.Event.Slots
}

// acceptedMatches は承認済みマッチのみを新しいスライスにコピーする。
func acceptedMatches(matches []model.Match) []model.Match {
	out := make([]model.Match, 0, len(matches))
	for _, m := range matches {
		if m.Accepted && !m.Dismissed {
			out = append(out, m)
		}
	}
	return out
}

// CutoffTime はフィード候補の「新しさ」の基準時刻を算出する。
// midnightモードは当日0時、rollingモードは24時間前を返す。
func CutoffTime(now time.Time, mode config.CutoffMode) time.Time {
	if mode == config.CutoffRolling {
		return now.Add(-24 * time.Hour)
	}
	year, month, day := now.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, now.Location())
}
