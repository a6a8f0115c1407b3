// Package feed はイベントフィードの組み立てとキャッシュを提供する。
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/woogie/woogie-server/internal/metrics"
	"github.com/woogie/woogie-server/internal/model"
)

// EventSource はキャッシュ再取得のデータ供給元。
// テスタビリティのためEventRepositoryを抽象化する。
type EventSource interface {
	ListSince(ctx context.Context, cutoff time.Time) ([]model.EventWithGraph, error)
}

// EventCache はフィード候補の全体集合をTTL付きで保持する。
// スナップショットは全リクエストで共有され、再取得時にまるごと差し替える。
// リクエスト個別の絞り込みはスナップショットに対して行い、保持データは変更しない。
// 失効はTTL経過のみ。イベントやマッチの変更で能動的に破棄することはなく、
// 新しいイベントは最大でTTLの間フィードに現れない。
type EventCache struct {
	source  EventSource
	ttl     time.Duration
	now     func() time.Time
	metrics metrics.MetricsCollector

	mu        sync.RWMutex
	snapshot  []model.EventWithGraph
	expiresAt time.Time
	loaded    bool
}

// NewEventCache はEventCacheの新しいインスタンスを生成する。
// collectorはnilでもよく、その場合はメトリクスを記録しない。
func NewEventCache(source EventSource, ttl time.Duration, collector metrics.MetricsCollector) *EventCache {
	return &EventCache{
		source:  source,
		ttl:     ttl,
		now:     time.Now,
		metrics: collector,
	}
}

// Universe はフィード候補の全体集合を返す。
// 有効なスナップショットがあればそれを返し、期限切れまたは未取得の場合は
// データストアから再取得して差し替える。再取得はロックの外で行い、
// 失敗時は既存スナップショットを汚さずエラーを返す。
func (c *EventCache) Universe(ctx context.Context, cutoff time.Time) ([]model.EventWithGraph, error) {
	c.mu.RLock()
	if c.loaded && c.now().Before(c.expiresAt) {
		snapshot := c.snapshot
		c.mu.RUnlock()
		if c.metrics != nil {
			c.metrics.RecordCacheHit()
		}
		return snapshot, nil
	}
	c.mu.RUnlock()

	if c.metrics != nil {
		c.metrics.RecordCacheMiss()
	}

	// 再取得。同時にミスした複数リクエストがそれぞれ取得する可能性はあるが、
	// 最後に書いたスナップショットが残るだけで整合性は壊れない。
	events, err := c.source.ListSince(ctx, cutoff)
	if err != nil {
		slog.Error("イベントキャッシュの再取得に失敗", "error", err)
		return nil, model.NewUpstreamUnavailableError(err.Error())
	}

	c.mu.Lock()
	c.snapshot = events
	c.expiresAt = c.now().Add(c.ttl)
	c.loaded = true
	c.mu.Unlock()

	slog.Debug("イベントキャッシュを更新", "event_count", len(events), "ttl", c.ttl)
	return events, nil
}
