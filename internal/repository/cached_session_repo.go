package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/gatekey/internal/cache"
	"github.com/hitoshi/gatekey/internal/metrics"
	"github.com/hitoshi/gatekey/internal/model"
)

// sessionCacheKeyPrefix はセッションキャッシュのキープレフィックス。
const sessionCacheKeyPrefix = "session:token:"

// CachedSessionRepo はRedisキャッシュを手前に置いた読み取りスルーのセッションリポジトリ。
// キャッシュ障害は認証を失敗させず、永続ストアへフォールバックする。
// 同一トークンに対するキャッシュ投入の競合は、値がトークンに対して決定的であるため安全。
type CachedSessionRepo struct {
	inner   SessionRepository
	cache   *cache.Cache
	ttl     time.Duration
	metrics metrics.MetricsCollector
}

// NewCachedSessionRepo はCachedSessionRepoを生成する。
func NewCachedSessionRepo(inner SessionRepository, c *cache.Cache, ttl time.Duration, collector metrics.MetricsCollector) *CachedSessionRepo {
	if collector == nil {
		collector = metrics.Noop{}
	}
	return &CachedSessionRepo{
		inner:   inner,
		cache:   c,
		ttl:     ttl,
		metrics: collector,
	}
}

// FindByToken はキャッシュを先に参照し、ミス時は永続ストアから読み込んでキャッシュに投入する。
// 期限切れセッションもキャッシュ・返却の対象であり、有効性判定は呼び出し側が行う。
func (r *CachedSessionRepo) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	key := sessionCacheKeyPrefix + token

	var cached model.Session
	found, err := r.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		// キャッシュ障害時は永続ストアへフォールバックする
		slog.Warn("session cache read failed, falling back to store",
			slog.String("error", err.Error()),
		)
	}
	if found {
		r.metrics.RecordCacheHit("session")
		return &cached, nil
	}
	r.metrics.RecordCacheMiss("session")

	session, err := r.inner.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	if err := r.cache.SetJSON(ctx, key, session, r.ttl); err != nil {
		slog.Warn("session cache write failed",
			slog.String("error", err.Error()),
		)
	}

	return session, nil
}

// UpdateLastSeen は永続ストアへそのまま委譲する。
// キャッシュ上のセッションは認証判定に使うフィールド（user_id, expires_at）しか
// 参照されないため、last-seenの更新でキャッシュを無効化する必要はない。
func (r *CachedSessionRepo) UpdateLastSeen(ctx context.Context, touches []SessionTouch) error {
	return r.inner.UpdateLastSeen(ctx, touches)
}

// compile-time interface check
var _ SessionRepository = (*CachedSessionRepo)(nil)
