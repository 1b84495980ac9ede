package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/gatekey/internal/cache"
	"github.com/hitoshi/gatekey/internal/metrics"
	"github.com/hitoshi/gatekey/internal/model"
)

// userCacheKeyPrefix はユーザーキャッシュのキープレフィックス。
const userCacheKeyPrefix = "user:id:"

// CachedUserRepo はRedisキャッシュを手前に置いた読み取りスルーのユーザーリポジトリ。
// CachedSessionRepoと同じ方針でキャッシュ障害時は永続ストアへフォールバックする。
type CachedUserRepo struct {
	inner   UserRepository
	cache   *cache.Cache
	ttl     time.Duration
	metrics metrics.MetricsCollector
}

// NewCachedUserRepo はCachedUserRepoを生成する。
func NewCachedUserRepo(inner UserRepository, c *cache.Cache, ttl time.Duration, collector metrics.MetricsCollector) *CachedUserRepo {
	if collector == nil {
		collector = metrics.Noop{}
	}
	return &CachedUserRepo{
		inner:   inner,
		cache:   c,
		ttl:     ttl,
		metrics: collector,
	}
}

// FindByID はキャッシュを先に参照し、ミス時は永続ストアから読み込んでキャッシュに投入する。
func (r *CachedUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	key := userCacheKeyPrefix + id

	var cached model.User
	found, err := r.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		slog.Warn("user cache read failed, falling back to store",
			slog.String("error", err.Error()),
		)
	}
	if found {
		r.metrics.RecordCacheHit("user")
		return &cached, nil
	}
	r.metrics.RecordCacheMiss("user")

	user, err := r.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	if err := r.cache.SetJSON(ctx, key, user, r.ttl); err != nil {
		slog.Warn("user cache write failed",
			slog.String("error", err.Error()),
		)
	}

	return user, nil
}

// compile-time interface check
var _ UserRepository = (*CachedUserRepo)(nil)
