// Package cache はRedisを使用した読み取りスルーキャッシュを提供する。
// セッションストアとユーザールックアップの手前に置かれ、
// 永続ストアへの読み取りを削減する。書き込みの整合性保証は持たない
// （値はキーに対して決定的であり、同時書き込みはlast-writer-winsで安全）。
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// defaultKeyPrefix は全キャッシュキーに付与するプレフィックス。
const defaultKeyPrefix = "gatekey:"

// Cache はRedisクライアントをラップしたJSONキャッシュ。
// プロセス起動時に1回構築し、必要とするコンポーネントへハンドルとして渡す。
type Cache struct {
	client    *redis.Client
	keyPrefix string
}

// New はCacheを生成する。keyPrefixが空の場合はデフォルト値を使用する。
func New(client *redis.Client, keyPrefix string) (*Cache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &Cache{
		client:    client,
		keyPrefix: keyPrefix,
	}, nil
}

// GetJSON は指定キーの値を取得してdestへアンマーシャルする。
// キーが存在しない場合は(false, nil)を返す。
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	result := c.client.Get(ctx, c.buildKey(key))
	if err := result.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache key %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(result.Val()), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value for key %s: %w", key, err)
	}

	return true, nil
}

// SetJSON は値をJSONとして指定TTL付きで保存する。
// ttlが0以下の場合は無期限で保存する。
func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for cache key %s: %w", key, err)
	}

	if ttl < 0 {
		ttl = 0
	}

	if err := c.client.Set(ctx, c.buildKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache key %s: %w", key, err)
	}

	return nil
}

// Delete は指定キーを削除する。キーが存在しない場合もエラーにしない。
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.buildKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete cache key %s: %w", key, err)
	}
	return nil
}

// buildKey はプレフィックス付きのRedisキーを構築する。
func (c *Cache) buildKey(key string) string {
	return c.keyPrefix + key
}
