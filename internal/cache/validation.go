package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/boutique-shift/backend/internal/scheduler"
	"golang.org/x/sync/singleflight"
)

const (
	ValidationKeyPrefix = "validation:"
	generationKeyPrefix = "validation-gen:"
	generationTTL       = 24 * time.Hour
	scanCount           = 100
)

// allGenerationKey InvalidateAll 时递增，所有门店、所有日期的写回都会被拒绝
const allGenerationKey = generationKeyPrefix + "all"

// setIfCurrent 计算期间有过失效（代数变化）时放弃写回，避免把旧结果缓存一整个 TTL
var setIfCurrent = redis.NewScript(`
if (redis.call('GET', KEYS[2]) or '0') ~= ARGV[2] or (redis.call('GET', KEYS[3]) or '0') ~= ARGV[3] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[4])
return 1
`)

// ValidationKey 同一天在不同门店的校验结果分开缓存，scope 为空表示所有门店
func ValidationKey(date time.Time, scope string) string {
	return fmt.Sprintf("%s%s:%s", ValidationKeyPrefix, scheduler.DateKey(date), scope)
}

func generationKey(date time.Time, scope string) string {
	return fmt.Sprintf("%s%s:%s", generationKeyPrefix, scheduler.DateKey(date), scope)
}

func generation(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return "0"
}

// ValidationCache 基于 redis 的校验结果缓存，可以被多个请求并发使用
type ValidationCache struct {
	rdb *redis.Client
	ttl time.Duration
	sf  *singleflight.Group
}

func NewValidationCache(rdb *redis.Client, ttl time.Duration) *ValidationCache {
	return &ValidationCache{
		rdb: rdb,
		ttl: ttl,
		sf:  &singleflight.Group{},
	}
}

func (c *ValidationCache) GetOrLoad(ctx context.Context, date time.Time, scope string, load func(ctx context.Context) ([]scheduler.ValidationResult, error)) ([]scheduler.ValidationResult, error) {
	key := ValidationKey(date, scope)

	// 1. 先查 redis，redis 不可用时直接重新计算
	cached, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		var results []scheduler.ValidationResult
		if err := json.Unmarshal([]byte(cached), &results); err == nil {
			return results, nil
		}
		slog.Warn("校验缓存内容无法解析", "key", key)
	case !errors.Is(err, redis.Nil):
		slog.Warn("无法读取校验缓存", "key", key, "error", err)
	}

	// 2. 同一个 key 的并发请求只计算一次
	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// 3. 计算之前记下当前的代数，读不到时本次结果不写回
		genKey := generationKey(date, scope)
		gens, genErr := c.rdb.MGet(ctx, genKey, allGenerationKey).Result()
		if genErr != nil {
			slog.Warn("无法读取校验缓存代数", "key", genKey, "error", genErr)
		}

		results, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if genErr != nil || len(gens) != 2 {
			return results, nil
		}

		// 4. 代数没有变化才写回 redis，失败不影响本次结果
		data, err := json.Marshal(results)
		if err != nil {
			return nil, err
		}
		written, err := setIfCurrent.Run(ctx, c.rdb,
			[]string{key, genKey, allGenerationKey},
			string(data), generation(gens[0]), generation(gens[1]), c.ttl.Milliseconds(),
		).Int()
		switch {
		case err != nil:
			slog.Warn("无法写入校验缓存", "key", key, "error", err)
		case written == 0:
			slog.Debug("计算期间缓存已失效，放弃写回", "key", key)
		}

		return results, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]scheduler.ValidationResult), nil
}

// Invalidate 删除 date 当天指定门店以及不限门店视图的缓存
// 先递增代数再删除，正在计算中的旧结果不会再被写回
func (c *ValidationCache) Invalidate(ctx context.Context, date time.Time, scopes ...string) error {
	all := []string{""}
	for _, scope := range scopes {
		if scope != "" {
			all = append(all, scope)
		}
	}

	keys := make([]string, 0, len(all))
	for _, scope := range all {
		genKey := generationKey(date, scope)
		if err := c.rdb.Incr(ctx, genKey).Err(); err != nil {
			return err
		}
		if err := c.rdb.Expire(ctx, genKey, generationTTL).Err(); err != nil {
			return err
		}

		key := ValidationKey(date, scope)
		c.sf.Forget(key)
		keys = append(keys, key)
	}

	return c.rdb.Del(ctx, keys...).Err()
}

// InvalidateAll 在无法确定影响范围时使用，例如修改了某个星期几的排班规则
func (c *ValidationCache) InvalidateAll(ctx context.Context) error {
	if err := c.rdb.Incr(ctx, allGenerationKey).Err(); err != nil {
		return err
	}

	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, ValidationKeyPrefix+"*", scanCount).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
