package cache

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/domain"
)

// ProgressCache 将每个岛屿的最新进度存放在一个 redis hash 中，field 为岛屿 ID
type ProgressCache struct {
	rdb        *redis.Client
	expiration time.Duration
}

func NewProgressCache(rdb *redis.Client, expiration time.Duration) *ProgressCache {
	return &ProgressCache{rdb: rdb, expiration: expiration}
}

func progressKey(runID int64) string {
	return fmt.Sprintf("run_%d_progress", runID)
}

func (c *ProgressCache) Save(ctx context.Context, progress *domain.RunProgress) error {
	data, err := json.Marshal(progress)
	if err != nil {
		return err
	}

	key := progressKey(progress.RunID)
	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, key, strconv.Itoa(progress.WorkerID), data)
	pipe.Expire(ctx, key, c.expiration)
	_, err = pipe.Exec(ctx)
	return err
}

// Get 返回按岛屿 ID 排序的进度，任务不存在或已过期时返回空切片
func (c *ProgressCache) Get(ctx context.Context, runID int64) ([]*domain.RunProgress, error) {
	fields, err := c.rdb.HGetAll(ctx, progressKey(runID)).Result()
	if err != nil {
		return nil, err
	}
	return decodeProgress(fields)
}

func (c *ProgressCache) Clear(ctx context.Context, runID int64) error {
	return c.rdb.Del(ctx, progressKey(runID)).Err()
}

func decodeProgress(fields map[string]string) ([]*domain.RunProgress, error) {
	progress := make([]*domain.RunProgress, 0, len(fields))
	for field, value := range fields {
		p := &domain.RunProgress{}
		if err := json.Unmarshal([]byte(value), p); err != nil {
			return nil, fmt.Errorf("岛屿 %s 的进度格式错误: %w", field, err)
		}
		progress = append(progress, p)
	}

	slices.SortFunc(progress, func(a, b *domain.RunProgress) int {
		return cmp.Compare(a.WorkerID, b.WorkerID)
	})
	return progress, nil
}
