package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"spaxio-scheduled/config"
)

// QuotaGate 解析额度判定
type QuotaGate interface {
	// CheckQuota 本月是否仍有解析额度（特权用户恒为 true）
	CheckQuota(ctx context.Context, userID string) (bool, error)
	// IsPrivileged 管理员 / 创作者不受额度限制
	IsPrivileged(userID string) bool
	// Consume 消耗一次额度（特权用户不计数）
	Consume(ctx context.Context, userID string) error
}

// QuotaCounter 额度计数存储（pkg/redis.Client 满足此接口）
type QuotaCounter interface {
	GetCount(ctx context.Context, key string) (int64, error)
	IncrWithExpire(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type quotaGate struct {
	counter    QuotaCounter
	limit      int
	privileged map[string]bool
	now        func() time.Time
	logger     *zap.Logger
}

// NewQuotaGate 创建按月计数的额度判定
//
// counter 为 nil 时（Redis 不可用）降级为不限额
func NewQuotaGate(cfg *config.QuotaConfig, counter QuotaCounter, logger *zap.Logger) QuotaGate {
	privileged := make(map[string]bool, len(cfg.AdminIDs)+len(cfg.CreatorIDs))
	for _, id := range cfg.AdminIDs {
		privileged[strings.TrimSpace(id)] = true
	}
	for _, id := range cfg.CreatorIDs {
		privileged[strings.TrimSpace(id)] = true
	}
	return &quotaGate{
		counter:    counter,
		limit:      cfg.MonthlyLimit,
		privileged: privileged,
		now:        time.Now,
		logger:     logger,
	}
}

func (q *quotaGate) IsPrivileged(userID string) bool {
	return q.privileged[userID]
}

func (q *quotaGate) CheckQuota(ctx context.Context, userID string) (bool, error) {
	if q.IsPrivileged(userID) || q.counter == nil {
		return true, nil
	}
	used, err := q.counter.GetCount(ctx, q.key(userID))
	if err != nil {
		// 计数不可读时放行，与 Redis 不可用的降级策略一致
		q.logger.Warn("读取解析额度失败，放行", zap.String("user_id", userID), zap.Error(err))
		return true, nil
	}
	return used < int64(q.limit), nil
}

func (q *quotaGate) Consume(ctx context.Context, userID string) error {
	if q.IsPrivileged(userID) || q.counter == nil {
		return nil
	}
	if _, err := q.counter.IncrWithExpire(ctx, q.key(userID), 32*24*time.Hour); err != nil {
		return fmt.Errorf("扣减解析额度失败: %w", err)
	}
	return nil
}

func (q *quotaGate) key(userID string) string {
	return fmt.Sprintf("quota:extract:%s:%s", userID, q.now().UTC().Format("2006-01"))
}
