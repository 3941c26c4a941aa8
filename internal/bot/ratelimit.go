package bot

import (
	"sync"
	"time"
)

// RateLimiter 按用户的最小调用间隔限制
// 默认关闭；内存态，不做持久化
type RateLimiter struct {
	mu       sync.Mutex
	enabled  bool
	cooldown time.Duration
	lastSeen map[string]time.Time
}

// NewRateLimiter 创建限流器
func NewRateLimiter(enabled bool, cooldown time.Duration) *RateLimiter {
	return &RateLimiter{
		enabled:  enabled,
		cooldown: cooldown,
		lastSeen: make(map[string]time.Time),
	}
}

// Allow 判断用户此刻是否允许调用
// 允许时记录本次调用时间；拒绝时不更新，冷却窗口不被拒绝请求顺延
func (r *RateLimiter) Allow(userID string, now time.Time) bool {
	if !r.enabled {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if last, ok := r.lastSeen[userID]; ok {
		if now.Sub(last) < r.cooldown {
			return false
		}
	}

	r.lastSeen[userID] = now
	return true
}
