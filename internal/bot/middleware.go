package bot

import (
	"sync"

	"golang.org/x/time/rate"
)

func (b *Bot) withRecovery(handler func()) {
	defer func() {
		if r := recover(); r != nil {
			if b.metrics != nil {
				b.metrics.ErrorsTotal.Inc()
			}
			b.logger.Error().Interface("panic", r).Msg("Recovered from panic in update handler")
		}
	}()
	handler()
}

// chatLimiter keeps one token bucket per chat.
type chatLimiter struct {
	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newChatLimiter(perSecond float64, burst int) *chatLimiter {
	if burst <= 0 {
		burst = 5
	}
	return &chatLimiter{limiters: make(map[int64]*rate.Limiter), limit: rate.Limit(perSecond), burst: burst}
}

func (l *chatLimiter) allow(chatID int64) bool {
	if l == nil || l.limit <= 0 {
		return true
	}
	l.mu.Lock()
	lim, ok := l.limiters[chatID]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[chatID] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
