package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/futig/formchat-backend/internal/telegram/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	inactiveUserTTL = time.Hour
	warningInterval = 30 * time.Second
)

// userLimit is the token bucket of a single user
type userLimit struct {
	mu            sync.Mutex
	tokens        float64
	lastRefill    time.Time
	lastWarningAt time.Time
}

// RateLimiterMiddleware implements token bucket rate limiting per user.
// Buckets of users that went quiet expire from the cache.
type RateLimiterMiddleware struct {
	limits     *cache.Cache
	mu         sync.Mutex
	maxTokens  float64
	refillRate float64 // tokens per second
	logger     *zap.Logger
	sender     Sender
	now        func() time.Time
}

// NewRateLimiterMiddleware allows requestsPerMinute on average with bursts of burstSize
func NewRateLimiterMiddleware(requestsPerMinute, burstSize int, logger *zap.Logger, sender Sender) *RateLimiterMiddleware {
	if burstSize <= 0 {
		burstSize = 1
	}
	return &RateLimiterMiddleware{
		limits:     cache.New(inactiveUserTTL, 10*time.Minute),
		maxTokens:  float64(burstSize),
		refillRate: float64(requestsPerMinute) / 60.0,
		logger:     logger,
		sender:     sender,
		now:        time.Now,
	}
}

// Handle drops the update when its user is over the limit
func (rl *RateLimiterMiddleware) Handle(update tgbotapi.Update, next func(tgbotapi.Update)) {
	userID, chatID, ok := updateChat(update)
	if !ok {
		next(update)
		return
	}

	if !rl.allowRequest(userID, chatID) {
		rl.logger.Warn("rate limit exceeded",
			zap.Int64("user_id", userID),
			zap.Int64("chat_id", chatID),
		)
		return
	}

	next(update)
}

func (rl *RateLimiterMiddleware) bucket(userID int64, now time.Time) *userLimit {
	key := strconv.FormatInt(userID, 10)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if x, found := rl.limits.Get(key); found {
		rl.limits.SetDefault(key, x)
		return x.(*userLimit)
	}
	limit := &userLimit{tokens: rl.maxTokens, lastRefill: now}
	rl.limits.SetDefault(key, limit)
	return limit
}

func (rl *RateLimiterMiddleware) allowRequest(userID, chatID int64) bool {
	now := rl.now()
	limit := rl.bucket(userID, now)

	limit.mu.Lock()
	defer limit.mu.Unlock()

	elapsed := now.Sub(limit.lastRefill).Seconds()
	limit.tokens = min(rl.maxTokens, limit.tokens+elapsed*rl.refillRate)
	limit.lastRefill = now

	if limit.tokens >= 1.0 {
		limit.tokens -= 1.0
		return true
	}

	if now.Sub(limit.lastWarningAt) > warningInterval {
		limit.lastWarningAt = now
		rl.sendWarning(chatID)
	}
	return false
}

func (rl *RateLimiterMiddleware) sendWarning(chatID int64) {
	if _, err := rl.sender.Send(tgbotapi.NewMessage(chatID, render.ErrRateLimited)); err != nil {
		rl.logger.Error("failed to send rate limit warning",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
	}
}
