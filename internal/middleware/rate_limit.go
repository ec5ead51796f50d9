package middleware

import (
	"sync"
	"time"

	"handover-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const limiterIdle = 30 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per client. Clients are keyed by
// session user id when logged in, otherwise by IP.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	every   rate.Limit
	burst   int
	now     func() time.Time
}

// NewRateLimiter allows perMinute requests per client with the given burst.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 30
	}
	if burst <= 0 {
		burst = perMinute
	}
	return &RateLimiter{
		clients: make(map[string]*clientLimiter),
		every:   rate.Limit(float64(perMinute) / 60),
		burst:   burst,
		now:     time.Now,
	}
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cl, ok := rl.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.every, rl.burst)}
		rl.clients[key] = cl
		// drop idle clients while holding the lock; the map stays small
		for k, other := range rl.clients {
			if now.Sub(other.lastSeen) > limiterIdle && k != key {
				delete(rl.clients, k)
			}
		}
	}
	cl.lastSeen = now
	return cl.limiter
}

// Limit rejects the request with 429 once the client's bucket is empty.
func (rl *RateLimiter) Limit() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := "ip:" + c.IP()
		if actor, ok := ActorFrom(c); ok {
			key = "user:" + actor.UserID.String()
		}
		if !rl.get(key).AllowN(rl.now(), 1) {
			log.Warn().Str("client", key).Str("path", c.Path()).Msg("rate limit exceeded")
			return response.Error(c, "Too many requests, slow down", fiber.StatusTooManyRequests, nil)
		}
		return c.Next()
	}
}
