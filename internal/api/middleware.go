package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/RishiKendai/codenest/internal/models"
)

const limiterIdleTTL = time.Hour

// JWTAuthMiddleware validates HMAC signed bearer tokens. When issuer is set
// the token's iss claim must match it.
func JWTAuthMiddleware(secret, issuer string) gin.HandlerFunc {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Error: "Authorization header required",
				Code:  "UNAUTHORIZED",
			})
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Error: "Invalid authorization header format",
				Code:  "UNAUTHORIZED",
			})
			return
		}

		tokenString := parts[1]

		token, err := parser.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Error: "Invalid or expired token",
				Code:  "UNAUTHORIZED",
			})
			return
		}

		// Rate limiting is keyed by api_key, or by subject
		key := tokenString
		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if apiKey, ok := claims["api_key"].(string); ok && apiKey != "" {
				key = apiKey
			} else if sub, err := claims.GetSubject(); err == nil && sub != "" {
				key = sub
			}
		}
		c.Set("api_key", key)

		c.Next()
	}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter manages rate limiting per API key
type RateLimiter struct {
	limiters  map[string]*limiterEntry
	mu        sync.Mutex
	rps       float64
	burst     int
	lastSweep time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters:  make(map[string]*limiterEntry),
		rps:       rps,
		burst:     max(1, burst),
		lastSweep: time.Now(),
	}
}

// GetLimiter gets or creates a limiter for an API key
func (rl *RateLimiter) GetLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastSweep) > limiterIdleTTL {
		rl.sweep(now)
	}

	entry, exists := rl.limiters[key]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(rl.rps), rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = now

	return entry.limiter
}

// sweep drops limiters idle for longer than limiterIdleTTL; mu must be held
func (rl *RateLimiter) sweep(now time.Time) {
	for key, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(rl.limiters, key)
		}
	}
	rl.lastSweep = now
}

// RateLimitMiddleware creates rate limiting middleware
func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString("api_key")
		if key == "" {
			key = c.ClientIP() // Fallback to IP if no API key
		}

		if !limiter.GetLimiter(key).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error: "Rate limit exceeded",
				Code:  "RATE_LIMIT_EXCEEDED",
			})
			return
		}

		c.Next()
	}
}

// ErrorHandlerMiddleware handles errors and returns standard format
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()
			log.Error().Err(err).Str("path", c.FullPath()).Msg("Request error")

			if c.Writer.Written() {
				return
			}
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error: err.Error(),
				Code:  "INTERNAL_ERROR",
			})
		}
	}
}
