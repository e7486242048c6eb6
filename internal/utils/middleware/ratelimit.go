package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/uniedit/photos/internal/port/outbound"
	apperrors "github.com/uniedit/photos/internal/utils/errors"
	"github.com/uniedit/photos/internal/utils/requestctx"
	"go.uber.org/zap"
)

const (
	// RateLimitLimit is the header for the limit.
	RateLimitLimit = "X-RateLimit-Limit"
	// RateLimitRemaining is kept for clients that only check for exhaustion.
	RateLimitRemaining = "X-RateLimit-Remaining"
	// RetryAfter is the header for retry time.
	RetryAfter = "Retry-After"

	// AccountIDHeader lets callers name the account explicitly.
	AccountIDHeader = "X-Account-ID"
	// AccountIDKey is the gin context key the resolved account is stored under.
	AccountIDKey = "account_id"
)

// RateLimitConfig holds rate limit configuration.
type RateLimitConfig struct {
	// Limit is the maximum number of requests per window. Zero disables limiting.
	Limit int
	// Window is the time window.
	Window time.Duration
	// KeyFunc generates the rate limit key from request.
	// Default uses the account, falling back to client IP.
	KeyFunc func(*gin.Context) string
	// SkipFunc determines if the request should skip rate limiting.
	SkipFunc func(*gin.Context) bool
	Logger   *zap.Logger
}

// RateLimit returns a middleware that limits requests using the given limiter.
// Limiter errors fail open.
func RateLimit(limiter outbound.RateLimiterPort, cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = AccountKey
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		if limiter == nil || cfg.Limit <= 0 {
			c.Next()
			return
		}
		if cfg.SkipFunc != nil && cfg.SkipFunc(c) {
			c.Next()
			return
		}

		key := cfg.KeyFunc(c)
		allowed, err := limiter.Allow(c.Request.Context(), key, cfg.Limit, cfg.Window)
		if err != nil {
			cfg.Logger.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		c.Header(RateLimitLimit, strconv.Itoa(cfg.Limit))
		if !allowed {
			retryAfter := int(cfg.Window.Seconds())
			c.Header(RateLimitRemaining, "0")
			c.Header(RetryAfter, strconv.Itoa(retryAfter))
			appErr := apperrors.RateLimited("too many requests, please try again later").
				WithDetails(map[string]any{"retry_after_seconds": retryAfter})
			c.AbortWithStatusJSON(appErr.StatusCode, appErr.ToResponse())
			return
		}

		c.Next()
	}
}

// RateLimitByAccount limits mutating requests per account.
func RateLimitByAccount(limiter outbound.RateLimiterPort, limit int, window time.Duration, log *zap.Logger) gin.HandlerFunc {
	return RateLimit(limiter, RateLimitConfig{
		Limit:  limit,
		Window: window,
		Logger: log,
		SkipFunc: func(c *gin.Context) bool {
			return c.Request.Method == http.MethodGet || c.Request.Method == http.MethodOptions
		},
	})
}

// AccountKey resolves the account a request acts on from the header, the
// query string or the JSON body, in that order, and falls back to the client
// IP. The body is read through gin's body cache so handlers can bind it again
// with ShouldBindBodyWith.
func AccountKey(c *gin.Context) string {
	accountID := ResolveAccountID(c)
	if accountID == "" {
		return "ip:" + c.ClientIP()
	}
	return "account:" + accountID
}

// ResolveAccountID returns the account named by the request, or "".
func ResolveAccountID(c *gin.Context) string {
	if id := c.GetString(AccountIDKey); id != "" {
		return id
	}

	id := c.GetHeader(AccountIDHeader)
	if id == "" {
		id = c.Query("account_id")
	}
	if id == "" && c.Request.Body != nil && c.ContentType() == binding.MIMEJSON {
		var body struct {
			AccountID string `json:"account_id"`
		}
		if err := c.ShouldBindBodyWith(&body, binding.JSON); err == nil {
			id = body.AccountID
		}
	}

	if id != "" {
		c.Set(AccountIDKey, id)
		c.Request = c.Request.WithContext(requestctx.WithAccountID(c.Request.Context(), id))
	}
	return id
}
