// Package requestctx carries per-request identifiers through context.Context
// so that code below the HTTP layer can tag logs without importing gin.
package requestctx

import "context"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	accountIDKey
)

func with(ctx context.Context, key ctxKey, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, value)
}

func get(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(key).(string)
	return s
}

// WithRequestID returns ctx carrying the request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return with(ctx, requestIDKey, requestID)
}

// RequestID returns the request id, or "".
func RequestID(ctx context.Context) string {
	return get(ctx, requestIDKey)
}

// WithAccountID returns ctx carrying the account the request acts on.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return with(ctx, accountIDKey, accountID)
}

// AccountID returns the account id, or "".
func AccountID(ctx context.Context) string {
	return get(ctx, accountIDKey)
}
