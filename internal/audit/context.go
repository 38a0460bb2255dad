package audit

import "context"

type requestInfoKey struct{}

type requestInfo struct {
	ip        string
	userAgent string
}

// WithRequest attaches the caller's address and user agent so that entries
// recorded further down the call chain carry them.
func WithRequest(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, requestInfo{ip: ip, userAgent: userAgent})
}

func requestFrom(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	info, ok := ctx.Value(requestInfoKey{}).(requestInfo)
	if !ok {
		return "", ""
	}
	return info.ip, info.userAgent
}
