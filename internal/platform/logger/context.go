package logger

import (
	"context"
	"log/slog"

	"github.com/Ranjeet550/kodeshare-relay/pkg/middleware"
)

func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(middleware.LoggerKey).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}
