package utils

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"github.com/bracket-esports/bracket/common/logger"
)

// LoggingInterceptor logs every unary gRPC call with its duration.
func LoggingInterceptor(log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			log.Warn("gRPC call failed", "method", info.FullMethod, "duration", time.Since(start), "error", err)
			return resp, err
		}
		log.Debug("gRPC call", "method", info.FullMethod, "duration", time.Since(start))
		return resp, err
	}
}
