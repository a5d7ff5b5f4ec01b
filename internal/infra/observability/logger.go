package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerOptions configures NewLogger.
type LoggerOptions struct {
	Level   string // debug, info, warn, error
	Mode    string // json, console
	Service string
	Env     string
}

// NewLogger creates a structured zap logger.
// Always uses production base (no stacktraces on Warn).
// Every line carries service and env; the message is emitted as "event".
func NewLogger(opts LoggerOptions) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.MessageKey = "event"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if lvl, err := zapcore.ParseLevel(opts.Level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	if opts.Mode == "console" {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	logger, err := cfg.Build(zap.Fields(
		zap.String("service", opts.Service),
		zap.String("env", opts.Env),
	))
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	return logger
}

// LoggerWithTrace returns logger annotated with the trace id carried by ctx.
func LoggerWithTrace(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if id := TraceIDFromContext(ctx); id != "" {
		return logger.With(zap.String("trace_id", id))
	}
	return logger
}

// ZapLoggerMiddleware logs HTTP requests with zap.
// Uses Warn for 4xx, Error for 5xx, Info for 2xx/3xx.
func ZapLoggerMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				status := ww.Status()
				fields := []zap.Field{
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", status),
					zap.Duration("latency", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("trace_id", TraceIDFromContext(r.Context())),
					zap.String("remote_addr", r.RemoteAddr),
				}

				switch {
				case status >= 500:
					logger.Error("http_request", fields...)
				case status >= 400:
					logger.Warn("http_request", fields...)
				default:
					logger.Info("http_request", fields...)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
