package observability

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// TraceHeader echoes the request trace id back to the client.
const TraceHeader = "X-Trace-Id"

type traceIDKey struct{}

// WithTraceID stores id in ctx.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, id)
}

// TraceIDFromContext returns the request trace id, or "" outside a request.
func TraceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}

// NewTraceID returns a random 32-hex-digit id.
func NewTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// TraceIDMiddleware assigns every request a trace id. The active OpenTelemetry
// trace id is reused when a span is recording, so logs, error bodies and
// exported traces correlate.
func TraceIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
			id = sc.TraceID().String()
		}
		if id == "" {
			id = NewTraceID()
		}
		w.Header().Set(TraceHeader, id)
		next.ServeHTTP(w, r.WithContext(WithTraceID(r.Context(), id)))
	})
}
