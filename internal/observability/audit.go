package observability

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Audit emits a structured audit event correlated with the request and
// any active trace. Events get a unique id so downstream pipelines can
// de-duplicate on redelivery.
func Audit(r *http.Request, event string, attrs ...any) {
	base := []any{
		"audit_id", uuid.NewString(),
		"event", event,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", r.Header.Get("X-Request-Id"),
	}
	if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
		base = append(base, "trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String())
	}
	base = append(base, attrs...)
	slog.InfoContext(r.Context(), "audit", base...)
}
