package trace

import (
	"encoding/json"
	"net/http"
)

// Middleware tags each request with session and a trace context taken from
// the request headers, and echoes the trace id on the response.
func Middleware(session string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tc := extractFromHeaders(r)
			w.Header().Set(TraceIDKey, tc.TraceID)

			ctx := WithContext(r.Context(), tc)
			if session != "" {
				ctx = WithSession(ctx, session)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractFromHeaders(r *http.Request) Context {
	tc := Context{
		TraceID:      r.Header.Get(TraceIDKey),
		ParentSpanID: r.Header.Get(SpanIDKey),
		SpanID:       generateSpanID(),
	}
	if tc.TraceID == "" {
		tc.TraceID = generateTraceID()
	}
	return tc
}

// ExtractFromJSON reads trace_id from a WebSocket message so a client action
// joins the client's trace. It reports whether an id was present.
func ExtractFromJSON(data []byte) (Context, bool) {
	var msg struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(data, &msg); err != nil || msg.TraceID == "" {
		return New(), false
	}
	return Context{TraceID: msg.TraceID, SpanID: generateSpanID()}, true
}
