package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTracer(t *testing.T) (*Tracer, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	tracer := New("test", zap.New(core))
	return tracer, logs
}

func TestStartSpanContinuesTrace(t *testing.T) {
	tracer, _ := newTracer(t)
	defer tracer.Close()

	parent, ctx := tracer.StartSpan(context.Background(), "parent")
	child, childCtx := tracer.StartSpan(ctx, "child")

	assert.Equal(t, parent.TraceID, child.TraceID)
	assert.Equal(t, parent.SpanID, child.ParentID)
	assert.Equal(t, child.SpanID, GetSpanID(childCtx))
	assert.Empty(t, parent.ParentID)
}

func TestTraceSubmitsSpans(t *testing.T) {
	tracer, logs := newTracer(t)

	err := tracer.Trace(context.Background(), "ok", func(_ context.Context, span *Span) error {
		span.SetTag("mode", "new")
		return nil
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = tracer.Trace(context.Background(), "fails", func(context.Context, *Span) error { return boom })
	assert.ErrorIs(t, err, boom)

	tracer.Close()
	assert.Equal(t, 1, logs.FilterMessage("span completed").FilterField(zap.String("mode", "new")).Len())
	assert.Equal(t, 1, logs.FilterMessage("span completed with error").Len())

	assert.NotPanics(t, func() { tracer.Submit(&Span{}) })
	assert.NotPanics(t, tracer.Close)
}

func TestPropagation(t *testing.T) {
	h := http.Header{}
	h.Set(TraceHeader, "req_trace")
	h.Set(SpanHeader, "req_span")

	ctx := ExtractTraceContext(context.Background(), h)
	assert.Equal(t, TraceID("req_trace"), GetTraceID(ctx))

	out := http.Header{}
	InjectTraceContext(ctx, out)
	assert.Equal(t, "req_trace", out.Get(TraceHeader))
	assert.Equal(t, "req_span", out.Get(SpanHeader))
}

func TestHTTPMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tracer, logs := newTracer(t)

	router := gin.New()
	router.Use(HTTPMiddleware(tracer))
	router.GET("/contexts/:id", func(c *gin.Context) {
		assert.Equal(t, TraceID("req_incoming"), GetTraceID(c.Request.Context()))
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/contexts/ctx_1", nil)
	req.Header.Set(TraceHeader, "req_incoming")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "req_incoming", w.Header().Get(TraceHeader))
	assert.NotEmpty(t, w.Header().Get(SpanHeader))

	tracer.Close()
	entries := logs.FilterMessage("span completed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "GET /contexts/:id", entries[0].ContextMap()["operation"])
	assert.Equal(t, "204", entries[0].ContextMap()["http.status"])
}
