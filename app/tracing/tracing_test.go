package tracing

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/favbox/breeze/app"
	"github.com/favbox/breeze/common/ut"
	"github.com/favbox/breeze/protocol"
	"github.com/favbox/breeze/protocol/consts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newRecorded() (*Tracer, *tracetest.InMemoryExporter) {
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	return NewTracer(tp), exp
}

func serve(t *Tracer, url string, h app.HandlerFunc) {
	req := ut.CreateRequest("GET", url, nil)
	w := ut.NewRecorder(req)
	resp := w.NewResponse()
	t.Start(req)
	h(req, resp)
	t.Finish(req, resp, time.Millisecond)
}

func attr(stub tracetest.SpanStub, key string) attribute.Value {
	for _, kv := range stub.Attributes {
		if string(kv.Key) == key {
			return kv.Value
		}
	}
	return attribute.Value{}
}

func TestTracerSpan(t *testing.T) {
	t.Parallel()
	tr, exp := newRecorded()

	serve(tr, "/a?x=1", func(req *protocol.Request, resp *protocol.Response) {
		_, _ = resp.WriteString("ok")
		resp.Flush()
	})

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	s := spans[0]
	assert.Equal(t, "GET /a", s.Name)
	assert.Equal(t, trace.SpanKindServer, s.SpanKind)
	assert.Equal(t, "/a", attr(s, "url.path").AsString())
	assert.Equal(t, "x=1", attr(s, "url.query").AsString())
	assert.Equal(t, int64(200), attr(s, "http.response.status_code").AsInt64())
	assert.Equal(t, int64(1000), attr(s, "breeze.handler.duration_us").AsInt64())
	assert.Equal(t, codes.Unset, s.Status.Code)
	assert.Equal(t, 0, tr.Len())
}

func TestTracerServerError(t *testing.T) {
	t.Parallel()
	tr, exp := newRecorded()

	serve(tr, "/boom", func(req *protocol.Request, resp *protocol.Response) {
		app.Error(resp, consts.StatusInternalServerError, "boom")
	})

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}

func TestTracerFinishWithoutStart(t *testing.T) {
	t.Parallel()
	tr, exp := newRecorded()
	req := ut.CreateRequest("GET", "/", nil)
	tr.Finish(req, ut.NewRecorder(req).NewResponse(), 0)
	assert.Empty(t, exp.GetSpans())
}

func TestStdoutProvider(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	tp, err := NewStdoutProvider(&buf)
	require.Nil(t, err)

	serve(NewTracer(tp), "/out", func(req *protocol.Request, resp *protocol.Response) {
		resp.Flush()
	})
	require.Nil(t, tp.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), `"GET /out"`)
}
