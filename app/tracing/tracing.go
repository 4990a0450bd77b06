// Package tracing 把每个请求记录为一个 OpenTelemetry 服务端跨度。
package tracing

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/favbox/breeze/common/tracer"
	"github.com/favbox/breeze/protocol"
	"github.com/favbox/breeze/protocol/consts"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/favbox/breeze"

var _ tracer.Tracer = (*Tracer)(nil)

// Tracer 实现 tracer.Tracer。跨度从请求创建时开始，到处理器返回时结束。
type Tracer struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[*protocol.Request]trace.Span
}

// NewTracer 创建跟踪器，tp 为空时使用 otel 的全局 TracerProvider。
func NewTracer(tp trace.TracerProvider) *Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Tracer{
		tracer: tp.Tracer(instrumentationName),
		spans:  make(map[*protocol.Request]trace.Span),
	}
}

// Start 开始请求的跨度。
func (t *Tracer) Start(req *protocol.Request) {
	_, span := t.tracer.Start(context.Background(), req.Method()+" "+req.Path(),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithTimestamp(req.Created()),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method()),
			attribute.String("url.path", req.Path()),
			attribute.String("url.query", req.Query()),
			attribute.Int("http.request.body.size", len(req.Body())),
		))

	t.mu.Lock()
	t.spans[req] = span
	t.mu.Unlock()
}

// Finish 记录状态码并结束跨度，5xx 标记为错误。
func (t *Tracer) Finish(req *protocol.Request, resp *protocol.Response, cost time.Duration) {
	t.mu.Lock()
	span, ok := t.spans[req]
	delete(t.spans, req)
	t.mu.Unlock()
	if !ok {
		return
	}

	code := resp.StatusCode()
	span.SetAttributes(
		attribute.Int("http.response.status_code", code),
		attribute.Int64("breeze.handler.duration_us", cost.Microseconds()),
	)
	if code >= consts.StatusInternalServerError {
		span.SetStatus(codes.Error, consts.StatusMessage(code))
	}
	span.End()
}

// Len 返回尚未结束的跨度数。
func (t *Tracer) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.spans)
}

// NewStdoutProvider 创建把跨度以 JSON 写入 w 的 TracerProvider，用完调用其 Shutdown。
func NewStdoutProvider(w io.Writer) (*sdktrace.TracerProvider, error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp)), nil
}
