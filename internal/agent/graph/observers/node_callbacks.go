package observers

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/callcenter/pkg/logger"
)

// NodeRecorder receives the latency and outcome of every pipeline node.
type NodeRecorder interface {
	ObserveNode(node string, d time.Duration, err error)
}

type runKey struct{}

type run struct {
	start time.Time
	span  trace.Span
}

// NewNodeHandler times graph and node executions and wraps each in a span. Node timings go
// to rec when it is non-nil.
func NewNodeHandler(rec NodeRecorder, tracer trace.Tracer) einocb.Handler {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}

	return einocb.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *einocb.RunInfo, input einocb.CallbackInput) context.Context {
			if !observed(info) {
				return ctx
			}
			ctx, span := tracer.Start(ctx, string(info.Component)+"."+info.Name)
			if s, ok := input.(model.Session); ok {
				span.SetAttributes(attribute.String("conversation_id", s.ConversationID))
			}
			return context.WithValue(ctx, runKey{}, &run{start: time.Now(), span: span})
		}).
		OnEndFn(func(ctx context.Context, info *einocb.RunInfo, output einocb.CallbackOutput) context.Context {
			if s, ok := output.(model.Session); ok {
				if r, ok := ctx.Value(runKey{}).(*run); ok {
					r.span.SetAttributes(
						attribute.String("datasource", string(s.Datasource)),
						attribute.Int("retry_count", s.RetryCount),
					)
				}
			}
			finish(ctx, info, rec, nil)
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			finish(ctx, info, rec, err)
			return ctx
		}).
		Build()
}

func observed(info *einocb.RunInfo) bool {
	return info != nil && (info.Component == compose.ComponentOfLambda || info.Component == compose.ComponentOfGraph)
}

func finish(ctx context.Context, info *einocb.RunInfo, rec NodeRecorder, err error) {
	if !observed(info) {
		return
	}
	r, ok := ctx.Value(runKey{}).(*run)
	if !ok {
		return
	}
	elapsed := time.Since(r.start)

	if err != nil {
		r.span.RecordError(err)
		r.span.SetStatus(codes.Error, err.Error())
	}
	r.span.End()

	if info.Component == compose.ComponentOfGraph {
		logx.Debug().Str("graph", info.Name).Dur("elapsed", elapsed).Err(err).Msg("Graph run finished")
		return
	}
	logx.Debug().Str("node", info.Name).Dur("elapsed", elapsed).Err(err).Msg("Node finished")
	if rec != nil {
		rec.ObserveNode(info.Name, elapsed, err)
	}
}
