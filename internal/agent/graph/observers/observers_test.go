package observers

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
)

type nodeLog struct {
	mu    sync.Mutex
	nodes []string
}

func (l *nodeLog) ObserveNode(node string, _ time.Duration, _ error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nodes = append(l.nodes, node)
}

func TestNodeHandlerTimesNodesAndOpensSpans(t *testing.T) {
	ctx := context.Background()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	rec := &nodeLog{}

	g := compose.NewGraph[model.Session, model.Session]()
	require.NoError(t, g.AddLambdaNode("tag", compose.InvokableLambda(func(_ context.Context, s model.Session) (model.Session, error) {
		s.Datasource = model.DatasourceVectorstore
		return s, nil
	}), compose.WithNodeName("tag")))
	require.NoError(t, g.AddEdge(compose.START, "tag"))
	require.NoError(t, g.AddEdge("tag", compose.END))
	runnable, err := g.Compile(ctx, compose.WithGraphName("demo"))
	require.NoError(t, err)

	handlers := NewAllCallbacks(rec, tp.Tracer("test"))
	out, err := runnable.Invoke(ctx, model.Session{ConversationID: "conv-1"}, compose.WithCallbacks(handlers...))
	require.NoError(t, err)
	assert.Equal(t, model.DatasourceVectorstore, out.Datasource)

	assert.Equal(t, []string{"tag"}, rec.nodes)

	var names []string
	for _, s := range spans.Ended() {
		names = append(names, s.Name())
	}
	assert.ElementsMatch(t, []string{"Lambda.tag", "Graph.demo"}, names)
}

func TestNodeHandlerWithoutTracer(t *testing.T) {
	h := NewNodeHandler(nil, nil)
	assert.NotNil(t, h)
}

func TestLastUserContent(t *testing.T) {
	msgs := []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage(" ilk "),
		nil,
		schema.AssistantMessage("cevap", nil),
		schema.UserMessage(" son soru "),
	}
	assert.Equal(t, "son soru", lastUserContent(msgs))
	assert.Empty(t, lastUserContent(nil))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "kısa", truncate("kısa"))
	long := strings.Repeat("ş", maxLoggedContent+10)
	assert.Equal(t, maxLoggedContent+1, len([]rune(truncate(long))))
}
