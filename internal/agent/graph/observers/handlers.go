package observers

import (
	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
	"go.opentelemetry.io/otel/trace"
)

// NewAllCallbacks returns the handlers attached to every run: component logging for
// prompts, chat models and tools, plus node timing and spans.
func NewAllCallbacks(rec NodeRecorder, tracer trace.Tracer) []einocb.Handler {
	components := callbackHelper.NewHandlerHelper().
		Tool(newToolHandler()).
		ChatModel(newModelHandler()).
		Prompt(newPromptHandler()).
		Handler()

	return []einocb.Handler{components, NewNodeHandler(rec, tracer)}
}
