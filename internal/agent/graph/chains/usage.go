package chains

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/callcenter/pkg/logger"
)

// UsageObserver receives the priced usage of every model call. Metrics implement it.
type UsageObserver interface {
	ObserveLLMUsage(role, modelName string, cost model.UsageCost)
}

// caller issues one chat model request and accounts for its token usage.
type caller struct {
	model einomodel.BaseChatModel
	name  string
	role  string
	usage UsageObserver
}

func (c caller) generate(ctx context.Context, msgs []*schema.Message) (*schema.Message, error) {
	out, err := c.model.Generate(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("%s generate: %w", c.role, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%s generate: empty message", c.role)
	}
	recordUsage(ctx, c.role, c.name, out, c.usage)
	return out, nil
}

// recordUsage prices msg's usage, reports it and adds it to the run's total cost when
// called inside a graph run.
func recordUsage(ctx context.Context, role, modelName string, msg *schema.Message, obs UsageObserver) {
	if msg == nil || msg.ResponseMeta == nil || msg.ResponseMeta.Usage == nil {
		return
	}
	cost := model.ComputeCost(msg.ResponseMeta.Usage, model.ResolvePricing(modelName))

	logx.Debug().
		Str("role", role).
		Str("model", modelName).
		Int("prompt_tokens", cost.PromptTokens).
		Int("completion_tokens", cost.CompletionTokens).
		Float64("total_cost_usd", cost.TotalUSD()).
		Msg("LLM usage")

	if obs != nil {
		obs.ObserveLLMUsage(role, modelName, cost)
	}

	// Fails outside a graph run, where there is no run total to add to.
	_ = compose.ProcessState(ctx, func(_ context.Context, s *model.RunState) error {
		s.TotalCostUSD += cost.TotalUSD()
		return nil
	})
}
