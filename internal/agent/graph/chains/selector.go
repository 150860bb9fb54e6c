package chains

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/graph/prompts"
)

var ErrNoToolCall = errors.New("model did not call a tool")

// Selection is the capability a model picked, with the arguments it supplied.
type Selection struct {
	Name string
	Args map[string]any
}

// Selector asks a tool-calling model to pick exactly one capability.
type Selector struct {
	c     caller
	tools []*schema.ToolInfo
}

// NewSelector binds tools to m. The model is not mutated; WithTools returns a bound copy.
func NewSelector(m einomodel.ToolCallingChatModel, modelName string, tools []*schema.ToolInfo, usage UsageObserver) (*Selector, error) {
	bound, err := m.WithTools(tools)
	if err != nil {
		return nil, fmt.Errorf("failed to bind tools: %w", err)
	}
	return &Selector{
		c:     caller{model: bound, name: modelName, role: "selector", usage: usage},
		tools: tools,
	}, nil
}

// Select returns the first tool call of the reply. narrow switches to the directive
// prompt used for the retry.
func (s *Selector) Select(ctx context.Context, identifier, question string, narrow bool) (Selection, error) {
	msgs, err := prompts.ToolSelection(ctx, identifier, question, s.tools, narrow)
	if err != nil {
		return Selection{}, err
	}
	out, err := s.c.generate(ctx, msgs)
	if err != nil {
		return Selection{}, err
	}
	if len(out.ToolCalls) == 0 {
		return Selection{}, ErrNoToolCall
	}

	call := out.ToolCalls[0].Function
	args := map[string]any{}
	if raw := strings.TrimSpace(call.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return Selection{}, fmt.Errorf("decode %s arguments: %w", call.Name, err)
		}
	}
	return Selection{Name: call.Name, Args: args}, nil
}
