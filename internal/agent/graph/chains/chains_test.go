package chains

import (
	"context"
	"errors"
	"sync"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
)

// scriptedModel replies with its queued messages in order.
type scriptedModel struct {
	mu      sync.Mutex
	replies []*schema.Message
	err     error
	seen    [][]*schema.Message
	tools   []*schema.ToolInfo
}

func (m *scriptedModel) Generate(_ context.Context, in []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, in)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.replies) == 0 {
		return schema.AssistantMessage("", nil), nil
	}
	out := m.replies[0]
	m.replies = m.replies[1:]
	return out, nil
}

func (m *scriptedModel) Stream(context.Context, []*schema.Message, ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func (m *scriptedModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	m.tools = tools
	return m, nil
}

type usageSink struct {
	roles []string
	total float64
}

func (u *usageSink) ObserveLLMUsage(role, _ string, cost model.UsageCost) {
	u.roles = append(u.roles, role)
	u.total += cost.TotalUSD()
}

func withUsage(content string, prompt, completion int) *schema.Message {
	msg := schema.AssistantMessage(content, nil)
	msg.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}}
	return msg
}

func TestGraderVerdicts(t *testing.T) {
	m := &scriptedModel{replies: []*schema.Message{
		schema.AssistantMessage(`{"binary_score": "yes"}`, nil),
		schema.AssistantMessage(`{"datasource": "function_calls"}`, nil),
		schema.AssistantMessage("no", nil),
		schema.AssistantMessage("```json\n{\"binary_score\": \"no\"}\n```", nil),
	}}
	g := NewGrader(m, "gemini-2.5-flash-lite", nil)
	ctx := context.Background()

	ok, err := g.GradeQuestion(ctx, "Paketim nedir?")
	require.NoError(t, err)
	assert.True(t, ok)

	ds, err := g.RouteQuestion(ctx, "Paketim nedir?")
	require.NoError(t, err)
	assert.Equal(t, model.DatasourceFunctionCalls, ds)

	ok, err = g.GradeDocument(ctx, model.Document{Content: "pizza tarifi"}, "Paketim nedir?")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = g.GradeAnswer(ctx, "Paketim nedir?", "Bilmiyorum.")
	require.NoError(t, err)
	assert.False(t, ok)

	require.Len(t, m.seen, 4)
	assert.Contains(t, m.seen[2][1].Content, "pizza tarifi")
}

func TestGraderPropagatesModelFailure(t *testing.T) {
	g := NewGrader(&scriptedModel{err: errors.New("quota")}, "m", nil)

	_, err := g.GradeQuestion(context.Background(), "q")
	assert.ErrorContains(t, err, "quota")

	_, err = g.RouteQuestion(context.Background(), "q")
	assert.Error(t, err)
}

func TestWriterReportsUsage(t *testing.T) {
	sink := &usageSink{}
	m := &scriptedModel{replies: []*schema.Message{
		withUsage("  Paketiniz Süper 20GB.  ", 1_000_000, 0),
		withUsage("", 10, 0),
	}}
	w := NewWriter(m, "gemini-2.5-flash", "Turkish", sink)

	text, err := w.Generate(context.Background(), "ctx", "Paketim nedir?")
	require.NoError(t, err)
	assert.Equal(t, "Paketiniz Süper 20GB.", text)
	assert.Contains(t, m.seen[0][0].Content, "Turkish")

	_, err = w.Regenerate(context.Background(), "ctx", "Paketim nedir?", "eski")
	assert.ErrorIs(t, err, ErrEmptyGeneration)

	assert.Equal(t, []string{"generator", "generator"}, sink.roles)
	assert.InDelta(t, 0.30, sink.total, 1e-4)
}

func TestSelectorFirstToolCall(t *testing.T) {
	reply := schema.AssistantMessage("", []schema.ToolCall{
		{Function: schema.FunctionCall{Name: "get_user_bill_info", Arguments: `{"phone_number": "+905551234567"}`}},
		{Function: schema.FunctionCall{Name: "get_all_packages", Arguments: `{}`}},
	})
	m := &scriptedModel{replies: []*schema.Message{reply, schema.AssistantMessage("Size nasıl yardımcı olabilirim?", nil)}}
	tools := []*schema.ToolInfo{{Name: "get_user_bill_info"}, {Name: "get_all_packages"}}

	s, err := NewSelector(m, "gemini-2.5-flash", tools, nil)
	require.NoError(t, err)
	assert.Len(t, m.tools, 2)

	sel, err := s.Select(context.Background(), "+905551234567", "Faturam?", false)
	require.NoError(t, err)
	assert.Equal(t, "get_user_bill_info", sel.Name)
	assert.Equal(t, "+905551234567", sel.Args["phone_number"])

	_, err = s.Select(context.Background(), "+905551234567", "Faturam?", true)
	assert.ErrorIs(t, err, ErrNoToolCall)
	assert.Contains(t, m.seen[1][0].Content, "MUST call exactly one")
}

func TestSelectorRejectsBadArguments(t *testing.T) {
	reply := schema.AssistantMessage("", []schema.ToolCall{
		{Function: schema.FunctionCall{Name: "get_user_bill_info", Arguments: `{"phone_number":`}},
	})
	s, err := NewSelector(&scriptedModel{replies: []*schema.Message{reply}}, "m", nil, nil)
	require.NoError(t, err)

	_, err = s.Select(context.Background(), "x", "q", false)
	assert.Error(t, err)
}
