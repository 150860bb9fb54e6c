package nodes

import (
	"context"
	"time"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/callcenter/pkg/logger"
)

const (
	DefaultCallTimeout   = 10 * time.Second
	DefaultRetrievalTopK = 5
	DefaultHistoryWindow = 4
	DefaultScanTurns     = 5
	DefaultLanguage      = "Turkish"
)

// normalizePipeline returns sane defaults for unset or invalid values.
func normalizePipeline(p model.PipelineConfig) model.PipelineConfig {
	if p.CallTimeout <= 0 {
		p.CallTimeout = DefaultCallTimeout
	}
	if p.RetrievalTopK <= 0 {
		p.RetrievalTopK = DefaultRetrievalTopK
	}
	if p.HistoryWindow <= 0 {
		p.HistoryWindow = DefaultHistoryWindow
	}
	if p.IdentifierScanTurns <= 0 {
		p.IdentifierScanTurns = DefaultScanTurns
	}
	if p.ResponseLanguage == "" {
		p.ResponseLanguage = DefaultLanguage
	}
	return p
}

// callCtx bounds one external call.
func (n *Steps) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, n.d.Pipeline.CallTimeout)
}

// fallback logs a step falling back to its default and counts it.
func (n *Steps) fallback(s model.Session, node, reason string, err error) {
	logx.Warn().
		Err(err).
		Str("conversation_id", s.ConversationID).
		Str("node", node).
		Str("reason", reason).
		Msg("Step fell back to default")
	if n.d.Fallbacks != nil {
		n.d.Fallbacks.Fallback(node, reason)
	}
}

func userMessage(content string) model.Message {
	return model.Message{Role: model.RoleUser, Content: content}
}

func assistantMessage(content string) model.Message {
	return model.Message{Role: model.RoleAssistant, Content: content}
}
