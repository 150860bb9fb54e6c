package nodes

import (
	"context"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/graph/conversations"
	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/callcenter/pkg/logger"
)

// Generate writes the answer from the assembled context and appends it to history. When the
// model fails, a lookup notice is answered and recorded as is; without one the answer is a
// fixed apology that is not recorded.
func (n *Steps) Generate(ctx context.Context, in model.Session) model.Session {
	s := in.Clone()
	s.NeedsRetry = false

	contextText := conversations.GenerationContext(s, n.d.Pipeline.HistoryWindow)
	cctx, cancel := n.callCtx(ctx)
	text, err := n.d.Writer.Generate(cctx, contextText, s.Question)
	cancel()
	if err != nil {
		n.fallback(s, NodeGenerate, "generation_failed", err)
		if s.Notice != "" {
			s.Generation = s.Notice
			s.History = append(s.History, assistantMessage(s.Notice))
			return s
		}
		s.Generation = MsgGenerationFailed
		return s
	}

	s.Generation = text
	s.History = append(s.History, assistantMessage(text))
	return s
}

// Regenerate rewrites a rejected answer and replaces it in history. When the model fails the
// previous answer stands.
func (n *Steps) Regenerate(ctx context.Context, in model.Session) model.Session {
	s := in.Clone()
	s.NeedsRetry = false
	previous := s.Generation

	contextText := conversations.GenerationContext(s, n.d.Pipeline.HistoryWindow)
	cctx, cancel := n.callCtx(ctx)
	text, err := n.d.Writer.Regenerate(cctx, contextText, s.Question, previous)
	cancel()
	if err != nil {
		n.fallback(s, NodeRegenerate, "regeneration_failed", err)
		return s
	}

	s.Generation = text
	s.History = conversations.ReplaceLastAssistant(s.History, text)
	return s
}

// GradeAnswer is the quality gate. A bad verdict asks for a retry while RetryCount is below
// MaxAnswerRetries; otherwise the answer is final. A failed check counts as good.
func (n *Steps) GradeAnswer(ctx context.Context, in model.Session) model.Session {
	s := in.Clone()

	good := true
	cctx, cancel := n.callCtx(ctx)
	verdict, err := n.d.Grader.GradeAnswer(cctx, s.Question, s.Generation)
	cancel()
	if err != nil {
		n.fallback(s, NodeGradeAnswer, "grading_failed", err)
	} else {
		good = verdict
	}

	if !good && s.RetryCount < MaxAnswerRetries {
		s.RetryCount++
		s.NeedsRetry = true
		s.AnswerGrade = false
		logx.Debug().Str("conversation_id", s.ConversationID).Int("retry", s.RetryCount).Msg("Answer needs improvement")
		return s
	}

	s.NeedsRetry = false
	s.AnswerGrade = good
	logx.Debug().Str("conversation_id", s.ConversationID).Bool("answer_grade", good).Msg("Answer graded")
	return s
}
