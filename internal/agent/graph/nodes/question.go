package nodes

import (
	"context"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/graph/conversations"
	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/callcenter/pkg/logger"
)

// GradeQuestion classifies the question, with recent history as context, and records it in
// history whatever the verdict. A failed classification approves the question.
func (n *Steps) GradeQuestion(ctx context.Context, in model.Session) model.Session {
	s := in.Clone()
	question := conversations.QuestionContext(s.History, s.Question, n.d.Pipeline.HistoryWindow)

	cctx, cancel := n.callCtx(ctx)
	relevant, err := n.d.Grader.GradeQuestion(cctx, question)
	cancel()
	if err != nil {
		n.fallback(s, NodeGradeQuestion, "classification_failed", err)
		relevant = true
	}

	logx.Debug().Str("conversation_id", s.ConversationID).Bool("relevant", relevant).Msg("Question graded")
	s.QuestionGrade = relevant
	s.History = append(s.History, userMessage(s.Question))
	return s
}

// RouteQuestion picks the data source from the question alone. A failed call routes to
// document search.
func (n *Steps) RouteQuestion(ctx context.Context, in model.Session) model.Session {
	s := in.Clone()

	cctx, cancel := n.callCtx(ctx)
	ds, err := n.d.Grader.RouteQuestion(cctx, s.Question)
	cancel()
	if err != nil || !ds.Valid() {
		n.fallback(s, NodeRouteQuestion, "routing_failed", err)
		ds = model.DatasourceVectorstore
	}

	logx.Debug().Str("conversation_id", s.ConversationID).Str("datasource", string(ds)).Msg("Question routed")
	s.Datasource = ds
	return s
}

func (n *Steps) RejectQuestion(_ context.Context, in model.Session) model.Session {
	s := in.Clone()
	logx.Info().Str("conversation_id", s.ConversationID).Msg("Question rejected")
	s.Generation = MsgRejected
	return s
}
