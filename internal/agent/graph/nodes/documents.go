package nodes

import (
	"context"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/callcenter/pkg/logger"
)

// Retrieve fetches candidate documents. A search failure yields no documents.
func (n *Steps) Retrieve(ctx context.Context, in model.Session) model.Session {
	s := in.Clone()
	s.Documents, s.RelevantDocuments = nil, nil

	if n.d.Search == nil {
		return s
	}
	cctx, cancel := n.callCtx(ctx)
	docs, err := n.d.Search.Search(cctx, s.Question, n.d.Pipeline.RetrievalTopK)
	cancel()
	if err != nil {
		n.fallback(s, NodeRetrieve, "search_failed", err)
		return s
	}

	logx.Debug().Str("conversation_id", s.ConversationID).Int("documents", len(docs)).Msg("Documents retrieved")
	s.Documents = docs
	return s
}

// GradeDocuments keeps the documents judged relevant, in order. A failed check drops the
// document.
func (n *Steps) GradeDocuments(ctx context.Context, in model.Session) model.Session {
	s := in.Clone()
	s.RelevantDocuments = nil

	for _, doc := range s.Documents {
		cctx, cancel := n.callCtx(ctx)
		relevant, err := n.d.Grader.GradeDocument(cctx, doc, s.Question)
		cancel()
		if err != nil {
			n.fallback(s, NodeGradeDocuments, "relevance_check_failed", err)
			continue
		}
		if relevant {
			s.RelevantDocuments = append(s.RelevantDocuments, doc)
		}
	}

	logx.Debug().
		Str("conversation_id", s.ConversationID).
		Int("documents", len(s.Documents)).
		Int("relevant", len(s.RelevantDocuments)).
		Msg("Documents graded")
	return s
}
