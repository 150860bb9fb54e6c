package graph

import (
	"context"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/graph/nodes"
	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
)

// MaxRoutedRetries bounds the regeneration loop at the routing level. The answer gate stops
// asking for retries at nodes.MaxAnswerRetries, so this ceiling is never the binding one.
const MaxRoutedRetries = 3

// AfterQuestionGrade sends on-topic questions to the router and everything else to rejection.
func AfterQuestionGrade(_ context.Context, s model.Session) (string, error) {
	if s.QuestionGrade {
		return nodes.NodeRouteQuestion, nil
	}
	return nodes.NodeRejectQuestion, nil
}

// AfterRouting follows the router's datasource label.
func AfterRouting(_ context.Context, s model.Session) (string, error) {
	if s.Datasource == model.DatasourceFunctionCalls {
		return nodes.NodeFunctionCalls, nil
	}
	return nodes.NodeRetrieve, nil
}

// AfterDocumentGrade generates from the knowledge base when something relevant survived
// grading, and falls back to an account lookup otherwise.
func AfterDocumentGrade(_ context.Context, s model.Session) (string, error) {
	if len(s.RelevantDocuments) > 0 {
		return nodes.NodeGenerate, nil
	}
	return nodes.NodeFunctionCalls, nil
}

// AfterAnswerGrade loops back into regeneration while the gate asks for it.
func AfterAnswerGrade(_ context.Context, s model.Session) (string, error) {
	if s.NeedsRetry && s.RetryCount < MaxRoutedRetries {
		return nodes.NodeRegenerate, nil
	}
	return compose.END, nil
}
