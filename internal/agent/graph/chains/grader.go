package chains

import (
	"context"

	einomodel "github.com/cloudwego/eino/components/model"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/graph/parsers"
	"github.com/Chative-core-poc-v1/callcenter/internal/agent/graph/prompts"
	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
)

// Grader answers the pipeline's classification questions with typed verdicts.
type Grader struct {
	c caller
}

func NewGrader(m einomodel.BaseChatModel, modelName string, usage UsageObserver) *Grader {
	return &Grader{c: caller{model: m, name: modelName, role: "grader", usage: usage}}
}

// GradeQuestion reports whether question is something a telecom agent can help with.
func (g *Grader) GradeQuestion(ctx context.Context, question string) (bool, error) {
	msgs, err := prompts.QuestionGrader(ctx, question)
	if err != nil {
		return false, err
	}
	out, err := g.c.generate(ctx, msgs)
	if err != nil {
		return false, err
	}
	return parsers.ParseBinaryVerdict(out.Content)
}

// RouteQuestion picks the data source for question.
func (g *Grader) RouteQuestion(ctx context.Context, question string) (model.Datasource, error) {
	msgs, err := prompts.Router(ctx, question)
	if err != nil {
		return model.DatasourceUnset, err
	}
	out, err := g.c.generate(ctx, msgs)
	if err != nil {
		return model.DatasourceUnset, err
	}
	return parsers.ParseDatasource(out.Content)
}

// GradeDocument reports whether doc helps answer question.
func (g *Grader) GradeDocument(ctx context.Context, doc model.Document, question string) (bool, error) {
	msgs, err := prompts.DocumentGrader(ctx, doc.Content, question)
	if err != nil {
		return false, err
	}
	out, err := g.c.generate(ctx, msgs)
	if err != nil {
		return false, err
	}
	return parsers.ParseBinaryVerdict(out.Content)
}

// GradeAnswer reports whether generation is good enough for question.
func (g *Grader) GradeAnswer(ctx context.Context, question, generation string) (bool, error) {
	msgs, err := prompts.AnswerGrader(ctx, question, generation)
	if err != nil {
		return false, err
	}
	out, err := g.c.generate(ctx, msgs)
	if err != nil {
		return false, err
	}
	return parsers.ParseBinaryVerdict(out.Content)
}
