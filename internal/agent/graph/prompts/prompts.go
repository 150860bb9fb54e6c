package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

var (
	//go:embed template/question_grader.txt
	questionGraderSystem string
	//go:embed template/router.txt
	routerSystem string
	//go:embed template/document_grader.txt
	documentGraderSystem string
	//go:embed template/answer_grader.txt
	answerGraderSystem string
	//go:embed template/generation.txt
	generationSystem string
	//go:embed template/regeneration.txt
	regenerationSystem string
	//go:embed template/tool_selection.txt
	toolSelectionSystem string
	//go:embed template/tool_selection_narrow.txt
	toolSelectionNarrowSystem string
)

const (
	questionGraderUser = "Grade this question.\n\n{{.Question}}"
	routerUser         = "{{.Question}}"
	documentGraderUser = "Retrieved document:\n\n{{.Document}}\n\nCustomer question: {{.Question}}"
	answerGraderUser   = "Customer question: {{.Question}}\n\nAgent reply: {{.Generation}}\n\nIs this reply good enough?"
	generationUser     = "Context:\n{{.Context}}\n\nCurrent question: {{.Question}}"
	regenerationUser   = "Context:\n{{.Context}}\n\nCurrent question: {{.Question}}\n\nPrevious reply (not good enough): {{.Previous}}"
	toolSelectionUser  = "Customer question: {{.Question}}"
)

// QuestionGrader renders the relevance check. question may already carry a short transcript.
func QuestionGrader(ctx context.Context, question string) ([]*schema.Message, error) {
	return render(ctx, "question_grader", map[string]any{"Question": question},
		schema.SystemMessage(questionGraderSystem), schema.UserMessage(questionGraderUser))
}

func Router(ctx context.Context, question string) ([]*schema.Message, error) {
	return render(ctx, "router", map[string]any{"Question": question},
		schema.SystemMessage(routerSystem), schema.UserMessage(routerUser))
}

func DocumentGrader(ctx context.Context, document, question string) ([]*schema.Message, error) {
	return render(ctx, "document_grader", map[string]any{"Document": document, "Question": question},
		schema.SystemMessage(documentGraderSystem), schema.UserMessage(documentGraderUser))
}

func AnswerGrader(ctx context.Context, question, generation string) ([]*schema.Message, error) {
	return render(ctx, "answer_grader", map[string]any{"Question": question, "Generation": generation},
		schema.SystemMessage(answerGraderSystem), schema.UserMessage(answerGraderUser))
}

// Generation renders the answer prompt; language is the required reply language.
func Generation(ctx context.Context, language, contextText, question string) ([]*schema.Message, error) {
	vars := map[string]any{"Language": language, "Context": contextText, "Question": question}
	return render(ctx, "generation", vars,
		schema.SystemMessage(generationSystem), schema.UserMessage(generationUser))
}

func Regeneration(ctx context.Context, language, contextText, question, previous string) ([]*schema.Message, error) {
	vars := map[string]any{"Language": language, "Context": contextText, "Question": question, "Previous": previous}
	return render(ctx, "regeneration", vars,
		schema.SystemMessage(regenerationSystem), schema.UserMessage(regenerationUser))
}

// ToolSelection renders the capability-selection prompt listing every tool with its description.
// With narrow set, the directive retry variant is rendered instead.
func ToolSelection(ctx context.Context, identifier, question string, tools []*schema.ToolInfo, narrow bool) ([]*schema.Message, error) {
	system, name := toolSelectionSystem, "tool_selection"
	if narrow {
		system, name = toolSelectionNarrowSystem, "tool_selection_narrow"
	}
	vars := map[string]any{"Identifier": identifier, "Question": question, "Tools": tools}
	return render(ctx, name, vars, schema.SystemMessage(system), schema.UserMessage(toolSelectionUser))
}

// render formats through the eino prompt component so prompt callbacks fire.
func render(ctx context.Context, name string, vars map[string]any, templates ...schema.MessagesTemplate) ([]*schema.Message, error) {
	tpl := prompt.FromMessages(schema.GoTemplate, templates...)
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("%s prompt render: %w", name, err)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("%s prompt render: empty result", name)
	}
	return msgs, nil
}
