package chains

import (
	"context"
	"errors"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/graph/prompts"
)

var ErrEmptyGeneration = errors.New("model returned an empty answer")

// Writer produces customer-facing answers in a fixed language.
type Writer struct {
	c        caller
	language string
}

func NewWriter(m einomodel.BaseChatModel, modelName, language string, usage UsageObserver) *Writer {
	return &Writer{c: caller{model: m, name: modelName, role: "generator", usage: usage}, language: language}
}

func (w *Writer) Generate(ctx context.Context, contextText, question string) (string, error) {
	msgs, err := prompts.Generation(ctx, w.language, contextText, question)
	if err != nil {
		return "", err
	}
	return w.write(ctx, msgs)
}

// Regenerate asks for an improved answer, showing the model its rejected one.
func (w *Writer) Regenerate(ctx context.Context, contextText, question, previous string) (string, error) {
	msgs, err := prompts.Regeneration(ctx, w.language, contextText, question, previous)
	if err != nil {
		return "", err
	}
	return w.write(ctx, msgs)
}

func (w *Writer) write(ctx context.Context, msgs []*schema.Message) (string, error) {
	out, err := w.c.generate(ctx, msgs)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(out.Content)
	if text == "" {
		return "", ErrEmptyGeneration
	}
	return text, nil
}
