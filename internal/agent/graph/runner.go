package graph

import (
	"context"
	"fmt"
	"strings"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/callcenter/internal/core/error"
	logx "github.com/Chative-core-poc-v1/callcenter/pkg/logger"
)

// TurnPublisher announces completed turns to downstream consumers.
type TurnPublisher interface {
	PublishTurn(ctx context.Context, res *model.Result) error
}

// TurnObserver records completed turns.
type TurnObserver interface {
	ObserveTurn(res *model.Result)
}

// Runner executes the compiled graph for one public query at a time per conversation.
type Runner struct {
	runnable  compose.Runnable[model.Session, model.Session]
	callbacks []einocb.Handler
	publisher TurnPublisher
	observer  TurnObserver
	locks     *keyedMutex
}

type RunnerOption func(*Runner)

// WithCallbacks attaches eino callback handlers to every run.
func WithCallbacks(handlers ...einocb.Handler) RunnerOption {
	return func(r *Runner) {
		r.callbacks = append(r.callbacks, handlers...)
	}
}

// WithPublisher announces every completed turn.
func WithPublisher(p TurnPublisher) RunnerOption {
	return func(r *Runner) {
		r.publisher = p
	}
}

// WithTurnObserver records every completed turn.
func WithTurnObserver(o TurnObserver) RunnerOption {
	return func(r *Runner) {
		r.observer = o
	}
}

func NewRunner(runnable compose.Runnable[model.Session, model.Session], opts ...RunnerOption) *Runner {
	r := &Runner{
		runnable: runnable,
		locks:    newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BuildRunner compiles the graph and wraps it in a Runner.
func BuildRunner(ctx context.Context, config *Config, opts ...RunnerOption) (*Runner, error) {
	runnable, err := BuildGraph(ctx, config)
	if err != nil {
		return nil, err
	}
	logx.Debug().Msg("Routing graph built successfully")
	return NewRunner(runnable, opts...), nil
}

// Invoke runs one turn. A missing conversation id starts a new conversation.
func (r *Runner) Invoke(ctx context.Context, in model.QueryInput) (*model.Result, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return nil, errx.BadRequest("question is required")
	}
	conversationID := strings.TrimSpace(in.ConversationID)
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	release := r.locks.Lock(conversationID)
	defer release()

	out, err := r.runnable.Invoke(ctx, model.Session{
		Question:       question,
		ConversationID: conversationID,
	}, compose.WithCallbacks(r.callbacks...))
	if err != nil {
		logx.Error().Err(err).Str("conversation_id", conversationID).Msg("Pipeline run failed")
		return nil, fmt.Errorf("run pipeline: %w", err)
	}

	res := model.NewResult(out)
	res.ConversationID = conversationID

	logx.Info().
		Str("conversation_id", conversationID).
		Str("datasource", string(res.Datasource)).
		Bool("answer_grade", res.AnswerGrade).
		Int("retry_count", res.RetryCount).
		Strs("steps", res.Steps).
		Float64("cost_usd", res.CostUSD).
		Msg("Turn completed")

	if r.observer != nil {
		r.observer.ObserveTurn(res)
	}
	if r.publisher != nil {
		if err := r.publisher.PublishTurn(ctx, res); err != nil {
			logx.Warn().Err(err).Str("conversation_id", conversationID).Msg("Error publishing turn")
		}
	}
	return res, nil
}
