package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
)

// TurnCompleted is published after every answered turn.
type TurnCompleted struct {
	ConversationID string           `json:"conversation_id"`
	Answer         string           `json:"answer"`
	Datasource     model.Datasource `json:"datasource,omitempty"`
	QuestionGrade  bool             `json:"question_grade"`
	AnswerGrade    bool             `json:"answer_grade"`
	RetryCount     int              `json:"retry_count"`
	Steps          []string         `json:"steps"`
	CostUSD        float64          `json:"cost_usd"`
	At             time.Time        `json:"at"`
}

func NewTurnCompleted(res *model.Result, at time.Time) TurnCompleted {
	return TurnCompleted{
		ConversationID: res.ConversationID,
		Answer:         res.Answer,
		Datasource:     res.Datasource,
		QuestionGrade:  res.QuestionGrade,
		AnswerGrade:    res.AnswerGrade,
		RetryCount:     res.RetryCount,
		Steps:          res.Steps,
		CostUSD:        res.CostUSD,
		At:             at.UTC(),
	}
}

// Conn is the part of a NATS connection the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Publisher sends turn events to a NATS subject.
type Publisher struct {
	conn    Conn
	subject string
	now     func() time.Time
}

func NewPublisher(conn Conn, subject string) *Publisher {
	return &Publisher{conn: conn, subject: subject, now: time.Now}
}

func (p *Publisher) PublishTurn(_ context.Context, res *model.Result) error {
	if res == nil {
		return nil
	}
	data, err := json.Marshal(NewTurnCompleted(res, p.now()))
	if err != nil {
		return fmt.Errorf("failed to marshal turn event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish turn event to subject %s: %w", p.subject, err)
	}
	return nil
}

// Noop drops every event. Used when no NATS URL is configured.
type Noop struct{}

func (Noop) PublishTurn(context.Context, *model.Result) error { return nil }
