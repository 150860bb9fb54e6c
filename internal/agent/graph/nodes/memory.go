package nodes

import (
	"context"
	"reflect"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/callcenter/pkg/logger"
)

// WithMemory wraps step with conversation memory. Before the step it loads the history, the
// conversation's linked identifier and that identifier's user context; after it, the history
// is written back and the user context is saved when the step changed it. Unreachable store
// reads keep the values already in the session, so a run survives a store outage with only
// its in-flight memory.
func WithMemory(mem Memory, step Step) Step {
	return func(ctx context.Context, in model.Session) model.Session {
		s := in.Clone()

		if h, ok := mem.History(ctx, s.ConversationID); ok {
			s.History = h
		}
		linked, _ := mem.LinkedIdentifier(ctx, s.ConversationID)
		if linked != "" {
			if uc, ok := mem.UserContext(ctx, linked); ok && len(uc) > 0 {
				s.UserContext = uc
			}
		}
		before := s.UserContext.Clone()

		out := step(ctx, s)

		if err := mem.SetHistory(ctx, out.ConversationID, out.History); err != nil {
			logx.Error().Err(err).Str("conversation_id", out.ConversationID).Msg("Error saving conversation history")
		}

		if len(out.UserContext) == 0 || reflect.DeepEqual(before, out.UserContext) {
			return out
		}
		id := out.UserContext.Identifier()
		if id == "" {
			id = linked
		}
		if id == "" {
			return out
		}
		if err := mem.SaveUserContext(ctx, id, out.UserContext); err != nil {
			logx.Error().Err(err).Str("conversation_id", out.ConversationID).Msg("Error saving user context")
		}
		return out
	}
}
