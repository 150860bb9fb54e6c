package nodes

import (
	"context"
	"errors"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/identity"
	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
	"github.com/Chative-core-poc-v1/callcenter/internal/agent/repo"
	logx "github.com/Chative-core-poc-v1/callcenter/pkg/logger"
)

// FunctionCalls answers from the account-data backend. It resolves the caller's identifier,
// serves a cached result when there is one, and otherwise probes the backend and runs one
// selected capability. Without an identifier, or with the backend down, it leaves an error
// result and a fixed notice for Generate to answer from.
func (n *Steps) FunctionCalls(ctx context.Context, in model.Session) model.Session {
	s := in.Clone()
	s.ToolResults = nil
	s.Notice = ""

	linked := func() string {
		id, _ := n.d.Memory.LinkedIdentifier(ctx, s.ConversationID)
		return id
	}
	id, source := identity.Resolve(s.Question, s.UserContext, linked, s.History, n.d.Pipeline.IdentifierScanTurns)
	if id == "" {
		msg := MsgAskIdentifier
		if identity.AlreadyAsked(s.History, askedForIdentifierMark, n.d.Pipeline.HistoryWindow) {
			msg = MsgAskIdentifierAgain
		}
		logx.Info().Str("conversation_id", s.ConversationID).Msg("No identifier found, asking the caller")
		s.ToolResults = model.ToolResults{ResultIdentifierRequired: {Error: msg}}
		s.Notice = msg
		return s
	}

	logx.Debug().
		Str("conversation_id", s.ConversationID).
		Str("source", string(source)).
		Msg("Identifier resolved")

	if err := n.d.Memory.LinkIdentifier(ctx, s.ConversationID, id); err != nil {
		logx.Error().Err(err).Str("conversation_id", s.ConversationID).Msg("Error linking conversation to identifier")
	}
	s.UserContext = n.contextFor(ctx, s.UserContext, id)

	key := repo.CacheKey(id, s.Question)
	if cached, ok := n.d.Memory.CachedResponse(ctx, key); ok {
		logx.Debug().Str("conversation_id", s.ConversationID).Str("key", key).Msg("Using cached capability result")
		s.ToolResults = cached
		return s
	}

	pctx, cancel := n.callCtx(ctx)
	up := n.d.Backend.Ping(pctx)
	cancel()
	if !up {
		n.fallback(s, NodeFunctionCalls, "backend_unavailable", nil)
		s.ToolResults = model.ToolResults{ResultBackendUnavailable: {Error: MsgBackendUnavailable}}
		s.Notice = MsgBackendUnavailable
		return s
	}

	name, args := n.selectCapability(ctx, s, id)
	cctx, cancel := n.callCtx(ctx)
	result := n.d.Tools.Invoke(cctx, name, args)
	cancel()
	s.ToolResults = model.ToolResults{name: result}

	logx.Debug().
		Str("conversation_id", s.ConversationID).
		Str("capability", name).
		Bool("error", result.Error != "").
		Msg("Capability invoked")

	if err := n.d.Memory.CacheResponse(ctx, key, s.ToolResults); err != nil && !errors.Is(err, repo.ErrUncacheable) {
		logx.Error().Err(err).Str("key", key).Msg("Error caching capability result")
	}
	return s
}

// contextFor returns the user context to carry for identifier id with id merged in. A context
// that belongs to another identifier is swapped for id's own record.
func (n *Steps) contextFor(ctx context.Context, current model.UserContext, id string) model.UserContext {
	uc := current.Clone()
	if owner := uc.Identifier(); owner != "" && repo.NormalizeIdentifier(owner) != repo.NormalizeIdentifier(id) {
		stored, _ := n.d.Memory.UserContext(ctx, id)
		uc = stored.Clone()
	}
	if uc == nil {
		uc = model.UserContext{}
	}
	if identity.IsPhone(id) {
		uc[model.ContextPhoneNumber] = id
	} else {
		uc[model.ContextCustomerID] = id
	}
	return uc
}

// selectCapability asks the selector for a capability, retrying once with the narrow prompt,
// and falls back to the registry default. It returns the name and validated arguments.
func (n *Steps) selectCapability(ctx context.Context, s model.Session, id string) (string, string) {
	for _, narrow := range []bool{false, true} {
		cctx, cancel := n.callCtx(ctx)
		sel, err := n.d.Selector.Select(cctx, id, s.Question, narrow)
		cancel()
		if err == nil {
			args, perr := n.d.Tools.Prepare(sel.Name, sel.Args, id)
			if perr == nil {
				return sel.Name, args
			}
			err = perr
		}
		logx.Warn().
			Err(err).
			Str("conversation_id", s.ConversationID).
			Bool("narrow", narrow).
			Msg("Capability selection failed")
	}

	name := n.d.Tools.Default()
	n.fallback(s, NodeFunctionCalls, "selection_failed", nil)
	args, err := n.d.Tools.Prepare(name, nil, id)
	if err != nil {
		logx.Error().Err(err).Str("capability", name).Msg("Default capability rejected its arguments")
		args = "{}"
	}
	return name, args
}
