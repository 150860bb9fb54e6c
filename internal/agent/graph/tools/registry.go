package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"github.com/go-playground/validator/v10"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/callcenter/internal/core/error"
	logx "github.com/Chative-core-poc-v1/callcenter/pkg/logger"
)

// IdentifierArg is the argument every account-scoped capability receives the resolved
// identifier in.
const IdentifierArg = "phone_number"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Capability is one named operation against the account-data backend.
type Capability struct {
	Info            *schema.ToolInfo
	NeedsIdentifier bool

	tool  tool.InvokableTool
	check func(argsJSON string) error
}

// newCapability binds a typed handler to its tool schema. Arguments are decoded into In and
// validated with its `validate` tags before the handler may run.
func newCapability[In any, Out any](info *schema.ToolInfo, needsIdentifier bool, fn func(context.Context, *In) (Out, error)) Capability {
	invoke := func(ctx context.Context, in *In) (Out, error) {
		out, err := fn(ctx, in)
		if err != nil {
			if slot, ok := ctx.Value(errSlotKey{}).(*errSlot); ok {
				slot.err = err
			}
		}
		return out, err
	}
	check := func(argsJSON string) error {
		in := new(In)
		if err := json.Unmarshal([]byte(argsJSON), in); err != nil {
			return fmt.Errorf("decode arguments: %w", err)
		}
		return validate.Struct(in)
	}
	return Capability{
		Info:            info,
		NeedsIdentifier: needsIdentifier,
		tool:            utils.NewTool(info, invoke),
		check:           check,
	}
}

// errSlot carries the handler's own error past the tool wrapper's formatting.
type errSlot struct{ err error }

type errSlotKey struct{}

// Registry maps capability names to their schema and handler, with a default used when
// selection fails.
type Registry struct {
	caps        map[string]Capability
	order       []string
	defaultName string
}

func NewRegistry(defaultName string, caps ...Capability) (*Registry, error) {
	r := &Registry{caps: make(map[string]Capability, len(caps)), defaultName: defaultName}
	for _, c := range caps {
		if c.Info == nil || c.Info.Name == "" {
			return nil, errors.New("capability without a name")
		}
		if _, dup := r.caps[c.Info.Name]; dup {
			return nil, fmt.Errorf("duplicate capability %q", c.Info.Name)
		}
		r.caps[c.Info.Name] = c
		r.order = append(r.order, c.Info.Name)
	}
	if _, ok := r.caps[defaultName]; !ok {
		return nil, fmt.Errorf("default capability %q is not registered", defaultName)
	}
	return r, nil
}

func (r *Registry) Default() string {
	return r.defaultName
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// ToolInfos returns the schemas in registration order, for binding to a tool-calling model.
func (r *Registry) ToolInfos() []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(r.order))
	for _, name := range r.order {
		infos = append(infos, r.caps[name].Info)
	}
	return infos
}

// Prepare normalizes the selected arguments, injects the resolved identifier when the
// capability needs one and the selection left it out, and validates the result against the
// capability's input schema. It returns the JSON arguments ready for Invoke.
func (r *Registry) Prepare(name string, args map[string]any, identifier string) (string, error) {
	c, ok := r.caps[name]
	if !ok {
		return "", fmt.Errorf("unknown capability %q", name)
	}
	clean := make(map[string]any, len(args)+1)
	for k, v := range args {
		switch vv := v.(type) {
		case string:
			if s := strings.TrimSpace(vv); s != "" {
				clean[k] = s
			}
		case nil:
		default:
			clean[k] = v
		}
	}
	if c.NeedsIdentifier {
		switch v := clean[IdentifierArg].(type) {
		case nil:
			if identifier != "" {
				clean[IdentifierArg] = identifier
			}
		case string:
		default:
			clean[IdentifierArg] = fmt.Sprint(v)
		}
	}

	b, err := json.Marshal(clean)
	if err != nil {
		return "", fmt.Errorf("marshal arguments for %s: %w", name, err)
	}
	if err := c.check(string(b)); err != nil {
		return "", fmt.Errorf("invalid arguments for %s: %w", name, err)
	}
	return string(b), nil
}

// Invoke runs a prepared capability and reports it to any tool callbacks in ctx. Failures come
// back as an error-tagged result.
func (r *Registry) Invoke(ctx context.Context, name, argsJSON string) model.ToolResult {
	c, ok := r.caps[name]
	if !ok {
		return model.ToolResult{Error: fmt.Sprintf("unknown capability %q", name)}
	}
	ctx = callbacks.EnsureRunInfo(ctx, name, components.ComponentOfTool)
	ctx = callbacks.OnStart(ctx, &tool.CallbackInput{ArgumentsInJSON: argsJSON})

	slot := &errSlot{}
	out, err := c.tool.InvokableRun(context.WithValue(ctx, errSlotKey{}, slot), argsJSON)
	if err != nil {
		if slot.err != nil {
			err = slot.err
		}
		callbacks.OnError(ctx, err)
		logx.Warn().Err(err).Str("capability", name).Msg("capability returned an error")
		return model.ToolResult{Error: errorMessage(err)}
	}
	callbacks.OnEnd(ctx, &tool.CallbackOutput{Response: out})
	if !json.Valid([]byte(out)) {
		b, _ := json.Marshal(out)
		out = string(b)
	}
	return model.ToolResult{Data: json.RawMessage(out)}
}

func errorMessage(err error) string {
	var appErr *errx.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs.Error()
	}
	return err.Error()
}
