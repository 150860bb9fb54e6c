package graph

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/graph/nodes"
	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/callcenter/pkg/logger"
)

const (
	// GraphName is reported to callbacks as the name of the whole run.
	GraphName = "callcenter"

	maxRunSteps = 25
)

// Config holds everything needed to build the routing graph.
type Config struct {
	Steps *nodes.Steps
	// Memory wraps the memory-aware steps. Nil runs the graph without persistence.
	Memory nodes.Memory
}

// GraphBuilder handles the construction of the routing graph.
type GraphBuilder struct {
	config *Config
	graph  *compose.Graph[model.Session, model.Session]
}

type nodeSpec struct {
	name   string
	step   nodes.Step
	memory bool
}

// BuildGraph constructs and returns the compiled routing graph.
func BuildGraph(ctx context.Context, config *Config) (compose.Runnable[model.Session, model.Session], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.Steps == nil {
		return nil, fmt.Errorf("pipeline steps are nil")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.Session, model.Session](
			compose.WithGenLocalState(func(ctx context.Context) *model.RunState {
				return &model.RunState{}
			}),
		),
	}

	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

func (b *GraphBuilder) nodeTable() []nodeSpec {
	st := b.config.Steps
	return []nodeSpec{
		{name: nodes.NodeGradeQuestion, step: st.GradeQuestion, memory: true},
		{name: nodes.NodeRouteQuestion, step: st.RouteQuestion},
		{name: nodes.NodeRetrieve, step: st.Retrieve},
		{name: nodes.NodeGradeDocuments, step: st.GradeDocuments},
		{name: nodes.NodeFunctionCalls, step: st.FunctionCalls, memory: true},
		{name: nodes.NodeGenerate, step: st.Generate, memory: true},
		{name: nodes.NodeRegenerate, step: st.Regenerate, memory: true},
		{name: nodes.NodeGradeAnswer, step: st.GradeAnswer, memory: true},
		{name: nodes.NodeRejectQuestion, step: st.RejectQuestion},
	}
}

// addNodes registers every step as a lambda node with the trace handlers around it.
func (b *GraphBuilder) addNodes() error {
	for _, node := range b.nodeTable() {
		step := node.step
		if node.memory && b.config.Memory != nil {
			step = nodes.WithMemory(b.config.Memory, step)
		}

		err := b.graph.AddLambdaNode(node.name,
			compose.InvokableLambda(invokable(step)),
			compose.WithNodeName(node.name),
			compose.WithStatePreHandler(tracePreHandler(node.name)),
			compose.WithStatePostHandler(tracePostHandler),
		)
		if err != nil {
			logx.Error().Err(err).Str("node", node.name).Msg("Error adding node")
			return fmt.Errorf("error adding node %s: %w", node.name, err)
		}
	}
	return nil
}

// addEdges creates the unconditional connections between nodes.
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeGradeQuestion},
		{nodes.NodeRetrieve, nodes.NodeGradeDocuments},
		{nodes.NodeFunctionCalls, nodes.NodeGenerate},
		{nodes.NodeGenerate, nodes.NodeGradeAnswer},
		{nodes.NodeRegenerate, nodes.NodeGradeAnswer},
		{nodes.NodeRejectQuestion, compose.END},
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			logx.Error().Err(err).Str("from", edge[0]).Str("to", edge[1]).Msg("Error adding edge")
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates the conditional routing branches.
func (b *GraphBuilder) addBranches() error {
	branches := []struct {
		from    string
		cond    func(context.Context, model.Session) (string, error)
		targets []string
	}{
		{nodes.NodeGradeQuestion, AfterQuestionGrade, []string{nodes.NodeRouteQuestion, nodes.NodeRejectQuestion}},
		{nodes.NodeRouteQuestion, AfterRouting, []string{nodes.NodeRetrieve, nodes.NodeFunctionCalls}},
		{nodes.NodeGradeDocuments, AfterDocumentGrade, []string{nodes.NodeGenerate, nodes.NodeFunctionCalls}},
		{nodes.NodeGradeAnswer, AfterAnswerGrade, []string{nodes.NodeRegenerate, compose.END}},
	}

	for _, br := range branches {
		end := make(map[string]bool, len(br.targets))
		for _, t := range br.targets {
			end[t] = true
		}
		if err := b.graph.AddBranch(br.from, compose.NewGraphBranch(br.cond, end)); err != nil {
			logx.Error().Err(err).Str("node", br.from).Msg("Error adding branch")
			return fmt.Errorf("error adding branch after %s: %w", br.from, err)
		}
	}
	return nil
}

// compile finalizes and compiles the graph.
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.Session, model.Session], error) {
	runnable, err := b.graph.Compile(ctx,
		compose.WithGraphName(GraphName),
		compose.WithMaxRunSteps(maxRunSteps),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}

func invokable(step nodes.Step) func(context.Context, model.Session) (model.Session, error) {
	return func(ctx context.Context, in model.Session) (model.Session, error) {
		return step(ctx, in), nil
	}
}

// tracePreHandler appends the node to the run trace before it executes.
func tracePreHandler(name string) func(context.Context, model.Session, *model.RunState) (model.Session, error) {
	return func(_ context.Context, in model.Session, st *model.RunState) (model.Session, error) {
		if st.ConversationID == "" {
			st.ConversationID = in.ConversationID
		}
		st.Steps = append(st.Steps, name)
		return in, nil
	}
}

// tracePostHandler copies the trace and accumulated cost onto the session.
func tracePostHandler(_ context.Context, out model.Session, st *model.RunState) (model.Session, error) {
	out.Trace = append([]string(nil), st.Steps...)
	out.CostUSD = st.TotalCostUSD
	return out, nil
}
