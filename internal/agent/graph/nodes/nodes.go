package nodes

import (
	"context"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/graph/chains"
	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
	"github.com/Chative-core-poc-v1/callcenter/internal/agent/retrieval"
)

// Node names, also used as step names in the run trace.
const (
	NodeGradeQuestion  = "grade_question"
	NodeRouteQuestion  = "route_question"
	NodeRetrieve       = "retrieve"
	NodeGradeDocuments = "grade_documents"
	NodeFunctionCalls  = "function_calls"
	NodeGenerate       = "generate"
	NodeRegenerate     = "regenerate"
	NodeGradeAnswer    = "grade_answer"
	NodeRejectQuestion = "reject_question"
)

// MaxAnswerRetries is the answer quality gate's own regeneration ceiling.
const MaxAnswerRetries = 2

// User-facing messages.
const (
	MsgRejected            = "Üzgünüm, bu soruyu anlayamadım. Telecom hizmetlerimiz hakkında bir soru sorabilir misiniz?"
	MsgAskIdentifier       = "Kişisel bilgilerinize erişebilmem için telefon numaranızı belirtiniz. Örnek: 0555 123 45 67"
	MsgAskIdentifierAgain  = "Telefon numaranızı hala alamadım. Lütfen açık bir şekilde belirtiniz: '0555 123 45 67'"
	MsgBackendUnavailable  = "API hizmetimiz şu anda kullanılamıyor. Lütfen daha sonra tekrar deneyiniz."
	MsgGenerationFailed    = "Üzgünüm, bir hata oluştu. Lütfen tekrar deneyiniz."
	askedForIdentifierMark = "telefon numaranızı"
)

// Result names used for short-circuited lookups.
const (
	ResultIdentifierRequired = "identifier_required"
	ResultBackendUnavailable = "backend_unavailable"
)

// Step is one pipeline step. It never fails: errors become the step's fallback state.
type Step func(ctx context.Context, in model.Session) model.Session

// Memory is the part of the Memory Store the steps use. Reads report ok=false when the
// backend could not be reached.
type Memory interface {
	History(ctx context.Context, conversationID string) ([]model.Message, bool)
	SetHistory(ctx context.Context, conversationID string, msgs []model.Message) error
	UserContext(ctx context.Context, identifier string) (model.UserContext, bool)
	SaveUserContext(ctx context.Context, identifier string, updates model.UserContext) error
	LinkedIdentifier(ctx context.Context, conversationID string) (string, bool)
	LinkIdentifier(ctx context.Context, conversationID, identifier string) error
	CachedResponse(ctx context.Context, cacheKey string) (model.ToolResults, bool)
	CacheResponse(ctx context.Context, cacheKey string, results model.ToolResults) error
}

type Grader interface {
	GradeQuestion(ctx context.Context, question string) (bool, error)
	RouteQuestion(ctx context.Context, question string) (model.Datasource, error)
	GradeDocument(ctx context.Context, doc model.Document, question string) (bool, error)
	GradeAnswer(ctx context.Context, question, generation string) (bool, error)
}

type Writer interface {
	Generate(ctx context.Context, contextText, question string) (string, error)
	Regenerate(ctx context.Context, contextText, question, previous string) (string, error)
}

type Selector interface {
	Select(ctx context.Context, identifier, question string, narrow bool) (chains.Selection, error)
}

// Capabilities is the capability registry.
type Capabilities interface {
	Default() string
	Prepare(name string, args map[string]any, identifier string) (string, error)
	Invoke(ctx context.Context, name, argsJSON string) model.ToolResult
}

// Prober checks the account-data backend before a lookup.
type Prober interface {
	Ping(ctx context.Context) bool
}

// FallbackRecorder counts steps that fell back to their default.
type FallbackRecorder interface {
	Fallback(node, reason string)
}

type Deps struct {
	Memory    Memory
	Grader    Grader
	Writer    Writer
	Selector  Selector
	Tools     Capabilities
	Backend   Prober
	Search    retrieval.Searcher
	Pipeline  model.PipelineConfig
	Fallbacks FallbackRecorder
}

// Steps holds the pipeline steps over a shared set of dependencies.
type Steps struct {
	d Deps
}

func New(d Deps) *Steps {
	d.Pipeline = normalizePipeline(d.Pipeline)
	return &Steps{d: d}
}
