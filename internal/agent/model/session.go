package model

type Datasource string

const (
	DatasourceUnset         Datasource = ""
	DatasourceVectorstore   Datasource = "vectorstore"
	DatasourceFunctionCalls Datasource = "function_calls"
)

// Valid reports whether d is one of the two routable labels.
func (d Datasource) Valid() bool {
	return d == DatasourceVectorstore || d == DatasourceFunctionCalls
}

// Session is the state threaded through one pipeline run. Steps receive it by value and
// return a new value; use Clone before mutating slices or maps.
type Session struct {
	Question       string
	ConversationID string

	Datasource        Datasource
	Documents         []Document
	RelevantDocuments []Document
	ToolResults       ToolResults

	Generation    string
	QuestionGrade bool
	AnswerGrade   bool
	NeedsRetry    bool
	RetryCount    int

	// Notice is the fixed user-facing message for a lookup that could not run (missing
	// identifier, backend down). Generate answers with it when the model fails.
	Notice string

	History     []Message
	UserContext UserContext

	// Run bookkeeping copied out of the graph local state.
	Trace   []string
	CostUSD float64
}

// Clone returns a copy that shares no mutable slices or maps with s.
func (s Session) Clone() Session {
	out := s
	out.Documents = append([]Document(nil), s.Documents...)
	out.RelevantDocuments = append([]Document(nil), s.RelevantDocuments...)
	out.ToolResults = s.ToolResults.Clone()
	out.History = append([]Message(nil), s.History...)
	out.UserContext = s.UserContext.Clone()
	out.Trace = append([]string(nil), s.Trace...)
	return out
}

// RunState is graph local state: per-invocation bookkeeping that is not part of the
// conversation itself. Only touched inside eino state handlers or compose.ProcessState.
type RunState struct {
	ConversationID string
	Steps          []string
	TotalCostUSD   float64
}

// QueryInput is the public input of one pipeline run.
type QueryInput struct {
	ConversationID string `json:"conversation_id"`
	Question       string `json:"question"`
}

// Result is the public output of one pipeline run.
type Result struct {
	ConversationID string     `json:"conversation_id"`
	Answer         string     `json:"answer"`
	QuestionGrade  bool       `json:"question_grade"`
	AnswerGrade    bool       `json:"answer_grade"`
	Datasource     Datasource `json:"datasource,omitempty"`
	RetryCount     int        `json:"retry_count"`
	Steps          []string   `json:"steps"`
	CostUSD        float64    `json:"cost_usd"`
}

// NewResult projects the terminal session onto the public result.
func NewResult(s Session) *Result {
	return &Result{
		ConversationID: s.ConversationID,
		Answer:         s.Generation,
		QuestionGrade:  s.QuestionGrade,
		AnswerGrade:    s.AnswerGrade,
		Datasource:     s.Datasource,
		RetryCount:     s.RetryCount,
		Steps:          s.Trace,
		CostUSD:        s.CostUSD,
	}
}
