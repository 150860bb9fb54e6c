package nodes

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
	"github.com/Chative-core-poc-v1/callcenter/internal/agent/repo"
)

func session(question string) model.Session {
	return model.Session{ConversationID: "conv-1", Question: question}
}

func TestGradeQuestionAppendsQuestionWhateverTheVerdict(t *testing.T) {
	h := newHarness(t)
	h.grader.questionFn = func(string) (bool, error) { return false, nil }

	in := session("5 + 5 kaç eder?")
	in.History = []model.Message{userMessage("Merhaba"), assistantMessage("Merhaba, nasıl yardımcı olabilirim?")}
	out := h.steps.GradeQuestion(context.Background(), in)

	assert.False(t, out.QuestionGrade)
	require.Len(t, out.History, 3)
	assert.Equal(t, userMessage("5 + 5 kaç eder?"), out.History[2])
	assert.Len(t, in.History, 2)
	assert.Contains(t, h.grader.questions[0], "Previous conversation:\nuser: Merhaba")
	assert.Contains(t, h.grader.questions[0], "Current question: 5 + 5 kaç eder?")
}

func TestGradeQuestionFailsOpen(t *testing.T) {
	h := newHarness(t)
	h.grader.questionFn = func(string) (bool, error) { return false, errModel }

	out := h.steps.GradeQuestion(context.Background(), session("Paketim nedir?"))

	assert.True(t, out.QuestionGrade)
	assert.Len(t, out.History, 1)
	assert.Equal(t, []string{"grade_question:classification_failed"}, []string(*h.fallbacks))
}

func TestRouteQuestion(t *testing.T) {
	h := newHarness(t)
	h.grader.routeFn = func(string) (model.Datasource, error) { return model.DatasourceFunctionCalls, nil }
	out := h.steps.RouteQuestion(context.Background(), session("Faturamı görebilir miyim?"))
	assert.Equal(t, model.DatasourceFunctionCalls, out.Datasource)

	h.grader.routeFn = func(string) (model.Datasource, error) { return model.DatasourceUnset, errModel }
	out = h.steps.RouteQuestion(context.Background(), session("Faturamı görebilir miyim?"))
	assert.Equal(t, model.DatasourceVectorstore, out.Datasource)
}

func TestRetrieveAndGradeDocuments(t *testing.T) {
	h := newHarness(t)
	h.search.docs = []model.Document{{Content: "a"}, {Content: "b"}, {Content: "c"}, {Content: "d"}}
	h.grader.docFn = func(d model.Document) (bool, error) {
		switch d.Content {
		case "b":
			return false, nil
		case "c":
			return true, errModel
		}
		return true, nil
	}

	out := h.steps.Retrieve(context.Background(), session("Roaming ücreti nedir?"))
	assert.Equal(t, DefaultRetrievalTopK, h.search.k)
	require.Len(t, out.Documents, 4)

	out = h.steps.GradeDocuments(context.Background(), out)
	assert.Equal(t, []model.Document{{Content: "a"}, {Content: "d"}}, out.RelevantDocuments)
}

func TestRetrieveSearchFailureIsEmpty(t *testing.T) {
	h := newHarness(t)
	h.search.err = errDown

	out := h.steps.Retrieve(context.Background(), session("Roaming ücreti nedir?"))
	assert.Empty(t, out.Documents)
	assert.Contains(t, *h.fallbacks, "retrieve:search_failed")
}

func TestFunctionCallsAsksForIdentifier(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	in := session("Benim paketim nedir?")
	in.History = []model.Message{userMessage("Benim paketim nedir?")}
	out := h.steps.FunctionCalls(ctx, in)

	assert.Equal(t, MsgAskIdentifier, out.Notice)
	assert.Empty(t, out.Generation)
	assert.Equal(t, MsgAskIdentifier, out.ToolResults[ResultIdentifierRequired].Error)
	assert.Zero(t, h.account.pings)
	assert.Empty(t, h.selector.narrow)

	in.History = append(in.History, assistantMessage(MsgAskIdentifier), userMessage("paketimi söyle"))
	in.Question = "paketimi söyle"
	out = h.steps.FunctionCalls(ctx, in)
	assert.Equal(t, MsgAskIdentifierAgain, out.Notice)
}

func TestFunctionCallsLooksUpLinksAndCaches(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.selector.results = []selectResult{selects(tools.ToolPackageInfo, map[string]any{})}

	out := h.steps.FunctionCalls(ctx, session("Benim paketim nedir? 0555 123 45 67"))

	require.Contains(t, out.ToolResults, tools.ToolPackageInfo)
	assert.JSONEq(t, `{"resource":"package"}`, string(out.ToolResults[tools.ToolPackageInfo].Data))
	assert.Equal(t, testPhone, out.UserContext.Str(model.ContextPhoneNumber))
	assert.Equal(t, []string{"find:" + testPhone, "package:7"}, h.account.calls)
	assert.Empty(t, out.Notice)

	linked, ok := h.store.LinkedIdentifier(ctx, "conv-1")
	require.True(t, ok)
	assert.Equal(t, testPhone, linked)

	cached, ok := h.store.CachedResponse(ctx, repo.CacheKey(testPhone, "Benim paketim nedir? 0555 123 45 67"))
	require.True(t, ok)
	assert.Equal(t, out.ToolResults, cached)

	// Same question again: served from cache, no probe, no selection.
	pings := h.account.pings
	again := h.steps.FunctionCalls(ctx, session("Benim paketim nedir? 0555 123 45 67"))
	assert.Equal(t, out.ToolResults, again.ToolResults)
	assert.Equal(t, pings, h.account.pings)
	assert.Len(t, h.selector.narrow, 1)
}

func TestFunctionCallsUsesLinkOnLaterTurn(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.store.LinkIdentifier(ctx, "conv-1", testPhone))
	h.selector.results = []selectResult{selects(tools.ToolBillInfo, nil)}

	out := h.steps.FunctionCalls(ctx, session("Faturamı da görebilir miyim?"))

	require.Contains(t, out.ToolResults, tools.ToolBillInfo)
	assert.Equal(t, []string{"find:" + testPhone, "bills:7"}, h.account.calls)
	assert.Empty(t, out.Notice)
}

func TestFunctionCallsQuestionIdentifierBeatsLink(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.store.LinkIdentifier(ctx, "conv-1", "+905559999999"))
	h.selector.results = []selectResult{selects(tools.ToolPackageInfo, nil)}

	in := session("MSTR001 paketim nedir?")
	in.UserContext = model.UserContext{model.ContextPhoneNumber: "+905559999999", model.ContextName: "Başkası"}
	out := h.steps.FunctionCalls(ctx, in)

	assert.Equal(t, "MSTR001", out.UserContext.Str(model.ContextCustomerID))
	assert.Empty(t, out.UserContext.Str(model.ContextName))
	assert.Equal(t, []string{"find:MSTR001", "package:7"}, h.account.calls)
}

func TestFunctionCallsBackendDown(t *testing.T) {
	h := newHarness(t)
	h.account.down = true

	out := h.steps.FunctionCalls(context.Background(), session("Faturam 05551234567"))

	assert.Equal(t, MsgBackendUnavailable, out.Notice)
	assert.True(t, out.ToolResults.HasError())
	assert.Empty(t, h.selector.narrow)
	assert.Empty(t, h.account.calls)
}

func TestFunctionCallsSelectionRetryThenDefault(t *testing.T) {
	h := newHarness(t)
	h.selector.results = []selectResult{
		{err: errModel},
		selects("get_weather", nil),
	}

	out := h.steps.FunctionCalls(context.Background(), session("0555 123 45 67 bir şey"))

	assert.Equal(t, []bool{false, true}, h.selector.narrow)
	require.Contains(t, out.ToolResults, tools.ToolPackageInfo)
	assert.Contains(t, *h.fallbacks, "function_calls:selection_failed")
}

func TestFunctionCallsNarrowRetrySucceeds(t *testing.T) {
	h := newHarness(t)
	h.selector.results = []selectResult{
		{err: errModel},
		selects(tools.ToolSupportTickets, map[string]any{"phone_number": "  "}),
	}

	out := h.steps.FunctionCalls(context.Background(), session("0555 123 45 67 şikayetlerim"))

	require.Contains(t, out.ToolResults, tools.ToolSupportTickets)
	assert.Equal(t, []string{"find:" + testPhone, "tickets:7"}, h.account.calls)
}

func TestFunctionCallsErrorResultsAreNotCached(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.selector.results = []selectResult{selects(tools.ToolBillInfo, nil)}

	out := h.steps.FunctionCalls(ctx, session("0555 000 00 00 faturam"))

	assert.True(t, out.ToolResults.HasError())
	assert.Equal(t, "user not found", out.ToolResults[tools.ToolBillInfo].Error)
	_, ok := h.store.CachedResponse(ctx, repo.CacheKey("+905550000000", "0555 000 00 00 faturam"))
	assert.False(t, ok)
}

func TestGenerate(t *testing.T) {
	h := newHarness(t)
	in := session("Paketim nedir?")
	in.History = []model.Message{userMessage("Paketim nedir?")}
	in.RelevantDocuments = []model.Document{{Content: "Mega 20GB"}}
	in.NeedsRetry = true

	out := h.steps.Generate(context.Background(), in)

	assert.Equal(t, "cevap", out.Generation)
	assert.False(t, out.NeedsRetry)
	assert.Equal(t, assistantMessage("cevap"), out.History[1])
	assert.Contains(t, h.writer.contexts[0], "Knowledge base:\nMega 20GB")
}

func TestGenerateAnswersFromLookupNotice(t *testing.T) {
	h := newHarness(t)
	in := session("Paketim?")
	in.ToolResults = model.ToolResults{ResultIdentifierRequired: {Error: MsgAskIdentifier}}
	in.Notice = MsgAskIdentifier

	out := h.steps.Generate(context.Background(), in)

	assert.Equal(t, "cevap", out.Generation)
	assert.Equal(t, []model.Message{assistantMessage("cevap")}, out.History)
	require.Len(t, h.writer.contexts, 1)
	assert.Contains(t, h.writer.contexts[0], "API response from "+ResultIdentifierRequired+": error: "+MsgAskIdentifier)

	h.writer.genErr = errModel
	out = h.steps.Generate(context.Background(), in)

	assert.Equal(t, MsgAskIdentifier, out.Generation)
	assert.Equal(t, []model.Message{assistantMessage(MsgAskIdentifier)}, out.History)
}

func TestGenerateFailureApologisesWithoutRecording(t *testing.T) {
	h := newHarness(t)
	h.writer.genErr = errModel
	in := session("Paketim?")
	in.History = []model.Message{userMessage("Paketim?")}

	out := h.steps.Generate(context.Background(), in)

	assert.Equal(t, MsgGenerationFailed, out.Generation)
	assert.Len(t, out.History, 1)
}

func TestRegenerate(t *testing.T) {
	h := newHarness(t)
	in := session("Paketim?")
	in.Generation = "cevap"
	in.NeedsRetry = true
	in.History = []model.Message{userMessage("Paketim?"), assistantMessage("cevap")}

	out := h.steps.Regenerate(context.Background(), in)
	assert.Equal(t, "cevap v2", out.Generation)
	assert.Equal(t, []model.Message{userMessage("Paketim?"), assistantMessage("cevap v2")}, out.History)
	assert.False(t, out.NeedsRetry)

	h.writer.regenErr = errModel
	out = h.steps.Regenerate(context.Background(), in)
	assert.Equal(t, "cevap", out.Generation)
	assert.Equal(t, in.History, out.History)
	assert.False(t, out.NeedsRetry)
}

func TestGradeAnswerRetryCeiling(t *testing.T) {
	h := newHarness(t)
	h.grader.answerFn = func(string) (bool, error) { return false, nil }
	s := session("Paketim?")
	s.Generation = "kötü"

	s = h.steps.GradeAnswer(context.Background(), s)
	assert.True(t, s.NeedsRetry)
	assert.Equal(t, 1, s.RetryCount)

	s = h.steps.GradeAnswer(context.Background(), s)
	assert.True(t, s.NeedsRetry)
	assert.Equal(t, 2, s.RetryCount)

	s = h.steps.GradeAnswer(context.Background(), s)
	assert.False(t, s.NeedsRetry)
	assert.False(t, s.AnswerGrade)
	assert.Equal(t, 2, s.RetryCount)
}

func TestGradeAnswerDefaultsToGood(t *testing.T) {
	h := newHarness(t)
	h.grader.answerFn = func(string) (bool, error) { return false, errModel }

	out := h.steps.GradeAnswer(context.Background(), session("q"))
	assert.True(t, out.AnswerGrade)
	assert.False(t, out.NeedsRetry)
	assert.Equal(t, 1, h.grader.answers)
}

func TestRejectQuestion(t *testing.T) {
	out := newHarness(t).steps.RejectQuestion(context.Background(), session("asdfgh"))
	assert.Equal(t, MsgRejected, out.Generation)
}

func TestWithMemoryLoadsAndSaves(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.store.SetHistory(ctx, "conv-1", []model.Message{userMessage("önceki")}))
	require.NoError(t, h.store.LinkIdentifier(ctx, "conv-1", testPhone))
	require.NoError(t, h.store.SaveUserContext(ctx, testPhone, model.UserContext{model.ContextPhoneNumber: testPhone}))

	var seen model.Session
	step := WithMemory(h.store, func(_ context.Context, s model.Session) model.Session {
		seen = s
		s.History = append(s.History, userMessage("yeni"))
		return s
	})
	step(ctx, session("yeni"))

	assert.Equal(t, []model.Message{userMessage("önceki")}, seen.History)
	assert.Equal(t, testPhone, seen.UserContext.Str(model.ContextPhoneNumber))

	history, _ := h.store.History(ctx, "conv-1")
	assert.Equal(t, []model.Message{userMessage("önceki"), userMessage("yeni")}, history)

	// Unchanged context is not re-saved.
	uc, _ := h.store.UserContext(ctx, testPhone)
	assert.EqualValues(t, 1, uc[model.ContextUpdateCount])
}

func TestWithMemorySavesChangedContext(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	step := WithMemory(h.store, func(_ context.Context, s model.Session) model.Session {
		s.UserContext = model.UserContext{model.ContextPhoneNumber: testPhone, model.ContextName: "Ayşe"}
		return s
	})
	step(ctx, session("q"))

	uc, ok := h.store.UserContext(ctx, testPhone)
	require.True(t, ok)
	assert.Equal(t, "Ayşe", uc.Str(model.ContextName))
}

func TestWithMemoryKeepsSessionWhenStoreIsDown(t *testing.T) {
	h := newHarnessWith(t, repo.NewMemoryStore(downBackend{}, model.MemoryConfig{}))
	in := session("Faturam?")
	in.History = []model.Message{userMessage("Faturam?")}
	in.UserContext = model.UserContext{model.ContextPhoneNumber: testPhone}
	h.selector.results = []selectResult{selects(tools.ToolBillInfo, nil)}

	out := WithMemory(h.store, h.steps.FunctionCalls)(context.Background(), in)

	assert.Equal(t, in.History, out.History)
	require.Contains(t, out.ToolResults, tools.ToolBillInfo)
	assert.False(t, out.ToolResults.HasError())
}

func TestNormalizePipeline(t *testing.T) {
	p := normalizePipeline(model.PipelineConfig{CallTimeout: time.Second})
	assert.Equal(t, time.Second, p.CallTimeout)
	assert.Equal(t, DefaultHistoryWindow, p.HistoryWindow)
	assert.Equal(t, DefaultScanTurns, p.IdentifierScanTurns)
	assert.Equal(t, DefaultLanguage, p.ResponseLanguage)
}
