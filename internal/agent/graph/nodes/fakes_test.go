package nodes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/graph/chains"
	"github.com/Chative-core-poc-v1/callcenter/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
	"github.com/Chative-core-poc-v1/callcenter/internal/agent/repo"
	"github.com/Chative-core-poc-v1/callcenter/internal/agent/telecom"
)

const testPhone = "+905551234567"

var errModel = errors.New("model unavailable")

type fakeGrader struct {
	questionFn func(string) (bool, error)
	routeFn    func(string) (model.Datasource, error)
	docFn      func(model.Document) (bool, error)
	answerFn   func(string) (bool, error)

	questions []string
	answers   int
}

func (g *fakeGrader) GradeQuestion(_ context.Context, q string) (bool, error) {
	g.questions = append(g.questions, q)
	if g.questionFn == nil {
		return true, nil
	}
	return g.questionFn(q)
}

func (g *fakeGrader) RouteQuestion(_ context.Context, q string) (model.Datasource, error) {
	if g.routeFn == nil {
		return model.DatasourceVectorstore, nil
	}
	return g.routeFn(q)
}

func (g *fakeGrader) GradeDocument(_ context.Context, d model.Document, _ string) (bool, error) {
	if g.docFn == nil {
		return true, nil
	}
	return g.docFn(d)
}

func (g *fakeGrader) GradeAnswer(_ context.Context, _, generation string) (bool, error) {
	g.answers++
	if g.answerFn == nil {
		return true, nil
	}
	return g.answerFn(generation)
}

type fakeWriter struct {
	genErr   error
	regenErr error
	contexts []string
	regens   int
}

func (w *fakeWriter) Generate(_ context.Context, contextText, _ string) (string, error) {
	w.contexts = append(w.contexts, contextText)
	if w.genErr != nil {
		return "", w.genErr
	}
	return "cevap", nil
}

func (w *fakeWriter) Regenerate(_ context.Context, contextText, _, _ string) (string, error) {
	w.contexts = append(w.contexts, contextText)
	if w.regenErr != nil {
		return "", w.regenErr
	}
	w.regens++
	return fmt.Sprintf("cevap v%d", w.regens+1), nil
}

type selectResult struct {
	sel chains.Selection
	err error
}

type fakeSelector struct {
	results []selectResult
	narrow  []bool
}

func (s *fakeSelector) Select(_ context.Context, _, _ string, narrow bool) (chains.Selection, error) {
	s.narrow = append(s.narrow, narrow)
	if len(s.results) == 0 {
		return chains.Selection{}, chains.ErrNoToolCall
	}
	r := s.results[0]
	s.results = s.results[1:]
	return r.sel, r.err
}

func selects(name string, args map[string]any) selectResult {
	return selectResult{sel: chains.Selection{Name: name, Args: args}}
}

// fakeAccount is the account-data backend with one known subscriber.
type fakeAccount struct {
	down  bool
	pings int
	calls []string
}

func (a *fakeAccount) Ping(context.Context) bool {
	a.pings++
	return !a.down
}

func (a *fakeAccount) FindUser(_ context.Context, identifier string) (*model.User, error) {
	a.calls = append(a.calls, "find:"+identifier)
	if identifier != testPhone && identifier != "MSTR001" {
		return nil, telecom.ErrUserNotFound
	}
	return &model.User{ID: 7, CustomerID: "MSTR001", PhoneNumber: testPhone, FirstName: "Ayşe"}, nil
}

func (a *fakeAccount) UserResource(_ context.Context, userID int, resource string) (json.RawMessage, error) {
	a.calls = append(a.calls, fmt.Sprintf("%s:%d", resource, userID))
	return json.RawMessage(fmt.Sprintf(`{"resource":%q}`, resource)), nil
}

func (a *fakeAccount) Packages(context.Context) ([]model.Package, error) {
	return []model.Package{{PackageID: "PKG001", Name: "Mega 20GB", IsActive: true}}, nil
}

func (a *fakeAccount) CreateTicket(context.Context, model.TicketRequest) (json.RawMessage, error) {
	return json.RawMessage(`{"success":true}`), nil
}

func (a *fakeAccount) UpdateUser(context.Context, int, map[string]any) (json.RawMessage, error) {
	return json.RawMessage(`{"success":true}`), nil
}

type fakeSearch struct {
	docs []model.Document
	err  error
	k    int
}

func (f *fakeSearch) Search(_ context.Context, _ string, k int) ([]model.Document, error) {
	f.k = k
	return f.docs, f.err
}

// downBackend fails every call, standing in for an unreachable store.
type downBackend struct{}

var errDown = errors.New("connection refused")

func (downBackend) Get(context.Context, string) (string, error) { return "", errDown }
func (downBackend) Set(context.Context, string, string, time.Duration) error { return errDown }
func (downBackend) Delete(context.Context, ...string) error { return errDown }
func (downBackend) CountPrefix(context.Context, string) (int64, error) { return 0, errDown }
func (downBackend) Ping(context.Context) error { return errDown }

type fallbackLog []string

func (f *fallbackLog) Fallback(node, reason string) {
	*f = append(*f, node+":"+reason)
}

type harness struct {
	steps     *Steps
	store     *repo.MemoryStore
	grader    *fakeGrader
	writer    *fakeWriter
	selector  *fakeSelector
	account   *fakeAccount
	search    *fakeSearch
	fallbacks *fallbackLog
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, repo.NewMemoryStore(repo.NewLocalBackend(time.Minute), model.MemoryConfig{}))
}

func newHarnessWith(t *testing.T, store *repo.MemoryStore) *harness {
	t.Helper()
	h := &harness{
		store:     store,
		grader:    &fakeGrader{},
		writer:    &fakeWriter{},
		selector:  &fakeSelector{},
		account:   &fakeAccount{},
		search:    &fakeSearch{},
		fallbacks: &fallbackLog{},
	}
	registry, err := tools.NewAccountRegistry(h.account)
	require.NoError(t, err)

	h.steps = New(Deps{
		Memory:    store,
		Grader:    h.grader,
		Writer:    h.writer,
		Selector:  h.selector,
		Tools:     registry,
		Backend:   h.account,
		Search:    h.search,
		Fallbacks: h.fallbacks,
	})
	return h
}
