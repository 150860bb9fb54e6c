package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/callcenter/internal/core/error"
	"github.com/Chative-core-poc-v1/callcenter/internal/observability"
	logx "github.com/Chative-core-poc-v1/callcenter/pkg/logger"
)

type Answerer interface {
	Invoke(ctx context.Context, in model.QueryInput) (*model.Result, error)
}

type Memory interface {
	Healthy(ctx context.Context) bool
	Stats(ctx context.Context) model.MemoryStats
	Summary(ctx context.Context, conversationID string) model.ConversationSummary
	ClearConversation(ctx context.Context, conversationID string) error
}

// Prober reports whether the account-data backend answers.
type Prober interface {
	Ping(ctx context.Context) bool
}

type Server struct {
	answerer Answerer
	memory   Memory
	backend  Prober
	metrics  *observability.Metrics
	validate *validator.Validate
}

func New(answerer Answerer, memory Memory, backend Prober, metrics *observability.Metrics) *Server {
	return &Server{
		answerer: answerer,
		memory:   memory,
		backend:  backend,
		metrics:  metrics,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

type messageRequest struct {
	ConversationID string `json:"conversation_id" validate:"omitempty,max=128"`
	Question       string `json:"question" validate:"required,max=4000"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.metrics.Handler().ServeHTTP(w, r)
	})

	r.Post("/v1/messages", s.handleMessage)
	r.Get("/v1/conversations/{id}", s.handleGetConversation)
	r.Delete("/v1/conversations/{id}", s.handleClearConversation)
	r.Get("/v1/memory/stats", s.handleMemoryStats)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	memoryUp := s.memory.Healthy(r.Context())
	backendUp := s.backend == nil || s.backend.Ping(r.Context())

	status := "ok"
	if !memoryUp || !backendUp {
		status = "degraded"
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"memory":  memoryUp,
		"backend": backendUp,
	})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", validationMessage(err))
		return
	}

	res, err := s.answerer.Invoke(r.Context(), model.QueryInput{
		ConversationID: req.ConversationID,
		Question:       req.Question,
	})
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	respondJSON(w, http.StatusOK, s.memory.Summary(r.Context(), id))
}

func (s *Server) handleClearConversation(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if err := s.memory.ClearConversation(r.Context(), id); err != nil {
		logx.Error().Err(err).Str("conversation_id", id).Msg("Error clearing conversation")
		respondAppError(w, errx.New(err, http.StatusServiceUnavailable, errx.RedisErrorMessage))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMemoryStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.memory.Stats(r.Context()))
}

// observe records request counts and latency per route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveHTTP(route, r.Method, status, time.Since(start))
	})
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return field + " is too long"
	}
	return field + " is invalid"
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

// respondAppError maps err to its status. Internal failures never leak their cause.
func respondAppError(w http.ResponseWriter, err error) {
	status := errx.StatusOf(err)
	message := errx.SystemErrorMessage
	var appErr *errx.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		message = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		logx.Error().Err(err).Int("status", status).Msg("Request failed")
	}
	respondError(w, status, strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "_"), message)
}
