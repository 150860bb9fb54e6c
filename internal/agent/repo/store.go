package repo

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/callcenter/pkg/logger"
)

// ErrUncacheable is returned when asked to cache a result set that carries an error.
var ErrUncacheable = errors.New("repo: error results are never cached")

const (
	kindConversation = "conversation"
	kindUserContext  = "user_context"
	kindLink         = "phone_mapping"
	kindResponse     = "api_cache"
)

// MemoryStore holds the four record kinds of the router: conversation history, user context,
// conversation→identifier link and cached capability responses.
//
// Reads never fail: they return the empty value plus ok=false when the backend could not be
// read. A missing record is an empty value with ok=true. Writes return an error that callers
// log and ignore; the pipeline keeps running without cross-turn memory.
type MemoryStore struct {
	backend Backend
	cfg     model.MemoryConfig
	now     func() time.Time
}

func NewMemoryStore(backend Backend, cfg model.MemoryConfig) *MemoryStore {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "telecom"
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = 20
	}
	if cfg.ConversationTTL <= 0 {
		cfg.ConversationTTL = 24 * time.Hour
	}
	if cfg.UserContextTTL <= 0 {
		cfg.UserContextTTL = 30 * 24 * time.Hour
	}
	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = cfg.ConversationTTL
	}
	if cfg.ResponseCacheTTL <= 0 {
		cfg.ResponseCacheTTL = 5 * time.Minute
	}
	return &MemoryStore{backend: backend, cfg: cfg, now: time.Now}
}

func (s *MemoryStore) key(kind, id string) string {
	return s.cfg.KeyPrefix + ":" + kind + ":" + id
}

// NormalizeIdentifier strips everything but letters and digits, so "+90 555-123" and
// "90555123" share one user context record.
func NormalizeIdentifier(identifier string) string {
	var b strings.Builder
	b.Grow(len(identifier))
	for _, r := range identifier {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// CacheKey is the response cache key for an (identifier, question) pair.
func CacheKey(identifier, question string) string {
	sum := md5.Sum([]byte(identifier + ":" + question))
	return hex.EncodeToString(sum[:])
}

func (s *MemoryStore) getJSON(ctx context.Context, key string, dst any) (found, ok bool) {
	raw, err := s.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, true
	}
	if err != nil {
		return false, false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		logx.Warn().Err(err).Str("key", key).Msg("discarding undecodable memory record")
		return false, true
	}
	return true, true
}

func (s *MemoryStore) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.backend.Set(ctx, key, string(b), ttl)
}

// ============ Conversation history ============

func (s *MemoryStore) History(ctx context.Context, conversationID string) ([]model.Message, bool) {
	var msgs []model.Message
	if _, ok := s.getJSON(ctx, s.key(kindConversation, conversationID), &msgs); !ok {
		return []model.Message{}, false
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return msgs, true
}

// SetHistory replaces the stored history, keeping only the most recent MaxHistory entries.
func (s *MemoryStore) SetHistory(ctx context.Context, conversationID string, msgs []model.Message) error {
	return s.setJSON(ctx, s.key(kindConversation, conversationID), TrimHistory(msgs, s.cfg.MaxHistory), s.cfg.ConversationTTL)
}

// AddMessage appends one entry. It is a read-modify-write without a lock.
func (s *MemoryStore) AddMessage(ctx context.Context, conversationID string, role model.Role, content string) error {
	msgs, ok := s.History(ctx, conversationID)
	if !ok {
		return fmt.Errorf("load history for %s: backend unavailable", conversationID)
	}
	msgs = append(msgs, model.Message{Role: role, Content: content})
	return s.SetHistory(ctx, conversationID, msgs)
}

func (s *MemoryStore) DeleteHistory(ctx context.Context, conversationID string) error {
	return s.backend.Delete(ctx, s.key(kindConversation, conversationID))
}

// TrimHistory returns the last max entries of msgs in order.
func TrimHistory(msgs []model.Message, max int) []model.Message {
	if len(msgs) <= max {
		return msgs
	}
	return msgs[len(msgs)-max:]
}

// ============ User context ============

func (s *MemoryStore) UserContext(ctx context.Context, identifier string) (model.UserContext, bool) {
	uc := model.UserContext{}
	if _, ok := s.getJSON(ctx, s.key(kindUserContext, NormalizeIdentifier(identifier)), &uc); !ok {
		return model.UserContext{}, false
	}
	if uc == nil {
		uc = model.UserContext{}
	}
	return uc, true
}

// SaveUserContext merges updates into the stored record: existing fields survive unless
// overwritten, last_updated is refreshed and update_count grows by one.
func (s *MemoryStore) SaveUserContext(ctx context.Context, identifier string, updates model.UserContext) error {
	if identifier == "" {
		return errors.New("save user context: empty identifier")
	}
	current, ok := s.UserContext(ctx, identifier)
	if !ok {
		return fmt.Errorf("load user context: backend unavailable")
	}
	for k, v := range updates {
		if k == model.ContextUpdateCount || k == model.ContextLastUpdated {
			continue
		}
		current[k] = v
	}
	current[model.ContextUpdateCount] = updateCount(current) + 1
	current[model.ContextLastUpdated] = strconv.FormatInt(s.now().Unix(), 10)

	return s.setJSON(ctx, s.key(kindUserContext, NormalizeIdentifier(identifier)), current, s.cfg.UserContextTTL)
}

func (s *MemoryStore) DeleteUserContext(ctx context.Context, identifier string) error {
	return s.backend.Delete(ctx, s.key(kindUserContext, NormalizeIdentifier(identifier)))
}

func updateCount(uc model.UserContext) int {
	switch v := uc[model.ContextUpdateCount].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	}
	return 0
}

// ============ Conversation → identifier link ============

func (s *MemoryStore) LinkedIdentifier(ctx context.Context, conversationID string) (string, bool) {
	raw, err := s.backend.Get(ctx, s.key(kindLink, conversationID))
	if errors.Is(err, ErrNotFound) {
		return "", true
	}
	if err != nil {
		return "", false
	}
	return raw, true
}

// LinkIdentifier points a conversation at an identifier. Last write wins.
func (s *MemoryStore) LinkIdentifier(ctx context.Context, conversationID, identifier string) error {
	return s.backend.Set(ctx, s.key(kindLink, conversationID), identifier, s.cfg.LinkTTL)
}

func (s *MemoryStore) DeleteLink(ctx context.Context, conversationID string) error {
	return s.backend.Delete(ctx, s.key(kindLink, conversationID))
}

// ============ Cached capability responses ============

// cachedResult carries capability output as a string so a cache hit returns the exact bytes
// the capability produced. A json.RawMessage field would be compacted and HTML-escaped.
type cachedResult struct {
	Data  string `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// CachedResponse returns a cached result set. Error-tagged entries are reported as misses.
func (s *MemoryStore) CachedResponse(ctx context.Context, cacheKey string) (model.ToolResults, bool) {
	var stored map[string]cachedResult
	found, ok := s.getJSON(ctx, s.key(kindResponse, cacheKey), &stored)
	if !ok || !found || len(stored) == 0 {
		return nil, false
	}
	results := make(model.ToolResults, len(stored))
	for name, r := range stored {
		res := model.ToolResult{Error: r.Error}
		if r.Data != "" {
			res.Data = json.RawMessage(r.Data)
		}
		results[name] = res
	}
	if results.HasError() {
		return nil, false
	}
	return results, true
}

func (s *MemoryStore) CacheResponse(ctx context.Context, cacheKey string, results model.ToolResults) error {
	if len(results) == 0 || results.HasError() {
		return ErrUncacheable
	}
	stored := make(map[string]cachedResult, len(results))
	for name, r := range results {
		stored[name] = cachedResult{Data: string(r.Data), Error: r.Error}
	}
	return s.setJSON(ctx, s.key(kindResponse, cacheKey), stored, s.cfg.ResponseCacheTTL)
}

func (s *MemoryStore) DeleteCachedResponse(ctx context.Context, cacheKey string) error {
	return s.backend.Delete(ctx, s.key(kindResponse, cacheKey))
}

// ============ Maintenance ============

// ClearConversation drops a conversation's history and identifier link. The user context
// belongs to the identifier and is kept.
func (s *MemoryStore) ClearConversation(ctx context.Context, conversationID string) error {
	return s.backend.Delete(ctx,
		s.key(kindConversation, conversationID),
		s.key(kindLink, conversationID),
	)
}

func (s *MemoryStore) Healthy(ctx context.Context) bool {
	return s.backend.Ping(ctx) == nil
}

func (s *MemoryStore) Stats(ctx context.Context) model.MemoryStats {
	stats := model.MemoryStats{Healthy: s.Healthy(ctx)}
	if !stats.Healthy {
		return stats
	}
	counts := []struct {
		kind string
		dst  *int64
	}{
		{kindConversation, &stats.Conversations},
		{kindUserContext, &stats.UserContexts},
		{kindLink, &stats.Links},
		{kindResponse, &stats.CachedResponses},
	}
	for _, c := range counts {
		n, err := s.backend.CountPrefix(ctx, s.key(c.kind, ""))
		if err != nil {
			stats.Healthy = false
			continue
		}
		*c.dst = n
	}
	return stats
}

// Summary describes what the store remembers about one conversation.
func (s *MemoryStore) Summary(ctx context.Context, conversationID string) model.ConversationSummary {
	msgs, _ := s.History(ctx, conversationID)
	sum := model.ConversationSummary{ConversationID: conversationID, MessageCount: len(msgs)}
	for _, m := range msgs {
		switch m.Role {
		case model.RoleUser:
			sum.UserMessages++
			sum.LastUserMessage = m.Content
		case model.RoleAssistant:
			sum.AssistantMessages++
			sum.LastAnswer = m.Content
		}
	}
	if id, _ := s.LinkedIdentifier(ctx, conversationID); id != "" {
		sum.Identifier = id
		if uc, _ := s.UserContext(ctx, id); len(uc) > 0 {
			sum.UserContext = uc
		}
	}
	return sum
}
