package model

import (
	"encoding/json"
	"sort"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation history entry.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// User context field names. The record is free-form; these are the ones the router reads or owns.
const (
	ContextPhoneNumber = "phone_number"
	ContextCustomerID  = "customer_id"
	ContextName        = "name"
	ContextPackage     = "package"
	ContextLastUpdated = "last_updated"
	ContextUpdateCount = "update_count"
)

// UserContext is the per-identifier record persisted across conversations.
type UserContext map[string]any

// Str returns the field as a string, or "" when absent or not a string.
func (u UserContext) Str(key string) string {
	if u == nil {
		return ""
	}
	s, _ := u[key].(string)
	return s
}

// Identifier returns the resolved account identifier, preferring the phone number.
func (u UserContext) Identifier() string {
	if p := u.Str(ContextPhoneNumber); p != "" {
		return p
	}
	return u.Str(ContextCustomerID)
}

func (u UserContext) Clone() UserContext {
	if u == nil {
		return nil
	}
	out := make(UserContext, len(u))
	for k, v := range u {
		out[k] = v
	}
	return out
}

// ToolResult is the raw outcome of one capability call. Exactly one of Data or Error is set.
type ToolResult struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// ToolResults maps capability name to its result.
type ToolResults map[string]ToolResult

// HasError reports whether any result is error-tagged.
func (r ToolResults) HasError() bool {
	for _, res := range r {
		if res.Error != "" {
			return true
		}
	}
	return false
}

// Names returns capability names in a stable order.
func (r ToolResults) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r ToolResults) Clone() ToolResults {
	if r == nil {
		return nil
	}
	out := make(ToolResults, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Document is one fragment returned by the search backend.
type Document struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// MemoryStats reports live record counts per kind.
type MemoryStats struct {
	Healthy         bool  `json:"healthy"`
	Conversations   int64 `json:"conversations"`
	UserContexts    int64 `json:"user_contexts"`
	Links           int64 `json:"links"`
	CachedResponses int64 `json:"cached_responses"`
}

// ConversationSummary is a read-only view of one conversation's memory.
type ConversationSummary struct {
	ConversationID    string      `json:"conversation_id"`
	MessageCount      int         `json:"message_count"`
	UserMessages      int         `json:"user_messages"`
	AssistantMessages int         `json:"assistant_messages"`
	LastUserMessage   string      `json:"last_user_message,omitempty"`
	LastAnswer        string      `json:"last_answer,omitempty"`
	Identifier        string      `json:"identifier,omitempty"`
	UserContext       UserContext `json:"user_context,omitempty"`
}
