package conversations

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
)

const noContext = "No additional context available."

// Transcript renders history as "role: content" lines.
func Transcript(history []model.Message) string {
	var b strings.Builder
	for _, msg := range history {
		if msg.Content == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(msg.Role) + ": " + msg.Content)
	}
	return b.String()
}

// QuestionContext prefixes question with the last window history entries so follow-ups
// can be classified. Without history the question is returned unchanged.
func QuestionContext(history []model.Message, question string, window int) string {
	transcript := Transcript(trimTail(history, window))
	if transcript == "" {
		return question
	}
	return "Previous conversation:\n" + transcript + "\n\nCurrent question: " + question
}

// GenerationContext assembles what the answer is grounded on: recent history, the known
// customer fields, then relevant documents or, failing those, capability results.
func GenerationContext(s model.Session, window int) string {
	var parts []string

	if transcript := Transcript(trimTail(s.History, window)); transcript != "" {
		parts = append(parts, "Conversation history:\n"+transcript)
	}

	var info []string
	for _, f := range []struct{ label, key string }{
		{"Phone", model.ContextPhoneNumber},
		{"Name", model.ContextName},
		{"Package", model.ContextPackage},
	} {
		if v := s.UserContext.Str(f.key); v != "" {
			info = append(info, f.label+": "+v)
		}
	}
	if len(info) > 0 {
		parts = append(parts, "User information: "+strings.Join(info, ", "))
	}

	switch {
	case len(s.RelevantDocuments) > 0:
		docs := make([]string, 0, len(s.RelevantDocuments))
		for _, d := range s.RelevantDocuments {
			docs = append(docs, d.Content)
		}
		parts = append(parts, "Knowledge base:\n"+strings.Join(docs, "\n"))
	case len(s.ToolResults) > 0:
		lines := make([]string, 0, len(s.ToolResults))
		for _, name := range s.ToolResults.Names() {
			lines = append(lines, fmt.Sprintf("API response from %s: %s", name, formatResult(s.ToolResults[name])))
		}
		parts = append(parts, "API data:\n"+strings.Join(lines, "\n"))
	}

	if len(parts) == 0 {
		return noContext
	}
	return strings.Join(parts, "\n\n")
}

func formatResult(r model.ToolResult) string {
	if r.Error != "" {
		return "error: " + r.Error
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, r.Data, "", "  "); err != nil {
		return string(r.Data)
	}
	return buf.String()
}

// ReplaceLastAssistant swaps the trailing assistant entry for content, or appends one
// when history does not end with an assistant entry.
func ReplaceLastAssistant(history []model.Message, content string) []model.Message {
	out := append([]model.Message(nil), history...)
	msg := model.Message{Role: model.RoleAssistant, Content: content}
	if n := len(out); n > 0 && out[n-1].Role == model.RoleAssistant {
		out[n-1] = msg
		return out
	}
	return append(out, msg)
}

func trimTail(messages []model.Message, maxTurns int) []model.Message {
	if maxTurns <= 0 || len(messages) <= maxTurns {
		return messages
	}
	return messages[len(messages)-maxTurns:]
}
