// Package identity extracts and resolves the account identifier (Turkish mobile number or
// customer id) a live data lookup runs against.
package identity

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
)

var (
	// The number may be glued to surrounding words; the match then includes one
	// non-digit on either side, which NormalizePhone strips.
	phonePattern      = regexp.MustCompile(`(?:\+90[\s-]?|(?:^|\D)0)5\d{2}[\s-]?\d{3}[\s-]?\d{2}[\s-]?\d{2}(?:\D|$)`)
	customerIDPattern = regexp.MustCompile(`(?i)\bMSTR\d{3,}\b`)

	turkishLower = cases.Lower(language.Turkish)
)

// Source tells where a resolved identifier came from.
type Source string

const (
	SourceNone        Source = ""
	SourceQuestion    Source = "question"
	SourceUserContext Source = "user_context"
	SourceLink        Source = "link"
	SourceHistory     Source = "history"
)

// ExtractPhone returns the first Turkish mobile number in text, normalized to +905xxxxxxxxx.
func ExtractPhone(text string) string {
	m := phonePattern.FindString(text)
	if m == "" {
		return ""
	}
	return NormalizePhone(m)
}

// NormalizePhone drops separators and rewrites the national 0 prefix to +90.
func NormalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	switch {
	case strings.HasPrefix(d, "90") && len(d) == 12:
		return "+" + d
	case strings.HasPrefix(d, "0") && len(d) == 11:
		return "+90" + d[1:]
	case len(d) == 10:
		return "+90" + d
	}
	return d
}

// ExtractCustomerID returns the first customer id (MSTR + digits) in text, upper-cased.
func ExtractCustomerID(text string) string {
	return strings.ToUpper(customerIDPattern.FindString(text))
}

// Extract returns a phone number if present, otherwise a customer id.
func Extract(text string) string {
	if p := ExtractPhone(text); p != "" {
		return p
	}
	return ExtractCustomerID(text)
}

// IsPhone reports whether identifier is a normalized phone number rather than a customer id.
func IsPhone(identifier string) bool {
	return strings.HasPrefix(identifier, "+")
}

// Resolve picks the identifier for a lookup in priority order: the question text, the user
// context, the stored conversation link, then user messages among the last scanTurns history
// entries (newest first). linked is only called when the first two come up empty.
func Resolve(question string, uc model.UserContext, linked func() string, history []model.Message, scanTurns int) (string, Source) {
	if id := Extract(question); id != "" {
		return id, SourceQuestion
	}
	if id := uc.Identifier(); id != "" {
		return id, SourceUserContext
	}
	if linked != nil {
		if id := linked(); id != "" {
			return id, SourceLink
		}
	}
	start := len(history) - scanTurns
	if start < 0 {
		start = 0
	}
	for i := len(history) - 1; i >= start; i-- {
		if history[i].Role != model.RoleUser {
			continue
		}
		if id := Extract(history[i].Content); id != "" {
			return id, SourceHistory
		}
	}
	return "", SourceNone
}

// AlreadyAsked reports whether one of the last n history entries is an assistant message
// containing marker, compared with Turkish case folding.
func AlreadyAsked(history []model.Message, marker string, n int) bool {
	needle := turkishLower.String(marker)
	start := len(history) - n
	if start < 0 {
		start = 0
	}
	for _, m := range history[start:] {
		if m.Role == model.RoleAssistant && strings.Contains(turkishLower.String(m.Content), needle) {
			return true
		}
	}
	return false
}
