package parsers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/callcenter/internal/core/error"
	logx "github.com/Chative-core-poc-v1/callcenter/pkg/logger"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 16 * 1024
	maxErrSnippet = 120
)

const (
	keyBinaryScore = "binary_score"
	keyDatasource  = "datasource"
)

// ErrNoVerdict is returned when model output carries no recognisable verdict.
var ErrNoVerdict = errors.New("no verdict in model output")

var (
	yesWords = map[string]bool{"yes": true, "true": true, "evet": true, "relevant": true}
	noWords  = map[string]bool{"no": true, "false": true, "hayır": true, "hayir": true, "irrelevant": true}
)

// ParseBinaryVerdict reads a yes/no verdict from model output. It accepts a JSON object with a
// binary_score field (string or bool), optionally inside a code fence, or a bare yes/no word.
func ParseBinaryVerdict(content string) (verdict bool, err error) {
	defer recoverInto("binary_verdict", &err)

	content, err = sanitize(content)
	if err != nil {
		return false, err
	}
	if obj, ok := extractObject(content); ok {
		switch v := obj[keyBinaryScore].(type) {
		case bool:
			return v, nil
		case string:
			if b, ok := wordVerdict(v); ok {
				return b, nil
			}
		}
	}
	if b, ok := wordVerdict(firstWord(content)); ok {
		return b, nil
	}
	return false, fmt.Errorf("%w: %q", ErrNoVerdict, snippet(content))
}

// ParseDatasource reads a routing label from model output: {"datasource": "..."} or the bare
// label. Anything but the two known labels is an error.
func ParseDatasource(content string) (ds model.Datasource, err error) {
	defer recoverInto("datasource", &err)

	content, err = sanitize(content)
	if err != nil {
		return model.DatasourceUnset, err
	}
	label := firstWord(content)
	if obj, ok := extractObject(content); ok {
		if v, ok := obj[keyDatasource].(string); ok {
			label = v
		}
	}
	ds = model.Datasource(strings.ToLower(strings.TrimSpace(label)))
	if !ds.Valid() {
		return model.DatasourceUnset, fmt.Errorf("%w: unknown datasource %q", ErrNoVerdict, snippet(label))
	}
	return ds, nil
}

func recoverInto(component string, err *error) {
	if r := recover(); r != nil {
		logx.Error().Str("component", component).Msgf("panic recovered: %v", r)
		*err = errx.New(fmt.Errorf("%s parser panic", component), http.StatusInternalServerError, errx.SystemErrorMessage)
	}
}

func sanitize(content string) (string, error) {
	if !utf8.ValidString(content) {
		return "", errors.New("model output is not valid utf8")
	}
	if len(content) > maxContentLen {
		content = content[:maxContentLen]
	}
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrNoVerdict
	}
	return content, nil
}

// extractObject decodes the outermost {...} span of content.
func extractObject(content string) (map[string]any, bool) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(content[start:end+1]), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func wordVerdict(w string) (bool, bool) {
	w = strings.ToLower(strings.TrimSpace(w))
	if yesWords[w] {
		return true, true
	}
	if noWords[w] {
		return false, true
	}
	return false, false
}

func firstWord(s string) string {
	s = strings.TrimLeftFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
	end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) && r != '_' })
	if end < 0 {
		return s
	}
	return s[:end]
}

func snippet(s string) string {
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}
