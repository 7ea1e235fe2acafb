package agent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"fixter/internal/tools"
)

// DefaultTimeFormat is the strftime layout used when none is given.
const DefaultTimeFormat = "%Y-%m-%d %H:%M:%S"

const defaultLimit = 5

var (
	limitPattern      = regexp.MustCompile(`limit\s*=\s*(\d+)`)
	entityTypePattern = regexp.MustCompile(`entity_type\s*=\s*["']?([a-zA-Z_]+)["']?`)
	directoryPattern  = regexp.MustCompile(`/[\w/.-]+`)
	urlPattern        = regexp.MustCompile(`https?://\S+`)
	extensionPattern  = regexp.MustCompile(`\.[a-zA-Z]+`)
)

// Normalize turns whatever the model wrote as an action input into tool
// arguments. Structured input keeps every field it has and gains the tool's
// defaults; free text goes through a per-tool parser. It never fails, and
// normalizing its own output returns the same map.
func Normalize(tool string, raw any) map[string]any {
	switch v := raw.(type) {
	case map[string]any:
		return withDefaults(tool, copyArgs(v))
	case string:
		return normalizeText(tool, v)
	case int, int64, float64, json.Number:
		if tool == tools.NameConversationHistory {
			if n, ok := asInt(v); ok {
				return map[string]any{"limit": n}
			}
		}
		return normalizeText(tool, fmt.Sprint(v))
	case nil:
		return normalizeText(tool, "")
	default:
		return normalizeText(tool, fmt.Sprint(v))
	}
}

// normalizeText decodes JSON when the text holds an object (or, for the
// history tool, a number) and parses free text otherwise.
func normalizeText(tool, text string) map[string]any {
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(text)))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err == nil && !dec.More() {
		switch v := decoded.(type) {
		case map[string]any:
			return withDefaults(tool, v)
		case json.Number:
			if tool == tools.NameConversationHistory {
				if n, ok := asInt(v); ok {
					return map[string]any{"limit": n}
				}
			}
		}
	}
	return parseFreeText(tool, text)
}

func parseFreeText(tool, text string) map[string]any {
	switch tool {
	case tools.NameSystemTime:
		format := unquote(text)
		if format == "" {
			format = DefaultTimeFormat
		}
		return map[string]any{"format": format}

	case tools.NameWebSearch:
		return map[string]any{"query": unquote(text)}

	case tools.NameConversationHistory:
		return map[string]any{"limit": parseLimit(text)}

	case tools.NameMemoryEntities:
		entityType := ""
		if m := entityTypePattern.FindStringSubmatch(text); m != nil {
			entityType = m[1]
		}
		return map[string]any{"entity_type": entityType, "limit": parseLimit(text)}

	case tools.NameExtractLocal:
		dir, rest := firstMatch(directoryPattern, text)
		// extensions come from the text after the path, so a dotted path segment is not one
		exts := extensionPattern.FindAllString(rest, -1)
		if len(exts) == 0 {
			exts = []string{".py"}
		}
		return map[string]any{"directory": dir, "extensions": exts, "clipboard_only": false}

	case tools.NameExtractGit:
		url, rest := firstMatch(urlPattern, text)
		// extensions come from the text after the URL, so ".com" in the host is not one
		exts := extensionPattern.FindAllString(rest, -1)
		if exts == nil {
			exts = []string{}
		}
		return map[string]any{"git_url": url, "extensions": exts, "clone": false, "clipboard_only": true}

	default:
		return map[string]any{"input": unquote(text)}
	}
}

// withDefaults fills the tool's defaults into structured input.
func withDefaults(tool string, args map[string]any) map[string]any {
	switch tool {
	case tools.NameSystemTime:
		format := DefaultTimeFormat
		if s, ok := args["format"].(string); ok {
			format = unquote(s)
		}
		args["format"] = format

	case tools.NameWebSearch:
		query := tools.StringArg(args, "query", "")
		if query == "" {
			query = tools.StringArg(args, "input", "")
		}
		args["query"] = unquote(query)

	case tools.NameConversationHistory:
		setDefault(args, "limit", defaultLimit)

	case tools.NameMemoryEntities:
		setDefault(args, "entity_type", "")
		setDefault(args, "limit", defaultLimit)

	case tools.NameExtractLocal:
		setDefault(args, "extensions", []string{".py"})
		setDefault(args, "clipboard_only", false)

	case tools.NameExtractGit:
		setDefault(args, "extensions", []string{})
		setDefault(args, "clone", false)
		setDefault(args, "clipboard_only", true)
	}
	return args
}

func setDefault(args map[string]any, key string, value any) {
	if _, ok := args[key]; !ok {
		args[key] = value
	}
}

func copyArgs(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func parseLimit(text string) int {
	if n, err := strconv.Atoi(strings.TrimSpace(text)); err == nil {
		return n
	}
	if m := limitPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return defaultLimit
}

// firstMatch returns the first match of re (or the trimmed text when there
// is none) and the text with that match removed.
func firstMatch(re *regexp.Regexp, text string) (match, rest string) {
	loc := re.FindStringIndex(text)
	if loc == nil {
		return strings.TrimSpace(text), ""
	}
	return text[loc[0]:loc[1]], text[:loc[0]] + " " + text[loc[1]:]
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
	}
	return 0, false
}

func unquote(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}
