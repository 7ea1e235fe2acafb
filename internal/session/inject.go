package session

import (
	"strings"
)

// referenceWords mark a query as leaning on earlier conversation. They are
// matched as substrings of the lower-cased query.
var referenceWords = []string{
	"previous", "earlier", "before", "last time", "you mentioned",
	"we discussed", "that", "those", "these", "it", "the file", "the repo",
	"again", "recall", "remember",
}

const (
	injectTurns       = 3
	injectEntities    = 5
	injectResponseCut = 150
)

// Inject prefixes query with context from s when the query refers back to
// earlier conversation or the session already has history. Otherwise the
// query is returned unchanged.
func Inject(query string, s *Session) string {
	if s == nil {
		return query
	}
	if !refersBack(query) && s.Len() == 0 {
		return query
	}

	var parts []string
	if turns := s.RecentTurns(injectTurns); len(turns) > 0 {
		parts = append(parts, "Recent conversation:")
		for _, t := range turns {
			parts = append(parts, "- You: "+t.Query)
			if t.Response != "" {
				parts = append(parts, "- Assistant: "+truncate(t.Response, injectResponseCut))
			}
		}
	}

	if entities := s.RecentEntities("", injectEntities); len(entities) > 0 {
		parts = append(parts, "\nRecently mentioned:")
		for _, e := range entities {
			parts = append(parts, "- "+e.Type+": "+e.Value)
		}
	}

	if task := s.ActiveTask(); task != nil {
		desc := task.Description
		if desc == "" {
			desc = "Unknown task"
		}
		parts = append(parts, "\nCurrent task:", "- "+desc)
	}

	if len(parts) == 0 {
		return query
	}
	return "Context from memory:\n" + strings.Join(parts, "\n") + "\n\nCurrent query: " + query
}

func refersBack(query string) bool {
	lower := strings.ToLower(query)
	for _, w := range referenceWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// truncate cuts s to n runes and appends "..." when it was longer.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
