package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"fixter/internal/session"
	"fixter/internal/tools"
)

// currentSession returns the session of the running query, or an empty
// throwaway session when the run carries none.
func currentSession(ctx context.Context, d Deps) (*session.Session, error) {
	id, ok := tools.SessionIDFromContext(ctx)
	if !ok || d.Sessions == nil {
		return session.New(""), nil
	}
	return d.Sessions.Get(id, true)
}

func cut(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// ListSessionsTool lists stored and loaded sessions.
type ListSessionsTool struct {
	tools.BaseTool
	deps Deps
}

// NewListSessionsTool creates the list_memory_sessions tool.
func NewListSessionsTool(d Deps) *ListSessionsTool {
	return &ListSessionsTool{
		BaseTool: tools.BaseTool{
			ToolName:        tools.NameListMemorySessions,
			ToolDescription: "List all available memory sessions.",
		},
		deps: d,
	}
}

// Execute lists the sessions.
func (t *ListSessionsTool) Execute(ctx context.Context, args map[string]any) (tools.ToolResult, error) {
	if t.deps.Sessions == nil {
		return tools.NewSuccessResult("No memory sessions found."), nil
	}
	list, err := t.deps.Sessions.List()
	if err != nil {
		return tools.ToolResult{}, err
	}
	if len(list) == 0 {
		return tools.NewSuccessResult("No memory sessions found."), nil
	}

	var b strings.Builder
	b.WriteString("Available memory sessions:\n\n")
	for _, s := range list {
		loaded := "No"
		if s.InMemory {
			loaded = "Yes"
		}
		fmt.Fprintf(&b, "Session ID: %s\n", s.SessionID)
		fmt.Fprintf(&b, "  Created: %s\n", s.CreatedAt.Format("2006-01-02T15:04:05"))
		fmt.Fprintf(&b, "  Last accessed: %s\n", s.LastAccessed.Format("2006-01-02T15:04:05"))
		fmt.Fprintf(&b, "  Conversation turns: %d\n", s.Turns)
		fmt.Fprintf(&b, "  Currently loaded: %s\n\n", loaded)
	}
	return tools.NewSuccessResult(b.String()), nil
}

// ClearSessionTool forgets the current session.
type ClearSessionTool struct {
	tools.BaseTool
	deps Deps
}

// NewClearSessionTool creates the clear_memory_session tool.
func NewClearSessionTool(d Deps) *ClearSessionTool {
	return &ClearSessionTool{
		BaseTool: tools.BaseTool{
			ToolName:        tools.NameClearMemorySession,
			ToolDescription: "Clear the current memory session.",
		},
		deps: d,
	}
}

// Execute drops the current-session pointer.
func (t *ClearSessionTool) Execute(ctx context.Context, args map[string]any) (tools.ToolResult, error) {
	if t.deps.ForgetCurrentSession != nil {
		if err := t.deps.ForgetCurrentSession(); err != nil {
			return tools.ToolResult{}, fmt.Errorf("clear current session: %w", err)
		}
	}
	return tools.NewSuccessResult("Current memory session has been cleared. A new session will be created for the next query."), nil
}

// HistoryArgs defines the parameters for get_conversation_history.
type HistoryArgs struct {
	Limit int `json:"limit" jsonschema:"description=Maximum number of conversation turns to retrieve,default=5"`
}

// HistoryTool shows recent turns of the current session.
type HistoryTool struct {
	tools.BaseTool
	deps Deps
}

// NewHistoryTool creates the get_conversation_history tool.
func NewHistoryTool(d Deps) *HistoryTool {
	return &HistoryTool{
		BaseTool: tools.BaseTool{
			ToolName:        tools.NameConversationHistory,
			ToolDescription: "Get the recent conversation history from the current session.",
			ToolParameters:  tools.BuildSchema(HistoryArgs{}),
		},
		deps: d,
	}
}

// Execute renders the history.
func (t *HistoryTool) Execute(ctx context.Context, args map[string]any) (tools.ToolResult, error) {
	s, err := currentSession(ctx, t.deps)
	if err != nil {
		return tools.ToolResult{}, err
	}
	history := s.RecentTurns(tools.IntArg(args, "limit", 5))
	if len(history) == 0 {
		return tools.NewSuccessResult("No conversation history found in the current session."), nil
	}

	var b strings.Builder
	b.WriteString("Recent conversation history:\n\n")
	for _, turn := range history {
		fmt.Fprintf(&b, "[%s] You: %s\n", turn.Timestamp.Local().Format("2006-01-02 15:04:05"), turn.Query)
		if turn.Response != "" {
			fmt.Fprintf(&b, "Assistant: %s\n", cut(turn.Response, 100))
		}
		b.WriteString("\n")
	}
	return tools.NewSuccessResult(b.String()), nil
}

// EntitiesArgs defines the parameters for get_memory_entities.
type EntitiesArgs struct {
	EntityType string `json:"entity_type" jsonschema:"description=Type of entities to filter by (file directory repository extension reflection)"`
	Limit      int    `json:"limit" jsonschema:"description=Maximum number of entities to retrieve,default=5"`
}

// EntitiesTool lists remembered entities.
type EntitiesTool struct {
	tools.BaseTool
	deps Deps
}

// NewEntitiesTool creates the get_memory_entities tool.
func NewEntitiesTool(d Deps) *EntitiesTool {
	return &EntitiesTool{
		BaseTool: tools.BaseTool{
			ToolName:        tools.NameMemoryEntities,
			ToolDescription: "Get entities stored in the current session memory, optionally filtered by type (e.g. file, directory, repository).",
			ToolParameters:  tools.BuildSchema(EntitiesArgs{}),
		},
		deps: d,
	}
}

// Execute renders the entities.
func (t *EntitiesTool) Execute(ctx context.Context, args map[string]any) (tools.ToolResult, error) {
	s, err := currentSession(ctx, t.deps)
	if err != nil {
		return tools.ToolResult{}, err
	}
	entityType := tools.StringArg(args, "entity_type", "")
	entities := s.RecentEntities(entityType, tools.IntArg(args, "limit", 5))
	if len(entities) == 0 {
		if entityType != "" {
			return tools.NewSuccessResult(fmt.Sprintf("No entities of type '%s' found in the current session memory.", entityType)), nil
		}
		return tools.NewSuccessResult("No entities found in the current session memory."), nil
	}

	var b strings.Builder
	b.WriteString("Recent entities in memory:\n\n")
	for _, e := range entities {
		fmt.Fprintf(&b, "Type: %s\n", e.Type)
		fmt.Fprintf(&b, "Value: %s\n", e.Value)
		if len(e.Metadata) > 0 {
			if meta, err := json.Marshal(e.Metadata); err == nil {
				fmt.Fprintf(&b, "Metadata: %s\n", meta)
			}
		}
		b.WriteString("\n")
	}
	return tools.NewSuccessResult(b.String()), nil
}
