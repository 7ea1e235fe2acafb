// Package builtin provides the tools offered to the agent loops.
package builtin

import (
	"time"

	"fixter/internal/config"
	"fixter/internal/forge"
	"fixter/internal/search"
	"fixter/internal/session"
	"fixter/internal/tools"
)

// Deps are the collaborators the built-in tools need.
type Deps struct {
	Sessions  *session.Manager
	Search    *search.Manager
	Fetcher   *forge.Fetcher
	Workspace config.WorkspaceConfig

	// ForgetCurrentSession drops the caller's current-session pointer so the
	// next query starts a new session. Optional.
	ForgetCurrentSession func() error

	// Clock defaults to time.Now.
	Clock func() time.Time
}

func (d Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

// Tools returns every built-in tool.
func Tools(d Deps) []tools.Tool {
	return []tools.Tool{
		NewSystemTimeTool(d),
		NewWebSearchTool(d),
		NewListSessionsTool(d),
		NewClearSessionTool(d),
		NewHistoryTool(d),
		NewEntitiesTool(d),
		NewExtractLocalTool(d),
		NewExtractGitTool(d),
	}
}

// NewRegistry creates a registry holding every built-in tool.
func NewRegistry(d Deps) (*tools.Registry, error) {
	r := tools.NewRegistry()
	for _, t := range Tools(d) {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}
