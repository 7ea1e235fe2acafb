package builtin

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fixter/internal/config"
	"fixter/internal/forge"
	"fixter/internal/search"
	"fixter/internal/session"
	"fixter/internal/storage"
	"fixter/internal/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local)

func testDeps(t *testing.T) Deps {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return Deps{
		Sessions:  session.NewManager(db),
		Workspace: config.WorkspaceConfig{MasterFolder: t.TempDir()},
		Clock:     func() time.Time { return fixedNow },
	}
}

func TestNewRegistryHasAllTools(t *testing.T) {
	r, err := NewRegistry(testDeps(t))
	require.NoError(t, err)

	_, err = r.Subset(tools.ConversationTools...)
	require.NoError(t, err)
	_, err = r.Subset(tools.ExtractionTools...)
	require.NoError(t, err)
	assert.Equal(t, len(tools.ConversationTools)+len(tools.ExtractionTools), r.Len())
}

func TestSystemTimeTool(t *testing.T) {
	tool := NewSystemTimeTool(testDeps(t))

	res, err := tool.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-06 07:08:09", res.Content)

	res, err = tool.Execute(context.Background(), map[string]any{"format": "%H:%M"})
	require.NoError(t, err)
	assert.Equal(t, "07:08", res.Content)
}

func TestWebSearchTool(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"title":"t","url":"https://x.example","content":"snippet"}]}`))
	}))
	defer server.Close()

	d := testDeps(t)
	d.Search = search.NewManager(search.Config{Provider: "searxng", SearXNGURL: server.URL})
	tool := NewWebSearchTool(d)

	res, err := tool.Execute(context.Background(), map[string]any{"query": "go"})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"url":"https://x.example","content":"snippet"}]`, res.Content)

	res, err = tool.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	d.Search = search.NewManager(search.Config{Provider: "tavily"})
	res, err = NewWebSearchTool(d).Execute(context.Background(), map[string]any{"query": "go"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "not configured")
}

func TestHistoryTool(t *testing.T) {
	d := testDeps(t)
	s, err := d.Sessions.Get("s1", true)
	require.NoError(t, err)
	s.AddTurn("what is go?", strings.Repeat("x", 120))
	s.AddTurn("thanks", "")

	ctx := tools.WithSessionID(context.Background(), "s1")
	res, err := NewHistoryTool(d).Execute(ctx, map[string]any{"limit": 7})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Content, "Recent conversation history:\n\n["))
	assert.Contains(t, res.Content, "] You: what is go?\nAssistant: "+strings.Repeat("x", 100)+"...\n\n")
	assert.Contains(t, res.Content, "] You: thanks\n\n")

	res, err = NewHistoryTool(d).Execute(ctx, map[string]any{"limit": 1})
	require.NoError(t, err)
	assert.NotContains(t, res.Content, "what is go?")

	res, err = NewHistoryTool(d).Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "No conversation history found in the current session.", res.Content)
}

func TestEntitiesTool(t *testing.T) {
	d := testDeps(t)
	s, err := d.Sessions.Get("s1", true)
	require.NoError(t, err)
	s.AddEntity("repository", "github.com/o/r", nil)
	s.AddEntity("reflection", "Reflection at step 2", map[string]any{"content": "stop looping"})

	ctx := tools.WithSessionID(context.Background(), "s1")
	res, err := NewEntitiesTool(d).Execute(ctx, map[string]any{"entity_type": "reflection"})
	require.NoError(t, err)
	assert.Equal(t, "Recent entities in memory:\n\nType: reflection\nValue: Reflection at step 2\nMetadata: {\"content\":\"stop looping\"}\n\n", res.Content)

	res, err = NewEntitiesTool(d).Execute(ctx, map[string]any{"entity_type": "file"})
	require.NoError(t, err)
	assert.Equal(t, "No entities of type 'file' found in the current session memory.", res.Content)
}

func TestListAndClearSessionTools(t *testing.T) {
	d := testDeps(t)
	cleared := false
	d.ForgetCurrentSession = func() error { cleared = true; return nil }

	res, err := NewListSessionsTool(d).Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "No memory sessions found.", res.Content)

	_, err = d.Sessions.Get("s1", true)
	require.NoError(t, err)
	res, err = NewListSessionsTool(d).Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, res.Content, "Session ID: s1\n")
	assert.Contains(t, res.Content, "  Currently loaded: Yes\n")

	res, err = NewClearSessionTool(d).Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, cleared)
	assert.Equal(t, "Current memory session has been cleared. A new session will be created for the next query.", res.Content)

	d.ForgetCurrentSession = func() error { return errors.New("kv down") }
	_, err = NewClearSessionTool(d).Execute(context.Background(), nil)
	assert.Error(t, err)
}

func TestExtractLocalTool(t *testing.T) {
	d := testDeps(t)
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.py"), []byte("print('a')"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "b.md"), []byte("# b"), 0644))

	tool := NewExtractLocalTool(d)
	res, err := tool.Execute(context.Background(), map[string]any{"directory": `"` + src + `"`})
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, res.Content, "=== LOCAL EXTRACTION COMPLETE ===\nDirectory: "+src+"\nFile types: ['.py']\nNumber of files found: 1\n=== NO NEED TO EXTRACT AGAIN ===")
	assert.Contains(t, res.Content, "---- "+filepath.Join(src, "a.py")+" ----\n\nprint('a')")
	assert.NotContains(t, res.Content, "# b")

	saved := filepath.Join(d.Workspace.ExtractionsDir(), "extracted_20240506_070809.txt")
	assert.Equal(t, saved, res.Metadata["saved_to"])
	assert.FileExists(t, saved)

	res, err = tool.Execute(context.Background(), map[string]any{"directory": src, "extensions": []any{".md"}, "clipboard_only": true})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "# b")
	assert.Nil(t, res.Metadata["saved_to"])
}

func TestExtractLocalToolErrors(t *testing.T) {
	tool := NewExtractLocalTool(testDeps(t))
	missing := filepath.Join(t.TempDir(), "nope")

	res, err := tool.Execute(context.Background(), map[string]any{"directory": missing})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "Error: Directory '"+missing+"' does not exist or is not accessible.", res.Content)

	empty := t.TempDir()
	res, err = tool.Execute(context.Background(), map[string]any{"directory": empty, "extensions": []string{".rs"}})
	require.NoError(t, err)
	assert.Equal(t, "No matching files found in '"+empty+"' for extensions: ['.rs']", res.Content)
}

func TestExtractGitToolAPI(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/contents/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{{"type": "file", "name": "main.go", "path": "main.go"}})
	})
	mux.HandleFunc("/repos/owner/repo/contents/main.go", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type": "file", "name": "main.go", "path": "main.go", "encoding": "base64",
			"content": base64.StdEncoding.EncodeToString([]byte("package main")),
		})
	})
	mux.HandleFunc("/repos/owner/broken/contents/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"API rate limit exceeded"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	d := testDeps(t)
	f, err := forge.NewFetcher(forge.Config{BaseURL: server.URL})
	require.NoError(t, err)
	d.Fetcher = f
	tool := NewExtractGitTool(d)

	res, err := tool.Execute(context.Background(), map[string]any{"git_url": "https://github.com/owner/repo", "extensions": []string{".go"}})
	require.NoError(t, err)
	require.False(t, res.IsError, res.Content)
	assert.Contains(t, res.Content, "=== REPOSITORY EXTRACTION COMPLETE ===\nRepository: https://github.com/owner/repo\nFile types: ['.go']\nNumber of files found: 1\nExtraction mode: Recursive API fetch\n")
	assert.Contains(t, res.Content, "---- main.go ----\n\npackage main")
	assert.Nil(t, res.Metadata["saved_to"])

	res, err = tool.Execute(context.Background(), map[string]any{"git_url": "https://github.com/owner/repo", "clipboard_only": false})
	require.NoError(t, err)
	assert.FileExists(t, res.Metadata["saved_to"].(string))

	res, err = tool.Execute(context.Background(), map[string]any{"git_url": "https://github.com/owner/broken"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.True(t, strings.HasPrefix(res.Content, "Error accessing GitHub API: "))

	res, err = tool.Execute(context.Background(), map[string]any{"git_url": "nonsense"})
	require.NoError(t, err)
	assert.Equal(t, "Cannot extract owner/repo from URL: nonsense", res.Content)
}
