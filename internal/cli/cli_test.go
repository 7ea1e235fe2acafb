package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixter/internal/assistant"
	"fixter/internal/config"
	"fixter/internal/provider"
	"fixter/internal/router"
)

// echoProvider classifies every query as conversation and answers with a
// fixed final answer.
type echoProvider struct {
	mu      sync.Mutex
	answer  string
	queries []string
}

func (p *echoProvider) Name() string     { return "echo" }
func (p *echoProvider) Models() []string { return nil }
func (p *echoProvider) Chat(ctx context.Context, req provider.ChatRequest) (*provider.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(req.Messages) == 2 && req.Messages[0].Content == router.ClassifierInstruction {
		p.queries = append(p.queries, req.Messages[1].Content)
		return &provider.ChatResponse{Content: "conversation"}, nil
	}
	return &provider.ChatResponse{Content: "Thought: I can answer directly.\nFinal Answer: " + p.answer}, nil
}

type cliEnv struct {
	dir        string
	configPath string
	provider   *echoProvider
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	config.Reset()
	t.Cleanup(config.Reset)

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv(config.HomeEnv, "")
	configPath := filepath.Join(dir, "config.yaml")
	yaml := fmt.Sprintf("log:\n  level: error\nstorage:\n  path: %s\nworkspace:\n  master_folder: %s\n",
		filepath.Join(dir, "fixter.db"), filepath.Join(dir, "workspace"))
	require.NoError(t, os.WriteFile(configPath, []byte(yaml), 0600))

	return &cliEnv{dir: dir, configPath: configPath, provider: &echoProvider{answer: "hello there"}}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(rootOptions{provider: e.provider})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "fixter %s", strings.Join(args, " "))
	return out
}

func TestAI_PrintsAnswer(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun(t, "ai", "hi", "there")
	assert.Equal(t, "hello there\n", out)
	assert.Equal(t, []string{"hi there"}, env.provider.queries)
}

func TestAI_ContinuesCurrentSession(t *testing.T) {
	env := newCLIEnv(t)

	var first, second assistant.Result
	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "ai", "--json", "first")), &first))
	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "ai", "--json", "second")), &second))

	assert.NotEmpty(t, first.SessionID)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, "conversation", second.Loop)

	out := env.mustRun(t, "sessions")
	assert.Contains(t, out, "Available sessions:")
	assert.Contains(t, out, first.SessionID+" (current)")
	assert.Contains(t, out, "Conversation turns: 2")
}

func TestAI_ExplicitAndNewSession(t *testing.T) {
	env := newCLIEnv(t)

	var named, fresh assistant.Result
	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "ai", "--json", "--session", "work", "first")), &named))
	assert.Equal(t, "work", named.SessionID)
	assert.Contains(t, env.mustRun(t, "sessions"), "work (current)")

	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "ai", "--json", "--new-session", "second")), &fresh))
	assert.NotEqual(t, "work", fresh.SessionID)
	assert.Contains(t, env.mustRun(t, "sessions"), fresh.SessionID+" (current)")

	_, err := env.run(t, "ai", "--new-session", "--session", "work", "third")
	assert.Error(t, err)
}

func TestAI_ReadsQueryFromStdin(t *testing.T) {
	env := newCLIEnv(t)

	cmd := newRootCmd(rootOptions{provider: env.provider})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader("  piped question \n"))
	cmd.SetArgs([]string{"--config", env.configPath, "ai"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, []string{"piped question"}, env.provider.queries)
}

func TestAI_EmptyQuery(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "ai")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query is required")
}

func TestClearSession(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "ai", "first")

	out := env.mustRun(t, "clear-session")
	assert.Equal(t, "Session cleared. A new session will be used for the next query.\n", out)

	out = env.mustRun(t, "sessions")
	assert.NotContains(t, out, "(current)")
}

func TestSessions_Empty(t *testing.T) {
	env := newCLIEnv(t)

	assert.Equal(t, "No sessions found.\n", env.mustRun(t, "sessions", "list"))
}

func TestSessions_ShowAndDelete(t *testing.T) {
	env := newCLIEnv(t)

	var res assistant.Result
	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "ai", "--json", "what is go")), &res))

	out := env.mustRun(t, "sessions", "show")
	assert.Contains(t, out, "Session: "+res.SessionID)
	assert.Contains(t, out, "You: what is go")
	assert.Contains(t, out, "Fixter: hello there")

	out = env.mustRun(t, "sessions", "delete", res.SessionID)
	assert.Equal(t, "Session "+res.SessionID+" deleted.\n", out)
	assert.Equal(t, "No sessions found.\n", env.mustRun(t, "sessions"))
}

func TestVars(t *testing.T) {
	env := newCLIEnv(t)

	assert.Equal(t, "No variables set\n", env.mustRun(t, "vars"))
	assert.Equal(t, "Variable 'project' set to 'fixter'\n", env.mustRun(t, "set", "project=fixter"))
	assert.Equal(t, "project: fixter\n", env.mustRun(t, "get", "project"))
	assert.Equal(t, "Current variables:\nproject: fixter\n", env.mustRun(t, "vars"))

	env.mustRun(t, "ai", "describe", "{project}", "and", "{missing}")
	assert.Equal(t, []string{"describe fixter and {missing}"}, env.provider.queries)

	assert.Equal(t, "Variable 'project' removed\n", env.mustRun(t, "unset", "project"))
	assert.Equal(t, "Variable 'project' not found\n", env.mustRun(t, "get", "project"))
}

func TestConfig_SetMaster(t *testing.T) {
	env := newCLIEnv(t)
	master := filepath.Join(env.dir, "master")

	out := env.mustRun(t, "config", "set-master", master)
	assert.Equal(t, "Master folder set to: "+master+"\n", out)
	assert.DirExists(t, filepath.Join(master, "extractions"))
	assert.DirExists(t, filepath.Join(master, "local_cloned"))

	data, err := os.ReadFile(env.configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "master_folder: "+master)
}

func TestConfig_ShowMasksSecrets(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "config", "set", "openai.api_key", "sk-abcdefghijkl")

	out := env.mustRun(t, "config", "show")
	assert.Contains(t, out, "openai.api_key = sk-*********jkl")
	assert.NotContains(t, out, "sk-abcdefghijkl")

	out = env.mustRun(t, "config", "show", "--all")
	assert.Contains(t, out, "openai.api_key = sk-abcdefghijkl")
}

func TestConfig_Path(t *testing.T) {
	env := newCLIEnv(t)

	assert.Equal(t, env.configPath+"\n", env.mustRun(t, "config", "path"))
}

func TestAuth_SetAndStatus(t *testing.T) {
	env := newCLIEnv(t)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GITHUB_TOKEN", "")

	out := env.mustRun(t, "auth", "set", "github", "--token", "ghp_1234567890")
	assert.Contains(t, out, "GitHub token saved")

	out = env.mustRun(t, "auth", "status")
	assert.Contains(t, out, "ghp_...7890")
	assert.Contains(t, out, "not set (fixter auth set openai or $OPENAI_API_KEY)")

	_, err := env.run(t, "auth", "set", "gitlab", "--token", "x")
	assert.Error(t, err)
}

func TestAuth_SetFromPrompt(t *testing.T) {
	env := newCLIEnv(t)

	cmd := newRootCmd(rootOptions{provider: env.provider})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader("tvly-secret-value\n"))
	cmd.SetArgs([]string{"--config", env.configPath, "auth", "set", "tavily"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "tvly-secret-value", config.GetConfig().Search.TavilyKey)
}

func TestTools(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun(t, "tools")
	assert.Contains(t, out, "NAME")
	assert.Regexp(t, `get_system_time\s+conversation\s`, out)
	assert.Regexp(t, `extract_git_content\s+extraction\s`, out)
}

func TestDoctor(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun(t, "doctor")
	assert.Contains(t, out, "Fixter Doctor")
	assert.Contains(t, out, "✓ Database:")
	assert.Contains(t, out, "✓ Workspace:")
}

func TestVersion(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun(t, "version")
	assert.True(t, strings.HasPrefix(out, "fixter dev\n"), out)

	var info BuildInfo
	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "version", "--json")), &info))
	assert.NotEmpty(t, info.SessionFormat)
}

func TestDisplayVersion(t *testing.T) {
	assert.Equal(t, "v1.2.3", displayVersion("1.2.3"))
	assert.Equal(t, "v1.2.3", displayVersion("v1.2.3"))
	assert.Equal(t, "dev", displayVersion("dev"))
}

func TestInit(t *testing.T) {
	env := newCLIEnv(t)
	path := filepath.Join(env.dir, "fresh", "config.yaml")

	out := env.mustRun(t, "init", "--config", path)
	assert.Contains(t, out, "Initialized fixter:")
	assert.FileExists(t, path)
	assert.FileExists(t, filepath.Join(env.dir, "fresh", "fixter.db"))
	assert.DirExists(t, filepath.Join(env.dir, ".fixter", "workspace", "extractions"))

	_, err := env.run(t, "init", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	env.mustRun(t, "init", "--config", path, "--force")
}

func TestMaskValue(t *testing.T) {
	assert.Equal(t, "****", maskValue("abcd"))
	assert.Equal(t, "abc***ijk", maskValue("abcdefijk"))
}
