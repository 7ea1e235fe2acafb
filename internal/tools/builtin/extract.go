package builtin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fixter/internal/config"
	"fixter/internal/extract"
	"fixter/internal/forge"
	"fixter/internal/tools"
	"fixter/pkg/logger"
)

func unquote(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}

// ExtractLocalArgs defines the parameters for extract_content_local.
type ExtractLocalArgs struct {
	Directory     string   `json:"directory" jsonschema:"description=Path to the directory containing files to extract,required"`
	Extensions    []string `json:"extensions" jsonschema:"description=File extensions to include (default .py)"`
	ClipboardOnly bool     `json:"clipboard_only" jsonschema:"description=If true the result is only returned and not saved to a file"`
}

// ExtractLocalTool concatenates matching files from a local directory.
type ExtractLocalTool struct {
	tools.BaseTool
	deps Deps
}

// NewExtractLocalTool creates the extract_content_local tool.
func NewExtractLocalTool(d Deps) *ExtractLocalTool {
	return &ExtractLocalTool{
		BaseTool: tools.BaseTool{
			ToolName:        tools.NameExtractLocal,
			ToolDescription: "Extracts content from files in the specified directory based on the given extensions.",
			ToolParameters:  tools.BuildSchema(ExtractLocalArgs{}),
		},
		deps: d,
	}
}

// Execute walks the directory and renders the matched files.
func (t *ExtractLocalTool) Execute(ctx context.Context, args map[string]any) (tools.ToolResult, error) {
	dir := unquote(tools.StringArg(args, "directory", ""))
	if expanded, err := config.ExpandPath(dir); err == nil {
		dir = expanded
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	exts := tools.StringSliceArg(args, "extensions")
	if len(exts) == 0 {
		exts = []string{".py"}
	}

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return tools.NewErrorResult(fmt.Sprintf("Error: Directory '%s' does not exist or is not accessible.", dir)), nil
	}

	paths, err := extract.Collect(dir, exts)
	if err != nil {
		return tools.ToolResult{}, fmt.Errorf("walk %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return tools.NewErrorResult(fmt.Sprintf("No matching files found in '%s' for extensions: %s", dir, extract.FormatExtensions(exts))), nil
	}
	if err := ctx.Err(); err != nil {
		return tools.ToolResult{}, err
	}

	content := extract.Render(fmt.Sprintf("Extracted Content from: %s\n\n", dir), extract.ReadAll(paths))
	meta := map[string]any{"files": len(paths)}

	var saved string
	if !tools.BoolArg(args, "clipboard_only", false) {
		saved, err = extract.Save(t.deps.Workspace.ExtractionsDir(), "extracted", content, t.deps.now())
		if err != nil {
			return tools.ToolResult{}, err
		}
		meta["saved_to"] = saved
		logger.Info().Str("path", saved).Int("files", len(paths)).Msg("Saved local extraction")
	}

	var b strings.Builder
	b.WriteString("\n=== LOCAL EXTRACTION COMPLETE ===\n")
	fmt.Fprintf(&b, "Directory: %s\n", dir)
	fmt.Fprintf(&b, "File types: %s\n", extract.FormatExtensions(exts))
	fmt.Fprintf(&b, "Number of files found: %d\n", len(paths))
	b.WriteString("=== NO NEED TO EXTRACT AGAIN ===\n\n")
	if saved != "" {
		fmt.Fprintf(&b, "Saved to: %s\n\n", saved)
	}
	b.WriteString(content)
	return tools.NewResultWithMetadata(b.String(), meta), nil
}

// ExtractGitArgs defines the parameters for extract_git_content.
type ExtractGitArgs struct {
	GitURL        string   `json:"git_url" jsonschema:"description=The URL of the GitHub repository,required"`
	Extensions    []string `json:"extensions" jsonschema:"description=File extensions to include (all files when empty)"`
	Clone         bool     `json:"clone" jsonschema:"description=If true the repository is cloned locally first"`
	ClipboardOnly bool     `json:"clipboard_only" jsonschema:"description=If true the result is only returned and not saved to a file,default=true"`
}

// ExtractGitTool fetches matching files from a GitHub repository.
type ExtractGitTool struct {
	tools.BaseTool
	deps Deps
}

// NewExtractGitTool creates the extract_git_content tool.
func NewExtractGitTool(d Deps) *ExtractGitTool {
	return &ExtractGitTool{
		BaseTool: tools.BaseTool{
			ToolName:        tools.NameExtractGit,
			ToolDescription: "Extract content from a GitHub repository by either cloning it locally or fetching via GitHub's API.",
			ToolParameters:  tools.BuildSchema(ExtractGitArgs{}),
		},
		deps: d,
	}
}

// Execute extracts the repository.
func (t *ExtractGitTool) Execute(ctx context.Context, args map[string]any) (tools.ToolResult, error) {
	gitURL := unquote(tools.StringArg(args, "git_url", ""))
	exts := tools.StringSliceArg(args, "extensions")
	save := !tools.BoolArg(args, "clipboard_only", true)

	if tools.BoolArg(args, "clone", false) {
		return t.fromClone(ctx, gitURL, exts, save)
	}
	return t.fromAPI(ctx, gitURL, exts, save)
}

func (t *ExtractGitTool) fromClone(ctx context.Context, gitURL string, exts []string, save bool) (tools.ToolResult, error) {
	dest, err := forge.Clone(ctx, gitURL, t.deps.Workspace.ClonesDir())
	if err != nil {
		return tools.ToolResult{}, err
	}
	paths, err := extract.Collect(dest, exts)
	if err != nil {
		return tools.ToolResult{}, fmt.Errorf("walk %s: %w", dest, err)
	}
	if len(paths) == 0 {
		return tools.NewErrorResult("No matching files found in cloned repository."), nil
	}

	content := extract.Render(extract.Tree(dest)+"\n", extract.ReadAll(paths))
	saved, err := t.maybeSave(save, forge.RepoName(gitURL), content)
	if err != nil {
		return tools.ToolResult{}, err
	}
	return t.result(gitURL, exts, len(paths), "", saved, content), nil
}

func (t *ExtractGitTool) fromAPI(ctx context.Context, gitURL string, exts []string, save bool) (tools.ToolResult, error) {
	owner, repo, err := forge.ParseRepoURL(gitURL)
	if err != nil {
		if strings.Contains(gitURL, "github.com") {
			return tools.NewErrorResult("Invalid GitHub URL format: " + gitURL), nil
		}
		return tools.NewErrorResult("Cannot extract owner/repo from URL: " + gitURL), nil
	}
	if t.deps.Fetcher == nil {
		return tools.NewErrorResult("Error accessing GitHub API: client not configured"), nil
	}

	files, err := t.deps.Fetcher.Fetch(ctx, owner, repo, exts)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return tools.ToolResult{}, err
		}
		return tools.NewErrorResult("Error accessing GitHub API: " + err.Error()), nil
	}
	if len(files) == 0 {
		return tools.NewErrorResult("No file content extracted from GitHub repository."), nil
	}

	content := extract.Render("", files)
	saved, err := t.maybeSave(save, owner+"_"+repo, content)
	if err != nil {
		return tools.ToolResult{}, err
	}
	return t.result(gitURL, exts, len(files), "Recursive API fetch", saved, content), nil
}

func (t *ExtractGitTool) maybeSave(save bool, prefix, content string) (string, error) {
	if !save {
		return "", nil
	}
	path, err := extract.Save(t.deps.Workspace.ExtractionsDir(), prefix, content, t.deps.now())
	if err != nil {
		return "", err
	}
	logger.Info().Str("path", path).Msg("Saved repository extraction")
	return path, nil
}

func (t *ExtractGitTool) result(gitURL string, exts []string, n int, mode, saved, content string) tools.ToolResult {
	var b strings.Builder
	b.WriteString("\n=== REPOSITORY EXTRACTION COMPLETE ===\n")
	fmt.Fprintf(&b, "Repository: %s\n", gitURL)
	fmt.Fprintf(&b, "File types: %s\n", extract.FormatExtensions(exts))
	fmt.Fprintf(&b, "Number of files found: %d\n", n)
	if mode != "" {
		fmt.Fprintf(&b, "Extraction mode: %s\n", mode)
	}
	b.WriteString("=== NO NEED TO EXTRACT AGAIN ===\n\n")
	if saved != "" {
		fmt.Fprintf(&b, "Saved to: %s\n\n", saved)
	}
	b.WriteString(content)

	meta := map[string]any{"files": n}
	if saved != "" {
		meta["saved_to"] = saved
	}
	return tools.NewResultWithMetadata(b.String(), meta)
}
