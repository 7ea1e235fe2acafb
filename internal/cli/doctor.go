package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"fixter/internal/assistant"
	"fixter/internal/config"
)

// NewDoctorCmd creates the doctor command.
func NewDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the local setup",
		Long: `Run diagnostic checks on your Fixter installation.

This command checks:
- Configuration file validity
- Database accessibility
- Language model provider settings
- Web search credentials
- git availability for repository extraction
- Workspace folder permissions`,
		Args: cobra.NoArgs,
		RunE: runDoctor,
	}
}

type checkStatus int

const (
	statusOK checkStatus = iota
	statusWarning
	statusError
)

type checkResult struct {
	name    string
	status  checkStatus
	message string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cliCtx, err := mustContext(cmd)
	if err != nil {
		return err
	}
	cfg := cliCtx.Config
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Fixter Doctor")
	fmt.Fprintln(out, "=============")
	fmt.Fprintln(out)

	results := []checkResult{
		checkSystemInfo(),
		checkConfigFile(cliCtx.ConfigPath),
		checkStorage(cliCtx),
		checkProvider(cliCtx),
		checkSearch(cfg),
		checkGit(),
		checkWorkspace(cfg.Workspace),
	}

	var hasErrors, hasWarnings bool
	for _, r := range results {
		icon := "✓"
		switch r.status {
		case statusWarning:
			icon = "⚠️"
			hasWarnings = true
		case statusError:
			icon = "✗"
			hasErrors = true
		}
		fmt.Fprintf(out, "%s %s: %s\n", icon, r.name, r.message)
	}

	fmt.Fprintln(out)
	switch {
	case hasErrors:
		fmt.Fprintln(out, "❌ Some checks failed. Please address the issues above.")
	case hasWarnings:
		fmt.Fprintln(out, "⚠️  Some warnings detected. Fixter should work but some tools may fail.")
	default:
		fmt.Fprintln(out, "✅ All checks passed! Fixter is ready to use.")
	}
	return nil
}

func checkSystemInfo() checkResult {
	return checkResult{
		name:    "System",
		status:  statusOK,
		message: fmt.Sprintf("Go %s on %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
	}
}

func checkConfigFile(path string) checkResult {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return checkResult{
			name:    "Config File",
			status:  statusWarning,
			message: fmt.Sprintf("Not found: %s (using defaults, run 'fixter init')", path),
		}
	}
	return checkResult{name: "Config File", status: statusOK, message: path}
}

func checkStorage(cliCtx *CLIContext) checkResult {
	db, err := cliCtx.GetStorage()
	if err != nil {
		return checkResult{name: "Database", status: statusError, message: err.Error()}
	}
	records, err := db.ListSessionRecords()
	if err != nil {
		return checkResult{name: "Database", status: statusError, message: err.Error()}
	}
	return checkResult{
		name:    "Database",
		status:  statusOK,
		message: fmt.Sprintf("%s (%d sessions)", db.Path(), len(records)),
	}
}

func checkProvider(cliCtx *CLIContext) checkResult {
	cfg := cliCtx.Config
	if cfg.LLM.Provider == "openai" && cfg.OpenAI.APIKey == "" && cliCtx.provider == nil {
		return checkResult{
			name:    "Provider",
			status:  statusError,
			message: "openai.api_key is not set (run 'fixter auth set openai')",
		}
	}

	p := cliCtx.provider
	model := cfg.LLM.Model
	if p == nil {
		var err error
		p, model, err = assistant.NewProvider(cfg)
		if err != nil {
			return checkResult{name: "Provider", status: statusError, message: err.Error()}
		}
	}

	for _, m := range p.Models() {
		if m == model {
			return checkResult{name: "Provider", status: statusOK, message: fmt.Sprintf("%s (%s)", p.Name(), model)}
		}
	}
	return checkResult{
		name:    "Provider",
		status:  statusWarning,
		message: fmt.Sprintf("%s: model %q is not in the known model list", p.Name(), model),
	}
}

func checkSearch(cfg *config.Config) checkResult {
	var ok bool
	switch cfg.Search.Provider {
	case "tavily":
		ok = cfg.Search.TavilyKey != ""
	case "brave":
		ok = cfg.Search.BraveKey != ""
	case "searxng":
		ok = cfg.Search.SearXNGURL != ""
	}
	if !ok {
		return checkResult{
			name:    "Web Search",
			status:  statusWarning,
			message: fmt.Sprintf("%s is not configured, web_search will fail", cfg.Search.Provider),
		}
	}
	return checkResult{name: "Web Search", status: statusOK, message: cfg.Search.Provider}
}

func checkGit() checkResult {
	path, err := exec.LookPath("git")
	if err != nil {
		return checkResult{
			name:    "git",
			status:  statusWarning,
			message: "not found in PATH, repository extraction will use the GitHub API only",
		}
	}
	return checkResult{name: "git", status: statusOK, message: path}
}

func checkWorkspace(ws config.WorkspaceConfig) checkResult {
	dir := ws.ExtractionsDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return checkResult{name: "Workspace", status: statusError, message: fmt.Sprintf("Cannot create %s: %v", dir, err)}
	}

	probe := filepath.Join(dir, ".doctor")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return checkResult{name: "Workspace", status: statusError, message: fmt.Sprintf("Not writable: %s", dir)}
	}
	_ = os.Remove(probe)

	return checkResult{name: "Workspace", status: statusOK, message: ws.MasterFolder}
}
