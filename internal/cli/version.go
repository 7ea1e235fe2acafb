package cli

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"fixter/internal/storage"
)

// 编译时注入的版本信息
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// BuildInfo 构建信息
type BuildInfo struct {
	Version       string `json:"version"`
	GitCommit     string `json:"git_commit"`
	BuildTime     string `json:"build_time"`
	GoVersion     string `json:"go_version"`
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	SessionFormat string `json:"session_format"`
}

// NewVersionCmd 创建 version 命令
func NewVersionCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := BuildInfo{
				Version:       displayVersion(Version),
				GitCommit:     GitCommit,
				BuildTime:     BuildTime,
				GoVersion:     runtime.Version(),
				OS:            runtime.GOOS,
				Arch:          runtime.GOARCH,
				SessionFormat: storage.SessionFormat,
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				data, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			fmt.Fprintf(out, "fixter %s\n", info.Version)
			fmt.Fprintf(out, "  Git commit:     %s\n", info.GitCommit)
			fmt.Fprintf(out, "  Built:          %s\n", info.BuildTime)
			fmt.Fprintf(out, "  Go version:     %s\n", info.GoVersion)
			fmt.Fprintf(out, "  OS/Arch:        %s/%s\n", info.OS, info.Arch)
			fmt.Fprintf(out, "  Session format: %s\n", info.SessionFormat)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

// displayVersion 规范化语义化版本号，非法值原样返回
func displayVersion(v string) string {
	sv, err := semver.NewVersion(v)
	if err != nil {
		return v
	}
	return "v" + sv.String()
}
