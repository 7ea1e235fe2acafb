package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"fixter/internal/config"
	"fixter/internal/storage"
)

// InitOptions init 命令选项
type InitOptions struct {
	ConfigPath string
	Force      bool
}

// NewInitCmd 创建 init 命令
func NewInitCmd() *cobra.Command {
	opts := &InitOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize fixter configuration",
		Long:  "Create the configuration file, database and workspace folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f := cmd.Flag("config"); f != nil {
				opts.ConfigPath = f.Value.String()
			}
			return RunInit(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "overwrite existing configuration")

	return cmd
}

// RunInit 执行初始化
func RunInit(cmd *cobra.Command, opts *InitOptions) error {
	out := cmd.OutOrStdout()

	// 确定配置路径
	configPath := opts.ConfigPath
	if configPath == "" {
		var err error
		if configPath, err = config.DefaultConfigPath(); err != nil {
			return fmt.Errorf("get config path: %w", err)
		}
	} else {
		var err error
		if configPath, err = config.ExpandPath(configPath); err != nil {
			return err
		}
	}

	// 检查是否已存在
	if _, err := os.Stat(configPath); err == nil && !opts.Force {
		return fmt.Errorf("configuration already exists at %s (use --force to overwrite)", configPath)
	}

	// 默认配置（含环境变量覆盖）
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load defaults: %w", err)
	}

	// 创建目录结构
	dirs := []string{
		filepath.Dir(configPath),
		cfg.Workspace.ExtractionsDir(),
		cfg.Workspace.ClonesDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	if err := config.SaveTo(cfg, configPath); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	// 初始化数据库
	dbPath := cfg.Storage.Path
	if dbPath == "" {
		dbPath = filepath.Join(filepath.Dir(configPath), "fixter.db")
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	fmt.Fprintln(out, "Initialized fixter:")
	fmt.Fprintf(out, "  Config:    %s\n", configPath)
	fmt.Fprintf(out, "  Database:  %s\n", dbPath)
	fmt.Fprintf(out, "  Workspace: %s\n", cfg.Workspace.MasterFolder)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next: fixter auth set openai")
	return nil
}
