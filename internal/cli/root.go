// Package cli implements the fixter command line.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"fixter/internal/config"
	"fixter/internal/provider"
	"fixter/pkg/logger"
)

// GlobalFlags 全局标志
type GlobalFlags struct {
	ConfigPath string
	Verbose    bool
	Quiet      bool
}

// contextKey CLI 上下文键
type contextKey struct{}

// rootOptions 供测试注入依赖
type rootOptions struct {
	provider provider.Provider
}

// 不需要加载配置和存储的命令
var skipInit = map[string]bool{
	"version":    true,
	"help":       true,
	"init":       true,
	"completion": true,
}

// NewRootCmd 创建根命令
func NewRootCmd() *cobra.Command {
	return newRootCmd(rootOptions{})
}

func newRootCmd(opts rootOptions) *cobra.Command {
	var flags GlobalFlags

	rootCmd := &cobra.Command{
		Use:   "fixter",
		Short: "Fixter - a terminal assistant with memory",
		Long: `Fixter answers questions in the terminal with a reasoning and acting
loop over a small tool set. It remembers the conversation per terminal
session and can extract local directories or GitHub repositories into
one text file for later use.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if skipInit[cmd.Name()] {
				return nil
			}

			// 确定配置路径
			configPath := flags.ConfigPath
			if configPath == "" {
				var err error
				configPath, err = config.DefaultConfigPath()
				if err != nil {
					return err
				}
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			// 初始化 Logger
			logLevel := cfg.Log.Level
			if flags.Verbose {
				logLevel = "debug"
			}
			if flags.Quiet {
				logLevel = "error"
			}
			if err := logger.Init(logger.LogConfig{
				Level:  logLevel,
				Format: cfg.Log.Format,
				File:   cfg.Log.File,
				Output: cmd.ErrOrStderr(),
			}); err != nil {
				return err
			}

			// 确定存储路径
			storagePath := cfg.Storage.Path
			if storagePath == "" {
				storagePath, err = config.DefaultDataPath()
				if err != nil {
					return err
				}
			}

			cliCtx := NewCLIContext(cfg, configPath, logger.Get(), storagePath)
			cliCtx.provider = opts.provider
			cmd.SetContext(context.WithValue(cmd.Context(), contextKey{}, cliCtx))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			// 关闭资源
			if cliCtx := GetCLIContext(cmd); cliCtx != nil {
				return cliCtx.Close()
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "quiet mode")

	rootCmd.AddCommand(NewAICmd())
	rootCmd.AddCommand(NewSessionsCmd())
	rootCmd.AddCommand(NewClearSessionCmd())
	rootCmd.AddCommand(NewSetCmd())
	rootCmd.AddCommand(NewGetCmd())
	rootCmd.AddCommand(NewVarsCmd())
	rootCmd.AddCommand(NewUnsetCmd())
	rootCmd.AddCommand(NewConfigCmd())
	rootCmd.AddCommand(NewAuthCmd())
	rootCmd.AddCommand(NewToolsCmd())
	rootCmd.AddCommand(NewDoctorCmd())
	rootCmd.AddCommand(NewInitCmd())
	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// errNoContext 表示 PersistentPreRunE 未执行
var errNoContext = errors.New("CLI context not initialized")

// GetCLIContext 从命令上下文获取 CLI 上下文
func GetCLIContext(cmd *cobra.Command) *CLIContext {
	ctx := cmd.Context()
	if ctx == nil {
		return nil
	}
	cliCtx, _ := ctx.Value(contextKey{}).(*CLIContext)
	return cliCtx
}

// mustContext 返回 CLI 上下文或错误
func mustContext(cmd *cobra.Command) (*CLIContext, error) {
	cliCtx := GetCLIContext(cmd)
	if cliCtx == nil {
		return nil, errNoContext
	}
	return cliCtx, nil
}
