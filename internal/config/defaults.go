package config

import (
	"time"

	"github.com/spf13/viper"
)

// SetDefaults 设置所有配置项的默认值
func SetDefaults() {
	// Log 配置
	viper.SetDefault("log.level", "warn")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("log.file", "")

	// Workspace 配置
	if dir, err := DefaultWorkspaceDir(); err == nil {
		viper.SetDefault("workspace.master_folder", dir)
	}

	// LLM 配置
	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.0)
	viper.SetDefault("llm.max_tokens", 0)
	viper.SetDefault("llm.max_retries", 2)
	viper.SetDefault("llm.timeout", 2*time.Minute)

	// Ollama 配置
	viper.SetDefault("ollama.endpoint", "http://localhost:11434")
	viper.SetDefault("ollama.model", "llama3.2")
	viper.SetDefault("ollama.timeout", 5*time.Minute)

	// Search 配置
	viper.SetDefault("search.provider", "tavily")
	viper.SetDefault("search.max_results", 5)

	// GitHub 配置
	viper.SetDefault("github.concurrency", 4)
	viper.SetDefault("github.requests_per_second", 10.0)
	viper.SetDefault("github.max_files", 500)

	// Session 配置
	viper.SetDefault("session.max_age", 7*24*time.Hour)
	viper.SetDefault("session.cleanup_schedule", "@daily")

	// Agent 配置
	viper.SetDefault("agent.conversation_budget", 10)
	viper.SetDefault("agent.extraction_budget", 5)

	// Gateway 配置
	viper.SetDefault("gateway.host", "127.0.0.1")
	viper.SetDefault("gateway.port", 8788)
}
