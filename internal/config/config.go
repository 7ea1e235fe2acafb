package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config 是应用配置的根结构体
type Config struct {
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Workspace WorkspaceConfig `mapstructure:"workspace" yaml:"workspace"`
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	OpenAI    OpenAIConfig    `mapstructure:"openai" yaml:"openai"`
	Ollama    OllamaConfig    `mapstructure:"ollama" yaml:"ollama"`
	Search    SearchConfig    `mapstructure:"search" yaml:"search"`
	GitHub    GitHubConfig    `mapstructure:"github" yaml:"github"`
	Session   SessionConfig   `mapstructure:"session" yaml:"session"`
	Agent     AgentConfig     `mapstructure:"agent" yaml:"agent"`
	Gateway   GatewayConfig   `mapstructure:"gateway" yaml:"gateway"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file,omitempty"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Path string `mapstructure:"path" yaml:"path,omitempty"`
}

// WorkspaceConfig 提取结果和克隆仓库的根目录
type WorkspaceConfig struct {
	MasterFolder string `mapstructure:"master_folder" yaml:"master_folder"`
}

// ExtractionsDir 返回保存提取结果的目录
func (w WorkspaceConfig) ExtractionsDir() string {
	return filepath.Join(w.MasterFolder, "extractions")
}

// ClonesDir 返回本地克隆仓库的目录
func (w WorkspaceConfig) ClonesDir() string {
	return filepath.Join(w.MasterFolder, "local_cloned")
}

// LLMConfig 模型选择
type LLMConfig struct {
	Provider    string        `mapstructure:"provider" yaml:"provider"` // openai, ollama
	Model       string        `mapstructure:"model" yaml:"model"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens,omitempty"`
	MaxRetries  int           `mapstructure:"max_retries" yaml:"max_retries"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// OpenAIConfig OpenAI 兼容接口配置
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`
}

// OllamaConfig Ollama 配置
type OllamaConfig struct {
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint"`
	Model    string        `mapstructure:"model" yaml:"model"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// SearchConfig 网络搜索配置
type SearchConfig struct {
	Provider   string `mapstructure:"provider" yaml:"provider"` // tavily, brave, searxng
	MaxResults int    `mapstructure:"max_results" yaml:"max_results"`
	TavilyKey  string `mapstructure:"tavily_api_key" yaml:"tavily_api_key,omitempty"`
	BraveKey   string `mapstructure:"brave_api_key" yaml:"brave_api_key,omitempty"`
	SearXNGURL string `mapstructure:"searxng_url" yaml:"searxng_url,omitempty"`
}

// GitHubConfig GitHub 内容抓取配置
type GitHubConfig struct {
	Token             string  `mapstructure:"token" yaml:"token,omitempty"`
	BaseURL           string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Concurrency       int     `mapstructure:"concurrency" yaml:"concurrency"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	MaxFiles          int     `mapstructure:"max_files" yaml:"max_files"`
}

// SessionConfig 会话清理配置
type SessionConfig struct {
	MaxAge          time.Duration `mapstructure:"max_age" yaml:"max_age"`
	CleanupSchedule string        `mapstructure:"cleanup_schedule" yaml:"cleanup_schedule"`
}

// AgentConfig 两种循环的步数预算
type AgentConfig struct {
	ConversationBudget int `mapstructure:"conversation_budget" yaml:"conversation_budget"`
	ExtractionBudget   int `mapstructure:"extraction_budget" yaml:"extraction_budget"`
}

// GatewayConfig HTTP 网关配置
type GatewayConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// Addr 返回监听地址
func (g GatewayConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.Host, g.Port)
}

var (
	globalConfig *Config
	configPath   string
	mu           sync.RWMutex
)

// Load 加载配置文件，文件不存在时只使用默认值和环境变量
func Load(path string) (*Config, error) {
	mu.Lock()
	defer mu.Unlock()

	SetDefaults()

	viper.SetEnvPrefix("FIXTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 兼容常见的无前缀环境变量
	_ = viper.BindEnv("openai.api_key", "FIXTER_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = viper.BindEnv("search.tavily_api_key", "FIXTER_SEARCH_TAVILY_API_KEY", "TAVILY_API_KEY")
	_ = viper.BindEnv("search.brave_api_key", "FIXTER_SEARCH_BRAVE_API_KEY", "BRAVE_API_KEY")
	_ = viper.BindEnv("github.token", "FIXTER_GITHUB_TOKEN", "GITHUB_TOKEN")

	if path != "" {
		expandedPath, err := ExpandPath(path)
		if err != nil {
			return nil, err
		}
		configPath = expandedPath

		viper.SetConfigFile(expandedPath)
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			var pathErr *os.PathError
			if !errors.As(err, &pathErr) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", expandedPath, err)
			}
		}
	}

	cfg, err := unmarshal()
	if err != nil {
		return nil, err
	}

	globalConfig = cfg
	return cfg, nil
}

func unmarshal() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	master, err := ExpandPath(cfg.Workspace.MasterFolder)
	if err != nil {
		return nil, err
	}
	cfg.Workspace.MasterFolder = master

	if cfg.Storage.Path != "" {
		p, err := ExpandPath(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		cfg.Storage.Path = p
	}

	return &cfg, cfg.Validate()
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("llm.provider must be openai or ollama, got %q", c.LLM.Provider)
	}
	switch c.Search.Provider {
	case "tavily", "brave", "searxng":
	default:
		return fmt.Errorf("search.provider must be tavily, brave or searxng, got %q", c.Search.Provider)
	}
	if c.Agent.ConversationBudget <= 0 || c.Agent.ExtractionBudget <= 0 {
		return errors.New("agent budgets must be positive")
	}
	if c.Session.MaxAge <= 0 {
		return errors.New("session.max_age must be positive")
	}
	return nil
}

// GetConfig 返回当前加载的配置
func GetConfig() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return globalConfig
}

// Path 返回当前配置文件路径
func Path() string {
	mu.RLock()
	defer mu.RUnlock()
	return configPath
}

// Set 设置单个配置项并刷新全局配置
func Set(key string, value any) error {
	mu.Lock()
	defer mu.Unlock()

	viper.Set(key, value)
	cfg, err := unmarshal()
	if err != nil {
		return err
	}
	globalConfig = cfg
	return nil
}

// Watch 监听配置文件变化，变化后重新加载并回调
func Watch(onChange func(*Config)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		mu.Lock()
		cfg, err := unmarshal()
		if err == nil {
			globalConfig = cfg
		}
		mu.Unlock()
		if err != nil || onChange == nil {
			return
		}
		onChange(cfg)
	})
	viper.WatchConfig()
}

// Save 保存当前配置到文件
func Save() error {
	mu.Lock()
	defer mu.Unlock()

	if configPath == "" {
		return errors.New("config path not set")
	}
	if globalConfig == nil {
		return errors.New("config not loaded")
	}
	return SaveTo(globalConfig, configPath)
}

// SaveTo 保存配置到指定路径
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// 0600: 文件中可能包含 API Key
	return os.WriteFile(path, data, 0600)
}

// Reset 重置全局状态（仅用于测试）
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	globalConfig = nil
	configPath = ""
	viper.Reset()
}
