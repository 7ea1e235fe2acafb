package cli

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"fixter/internal/agent"
	"fixter/internal/assistant"
	"fixter/internal/config"
	"fixter/internal/provider"
	"fixter/internal/storage"
	"fixter/internal/vars"
	"fixter/pkg/logger"
)

// CLIContext CLI 上下文
type CLIContext struct {
	Config      *config.Config
	ConfigPath  string
	StoragePath string
	Logger      *zerolog.Logger

	// provider 非空时替代配置中的模型提供方（测试用）
	provider provider.Provider

	storageOnce sync.Once
	storage     *storage.DB
	storageErr  error
}

// NewCLIContext 创建 CLI 上下文
func NewCLIContext(cfg *config.Config, configPath string, log *zerolog.Logger, storagePath string) *CLIContext {
	return &CLIContext{
		Config:      cfg,
		ConfigPath:  configPath,
		StoragePath: storagePath,
		Logger:      log,
	}
}

// GetStorage 获取存储连接（懒加载）
func (c *CLIContext) GetStorage() (*storage.DB, error) {
	c.storageOnce.Do(func() {
		c.storage, c.storageErr = storage.Open(c.StoragePath)
	})
	return c.storage, c.storageErr
}

// Vars 返回变量存储
func (c *CLIContext) Vars() (*vars.Store, error) {
	db, err := c.GetStorage()
	if err != nil {
		return nil, err
	}
	return vars.NewStore(db), nil
}

// Assistant 按配置构建助手
func (c *CLIContext) Assistant(observer agent.Observer) (*assistant.Assistant, error) {
	db, err := c.GetStorage()
	if err != nil {
		return nil, err
	}
	return assistant.Build(c.Config, db, assistant.Options{Provider: c.provider, Observer: observer})
}

// CurrentSession 返回当前终端会话 ID，没有时返回空串
func (c *CLIContext) CurrentSession() (string, error) {
	db, err := c.GetStorage()
	if err != nil {
		return "", err
	}
	id, err := db.KVGet(assistant.CurrentSessionKey)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	return id, err
}

// SetCurrentSession 记录当前会话 ID
func (c *CLIContext) SetCurrentSession(id string) error {
	db, err := c.GetStorage()
	if err != nil {
		return err
	}
	return db.KVSet(assistant.CurrentSessionKey, id, 0)
}

// ClearCurrentSession 清除当前会话指针
func (c *CLIContext) ClearCurrentSession() error {
	db, err := c.GetStorage()
	if err != nil {
		return err
	}
	if err := db.KVDelete(assistant.CurrentSessionKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}

// Close 关闭资源
func (c *CLIContext) Close() error {
	if c.storage != nil {
		return c.storage.Close()
	}
	return nil
}

// Log 获取 Logger
func (c *CLIContext) Log() *zerolog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return logger.Get()
}
