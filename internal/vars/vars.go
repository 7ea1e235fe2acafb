// Package vars 管理用户变量及查询中的 {name} 插值
package vars

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"fixter/internal/storage"
)

// Prefix 是变量在 kv 表中的键前缀
const Prefix = "var."

var (
	// ErrNotFound 变量不存在
	ErrNotFound = errors.New("variable not found")
	// ErrInvalidAssignment 赋值格式不是 name=value
	ErrInvalidAssignment = errors.New("invalid format, use 'set var=value'")
	// ErrEmptyName 变量名为空
	ErrEmptyName = errors.New("variable name cannot be empty")
)

var placeholder = regexp.MustCompile(`\{(\w+)\}`)

// Var 是一个变量
type Var struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Store 把变量保存在 sqlite kv 表中
type Store struct {
	db *storage.DB
}

// NewStore 创建变量存储
func NewStore(db *storage.DB) *Store {
	return &Store{db: db}
}

// ParseAssignment 解析 name=value，两侧空白会被去除
func ParseAssignment(s string) (name, value string, err error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		return "", "", ErrInvalidAssignment
	}
	name, value = strings.TrimSpace(name), strings.TrimSpace(value)
	if name == "" {
		return "", "", ErrEmptyName
	}
	return name, value, nil
}

// Set 设置变量
func (s *Store) Set(name, value string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if err := s.db.KVSet(Prefix+name, value, 0); err != nil {
		return fmt.Errorf("set variable %s: %w", name, err)
	}
	return nil
}

// Get 读取变量
func (s *Store) Get(name string) (string, error) {
	v, err := s.db.KVGet(Prefix + name)
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get variable %s: %w", name, err)
	}
	return v, nil
}

// Unset 删除变量
func (s *Store) Unset(name string) error {
	err := s.db.KVDelete(Prefix + name)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("unset variable %s: %w", name, err)
	}
	return nil
}

// List 按名称排序列出所有变量
func (s *Store) List() ([]Var, error) {
	kvs, err := s.db.KVList(Prefix)
	if err != nil {
		return nil, fmt.Errorf("list variables: %w", err)
	}
	out := make([]Var, len(kvs))
	for i, kv := range kvs {
		out[i] = Var{Name: strings.TrimPrefix(kv.Key, Prefix), Value: kv.Value}
	}
	return out, nil
}

// Values 以 map 形式返回所有变量
func (s *Store) Values() (map[string]string, error) {
	list, err := s.List()
	if err != nil {
		return nil, err
	}
	values := make(map[string]string, len(list))
	for _, v := range list {
		values[v.Name] = v.Value
	}
	return values, nil
}

// Interpolate 用已保存的变量替换 text 中的占位符
func (s *Store) Interpolate(text string) (string, error) {
	values, err := s.Values()
	if err != nil {
		return "", err
	}
	return Interpolate(text, values), nil
}

// Interpolate 替换 {name} 占位符，未知变量保持原样
func Interpolate(text string, values map[string]string) string {
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		if v, ok := values[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
}
