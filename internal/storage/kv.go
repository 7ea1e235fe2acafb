package storage

import (
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"
)

// KV 是一条键值记录
type KV struct {
	Key   string
	Value string
}

// KVSet 设置键值，ttl 为 0 表示永不过期
func (db *DB) KVSet(key, value string, ttl time.Duration) error {
	var expiresAt sql.NullInt64
	if ttl > 0 {
		expiresAt = sql.NullInt64{Int64: time.Now().Add(ttl).UnixNano(), Valid: true}
	}

	_, err := db.Exec(
		"INSERT OR REPLACE INTO kv_store (key, value, expires_at) VALUES (?, ?, ?)",
		key, value, expiresAt,
	)
	return err
}

// KVGet 获取键值，过期的键视为不存在
func (db *DB) KVGet(key string) (string, error) {
	var value string
	var expiresAt sql.NullInt64

	err := db.QueryRow(
		"SELECT value, expires_at FROM kv_store WHERE key = ?",
		key,
	).Scan(&value, &expiresAt)

	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}

	if expired(expiresAt, time.Now()) {
		_, _ = db.Exec("DELETE FROM kv_store WHERE key = ?", key)
		return "", ErrNotFound
	}

	return value, nil
}

// KVDelete 删除键值
func (db *DB) KVDelete(key string) error {
	result, err := db.Exec("DELETE FROM kv_store WHERE key = ?", key)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// KVList 按前缀列出键值对，结果按键排序，键中保留前缀
func (db *DB) KVList(prefix string) ([]KV, error) {
	rows, err := db.Query(
		"SELECT key, value, expires_at FROM kv_store WHERE substr(key, 1, ?) = ?",
		len(prefix), prefix,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	now := time.Now()
	var result []KV
	for rows.Next() {
		var kv KV
		var expiresAt sql.NullInt64
		if err := rows.Scan(&kv.Key, &kv.Value, &expiresAt); err != nil {
			return nil, err
		}
		if expired(expiresAt, now) {
			continue
		}
		result = append(result, kv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool {
		return strings.Compare(result[i].Key, result[j].Key) < 0
	})
	return result, nil
}

// KVCleanExpired 清理过期的键值对
func (db *DB) KVCleanExpired() (int64, error) {
	result, err := db.Exec(
		"DELETE FROM kv_store WHERE expires_at IS NOT NULL AND expires_at < ?",
		time.Now().UnixNano(),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func expired(expiresAt sql.NullInt64, now time.Time) bool {
	return expiresAt.Valid && expiresAt.Int64 < now.UnixNano()
}
