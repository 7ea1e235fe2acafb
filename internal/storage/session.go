package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
)

// SessionFormat 是当前写入的会话记录格式版本
const SessionFormat = "1.0.0"

// 主版本不同的记录拒绝读取
var currentFormat = semver.MustParse(SessionFormat)

// ErrIncompatibleFormat 表示记录格式与当前版本不兼容
var ErrIncompatibleFormat = errors.New("incompatible session record format")

// SessionRecord 是会话的持久化形式，Data 为 JSON
type SessionRecord struct {
	ID           string
	Format       string
	Data         []byte
	Turns        int
	CreatedAt    time.Time
	LastAccessed time.Time
}

// checkFormat 校验记录格式版本的主版本号
func checkFormat(format string) error {
	v, err := semver.NewVersion(format)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrIncompatibleFormat, format)
	}
	if v.Major() != currentFormat.Major() {
		return fmt.Errorf("%w: %s (want %d.x)", ErrIncompatibleFormat, v, currentFormat.Major())
	}
	return nil
}

// SaveSessionRecord 插入或覆盖会话记录
func (db *DB) SaveSessionRecord(rec *SessionRecord) error {
	if rec.ID == "" {
		return errors.New("session id is required")
	}
	format := rec.Format
	if format == "" {
		format = SessionFormat
	}
	if err := checkFormat(format); err != nil {
		return err
	}

	_, err := db.Exec(`
		INSERT INTO memory_sessions (id, format, data, turns, created_at, last_accessed)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			format = excluded.format,
			data = excluded.data,
			turns = excluded.turns,
			last_accessed = excluded.last_accessed`,
		rec.ID, format, string(rec.Data), rec.Turns,
		rec.CreatedAt.UnixNano(), rec.LastAccessed.UnixNano(),
	)
	return err
}

// GetSessionRecord 读取会话记录
func (db *DB) GetSessionRecord(id string) (*SessionRecord, error) {
	row := db.QueryRow(
		"SELECT id, format, data, turns, created_at, last_accessed FROM memory_sessions WHERE id = ?",
		id,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := checkFormat(rec.Format); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListSessionRecords 按最近访问时间倒序列出会话，不含 Data
func (db *DB) ListSessionRecords() ([]*SessionRecord, error) {
	rows, err := db.Query(
		"SELECT id, format, '', turns, created_at, last_accessed FROM memory_sessions ORDER BY last_accessed DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*SessionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteSessionRecord 删除会话记录
func (db *DB) DeleteSessionRecord(id string) error {
	result, err := db.Exec("DELETE FROM memory_sessions WHERE id = ?", id)
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

// DeleteSessionRecordsBefore 删除最近访问时间早于 cutoff 的会话，返回被删除的 ID
func (db *DB) DeleteSessionRecordsBefore(cutoff time.Time) ([]string, error) {
	var ids []string
	err := db.WithTx(func(tx *sql.Tx) error {
		rows, err := tx.Query("SELECT id FROM memory_sessions WHERE last_accessed < ?", cutoff.UnixNano())
		if err != nil {
			return err
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		_, err = tx.Exec("DELETE FROM memory_sessions WHERE last_accessed < ?", cutoff.UnixNano())
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*SessionRecord, error) {
	var (
		rec                 SessionRecord
		data                string
		created, lastAccess int64
	)
	if err := s.Scan(&rec.ID, &rec.Format, &data, &rec.Turns, &created, &lastAccess); err != nil {
		return nil, err
	}
	rec.Data = []byte(data)
	rec.CreatedAt = time.Unix(0, created)
	rec.LastAccessed = time.Unix(0, lastAccess)
	return &rec, nil
}
