package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKVSetGet(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.KVSet("key1", "value1", 0))
	value, err := db.KVGet("key1")
	require.NoError(t, err)
	assert.Equal(t, "value1", value)

	require.NoError(t, db.KVSet("key1", "value2", 0))
	value, err = db.KVGet("key1")
	require.NoError(t, err)
	assert.Equal(t, "value2", value)
}

func TestKVGet_NotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := db.KVGet("nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKVGet_Expired(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.KVSet("expired", "value", time.Nanosecond))
	time.Sleep(time.Millisecond)

	_, err := db.KVGet("expired")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKVDelete(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.KVSet("key", "value", 0))
	require.NoError(t, db.KVDelete("key"))
	assert.ErrorIs(t, db.KVDelete("key"), ErrNotFound)
}

func TestKVList(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.KVSet("var.b", "2", 0))
	require.NoError(t, db.KVSet("var.a", "1", 0))
	require.NoError(t, db.KVSet("varx", "no", 0))
	require.NoError(t, db.KVSet("cli.current_session", "s1", 0))
	require.NoError(t, db.KVSet("var.gone", "x", time.Nanosecond))
	time.Sleep(time.Millisecond)

	list, err := db.KVList("var.")
	require.NoError(t, err)
	assert.Equal(t, []KV{{Key: "var.a", Value: "1"}, {Key: "var.b", Value: "2"}}, list)
}

func TestKVCleanExpired(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.KVSet("keep", "v", 0))
	require.NoError(t, db.KVSet("drop", "v", time.Nanosecond))
	time.Sleep(time.Millisecond)

	n, err := db.KVCleanExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
