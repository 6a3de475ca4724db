package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func install(s *MVCCStore, key string, value []byte, txnID uint64) bool {
	s.Lock(key)
	defer s.Unlock(key)
	if !s.CheckWrite(key, txnID) {
		return false
	}
	s.Write(key, value, txnID)
	return true
}

func TestMVCCReadLatestVisibleVersion(t *testing.T) {
	s := NewMVCCStore(4)

	_, ok := s.Read("a", 1)
	assert.False(t, ok)

	assert.True(t, install(s, "a", []byte("v2"), 2))
	assert.True(t, install(s, "a", []byte("v5"), 5))

	// A reader only sees versions at or below its own id.
	_, ok = s.Read("a", 1)
	assert.False(t, ok)
	value, ok := s.Read("a", 3)
	assert.True(t, ok)
	assert.Equal(t, []byte("v2"), value)
	value, ok = s.Read("a", 5)
	assert.True(t, ok)
	assert.Equal(t, []byte("v5"), value)
	value, ok = s.Read("a", 9)
	assert.True(t, ok)
	assert.Equal(t, []byte("v5"), value)

	assert.Equal(t, []uint64{2, 5}, s.Versions("a"))
	value, ok = s.Get("a")
	assert.True(t, ok)
	assert.Equal(t, []byte("v5"), value)
}

func TestMVCCCheckWriteRejectsLateWriter(t *testing.T) {
	s := NewMVCCStore(1)
	assert.True(t, install(s, "a", []byte("v1"), 1))

	// Txn 10 read version 1, so txn 4 can no longer slip a version in below it.
	s.Read("a", 10)
	assert.False(t, install(s, "a", []byte("v4"), 4))
	// Txn 12 is younger than every reader and may write.
	assert.True(t, install(s, "a", []byte("v12"), 12))
	assert.Equal(t, []uint64{1, 12}, s.Versions("a"))
}

func TestMVCCReadOfMissingKeyIsRecorded(t *testing.T) {
	s := NewMVCCStore(1)
	_, ok := s.Read("ghost", 8)
	assert.False(t, ok)
	assert.False(t, install(s, "ghost", []byte("x"), 3))
	assert.True(t, install(s, "ghost", []byte("x"), 9))
}

func TestMVCCPreload(t *testing.T) {
	s := NewMVCCStore(2)
	s.Preload([]string{"a", "b"}, []byte{0})
	value, ok := s.Read("a", 1)
	assert.True(t, ok)
	assert.Equal(t, []byte{0}, value)
	assert.Equal(t, []uint64{0}, s.Versions("b"))
}
