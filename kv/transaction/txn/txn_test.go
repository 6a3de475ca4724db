package txn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeySet(t *testing.T) {
	ks := NewKeySet("c", "a", "b", "a")
	assert.Equal(t, KeySet{"a", "b", "c"}, ks)
	assert.True(t, ks.Contains("b"))
	assert.False(t, ks.Contains("d"))

	assert.True(t, ks.Intersects(NewKeySet("z", "c")))
	assert.False(t, ks.Intersects(NewKeySet("d", "e")))
	assert.False(t, ks.Intersects(nil))

	assert.Equal(t, KeySet{"a", "b", "c", "d"}, ks.Union(NewKeySet("d", "a")))
	assert.Equal(t, KeySet{"a", "b", "c"}, ks.Union(nil))
	assert.Len(t, NewKeySet(), 0)
}

func TestTxnKeys(t *testing.T) {
	txn := NewTxn([]string{"b", "a"}, []string{"b", "c"}, Noop{})
	assert.Equal(t, KeySet{"a", "b"}, txn.ReadSet)
	assert.Equal(t, KeySet{"b", "c"}, txn.WriteSet)
	assert.Equal(t, KeySet{"a", "b", "c"}, txn.Keys())
	assert.Equal(t, Incomplete, txn.Status)
}

func TestPutExpect(t *testing.T) {
	put := NewPut(map[string][]byte{"a": []byte("10")})
	assert.Equal(t, KeySet{"a"}, put.WriteSet)
	put.Run()
	assert.Equal(t, CompletedCommit, put.Status)
	assert.Equal(t, []byte("10"), put.Writes["a"])

	expect := NewExpect(map[string][]byte{"a": []byte("10"), "b": nil})
	expect.Reads["a"] = []byte("10")
	expect.Run()
	assert.Equal(t, CompletedCommit, expect.Status)

	expect.Reset()
	expect.Reads["a"] = []byte("11")
	expect.Run()
	assert.Equal(t, CompletedAbort, expect.Status)

	expect.Reset()
	expect.Reads["a"] = []byte("10")
	expect.Reads["b"] = []byte("1")
	expect.Run()
	assert.Equal(t, CompletedAbort, expect.Status)
}

func TestRMW(t *testing.T) {
	rmw := NewRMW([]string{"r"}, []string{"w1", "w2"}, 0)
	rmw.Reads["w1"] = EncodeCounter(41)
	rmw.Run()
	assert.Equal(t, CompletedCommit, rmw.Status)
	assert.Equal(t, uint64(42), DecodeCounter(rmw.Writes["w1"]))
	assert.Equal(t, uint64(1), DecodeCounter(rmw.Writes["w2"]))
	assert.NotContains(t, rmw.Writes, "r")
}

func TestReset(t *testing.T) {
	txn := NewPut(map[string][]byte{"a": {1}})
	txn.StartTime = 9
	txn.Reads["a"] = []byte{0}
	txn.Run()
	txn.Reset()
	assert.Equal(t, Incomplete, txn.Status)
	assert.Empty(t, txn.Reads)
	assert.Empty(t, txn.Writes)
	assert.Equal(t, uint64(0), txn.StartTime)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "COMMITTED", Committed.String())
	assert.Equal(t, "COMPLETED_ABORT", CompletedAbort.String())
	assert.Equal(t, "Status(42)", Status(42).String())
}
