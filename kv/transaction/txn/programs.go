package txn

import (
	"bytes"
	"encoding/binary"
	"time"
)

// Noop commits without reading or writing anything.
type Noop struct{}

func NewNoop() *Txn {
	return NewTxn(nil, nil, Noop{})
}

func (Noop) Run(txn *Txn) {
	txn.Commit()
}

// Put writes a fixed set of values and commits.
type Put struct {
	values map[string][]byte
}

func NewPut(values map[string][]byte) *Txn {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	return NewTxn(nil, keys, &Put{values: values})
}

func (p *Put) Run(txn *Txn) {
	for key, value := range p.values {
		txn.Write(key, value)
	}
	txn.Commit()
}

// Expect commits if every key currently holds the expected value, and aborts otherwise. A nil expected value
// means the key must not exist.
type Expect struct {
	expected map[string][]byte
}

func NewExpect(expected map[string][]byte) *Txn {
	keys := make([]string, 0, len(expected))
	for key := range expected {
		keys = append(keys, key)
	}
	return NewTxn(keys, nil, &Expect{expected: expected})
}

func (e *Expect) Run(txn *Txn) {
	for key, want := range e.expected {
		got, ok := txn.Read(key)
		if want == nil && !ok {
			continue
		}
		if !ok || !bytes.Equal(got, want) {
			txn.Abort()
			return
		}
	}
	txn.Commit()
}

// RMW reads every key it touches and increments the counter stored under each key of its write set. Work is
// spent between the reads and the writes to simulate an expensive transaction.
type RMW struct {
	work time.Duration
}

func NewRMW(readSet, writeSet []string, work time.Duration) *Txn {
	return NewTxn(readSet, writeSet, &RMW{work: work})
}

func (r *RMW) Run(txn *Txn) {
	if r.work > 0 {
		time.Sleep(r.work)
	}
	for _, key := range txn.WriteSet {
		value, _ := txn.Read(key)
		txn.Write(key, EncodeCounter(DecodeCounter(value)+1))
	}
	txn.Commit()
}

// EncodeCounter encodes n as 8 big-endian bytes.
func EncodeCounter(n uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	return buf
}

// DecodeCounter is the inverse of EncodeCounter. Values of any other length, including a missing value, decode
// to 0.
func DecodeCounter(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
