package txn

import (
	"fmt"
	"sort"

	"github.com/ngaut/log"
)

// Status tracks a transaction through the processor. A program moves a transaction from Incomplete to one of
// the Completed states; only the processor moves it on to Committed or Aborted.
type Status int

const (
	Incomplete Status = iota
	CompletedCommit
	CompletedAbort
	Committed
	Aborted
)

func (s Status) String() string {
	switch s {
	case Incomplete:
		return "INCOMPLETE"
	case CompletedCommit:
		return "COMPLETED_COMMIT"
	case CompletedAbort:
		return "COMPLETED_ABORT"
	case Committed:
		return "COMMITTED"
	case Aborted:
		return "ABORTED"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// KeySet is a sorted set of keys without duplicates. The sort order is the global lock acquisition order.
type KeySet []string

func NewKeySet(keys ...string) KeySet {
	ks := make(KeySet, len(keys))
	copy(ks, keys)
	sort.Strings(ks)
	out := ks[:0]
	for i, key := range ks {
		if i == 0 || key != ks[i-1] {
			out = append(out, key)
		}
	}
	return out
}

func (ks KeySet) Contains(key string) bool {
	i := sort.SearchStrings(ks, key)
	return i < len(ks) && ks[i] == key
}

// Intersects reports whether ks and other share a key.
func (ks KeySet) Intersects(other KeySet) bool {
	i, j := 0, 0
	for i < len(ks) && j < len(other) {
		switch {
		case ks[i] == other[j]:
			return true
		case ks[i] < other[j]:
			i++
		default:
			j++
		}
	}
	return false
}

func (ks KeySet) Union(other KeySet) KeySet {
	out := make(KeySet, 0, len(ks)+len(other))
	i, j := 0, 0
	for i < len(ks) || j < len(other) {
		switch {
		case j == len(other) || (i < len(ks) && ks[i] < other[j]):
			out = append(out, ks[i])
			i++
		case i == len(ks) || other[j] < ks[i]:
			out = append(out, other[j])
			j++
		default:
			out = append(out, ks[i])
			i++
			j++
		}
	}
	return out
}

// Program is the business logic of a transaction. Run consumes txn.Reads, buffers its writes with txn.Write and
// must finish with exactly one of txn.Commit or txn.Abort. It must not touch storage or locks.
type Program interface {
	Run(txn *Txn)
}

type ProgramFunc func(txn *Txn)

func (f ProgramFunc) Run(txn *Txn) {
	f(txn)
}

// Txn is one unit of work submitted to the processor.
type Txn struct {
	// ID is assigned by the processor on every submission, including restarts. It is also the version id of
	// the transaction's writes under MVCC.
	ID       uint64
	ReadSet  KeySet
	WriteSet KeySet
	// Reads is the snapshot taken during the read phase. Keys which do not exist in storage are absent.
	Reads map[string][]byte
	// Writes buffers values to install on commit.
	Writes map[string][]byte
	Status Status
	// StartTime is the logical time at which the last read phase began (OCC).
	StartTime uint64

	keys    KeySet
	program Program
}

func NewTxn(readSet, writeSet []string, program Program) *Txn {
	txn := &Txn{
		ReadSet:  NewKeySet(readSet...),
		WriteSet: NewKeySet(writeSet...),
		Reads:    make(map[string][]byte),
		Writes:   make(map[string][]byte),
		program:  program,
	}
	txn.keys = txn.ReadSet.Union(txn.WriteSet)
	return txn
}

// Keys returns every key the transaction touches.
func (txn *Txn) Keys() KeySet {
	return txn.keys
}

// Run executes the transaction's program.
func (txn *Txn) Run() {
	txn.program.Run(txn)
}

// Read returns the value of key captured by the read phase.
func (txn *Txn) Read(key string) ([]byte, bool) {
	value, ok := txn.Reads[key]
	return value, ok
}

// Write buffers value for key. key must belong to the write set.
func (txn *Txn) Write(key string, value []byte) {
	if !txn.WriteSet.Contains(key) {
		log.Fatalf("txn %d writes key %q outside its write set", txn.ID, key)
	}
	txn.Writes[key] = value
}

func (txn *Txn) Commit() {
	txn.Status = CompletedCommit
}

func (txn *Txn) Abort() {
	txn.Status = CompletedAbort
}

// Reset discards the results of an attempt so that the transaction can run again from scratch.
func (txn *Txn) Reset() {
	txn.Reads = make(map[string][]byte)
	txn.Writes = make(map[string][]byte)
	txn.Status = Incomplete
	txn.StartTime = 0
}

func (txn *Txn) String() string {
	return fmt.Sprintf("txn{id: %d, reads: %v, writes: %v, status: %v}", txn.ID, txn.ReadSet, txn.WriteSet,
		txn.Status)
}
