package main

import (
	"fmt"
	"math/rand"

	"github.com/minghui-liu/cmcs624-fall20/kv/config"
	"github.com/minghui-liu/cmcs624-fall20/kv/transaction/txn"
)

func benchKey(i int) string {
	return fmt.Sprintf("k%08d", i)
}

func benchKeys(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = benchKey(i)
	}
	return keys
}

// workload generates read-modify-write transactions over the preloaded keys.
type workload struct {
	conf config.Bench
	rnd  *rand.Rand
}

func newWorkload(conf config.Bench, seed int64) *workload {
	return &workload{conf: conf, rnd: rand.New(rand.NewSource(seed))}
}

// next returns a transaction with disjoint read and write sets of the configured sizes. With hot keys
// configured, one extra write goes to a hot key.
func (w *workload) next() *txn.Txn {
	picked := make(map[int]bool, w.conf.ReadSize+w.conf.WriteSize)
	pick := func(n int) []string {
		keys := make([]string, 0, n)
		for len(keys) < n {
			i := w.rnd.Intn(w.conf.Keys)
			if picked[i] {
				continue
			}
			picked[i] = true
			keys = append(keys, benchKey(i))
		}
		return keys
	}
	reads := pick(w.conf.ReadSize)
	writes := pick(w.conf.WriteSize)
	if w.conf.HotKeys > 0 {
		hot := w.conf.HotKeys
		if hot > w.conf.Keys {
			hot = w.conf.Keys
		}
		writes = append(writes, benchKey(w.rnd.Intn(hot)))
	}
	return txn.NewRMW(reads, writes, w.conf.Work.Duration)
}
