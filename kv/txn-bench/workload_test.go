package main

import (
	"testing"

	"github.com/minghui-liu/cmcs624-fall20/kv/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkloadShapes(t *testing.T) {
	conf := config.NewTestConfig().Bench
	conf.HotKeys = 0
	w := newWorkload(conf, 7)
	for i := 0; i < 100; i++ {
		tx := w.next()
		assert.Len(t, tx.ReadSet, conf.ReadSize)
		assert.Len(t, tx.WriteSet, conf.WriteSize)
		assert.False(t, tx.ReadSet.Intersects(tx.WriteSet))
	}
}

func TestWorkloadHotKeys(t *testing.T) {
	conf := config.NewTestConfig().Bench
	conf.HotKeys = 1
	w := newWorkload(conf, 7)
	for i := 0; i < 100; i++ {
		tx := w.next()
		assert.True(t, tx.WriteSet.Contains(benchKey(0)))
	}
}

func TestRunModeKeepsCounters(t *testing.T) {
	conf := config.NewTestConfig()
	conf.Bench.Txns = 50
	for _, m := range config.AllModes {
		res, err := runMode(conf, m)
		require.NoError(t, err)
		assert.Len(t, res.latencies, conf.Bench.Txns)
		assert.Equal(t, uint64(conf.Bench.Txns), res.procStats.Committed)
	}
}
