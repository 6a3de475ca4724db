package lockmgr

import (
	"testing"

	"github.com/minghui-liu/cmcs624-fall20/kv/transaction/txn"
	"github.com/minghui-liu/cmcs624-fall20/kv/util/queue"
	. "github.com/pingcap/check"
)

func TestT(t *testing.T) {
	TestingT(t)
}

var _ = Suite(&testLockManagerSuite{})

type testLockManagerSuite struct {
	ready *queue.Queue
}

func (s *testLockManagerSuite) SetUpTest(c *C) {
	s.ready = queue.NewQueue()
}

func (s *testLockManagerSuite) newTxn(id uint64) *txn.Txn {
	t := txn.NewNoop()
	t.ID = id
	return t
}

func (s *testLockManagerSuite) drainReady() []*txn.Txn {
	var out []*txn.Txn
	for {
		item, ok := s.ready.TryPop()
		if !ok {
			return out
		}
		out = append(out, item.(*txn.Txn))
	}
}

func (s *testLockManagerSuite) TestExclusiveOnlyReadsConflict(c *C) {
	lm := NewExclusiveLockManager(s.ready)
	t1, t2 := s.newTxn(1), s.newTxn(2)

	c.Assert(lm.ReadLock(t1, "a"), IsTrue)
	c.Assert(lm.ReadLock(t2, "a"), IsFalse)

	mode, holders := lm.Status("a")
	c.Assert(mode, Equals, Exclusive)
	c.Assert(holders, DeepEquals, []*txn.Txn{t1})
	c.Assert(lm.Pending(t2), Equals, 1)

	lm.Release(t1, "a")
	mode, holders = lm.Status("a")
	c.Assert(mode, Equals, Exclusive)
	c.Assert(holders, DeepEquals, []*txn.Txn{t2})
	c.Assert(s.drainReady(), DeepEquals, []*txn.Txn{t2})
	c.Assert(lm.Pending(t2), Equals, 0)

	lm.Release(t2, "a")
	mode, holders = lm.Status("a")
	c.Assert(mode, Equals, Unlocked)
	c.Assert(holders, HasLen, 0)
}

func (s *testLockManagerSuite) TestSharedLocks(c *C) {
	lm := NewRWLockManager(s.ready)
	t1, t2, t3, t4 := s.newTxn(1), s.newTxn(2), s.newTxn(3), s.newTxn(4)

	c.Assert(lm.ReadLock(t1, "a"), IsTrue)
	c.Assert(lm.ReadLock(t2, "a"), IsTrue)
	mode, holders := lm.Status("a")
	c.Assert(mode, Equals, Shared)
	c.Assert(holders, HasLen, 2)

	// A writer waits for both readers, and a later reader may not overtake the writer.
	c.Assert(lm.WriteLock(t3, "a"), IsFalse)
	c.Assert(lm.ReadLock(t4, "a"), IsFalse)

	lm.Release(t1, "a")
	c.Assert(s.drainReady(), HasLen, 0)
	lm.Release(t2, "a")
	c.Assert(s.drainReady(), DeepEquals, []*txn.Txn{t3})
	mode, holders = lm.Status("a")
	c.Assert(mode, Equals, Exclusive)
	c.Assert(holders, DeepEquals, []*txn.Txn{t3})

	lm.Release(t3, "a")
	c.Assert(s.drainReady(), DeepEquals, []*txn.Txn{t4})
	mode, _ = lm.Status("a")
	c.Assert(mode, Equals, Shared)
}

func (s *testLockManagerSuite) TestReleaseGrantsRunOfReaders(c *C) {
	lm := NewRWLockManager(s.ready)
	w, r1, r2, w2 := s.newTxn(1), s.newTxn(2), s.newTxn(3), s.newTxn(4)

	c.Assert(lm.WriteLock(w, "a"), IsTrue)
	c.Assert(lm.ReadLock(r1, "a"), IsFalse)
	c.Assert(lm.ReadLock(r2, "a"), IsFalse)
	c.Assert(lm.WriteLock(w2, "a"), IsFalse)

	lm.Release(w, "a")
	c.Assert(s.drainReady(), DeepEquals, []*txn.Txn{r1, r2})
	mode, holders := lm.Status("a")
	c.Assert(mode, Equals, Shared)
	c.Assert(holders, HasLen, 2)
	c.Assert(lm.Pending(w2), Equals, 1)
}

// A transaction waiting on several keys only becomes ready when the last of them is granted.
func (s *testLockManagerSuite) TestReadyOnlyWhenAllGranted(c *C) {
	lm := NewExclusiveLockManager(s.ready)
	t1, t2, t3 := s.newTxn(1), s.newTxn(2), s.newTxn(3)

	c.Assert(lm.WriteLock(t1, "a"), IsTrue)
	c.Assert(lm.WriteLock(t2, "b"), IsTrue)
	c.Assert(lm.WriteLock(t3, "a"), IsFalse)
	c.Assert(lm.WriteLock(t3, "b"), IsFalse)
	c.Assert(lm.Pending(t3), Equals, 2)

	lm.Release(t1, "a")
	c.Assert(s.drainReady(), HasLen, 0)
	c.Assert(lm.Pending(t3), Equals, 1)

	lm.Release(t2, "b")
	c.Assert(s.drainReady(), DeepEquals, []*txn.Txn{t3})

	// Releasing again must not surface t3 a second time.
	lm.Release(t1, "a")
	lm.Release(t2, "b")
	c.Assert(s.drainReady(), HasLen, 0)
}

func (s *testLockManagerSuite) TestReleaseWithdrawsQueuedRequest(c *C) {
	lm := NewRWLockManager(s.ready)
	t1, t2, t3 := s.newTxn(1), s.newTxn(2), s.newTxn(3)

	c.Assert(lm.ReadLock(t1, "a"), IsTrue)
	c.Assert(lm.WriteLock(t2, "a"), IsFalse)
	c.Assert(lm.ReadLock(t3, "a"), IsFalse)

	// Once the queued writer gives up, the reader behind it is compatible with the current holder.
	lm.Release(t2, "a")
	c.Assert(lm.Pending(t2), Equals, 0)
	c.Assert(s.drainReady(), DeepEquals, []*txn.Txn{t3})
	mode, holders := lm.Status("a")
	c.Assert(mode, Equals, Shared)
	c.Assert(holders, DeepEquals, []*txn.Txn{t1, t3})
}

func (s *testLockManagerSuite) TestReleaseUnknownKey(c *C) {
	lm := NewRWLockManager(s.ready)
	lm.Release(s.newTxn(1), "nothing")
	mode, holders := lm.Status("nothing")
	c.Assert(mode, Equals, Unlocked)
	c.Assert(holders, HasLen, 0)
}
