package transaction

// The transaction package and its subpackages implement a single node transaction processor. Clients build a
// transaction (txn.Txn) from a read set, a write set and a program, hand it to processor.TxnProcessor and later
// collect it, committed or aborted, from the processor's result queue.
//
// Within this package, `txn` defines transactions and a few stock programs, `lockmgr` contains the lock managers
// used by two-phase locking and `processor` contains the scheduler and the concurrency control protocols. Storage
// lives in kv/storage.
//
// Every transaction goes through the same phases: a read phase which copies the values of all the keys it touches
// into txn.Reads, the program which decides to commit or abort and buffers writes in txn.Writes, and a commit phase
// which installs the buffered writes. Programs never touch storage directly, so the protocols only differ in how
// they order these phases:
//
// * SERIAL runs one transaction at a time on the scheduler goroutine.
// * LOCKING and LOCKING_EXCLUSIVE_ONLY use strict two-phase locking. The scheduler requests every lock of a
//   transaction in one go, and the lock manager hands the transaction back once all of them are granted. A worker
//   then runs the read phase and the program, and the scheduler installs writes and releases locks. Only
//   LOCKING grants shared locks.
// * OCC runs read phases and programs on workers without any locks. The scheduler validates each completed
//   transaction, one at a time, by checking that none of its keys was written after its read phase began.
// * PARALLEL_OCC validates on the workers as well. Validation against storage timestamps and against the set of
//   transactions currently installing writes happens in one critical section.
// * MVCC keeps every committed version. A transaction reads the versions visible at its id and may only install
//   a version if no younger transaction has already read the version it would supersede.
//
// A transaction which fails validation is reset and resubmitted with a fresh id. Ids are minted only by
// TxnProcessor.NewTxnRequest, so they are unique and increase in submission order.
