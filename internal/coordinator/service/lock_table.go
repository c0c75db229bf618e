// Package service provides the coordinator's lock table and security
// boundary validator.
package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	coorddomain "github.com/havenhealth/securecore/internal/coordinator/domain"
)

// LockTable serializes conflicting operation classes. Waiters are granted in
// priority-then-FIFO order; a blocked waiter at the head of the queue acts as
// a barrier so it cannot be starved by later arrivals. Critical-priority
// acquisitions bypass the queue whenever their class is grantable.
type LockTable struct {
	mu      sync.Mutex
	held    map[coorddomain.OperationClass]coorddomain.SecurityLock
	waiters []*waiter
	nextSeq uint64
}

type waiter struct {
	class    coorddomain.OperationClass
	priority coorddomain.Priority
	holderID uuid.UUID
	seq      uint64
	ready    chan struct{}
	granted  bool
}

// NewLockTable creates an empty lock table.
func NewLockTable() *LockTable {
	return &LockTable{
		held: make(map[coorddomain.OperationClass]coorddomain.SecurityLock),
	}
}

func (t *LockTable) grantable(class coorddomain.OperationClass) bool {
	for heldClass := range t.held {
		if class.Conflicts(heldClass) {
			return false
		}
	}
	return true
}

func (t *LockTable) grant(class coorddomain.OperationClass, holderID uuid.UUID) {
	t.held[class] = coorddomain.SecurityLock{
		Class:      class,
		HolderID:   holderID,
		AcquiredAt: time.Now().UTC(),
	}
}

// Acquire blocks until the class can be locked or ctx ends. The returned
// release function is idempotent.
func (t *LockTable) Acquire(
	ctx context.Context,
	class coorddomain.OperationClass,
	priority coorddomain.Priority,
	holderID uuid.UUID,
) (func(), error) {
	t.mu.Lock()

	immediate := t.grantable(class) &&
		(len(t.waiters) == 0 || priority == coorddomain.PriorityCritical)
	if immediate {
		t.grant(class, holderID)
		t.mu.Unlock()
		return t.releaseFunc(class), nil
	}

	w := &waiter{
		class:    class,
		priority: priority,
		holderID: holderID,
		seq:      t.nextSeq,
		ready:    make(chan struct{}),
	}
	t.nextSeq++
	t.waiters = append(t.waiters, w)
	sort.SliceStable(t.waiters, func(i, j int) bool {
		if t.waiters[i].priority.Rank() != t.waiters[j].priority.Rank() {
			return t.waiters[i].priority.Rank() < t.waiters[j].priority.Rank()
		}
		return t.waiters[i].seq < t.waiters[j].seq
	})
	t.mu.Unlock()

	select {
	case <-w.ready:
		return t.releaseFunc(class), nil
	case <-ctx.Done():
		t.mu.Lock()
		if w.granted {
			// The grant raced the cancellation; hand the lock back.
			t.releaseLocked(class)
			t.mu.Unlock()
			return nil, ctx.Err()
		}
		t.removeWaiter(w)
		t.mu.Unlock()
		return nil, ctx.Err()
	}
}

func (t *LockTable) releaseFunc(class coorddomain.OperationClass) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			t.releaseLocked(class)
			t.mu.Unlock()
		})
	}
}

// releaseLocked frees a class and grants queued waiters from the front while
// their classes are grantable. The first blocked waiter stops the scan.
func (t *LockTable) releaseLocked(class coorddomain.OperationClass) {
	delete(t.held, class)
	for len(t.waiters) > 0 {
		head := t.waiters[0]
		if !t.grantable(head.class) {
			return
		}
		t.grant(head.class, head.holderID)
		head.granted = true
		close(head.ready)
		t.waiters = t.waiters[1:]
	}
}

func (t *LockTable) removeWaiter(w *waiter) {
	for i, candidate := range t.waiters {
		if candidate == w {
			t.waiters = append(t.waiters[:i], t.waiters[i+1:]...)
			return
		}
	}
}

// ActiveLocks returns a snapshot of held locks.
func (t *LockTable) ActiveLocks() []coorddomain.SecurityLock {
	t.mu.Lock()
	defer t.mu.Unlock()
	locks := make([]coorddomain.SecurityLock, 0, len(t.held))
	for _, lock := range t.held {
		locks = append(locks, lock)
	}
	sort.Slice(locks, func(i, j int) bool { return locks[i].AcquiredAt.Before(locks[j].AcquiredAt) })
	return locks
}

// QueuedCount returns the number of operations waiting for locks.
func (t *LockTable) QueuedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.waiters)
}
