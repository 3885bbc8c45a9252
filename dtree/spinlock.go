package dtree

import (
	"runtime"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// Number of failed probes before a waiter yields the processor.
const spinProbes = 64

// spinLock is a test-and-test-and-set lock for very short critical sections.
// The word sits on its own cache line so that waiters spinning on it do not
// slow down neighbouring fields.
type spinLock struct {
	_    cpu.CacheLinePad
	word int32
	_    cpu.CacheLinePad
}

func (l *spinLock) Lock() {
	for probes := 0; ; probes++ {
		if atomic.LoadInt32(&l.word) == 0 && atomic.CompareAndSwapInt32(&l.word, 0, 1) {
			return
		}
		if probes >= spinProbes {
			runtime.Gosched()
			probes = 0
		}
	}
}

func (l *spinLock) TryLock() bool {
	return atomic.LoadInt32(&l.word) == 0 && atomic.CompareAndSwapInt32(&l.word, 0, 1)
}

func (l *spinLock) Unlock() {
	atomic.StoreInt32(&l.word, 0)
}
