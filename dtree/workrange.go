package dtree

// workRange is the half-open interval [next, last) of items a node still
// holds, carved from [first, last). Local threads claim from the front; the
// coordinator carves children's shares off the back.
type workRange struct {
	lock  spinLock
	first int64
	next  int64
	last  int64
}

func (w *workRange) remaining() int64 {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.last - w.next
}

// reset replaces the range with [first, last).
func (w *workRange) reset(first, last int64) {
	w.lock.Lock()
	w.first, w.next, w.last = first, first, last
	w.lock.Unlock()
}

// claim takes a guided chunk from the front for one of threads consumers:
// a share of what is left that shrinks as the range drains, never below
// floor and never past the end. It returns an empty range when nothing is
// left.
func (w *workRange) claim(threads int, floor int64) (first, last int64) {
	w.lock.Lock()
	defer w.lock.Unlock()
	rem := w.last - w.next
	if rem <= 0 {
		return w.next, w.next
	}
	div := int64(2 * threads)
	chunk := rem / div
	if rem%div != 0 {
		chunk++
	}
	if chunk < floor {
		chunk = floor
	}
	if chunk > rem {
		chunk = rem
	}
	first = w.next
	w.next += chunk
	return first, w.next
}

// carve removes up to size(rem) items from the back, where rem is what is
// left at the time of the call.
func (w *workRange) carve(size func(rem int64) int64) (first, last int64) {
	w.lock.Lock()
	defer w.lock.Unlock()
	rem := w.last - w.next
	if rem <= 0 {
		return w.last, w.last
	}
	n := size(rem)
	if n > rem {
		n = rem
	}
	if n < 0 {
		n = 0
	}
	last = w.last
	w.last -= n
	return w.last, last
}
