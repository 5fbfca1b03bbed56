package verifier

import (
	"github.com/Comcast/ntta/core"
)

// record is what the Waiting and Passed lists hold.
type record struct {
	state *core.State
	hash  uint64

	// pred is the hash of the predecessor, or 0 for the initial
	// state.
	pred uint64

	// tocked means the state was reached by a tock.
	tocked bool

	// via is the change that produced the state.
	via *core.StateChange
}

// waiting keeps records in insertion order.
type waiting struct {
	order []*record
	index map[uint64]*record
}

func newWaiting() *waiting {
	return &waiting{
		index: make(map[uint64]*record),
	}
}

func (w *waiting) Len() int {
	return len(w.order)
}

func (w *waiting) get(h uint64) (*record, bool) {
	r, have := w.index[h]
	return r, have
}

func (w *waiting) push(r *record) {
	w.order = append(w.order, r)
	w.index[r.hash] = r
}

// take removes the i-th oldest record.
func (w *waiting) take(i int) *record {
	r := w.order[i]
	copy(w.order[i:], w.order[i+1:])
	w.order[len(w.order)-1] = nil
	w.order = w.order[:len(w.order)-1]
	delete(w.index, r.hash)
	return r
}

type passed map[uint64]*record
