package relay

import (
	"container/list"
	"sync"
	"time"

	"github.com/bitfsorg/libtxverify-go/types"
	"github.com/bitfsorg/libtxverify-go/verification"
)

// deferredTx is a transaction waiting for the chain state it depends on.
type deferredTx struct {
	peer  string
	tx    types.TransactionView
	err   verification.TransactionError
	added time.Time
}

// deferredPool is a bounded FIFO keyed by transaction hash. When full, the
// oldest entry is evicted.
type deferredPool struct {
	mu    sync.Mutex
	max   int
	order *list.List // of *deferredTx, oldest first
	index map[types.Hash]*list.Element
}

func newDeferredPool(max int) *deferredPool {
	return &deferredPool{
		max:   max,
		order: list.New(),
		index: make(map[types.Hash]*list.Element),
	}
}

// put parks d. An entry already present keeps its position and takes the new
// error. It reports whether d was newly added and which entry, if any, was
// evicted to make room.
func (p *deferredPool) put(d *deferredTx) (added bool, evicted *deferredTx) {
	if p.max == 0 {
		return false, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	hash := d.tx.Hash()
	if el, ok := p.index[hash]; ok {
		el.Value.(*deferredTx).err = d.err
		return false, nil
	}

	if p.order.Len() >= p.max {
		oldest := p.order.Front()
		evicted = p.order.Remove(oldest).(*deferredTx)
		delete(p.index, evicted.tx.Hash())
	}
	p.index[hash] = p.order.PushBack(d)
	return true, evicted
}

// refresh replaces the error of the entry for hash. It reports false when no
// such entry exists.
func (p *deferredPool) refresh(hash types.Hash, err verification.TransactionError) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	el, ok := p.index[hash]
	if !ok {
		return false
	}
	el.Value.(*deferredTx).err = err
	return true
}

func (p *deferredPool) remove(hash types.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if el, ok := p.index[hash]; ok {
		p.order.Remove(el)
		delete(p.index, hash)
	}
}

// snapshot returns the entries oldest first.
func (p *deferredPool) snapshot() []*deferredTx {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make([]*deferredTx, 0, p.order.Len())
	for el := p.order.Front(); el != nil; el = el.Next() {
		cp := *el.Value.(*deferredTx)
		result = append(result, &cp)
	}
	return result
}

func (p *deferredPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.order.Len()
}
