// Package relay verifies transactions submitted by peers and decides what
// happens to them and to their senders.
//
// A transaction failing a malformed check is rejected and its sender banned.
// One failing a contextual check is parked in a bounded deferred pool until
// Retry, without penalizing the sender. Peers banned at submission time are
// ignored without verification. An empty peer marks a local submission, which
// is never checked against or added to the ban list.
package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/bitfsorg/libtxverify-go/peers"
	"github.com/bitfsorg/libtxverify-go/types"
	"github.com/bitfsorg/libtxverify-go/verification"
)

// Outcome is the fate of a submission.
type Outcome uint8

const (
	// Ignored: not verified, see Result.Err.
	Ignored Outcome = iota
	// Accepted: passed every rule.
	Accepted
	// Rejected: failed a rule and was dropped.
	Rejected
	// Deferred: failed a contextual rule and waits in the deferred pool.
	Deferred
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case Deferred:
		return "deferred"
	default:
		return "ignored"
	}
}

// Submission is a transaction received from a peer.
type Submission struct {
	Peer string
	Tx   types.TransactionView
}

// Result reports what happened to one submission.
type Result struct {
	Peer     string
	Hash     types.Hash
	Outcome  Outcome
	Category verification.Category
	Err      error
}

// Processor verifies submissions on a worker pool.
type Processor struct {
	cfg        Config
	rules      []verification.Rule
	bans       peers.BanList
	log        *zap.Logger
	now        func() time.Time
	registerer prometheus.Registerer

	metrics   *metrics
	pool      *ants.Pool
	deferred  *deferredPool
	closeOnce sync.Once
}

// New creates a Processor. Call Close to release its workers.
func New(cfg Config, opts ...Option) (*Processor, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	p := &Processor{
		cfg:   cfg,
		rules: verification.NonContextualRules(cfg.MaxBlockBytes),
		log:   zap.NewNop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bans == nil {
		p.bans = peers.NewMemBanList()
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	if p.now == nil {
		p.now = time.Now
	}

	p.metrics = newMetrics()
	if p.registerer != nil {
		if err := p.metrics.register(p.registerer); err != nil {
			return nil, fmt.Errorf("relay: register metrics: %w", err)
		}
	}

	pool, err := ants.NewPool(cfg.Workers, ants.WithPanicHandler(func(v interface{}) {
		p.log.Error("verification worker panicked", zap.Any("panic", v))
	}))
	if err != nil {
		return nil, fmt.Errorf("relay: create worker pool: %w", err)
	}
	p.pool = pool
	p.deferred = newDeferredPool(cfg.MaxDeferred)
	return p, nil
}

// Close releases the worker pool. Processing after Close reports
// ants.ErrPoolClosed for every submission.
func (p *Processor) Close() {
	p.closeOnce.Do(p.pool.Release)
}

// Process verifies subs concurrently and returns one result per submission,
// in submission order. Once ctx is done no further submissions are scheduled
// and those left over are Ignored with ctx.Err().
func (p *Processor) Process(ctx context.Context, subs []Submission) []Result {
	return p.dispatch(ctx, len(subs), func(i int) (string, types.TransactionView) {
		return subs[i].Peer, subs[i].Tx
	}, false)
}

// Retry re-verifies every deferred transaction. Accepted ones leave the pool,
// malformed ones are dropped and their sender banned, contextual ones stay.
// Results are ordered oldest deferral first.
func (p *Processor) Retry(ctx context.Context) []Result {
	entries := p.deferred.snapshot()
	return p.dispatch(ctx, len(entries), func(i int) (string, types.TransactionView) {
		return entries[i].peer, entries[i].tx
	}, true)
}

// Deferred returns the hashes in the deferred pool, oldest first.
func (p *Processor) Deferred() []types.Hash {
	entries := p.deferred.snapshot()
	hashes := make([]types.Hash, len(entries))
	for i, d := range entries {
		hashes[i] = d.tx.Hash()
	}
	return hashes
}

func (p *Processor) dispatch(ctx context.Context, n int, at func(int) (string, types.TransactionView), retry bool) []Result {
	results := make([]Result, n)
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		peer, tx := at(i)
		results[i] = Result{Peer: peer}
		if tx != nil {
			results[i].Hash = tx.Hash()
		}

		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}

		idx := i
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			results[idx] = p.verify(peer, tx, retry)
		})
		if err != nil {
			wg.Done()
			results[i].Err = err
		}
	}

	wg.Wait()
	p.metrics.deferredSize.Set(float64(p.deferred.size()))
	return results
}

func (p *Processor) verify(peer string, tx types.TransactionView, retry bool) Result {
	res := Result{Peer: peer}
	if tx == nil {
		res.Outcome = Rejected
		res.Err = fmt.Errorf("%w: transaction", ErrNilParam)
		p.metrics.verified.WithLabelValues(res.Outcome.String()).Inc()
		return res
	}
	res.Hash = tx.Hash()
	log := p.log.With(zap.String("tx_hash", types.HashString(res.Hash)), zap.String("peer", peer))

	if peer != "" {
		banned, err := p.bans.IsBanned(peer, p.now())
		if err != nil {
			log.Error("ban lookup failed", zap.Error(err))
		}
		if banned {
			if retry {
				p.dropDeferred(res.Hash)
			}
			res.Err = ErrPeerBanned
			p.metrics.verified.WithLabelValues(res.Outcome.String()).Inc()
			return res
		}
	}

	err := verification.Run(tx, p.rules...)
	res.Err = err
	switch category, txErr := verification.Classify(err); {
	case err == nil:
		res.Outcome = Accepted
		if retry {
			p.dropDeferred(res.Hash)
		}
		log.Debug("transaction accepted")

	case category == verification.CategoryMalformed:
		res.Outcome = Rejected
		res.Category = category
		if retry {
			p.dropDeferred(res.Hash)
		}
		p.metrics.rejected.WithLabelValues(txErr.Kind().String()).Inc()
		log.Warn("malformed transaction rejected",
			zap.Stringer("kind", txErr.Kind()),
			zap.Bool("malformed", true),
			zap.Error(err))
		p.ban(log, peer, txErr)

	case category == verification.CategoryContextual:
		res.Category = category
		if retry {
			res.Outcome, res.Err = p.refreshDeferred(log, tx, txErr)
		} else {
			res.Outcome = p.deferTx(log, peer, tx, txErr)
		}

	default:
		res.Outcome = Rejected
		if retry {
			p.dropDeferred(res.Hash)
		}
		log.Error("transaction verification failed", zap.Error(err))
	}

	p.metrics.verified.WithLabelValues(res.Outcome.String()).Inc()
	return res
}

func (p *Processor) ban(log *zap.Logger, peer string, txErr verification.TransactionError) {
	if peer == "" {
		return
	}
	now := p.now()
	err := p.bans.Ban(&peers.Ban{
		Peer:    peer,
		Reason:  txErr.Error(),
		Kind:    txErr.Kind().String(),
		Created: now,
		Until:   now.Add(p.cfg.BanDuration),
	})
	if err != nil {
		log.Error("ban peer failed", zap.Error(err))
		return
	}
	log.Info("peer banned", zap.Duration("duration", p.cfg.BanDuration))
}

// deferTx parks tx in the deferred pool. With deferral disabled the
// transaction is rejected instead.
func (p *Processor) deferTx(log *zap.Logger, peer string, tx types.TransactionView, txErr verification.TransactionError) Outcome {
	log = log.With(zap.Stringer("kind", txErr.Kind()), zap.Bool("malformed", false))
	if p.cfg.MaxDeferred == 0 {
		p.metrics.rejected.WithLabelValues(txErr.Kind().String()).Inc()
		log.Info("contextual failure rejected, deferral disabled", zap.Error(txErr))
		return Rejected
	}

	added, evicted := p.deferred.put(&deferredTx{peer: peer, tx: tx, err: txErr, added: p.now()})
	if added {
		p.metrics.deferred.WithLabelValues(txErr.Kind().String()).Inc()
		log.Debug("transaction deferred", zap.Error(txErr))
	}
	if evicted != nil {
		log.Info("deferred transaction evicted",
			zap.String("evicted_hash", types.HashString(evicted.tx.Hash())),
			zap.Error(ErrEvicted))
	}
	return Deferred
}

// refreshDeferred records a repeated contextual failure found by Retry. An
// entry evicted since the snapshot is not re-inserted.
func (p *Processor) refreshDeferred(log *zap.Logger, tx types.TransactionView, txErr verification.TransactionError) (Outcome, error) {
	if p.deferred.refresh(tx.Hash(), txErr) {
		return Deferred, txErr
	}
	log.Debug("deferred transaction evicted during retry",
		zap.Stringer("kind", txErr.Kind()),
		zap.Error(txErr))
	p.metrics.rejected.WithLabelValues(txErr.Kind().String()).Inc()
	return Rejected, fmt.Errorf("%w: %w", ErrEvicted, txErr)
}

func (p *Processor) dropDeferred(hash types.Hash) {
	p.deferred.remove(hash)
}
