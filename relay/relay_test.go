package relay

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bitfsorg/libtxverify-go/peers"
	"github.com/bitfsorg/libtxverify-go/types"
	"github.com/bitfsorg/libtxverify-go/verification"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		Workers:       4,
		MaxBlockBytes: 597_000,
		BanDuration:   time.Hour,
		MaxDeferred:   8,
	}
}

// makeTx returns a well-formed transaction made unique by seq.
func makeTx(seq uint64) *types.View {
	return types.NewTransactionView(&types.Transaction{
		Inputs:      []types.CellInput{{PreviousOutput: types.OutPoint{Index: 1}, Since: seq}},
		Outputs:     []types.CellOutput{{Capacity: types.Shannons(61)}},
		OutputsData: [][]byte{nil},
	})
}

// makeMismatchedTx returns a transaction with more outputs than data entries.
func makeMismatchedTx(seq uint64) *types.View {
	return types.NewTransactionView(&types.Transaction{
		Inputs:      []types.CellInput{{PreviousOutput: types.OutPoint{Index: 1}, Since: seq}},
		Outputs:     []types.CellOutput{{Capacity: types.Shannons(61)}, {Capacity: types.Shannons(61)}},
		OutputsData: [][]byte{nil},
	})
}

// chainState is a rule whose verdict per transaction can change between calls.
type chainState struct {
	mu      sync.Mutex
	verdict map[types.Hash]error
}

func newChainState() *chainState {
	return &chainState{verdict: make(map[types.Hash]error)}
}

func (c *chainState) set(h types.Hash, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verdict[h] = err
}

type chainStateVerifier struct {
	state *chainState
	hash  types.Hash
}

func (v chainStateVerifier) Verify() error {
	v.state.mu.Lock()
	defer v.state.mu.Unlock()
	return v.state.verdict[v.hash]
}

func (c *chainState) rule(tx types.TransactionView) verification.Verifier {
	return chainStateVerifier{state: c, hash: tx.Hash()}
}

func newTestProcessor(t *testing.T, cfg Config, opts ...Option) *Processor {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	p, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func TestNewInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"zero max block bytes", func(c *Config) { c.MaxBlockBytes = 0 }},
		{"zero ban duration", func(c *Config) { c.BanDuration = 0 }},
		{"negative max deferred", func(c *Config) { c.MaxDeferred = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.modify(&cfg)
			p, err := New(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Nil(t, p)
		})
	}
}

func TestNewDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	newTestProcessor(t, testConfig(), WithRegisterer(reg))

	_, err := New(testConfig(), WithRegisterer(reg))
	assert.Error(t, err)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "ignored", Ignored.String())
	assert.Equal(t, "accepted", Accepted.String())
	assert.Equal(t, "rejected", Rejected.String())
	assert.Equal(t, "deferred", Deferred.String())
}

func TestProcessAccepted(t *testing.T) {
	p := newTestProcessor(t, testConfig())
	tx := makeTx(1)

	results := p.Process(context.Background(), []Submission{{Peer: "peer-a", Tx: tx}})
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, Accepted, res.Outcome)
	assert.NoError(t, res.Err)
	assert.Equal(t, tx.Hash(), res.Hash)
	assert.Equal(t, "peer-a", res.Peer)
	assert.Equal(t, verification.CategoryUnknown, res.Category)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.verified.WithLabelValues("accepted")))
}

func TestProcessMalformedBansPeer(t *testing.T) {
	bans := peers.NewMemBanList()
	p := newTestProcessor(t, testConfig(), WithBanList(bans))

	results := p.Process(context.Background(), []Submission{{Peer: "peer-a", Tx: makeMismatchedTx(1)}})
	res := results[0]
	assert.Equal(t, Rejected, res.Outcome)
	assert.Equal(t, verification.CategoryMalformed, res.Category)
	assert.Equal(t, verification.NewOutputsDataLengthMismatch(2, 1), res.Err)

	ban, err := bans.Get("peer-a")
	require.NoError(t, err)
	assert.Equal(t, "OutputsDataLengthMismatch", ban.Kind)
	assert.Equal(t, res.Err.Error(), ban.Reason)
	assert.Equal(t, testNow, ban.Created)
	assert.Equal(t, testNow.Add(time.Hour), ban.Until)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.rejected.WithLabelValues("OutputsDataLengthMismatch")))

	// Later submissions from the banned peer are not verified.
	results = p.Process(context.Background(), []Submission{{Peer: "peer-a", Tx: makeTx(2)}})
	assert.Equal(t, Ignored, results[0].Outcome)
	assert.ErrorIs(t, results[0].Err, ErrPeerBanned)

	// Other peers are unaffected.
	results = p.Process(context.Background(), []Submission{{Peer: "peer-b", Tx: makeTx(2)}})
	assert.Equal(t, Accepted, results[0].Outcome)
}

func TestProcessExpiredBanAllowsPeer(t *testing.T) {
	bans := peers.NewMemBanList()
	require.NoError(t, bans.Ban(&peers.Ban{
		Peer:    "peer-a",
		Created: testNow.Add(-2 * time.Hour),
		Until:   testNow.Add(-time.Hour),
	}))
	p := newTestProcessor(t, testConfig(), WithBanList(bans))

	results := p.Process(context.Background(), []Submission{{Peer: "peer-a", Tx: makeTx(1)}})
	assert.Equal(t, Accepted, results[0].Outcome)
}

func TestProcessLocalSubmissionNeverBanned(t *testing.T) {
	bans := peers.NewMemBanList()
	p := newTestProcessor(t, testConfig(), WithBanList(bans))

	results := p.Process(context.Background(), []Submission{{Tx: makeMismatchedTx(1)}})
	assert.Equal(t, Rejected, results[0].Outcome)

	list, err := bans.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestProcessContextualDefers(t *testing.T) {
	state := newChainState()
	bans := peers.NewMemBanList()
	p := newTestProcessor(t, testConfig(), WithBanList(bans), WithRules(state.rule))

	tx := makeTx(1)
	state.set(tx.Hash(), verification.NewImmature(0))

	results := p.Process(context.Background(), []Submission{{Peer: "peer-a", Tx: tx}})
	res := results[0]
	assert.Equal(t, Deferred, res.Outcome)
	assert.Equal(t, verification.CategoryContextual, res.Category)
	assert.Equal(t, verification.NewImmature(0), res.Err)
	assert.Equal(t, []types.Hash{tx.Hash()}, p.Deferred())

	banned, err := bans.IsBanned("peer-a", testNow)
	require.NoError(t, err)
	assert.False(t, banned)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.deferred.WithLabelValues("Immature")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.deferredSize))

	// Resubmitting the same transaction does not duplicate it.
	p.Process(context.Background(), []Submission{{Peer: "peer-b", Tx: tx}})
	assert.Len(t, p.Deferred(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.deferred.WithLabelValues("Immature")))
}

func TestProcessDeferredPoolEvictsOldest(t *testing.T) {
	state := newChainState()
	cfg := testConfig()
	cfg.MaxDeferred = 2
	p := newTestProcessor(t, cfg, WithRules(state.rule))

	var hashes []types.Hash
	for seq := uint64(1); seq <= 3; seq++ {
		tx := makeTx(seq)
		state.set(tx.Hash(), verification.NewMismatchedVersion(0, 1))
		hashes = append(hashes, tx.Hash())
		results := p.Process(context.Background(), []Submission{{Peer: "peer-a", Tx: tx}})
		require.Equal(t, Deferred, results[0].Outcome)
	}

	assert.Equal(t, hashes[1:], p.Deferred())
	assert.Equal(t, 2.0, testutil.ToFloat64(p.metrics.deferredSize))
}

func TestProcessDeferralDisabled(t *testing.T) {
	state := newChainState()
	bans := peers.NewMemBanList()
	cfg := testConfig()
	cfg.MaxDeferred = 0
	p := newTestProcessor(t, cfg, WithBanList(bans), WithRules(state.rule))

	tx := makeTx(1)
	state.set(tx.Hash(), verification.NewCellbaseImmaturity(verification.SourceInputs, 0))

	results := p.Process(context.Background(), []Submission{{Peer: "peer-a", Tx: tx}})
	assert.Equal(t, Rejected, results[0].Outcome)
	assert.Equal(t, verification.CategoryContextual, results[0].Category)
	assert.Empty(t, p.Deferred())

	banned, err := bans.IsBanned("peer-a", testNow)
	require.NoError(t, err)
	assert.False(t, banned)
}

func TestProcessUnknownErrorRejectsWithoutBan(t *testing.T) {
	state := newChainState()
	bans := peers.NewMemBanList()
	p := newTestProcessor(t, testConfig(), WithBanList(bans), WithRules(state.rule))

	tx := makeTx(1)
	boom := errors.New("script engine unavailable")
	state.set(tx.Hash(), boom)

	results := p.Process(context.Background(), []Submission{{Peer: "peer-a", Tx: tx}})
	assert.Equal(t, Rejected, results[0].Outcome)
	assert.Equal(t, verification.CategoryUnknown, results[0].Category)
	assert.ErrorIs(t, results[0].Err, boom)

	banned, err := bans.IsBanned("peer-a", testNow)
	require.NoError(t, err)
	assert.False(t, banned)
}

func TestProcessNilTransaction(t *testing.T) {
	p := newTestProcessor(t, testConfig())

	results := p.Process(context.Background(), []Submission{{Peer: "peer-a"}})
	assert.Equal(t, Rejected, results[0].Outcome)
	assert.ErrorIs(t, results[0].Err, ErrNilParam)
}

func TestProcessPreservesOrder(t *testing.T) {
	p := newTestProcessor(t, testConfig())

	var subs []Submission
	for seq := uint64(0); seq < 64; seq++ {
		tx := makeTx(seq)
		if seq%3 == 0 {
			tx = makeMismatchedTx(seq)
		}
		subs = append(subs, Submission{Tx: tx})
	}

	results := p.Process(context.Background(), subs)
	require.Len(t, results, len(subs))
	for i, res := range results {
		assert.Equal(t, subs[i].Tx.Hash(), res.Hash, "result %d", i)
		if i%3 == 0 {
			assert.Equal(t, Rejected, res.Outcome, "result %d", i)
		} else {
			assert.Equal(t, Accepted, res.Outcome, "result %d", i)
		}
	}
}

func TestProcessCancelledContext(t *testing.T) {
	p := newTestProcessor(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	subs := []Submission{{Tx: makeTx(1)}, {Tx: makeTx(2)}}
	results := p.Process(ctx, subs)
	require.Len(t, results, 2)
	for i, res := range results {
		assert.Equal(t, Ignored, res.Outcome)
		assert.ErrorIs(t, res.Err, context.Canceled)
		assert.Equal(t, subs[i].Tx.Hash(), res.Hash)
	}
}

func TestProcessAfterClose(t *testing.T) {
	p, err := New(testConfig())
	require.NoError(t, err)
	p.Close()
	p.Close()

	results := p.Process(context.Background(), []Submission{{Tx: makeTx(1)}})
	assert.Equal(t, Ignored, results[0].Outcome)
	assert.ErrorIs(t, results[0].Err, ants.ErrPoolClosed)
}

func TestRetry(t *testing.T) {
	state := newChainState()
	bans := peers.NewMemBanList()
	p := newTestProcessor(t, testConfig(), WithBanList(bans), WithRules(state.rule))

	ready, stillWaiting, turnsBad := makeTx(1), makeTx(2), makeTx(3)
	for _, tx := range []*types.View{ready, stillWaiting, turnsBad} {
		state.set(tx.Hash(), verification.NewImmature(0))
	}
	for i, peer := range []string{"peer-a", "peer-b", "peer-c"} {
		tx := []*types.View{ready, stillWaiting, turnsBad}[i]
		results := p.Process(context.Background(), []Submission{{Peer: peer, Tx: tx}})
		require.Equal(t, Deferred, results[0].Outcome)
	}

	state.set(ready.Hash(), nil)
	state.set(turnsBad.Hash(), verification.NewInvalidSince(0))

	results := p.Retry(context.Background())
	require.Len(t, results, 3)
	assert.Equal(t, Accepted, results[0].Outcome)
	assert.Equal(t, Deferred, results[1].Outcome)
	assert.Equal(t, Rejected, results[2].Outcome)
	assert.Equal(t, "peer-c", results[2].Peer)

	assert.Equal(t, []types.Hash{stillWaiting.Hash()}, p.Deferred())
	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.deferredSize))

	banned, err := bans.IsBanned("peer-c", testNow)
	require.NoError(t, err)
	assert.True(t, banned)
	banned, err = bans.IsBanned("peer-b", testNow)
	require.NoError(t, err)
	assert.False(t, banned)
}

func TestRetryDropsBannedOrigin(t *testing.T) {
	state := newChainState()
	bans := peers.NewMemBanList()
	p := newTestProcessor(t, testConfig(), WithBanList(bans), WithRules(state.rule))

	tx := makeTx(1)
	state.set(tx.Hash(), verification.NewImmature(0))
	p.Process(context.Background(), []Submission{{Peer: "peer-a", Tx: tx}})
	require.Len(t, p.Deferred(), 1)

	require.NoError(t, bans.Ban(&peers.Ban{Peer: "peer-a", Created: testNow, Until: testNow.Add(time.Minute)}))

	results := p.Retry(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, Ignored, results[0].Outcome)
	assert.ErrorIs(t, results[0].Err, ErrPeerBanned)
	assert.Empty(t, p.Deferred())
}

func TestRetryEmptyPool(t *testing.T) {
	p := newTestProcessor(t, testConfig())
	assert.Empty(t, p.Retry(context.Background()))
}

func TestProcessLogsMalformed(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p := newTestProcessor(t, testConfig(), WithLogger(zap.New(core)))

	tx := makeMismatchedTx(1)
	p.Process(context.Background(), []Submission{{Peer: "peer-a", Tx: tx}})

	warned := logs.FilterMessage("malformed transaction rejected").All()
	require.Len(t, warned, 1)
	fields := warned[0].ContextMap()
	assert.Equal(t, types.HashString(tx.Hash()), fields["tx_hash"])
	assert.Equal(t, "peer-a", fields["peer"])
	assert.Equal(t, "OutputsDataLengthMismatch", fields["kind"])
	assert.Equal(t, true, fields["malformed"])

	assert.Equal(t, 1, logs.FilterMessage("peer banned").Len())
}

func TestProcessWithBoltBanList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bans.db")
	store, err := peers.OpenBoltStore(path)
	require.NoError(t, err)

	p := newTestProcessor(t, testConfig(), WithBanList(store.Bans()))
	p.Process(context.Background(), []Submission{{Peer: "peer-a", Tx: makeMismatchedTx(1)}})
	require.NoError(t, store.Close())

	store, err = peers.OpenBoltStore(path)
	require.NoError(t, err)
	defer store.Close()

	banned, err := store.Bans().IsBanned("peer-a", testNow)
	require.NoError(t, err)
	assert.True(t, banned)
}

func TestProcessConcurrentCallers(t *testing.T) {
	p := newTestProcessor(t, testConfig())

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			var subs []Submission
			for i := 0; i < 16; i++ {
				subs = append(subs, Submission{Tx: makeTx(uint64(g*100 + i))})
			}
			for _, res := range p.Process(context.Background(), subs) {
				assert.Equal(t, Accepted, res.Outcome)
			}
		}(g)
	}
	wg.Wait()
	assert.Equal(t, 128.0, testutil.ToFloat64(p.metrics.verified.WithLabelValues("accepted")))
}

func TestRetryDoesNotReinsertEvicted(t *testing.T) {
	state := newChainState()
	cfg := testConfig()
	cfg.MaxDeferred = 1
	p := newTestProcessor(t, cfg, WithRules(state.rule))

	older, newer := makeTx(1), makeTx(2)
	state.set(older.Hash(), verification.NewImmature(0))
	state.set(newer.Hash(), verification.NewImmature(0))

	p.Process(context.Background(), []Submission{{Peer: "peer-a", Tx: older}})
	p.Process(context.Background(), []Submission{{Peer: "peer-b", Tx: newer}})
	require.Equal(t, []types.Hash{newer.Hash()}, p.Deferred())

	// A retry working from a snapshot taken before the eviction.
	res := p.verify("peer-a", older, true)
	assert.Equal(t, Rejected, res.Outcome)
	assert.Equal(t, verification.CategoryContextual, res.Category)
	assert.ErrorIs(t, res.Err, ErrEvicted)

	var immature verification.ImmatureError
	assert.ErrorAs(t, res.Err, &immature)

	assert.Equal(t, []types.Hash{newer.Hash()}, p.Deferred())
}

func TestDeferredPoolRefresh(t *testing.T) {
	pool := newDeferredPool(2)
	tx := makeTx(1)

	assert.False(t, pool.refresh(tx.Hash(), verification.NewImmature(0)))
	assert.Equal(t, 0, pool.size())

	added, evicted := pool.put(&deferredTx{peer: "peer-a", tx: tx, err: verification.NewImmature(0)})
	require.True(t, added)
	require.Nil(t, evicted)

	assert.True(t, pool.refresh(tx.Hash(), verification.NewImmature(3)))
	entries := pool.snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, verification.NewImmature(3), entries[0].err)
}
