package registry_test

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/txprop/internal/ir"
	"github.com/roach88/txprop/internal/registry"
	"github.com/roach88/txprop/internal/testutil"
	"github.com/roach88/txprop/internal/txn"
)

const (
	idA = "00112233-4455-6677-8899-aabbccddeeff"
	idB = "ffeeddcc-bbaa-9988-7766-554433221100"
)

// reconstructFactory returns a factory that asks coord for a handle and
// wraps it in a promoted proxy.
func reconstructFactory(coord *testutil.FakeCoordinator, id ir.TxID) registry.Factory {
	return func(ctx context.Context) (*txn.Transaction, error) {
		h, err := coord.FromExportCookie(ctx, nil, id)
		if err != nil {
			return nil, err
		}
		return txn.NewPromoted(id, h)
	}
}

func TestRegistry_FindEmpty(t *testing.T) {
	r := registry.New()
	assert.Nil(t, r.Find(ir.MustParseTxID(idA)))
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_RegisterAndFind(t *testing.T) {
	r := registry.New()
	tx := txn.New(ir.MustParseTxID(idA))

	require.NoError(t, r.Register(tx))
	assert.Same(t, tx, r.Find(tx.ID()))
	assert.Equal(t, 1, r.Len())

	// Re-registering the same proxy is a no-op
	require.NoError(t, r.Register(tx))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := registry.New()
	id := ir.MustParseTxID(idA)
	require.NoError(t, r.Register(txn.New(id)))

	err := r.Register(txn.New(id))
	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrDuplicate)
}

func TestRegistry_RegisterNil(t *testing.T) {
	err := registry.New().Register(nil)
	assert.True(t, ir.IsNullArgument(err))
}

func TestRegistry_RegisterDisposed(t *testing.T) {
	r := registry.New()
	tx := txn.New(ir.MustParseTxID(idA))
	require.NoError(t, tx.Dispose(context.Background()))

	err := r.Register(tx)
	assert.True(t, ir.IsDisposed(err))
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_DisposeRemovesEntry(t *testing.T) {
	r := registry.New()
	tx := txn.New(ir.MustParseTxID(idA))
	require.NoError(t, r.Register(tx))

	require.NoError(t, tx.Dispose(context.Background()))

	assert.Nil(t, r.Find(tx.ID()))
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_StaleHookKeepsNewerEntry(t *testing.T) {
	r := registry.New()
	id := ir.MustParseTxID(idA)

	first := txn.New(id)
	require.NoError(t, r.Register(first))
	r.Remove(id)

	second := txn.New(id)
	require.NoError(t, r.Register(second))

	// Disposing the first proxy must not evict the second
	require.NoError(t, first.Dispose(context.Background()))
	assert.Same(t, second, r.Find(id))
}

func TestRegistry_CompletedProxyIsStillFound(t *testing.T) {
	r := registry.New()
	tx := txn.New(ir.MustParseTxID(idA))
	require.NoError(t, r.Register(tx))
	require.NoError(t, tx.Complete())

	assert.Same(t, tx, r.Find(tx.ID()), "completed proxies stay registered until disposed")
}

func TestRegistry_IDs(t *testing.T) {
	r := registry.New()
	b := txn.New(ir.MustParseTxID(idB))
	a := txn.New(ir.MustParseTxID(idA))
	require.NoError(t, r.Register(b))
	require.NoError(t, r.Register(a))

	assert.Equal(t, []ir.TxID{a.ID(), b.ID()}, r.IDs())
}

func registerAndDrop(r *registry.Registry, id ir.TxID) {
	tx := txn.New(id)
	if err := r.Register(tx); err != nil {
		panic(err)
	}
}

func TestRegistry_DoesNotKeepProxyAlive(t *testing.T) {
	r := registry.New()
	id := ir.MustParseTxID(idA)
	registerAndDrop(r, id)

	assert.Eventually(t, func() bool {
		runtime.GC()
		return r.Find(id) == nil && r.Len() == 0
	}, 5*time.Second, 10*time.Millisecond)
}

// createAndDrop reconstructs a proxy through the registry and drops it
// without disposing.
func createAndDrop(r *registry.Registry, coord *testutil.FakeCoordinator, id ir.TxID) {
	if _, err := r.FindOrCreate(context.Background(), id, reconstructFactory(coord, id)); err != nil {
		panic(err)
	}
}

func TestRegistry_CollectedProxyReleasesHandle(t *testing.T) {
	r := registry.New()
	coord := testutil.NewFakeCoordinator()
	id := ir.MustParseTxID(idA)
	createAndDrop(r, coord, id)

	assert.Eventually(t, func() bool {
		runtime.GC()
		return coord.Releases() == 1 && r.Len() == 0
	}, 5*time.Second, 10*time.Millisecond)

	// The next import reconstructs; the old handle is not released again.
	tx, err := r.FindOrCreate(context.Background(), id, reconstructFactory(coord, id))
	require.NoError(t, err)
	assert.Equal(t, int64(2), coord.Reconstructions())
	require.NoError(t, tx.Dispose(context.Background()))
	assert.Equal(t, int64(2), coord.Releases())
}

func TestRegistry_FindOrCreate_Creates(t *testing.T) {
	ctx := context.Background()
	r := registry.New()
	coord := testutil.NewFakeCoordinator()
	id := ir.MustParseTxID(idA)

	tx, err := r.FindOrCreate(ctx, id, reconstructFactory(coord, id))
	require.NoError(t, err)
	assert.Equal(t, ir.StatePromoted, tx.State())
	assert.Same(t, tx, r.Find(id))

	again, err := r.FindOrCreate(ctx, id, reconstructFactory(coord, id))
	require.NoError(t, err)
	assert.Same(t, tx, again)
	assert.Equal(t, int64(1), coord.Reconstructions())
}

func TestRegistry_FindOrCreate_NilFactory(t *testing.T) {
	_, err := registry.New().FindOrCreate(context.Background(), ir.MustParseTxID(idA), nil)
	assert.True(t, ir.IsNullArgument(err))
}

func TestRegistry_FindOrCreate_FactoryError(t *testing.T) {
	r := registry.New()
	coord := testutil.NewFakeCoordinator()
	coord.ReconstructErr = errors.New("unknown transaction")
	id := ir.MustParseTxID(idA)

	_, err := r.FindOrCreate(context.Background(), id, reconstructFactory(coord, id))
	require.ErrorIs(t, err, coord.ReconstructErr)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_FindOrCreate_WrongID(t *testing.T) {
	r := registry.New()
	coord := testutil.NewFakeCoordinator()
	id := ir.MustParseTxID(idA)
	other := ir.MustParseTxID(idB)

	_, err := r.FindOrCreate(context.Background(), id, reconstructFactory(coord, other))
	require.Error(t, err)
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, int64(1), coord.Releases(), "mismatched proxy is released")
}

func TestRegistry_FindOrCreate_AfterDisposeBuildsFresh(t *testing.T) {
	ctx := context.Background()
	r := registry.New()
	coord := testutil.NewFakeCoordinator()
	id := ir.MustParseTxID(idA)

	first, err := r.FindOrCreate(ctx, id, reconstructFactory(coord, id))
	require.NoError(t, err)
	require.NoError(t, first.Dispose(ctx))

	second, err := r.FindOrCreate(ctx, id, reconstructFactory(coord, id))
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, ir.StatePromoted, second.State())
	assert.Equal(t, int64(2), coord.Reconstructions())
}

func TestRegistry_FindOrCreate_LosesToDirectRegistration(t *testing.T) {
	ctx := context.Background()
	r := registry.New()
	coord := testutil.NewFakeCoordinator()
	id := ir.MustParseTxID(idA)
	winner := txn.New(id)

	factory := func(ctx context.Context) (*txn.Transaction, error) {
		// A local promotion registers the id while the reconstruction runs
		require.NoError(t, r.Register(winner))
		return reconstructFactory(coord, id)(ctx)
	}

	got, err := r.FindOrCreate(ctx, id, factory)
	require.NoError(t, err)
	assert.Same(t, winner, got)

	handles := coord.Handles()
	require.Len(t, handles, 1)
	assert.Equal(t, 1, handles[0].ReleaseCount(), "losing handle is released")
}

func TestRegistry_FindOrCreate_ConcurrentSameID(t *testing.T) {
	ctx := context.Background()
	r := registry.New()
	coord := testutil.NewFakeCoordinator()
	coord.Gate = make(chan struct{})
	coord.Entered = make(chan ir.TxID, 1)
	id := ir.MustParseTxID(idA)

	const goroutines = 64
	var wg sync.WaitGroup
	var started sync.WaitGroup
	results := make([]*txn.Transaction, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		started.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			tx, err := r.FindOrCreate(ctx, id, reconstructFactory(coord, id))
			assert.NoError(t, err)
			results[i] = tx
		}(i)
	}

	started.Wait()
	<-coord.Entered
	// Give the other callers time to join the in-flight reconstruction
	time.Sleep(20 * time.Millisecond)
	close(coord.Gate)
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		assert.Same(t, results[0], results[i])
	}
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, int64(0), coord.Releases())
	assert.Equal(t, int64(1), coord.Reconstructions())
}

func TestRegistry_FindOrCreate_StarterCancelDoesNotFailWaiters(t *testing.T) {
	r := registry.New()
	coord := testutil.NewFakeCoordinator()
	coord.Gate = make(chan struct{})
	coord.Entered = make(chan ir.TxID, 1)
	id := ir.MustParseTxID(idA)

	starterCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type result struct {
		tx  *txn.Transaction
		err error
	}
	starter := make(chan result, 1)
	go func() {
		tx, err := r.FindOrCreate(starterCtx, id, reconstructFactory(coord, id))
		starter <- result{tx, err}
	}()
	<-coord.Entered

	waiter := make(chan result, 1)
	go func() {
		tx, err := r.FindOrCreate(context.Background(), id, reconstructFactory(coord, id))
		waiter <- result{tx, err}
	}()

	// Let the waiter join the flight, then abandon the starter.
	time.Sleep(20 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)
	close(coord.Gate)

	w := <-waiter
	require.NoError(t, w.err)
	s := <-starter
	require.NoError(t, s.err)
	assert.Same(t, s.tx, w.tx)
	assert.Equal(t, int64(1), coord.Reconstructions())
}

func TestRegistry_StressManyIDs(t *testing.T) {
	ctx := context.Background()
	r := registry.New()
	coord := testutil.NewFakeCoordinator()

	ids := make([]ir.TxID, 8)
	for i := range ids {
		ids[i] = txn.UUIDv7Generator{}.Generate()
	}

	const workers = 32
	const rounds = 50
	var created atomic.Int64
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[ir.TxID]*txn.Transaction)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				id := ids[(w+i)%len(ids)]
				tx, err := r.FindOrCreate(ctx, id, func(ctx context.Context) (*txn.Transaction, error) {
					created.Add(1)
					return reconstructFactory(coord, id)(ctx)
				})
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				if prev, ok := seen[id]; ok {
					assert.Same(t, prev, tx)
				} else {
					seen[id] = tx
				}
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, int64(len(ids)), created.Load(), "one reconstruction per id")
	assert.Equal(t, len(ids), r.Len())
	assert.Equal(t, int64(0), coord.Releases())
}
