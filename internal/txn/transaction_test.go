package txn_test

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/txprop/internal/ir"
	"github.com/roach88/txprop/internal/testutil"
	"github.com/roach88/txprop/internal/txn"
)

const testID = "0e1d2c3b-4a59-6877-8695-a4b3c2d1e0f0"

func TestTransaction_NewIsActive(t *testing.T) {
	tx := txn.New(ir.MustParseTxID(testID))

	assert.Equal(t, ir.StateActive, tx.State())
	assert.Equal(t, ir.PromoterTypeDTC, tx.PromoterType())
	assert.False(t, tx.IsDisposed())
	assert.False(t, tx.IsCompleted())
	assert.Equal(t, "tx "+testID+" (active)", tx.String())
}

func TestTransaction_WithPromoterType(t *testing.T) {
	other := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	tx := txn.New(ir.MustParseTxID(testID), txn.WithPromoterType(other))
	assert.Equal(t, other, tx.PromoterType())
}

func TestTransaction_NewPromoted(t *testing.T) {
	coord := testutil.NewFakeCoordinator()
	id := ir.MustParseTxID(testID)
	h, err := coord.Promote(context.Background(), id)
	require.NoError(t, err)

	tx, err := txn.NewPromoted(id, h)
	require.NoError(t, err)
	assert.Equal(t, ir.StatePromoted, tx.State())
}

func TestTransaction_NewPromoted_NilHandle(t *testing.T) {
	_, err := txn.NewPromoted(ir.MustParseTxID(testID), nil)
	require.Error(t, err)
	assert.True(t, ir.IsNullArgument(err))
}

func TestTransaction_NewPromoted_IDMismatch(t *testing.T) {
	coord := testutil.NewFakeCoordinator()
	h, err := coord.Promote(context.Background(), txn.UUIDv7Generator{}.Generate())
	require.NoError(t, err)

	_, err = txn.NewPromoted(ir.MustParseTxID(testID), h)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}

func TestTransaction_Complete(t *testing.T) {
	tx := txn.New(ir.MustParseTxID(testID))

	require.NoError(t, tx.Complete())
	assert.True(t, tx.IsCompleted())

	// Second completion is a no-op
	require.NoError(t, tx.Complete())
	assert.Equal(t, ir.StateCompleted, tx.State())
}

func TestTransaction_CompleteAfterDispose(t *testing.T) {
	tx := txn.New(ir.MustParseTxID(testID))
	require.NoError(t, tx.Dispose(context.Background()))

	err := tx.Complete()
	require.Error(t, err)
	assert.True(t, ir.IsDisposed(err))
}

func TestTransaction_DisposeReleasesHandleOnce(t *testing.T) {
	ctx := context.Background()
	coord := testutil.NewFakeCoordinator()
	id := ir.MustParseTxID(testID)
	h, err := coord.Promote(ctx, id)
	require.NoError(t, err)
	tx, err := txn.NewPromoted(id, h)
	require.NoError(t, err)

	require.NoError(t, tx.Dispose(ctx))
	require.NoError(t, tx.Dispose(ctx))

	assert.True(t, tx.IsDisposed())
	assert.Equal(t, 1, h.(*testutil.FakeHandle).ReleaseCount())
	assert.Equal(t, int64(1), coord.Releases())
}

// promoteAndDrop promotes a fresh proxy and drops it without disposing.
func promoteAndDrop(coord *testutil.FakeCoordinator, id ir.TxID) {
	if _, err := txn.NewPromoter(coord, nil).Promote(context.Background(), txn.New(id)); err != nil {
		panic(err)
	}
}

// disposeAndDrop reconstructs a proxy, disposes it and drops it.
func disposeAndDrop(coord *testutil.FakeCoordinator, id ir.TxID) {
	ctx := context.Background()
	h, err := coord.FromExportCookie(ctx, nil, id)
	if err != nil {
		panic(err)
	}
	tx, err := txn.NewPromoted(id, h)
	if err != nil {
		panic(err)
	}
	if err := tx.Dispose(ctx); err != nil {
		panic(err)
	}
}

func TestTransaction_CollectedReleasesHandle(t *testing.T) {
	coord := testutil.NewFakeCoordinator()
	promoteAndDrop(coord, ir.MustParseTxID(testID))

	assert.Eventually(t, func() bool {
		runtime.GC()
		return coord.Releases() == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, coord.Handles()[0].ReleaseCount())
}

func TestTransaction_DisposedThenCollectedReleasesOnce(t *testing.T) {
	coord := testutil.NewFakeCoordinator()
	disposeAndDrop(coord, ir.MustParseTxID(testID))

	for range 5 {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, int64(1), coord.Releases())
}

func TestTransaction_DisposeFromCompleted(t *testing.T) {
	tx := txn.New(ir.MustParseTxID(testID))
	require.NoError(t, tx.Complete())
	require.NoError(t, tx.Dispose(context.Background()))
	assert.Equal(t, ir.StateDisposed, tx.State())
}

func TestTransaction_OnDispose(t *testing.T) {
	tx := txn.New(ir.MustParseTxID(testID))

	calls := 0
	assert.True(t, tx.OnDispose(func() { calls++ }))
	assert.True(t, tx.OnDispose(func() { calls++ }))

	require.NoError(t, tx.Dispose(context.Background()))
	require.NoError(t, tx.Dispose(context.Background()))
	assert.Equal(t, 2, calls, "hooks run exactly once")

	assert.False(t, tx.OnDispose(func() { calls++ }), "registration after dispose is refused")
	assert.Equal(t, 2, calls)
}

type failingRelease struct {
	*testutil.FakeHandle
}

func (failingRelease) Release(context.Context) error {
	return errors.New("coordinator gone")
}

func TestTransaction_DisposeReportsReleaseError(t *testing.T) {
	coord := testutil.NewFakeCoordinator()
	id := ir.MustParseTxID(testID)
	h, err := coord.Promote(context.Background(), id)
	require.NoError(t, err)

	tx, err := txn.NewPromoted(id, failingRelease{h.(*testutil.FakeHandle)})
	require.NoError(t, err)

	err = tx.Dispose(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coordinator gone")
	assert.True(t, tx.IsDisposed(), "state is terminal even when release fails")
}

func TestBegin_UsesGenerator(t *testing.T) {
	gen := testutil.NewFixedIDs(testID)
	tx := txn.Begin(gen)
	assert.Equal(t, ir.MustParseTxID(testID), tx.ID())
	assert.Equal(t, ir.StateActive, tx.State())
}

func TestBegin_DefaultGenerator(t *testing.T) {
	a := txn.Begin(nil)
	b := txn.Begin(nil)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, uuid.Version(7), uuid.UUID(a.ID()).Version())
}
