package forking_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NethermindEth/cheatnet/core"
	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/NethermindEth/cheatnet/forking"
	"github.com/NethermindEth/cheatnet/internal/testcontracts"
	"github.com/NethermindEth/cheatnet/mocks"
	"github.com/NethermindEth/cheatnet/starknet"
	"github.com/NethermindEth/cheatnet/starknet/compiler"
	"github.com/NethermindEth/cheatnet/state"
	"github.com/NethermindEth/cheatnet/vm"
	"github.com/sourcegraph/conc/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const forkURL = "http://localhost:5050/rpc"

var forkBlock = starknet.BlockNumber(100)

func newRemote(t *testing.T) *mocks.MockRemote {
	mockCtrl := gomock.NewController(t)
	t.Cleanup(mockCtrl.Finish)
	return mocks.NewMockRemote(mockCtrl)
}

func TestCacheQueriesOnce(t *testing.T) {
	remote := newRemote(t)
	addr := felt.FromUint64(0xa)
	key := felt.FromUint64(0xb)

	remote.EXPECT().StorageAt(gomock.Any(), forkBlock, &addr, &key).Return(felt.NewUnsafeFromString("0x42"), nil).Times(1)

	cache := forking.NewCache(remote, forkURL, forkBlock)
	first, err := cache.StorageAt(context.Background(), &addr, &key)
	require.NoError(t, err)
	second, err := cache.StorageAt(context.Background(), &addr, &key)
	require.NoError(t, err)

	assert.Equal(t, felt.FromUint64(0x42), first)
	assert.Equal(t, first, second)
}

func TestForkedNonceOverlay(t *testing.T) {
	remote := newRemote(t)
	addr := felt.FromUint64(0x2a)

	remote.EXPECT().Nonce(gomock.Any(), forkBlock, &addr).Return(new(felt.Felt).SetUint64(5), nil).Times(1)

	st := forking.NewState(context.Background(), forking.NewCache(remote, forkURL, forkBlock))
	nonce, err := st.ContractNonce(&addr)
	require.NoError(t, err)
	assert.Equal(t, felt.FromUint64(5), nonce)

	six := felt.FromUint64(6)
	require.NoError(t, st.SetNonce(&addr, &six))
	nonce, err = st.ContractNonce(&addr)
	require.NoError(t, err)
	assert.Equal(t, six, nonce)
}

func TestCacheNotFound(t *testing.T) {
	remote := newRemote(t)
	addr := felt.FromUint64(1)
	classHash := felt.FromUint64(2)

	remote.EXPECT().ClassHashAt(gomock.Any(), forkBlock, &addr).Return(nil, forking.ErrNotFound).Times(1)
	remote.EXPECT().Class(gomock.Any(), forkBlock, &classHash).Return(nil, forking.ErrNotFound).Times(1)

	cache := forking.NewCache(remote, forkURL, forkBlock)
	for range 2 {
		got, err := cache.ClassHashAt(context.Background(), &addr)
		require.NoError(t, err)
		assert.True(t, got.IsZero())

		_, err = cache.Class(context.Background(), &classHash)
		require.ErrorIs(t, err, state.ErrUndeclaredClass)
	}
}

func TestCacheClass(t *testing.T) {
	classHash := felt.FromUint64(0xc1a55)

	t.Run("sierra class is compiled", func(t *testing.T) {
		remote := newRemote(t)
		sierra := testcontracts.Sierra(t, func(b *vm.Builder) {
			b.Function("get").PushUint(7).Return(1)
		})
		remote.EXPECT().Class(gomock.Any(), forkBlock, &classHash).
			Return(&starknet.ClassDefinition{Sierra: sierra}, nil).Times(1)

		st := forking.NewState(context.Background(), forking.NewCache(remote, forkURL, forkBlock))
		class, err := st.Class(&classHash)
		require.NoError(t, err)
		selector := core.Selector("get")
		_, found := class.EntryPoint(core.External, &selector)
		assert.True(t, found)

		compiledHash, err := st.CompiledClassHash(&classHash)
		require.NoError(t, err)
		assert.Equal(t, *class.Hash(), compiledHash)
	})

	t.Run("legacy class is rejected", func(t *testing.T) {
		remote := newRemote(t)
		remote.EXPECT().Class(gomock.Any(), forkBlock, &classHash).
			Return(&starknet.ClassDefinition{DeprecatedCairo: &starknet.DeprecatedCairoClass{}}, nil)

		cache := forking.NewCache(remote, forkURL, forkBlock)
		_, err := cache.Class(context.Background(), &classHash)
		require.ErrorIs(t, err, compiler.ErrUnsupportedLegacyClass)
	})

	t.Run("declaring a forked class fails", func(t *testing.T) {
		remote := newRemote(t)
		sierra := testcontracts.Sierra(t, func(b *vm.Builder) {
			b.Function("get").Return(0)
		})
		remote.EXPECT().Class(gomock.Any(), forkBlock, &classHash).
			Return(&starknet.ClassDefinition{Sierra: sierra}, nil).Times(1)

		st := forking.NewState(context.Background(), forking.NewCache(remote, forkURL, forkBlock))
		err := st.DeclareClass(&classHash, &felt.Zero, &core.CompiledClass{})
		require.ErrorIs(t, err, state.ErrClassAlreadyDeclared)
	})
}

func TestCacheRemoteFailures(t *testing.T) {
	addr := felt.FromUint64(3)

	t.Run("timeout is fatal", func(t *testing.T) {
		remote := newRemote(t)
		remote.EXPECT().Nonce(gomock.Any(), forkBlock, &addr).DoAndReturn(
			func(ctx context.Context, _ starknet.BlockID, _ *felt.Felt) (*felt.Felt, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			})

		cache := forking.NewCache(remote, forkURL, forkBlock).WithTimeout(10 * time.Millisecond)
		_, err := cache.Nonce(context.Background(), &addr)
		require.ErrorIs(t, err, forking.ErrRemoteTimeout)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		remote := newRemote(t)
		boom := errors.New("boom")
		gomock.InOrder(
			remote.EXPECT().Nonce(gomock.Any(), forkBlock, &addr).Return(nil, boom),
			remote.EXPECT().Nonce(gomock.Any(), forkBlock, &addr).Return(new(felt.Felt).SetUint64(1), nil),
		)

		cache := forking.NewCache(remote, forkURL, forkBlock)
		_, err := cache.Nonce(context.Background(), &addr)
		require.ErrorIs(t, err, boom)

		nonce, err := cache.Nonce(context.Background(), &addr)
		require.NoError(t, err)
		assert.Equal(t, felt.One, nonce)
	})
}

func TestCachePersistence(t *testing.T) {
	store, err := forking.NewMemStore()
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	addr := felt.FromUint64(0x10)
	key := felt.FromUint64(0x20)
	classHash := felt.FromUint64(0x30)
	sierra := testcontracts.Sierra(t, func(b *vm.Builder) {
		b.Function("get").Calldata(0).Return(1)
	})
	header := &starknet.BlockHeader{
		Hash:             felt.NewUnsafeFromString("0xb10c"),
		Number:           100,
		Timestamp:        1700000000,
		SequencerAddress: felt.NewUnsafeFromString("0x5e9"),
	}

	cold := newRemote(t)
	cold.EXPECT().StorageAt(gomock.Any(), forkBlock, &addr, &key).Return(felt.NewUnsafeFromString("0x99"), nil)
	cold.EXPECT().ClassHashAt(gomock.Any(), forkBlock, &addr).Return(&classHash, nil)
	cold.EXPECT().Class(gomock.Any(), forkBlock, &classHash).Return(&starknet.ClassDefinition{Sierra: sierra}, nil)
	cold.EXPECT().BlockHeader(gomock.Any(), forkBlock).Return(header, nil)

	read := func(cache *forking.Cache) (felt.Felt, felt.Felt, *core.CompiledClass, *starknet.BlockHeader) {
		ctx := context.Background()
		value, err := cache.StorageAt(ctx, &addr, &key)
		require.NoError(t, err)
		gotClassHash, err := cache.ClassHashAt(ctx, &addr)
		require.NoError(t, err)
		class, err := cache.Class(ctx, &gotClassHash)
		require.NoError(t, err)
		gotHeader, err := cache.BlockHeader(ctx)
		require.NoError(t, err)
		return value, gotClassHash, class, gotHeader
	}

	coldValue, coldClassHash, coldClass, coldHeader := read(forking.NewCache(cold, forkURL, forkBlock).WithStore(store))

	// no expectations: any remote call fails the test
	warm := newRemote(t)
	warmValue, warmClassHash, warmClass, warmHeader := read(forking.NewCache(warm, forkURL, forkBlock).WithStore(store))

	assert.Equal(t, coldValue, warmValue)
	assert.Equal(t, coldClassHash, warmClassHash)
	assert.Equal(t, coldClass.Hash(), warmClass.Hash())
	assert.Equal(t, coldHeader, warmHeader)
}

func TestCacheConcurrentReaders(t *testing.T) {
	remote := newRemote(t)
	addr := felt.FromUint64(0x77)

	remote.EXPECT().ClassHashAt(gomock.Any(), forkBlock, &addr).DoAndReturn(
		func(context.Context, starknet.BlockID, *felt.Felt) (*felt.Felt, error) {
			time.Sleep(20 * time.Millisecond)
			return felt.NewUnsafeFromString("0x1234"), nil
		}).Times(1)

	registry := forking.NewRegistry()
	p := pool.NewWithResults[felt.Felt]().WithErrors()
	for range 16 {
		p.Go(func() (felt.Felt, error) {
			// every simulated test asks the registry for its fork
			cache := registry.Cache(forkURL, forkBlock, remote)
			return forking.NewState(context.Background(), cache).ContractClassHash(&addr)
		})
	}
	results, err := p.Wait()
	require.NoError(t, err)
	require.Len(t, results, 16)
	for _, r := range results {
		assert.Equal(t, felt.FromUint64(0x1234), r)
	}
	assert.Equal(t, 1, registry.Len())
}

func TestRegistry(t *testing.T) {
	remote := newRemote(t)
	registry := forking.NewRegistry()

	a := registry.Cache(forkURL, forkBlock, remote)
	b := registry.Cache(forkURL+"/", forkBlock, remote)
	c := registry.Cache(forkURL, starknet.BlockNumber(101), remote)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, registry.Len())
}

func TestPrefetch(t *testing.T) {
	remote := newRemote(t)
	addrs := []felt.Felt{felt.FromUint64(1), felt.FromUint64(2)}
	classHash := felt.FromUint64(0xc)
	legacy := felt.FromUint64(0xd)

	remote.EXPECT().Nonce(gomock.Any(), forkBlock, gomock.Any()).Return(&felt.One, nil).Times(2)
	remote.EXPECT().ClassHashAt(gomock.Any(), forkBlock, &addrs[0]).Return(&classHash, nil)
	remote.EXPECT().ClassHashAt(gomock.Any(), forkBlock, &addrs[1]).Return(&legacy, nil)
	remote.EXPECT().Class(gomock.Any(), forkBlock, &classHash).Return(&starknet.ClassDefinition{
		Sierra: testcontracts.Sierra(t, func(b *vm.Builder) { b.Function("f").Return(0) }),
	}, nil)
	remote.EXPECT().Class(gomock.Any(), forkBlock, &legacy).Return(&starknet.ClassDefinition{
		DeprecatedCairo: &starknet.DeprecatedCairoClass{},
	}, nil)

	cache := forking.NewCache(remote, forkURL, forkBlock)
	require.NoError(t, cache.Prefetch(context.Background(), addrs, 4))

	// served from memory
	_, err := cache.Class(context.Background(), &classHash)
	require.NoError(t, err)
}

func TestResolveBlock(t *testing.T) {
	remote := newRemote(t)
	remote.EXPECT().BlockHeader(gomock.Any(), starknet.LatestBlock()).Return(&starknet.BlockHeader{Number: 812}, nil)

	block, err := forking.ResolveBlock(context.Background(), remote, starknet.LatestBlock())
	require.NoError(t, err)
	assert.Equal(t, starknet.BlockNumber(812), block)

	block, err = forking.ResolveBlock(context.Background(), remote, forkBlock)
	require.NoError(t, err)
	assert.Equal(t, forkBlock, block)
}
