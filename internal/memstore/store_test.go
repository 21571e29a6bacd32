package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/loomgo/internal/callid"
	"github.com/vk/loomgo/internal/store"
)

func testKey(digest string) callid.Key {
	return callid.Key{Function: "f", FunctionHash: "h", Digest: digest}
}

func TestStore_SetGet(t *testing.T) {
	ctx := context.Background()
	s := New()
	key := testKey("01")

	require.NoError(t, s.Set(ctx, key, cty.NumberIntVal(42)))

	ok, err := s.Contains(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, cty.NumberIntVal(42), got)
}

func TestStore_GetMissing(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Get(ctx, testKey("01"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	var storeErr *store.Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "get", storeErr.Op)
}

func TestStore_ChannelKeysAreDistinct(t *testing.T) {
	ctx := context.Background()
	s := New()
	key := testKey("01")

	require.NoError(t, s.Set(ctx, key, cty.StringVal("primary")))
	require.NoError(t, s.Set(ctx, key.WithChannel("out"), cty.StringVal("channel")))

	primary, err := s.Get(ctx, key)
	require.NoError(t, err)
	channel, err := s.Get(ctx, key.WithChannel("out"))
	require.NoError(t, err)
	assert.NotEqual(t, primary, channel)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := New()
	key := testKey("01")

	require.NoError(t, s.Set(ctx, key, cty.True))
	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key), "deleting an absent key is not an error")

	ok, err := s.Contains(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Keys(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Set(ctx, testKey("01"), cty.True))
	require.NoError(t, s.Set(ctx, testKey("02"), cty.False))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []callid.Key{testKey("01"), testKey("02")}, keys)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := New()
	key := testKey("01")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Racing writers of the same key write the same value.
			require.NoError(t, s.Set(ctx, key, cty.NumberIntVal(7)))
			_, err := s.Contains(ctx, key)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, cty.NumberIntVal(7), got)
}
