package session

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(userID uuid.UUID, game string) *Session {
	return &Session{
		ID:         uuid.New(),
		UserID:     userID,
		Game:       game,
		Currency:   "USDT",
		Stake:      decimal.NewFromInt(10),
		State:      StateActive,
		Multiplier: decimal.NewFromInt(1),
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	userID := uuid.New()
	s := newSession(userID, "mines")

	require.NoError(t, store.Save(ctx, s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, StateActive, got.State)

	id, active, err := store.ActiveID(ctx, userID, "mines")
	require.NoError(t, err)
	assert.True(t, active)
	assert.Equal(t, s.ID, id)

	_, active, err = store.ActiveID(ctx, userID, "penalty")
	require.NoError(t, err)
	assert.False(t, active, "the active index is scoped per game")

	require.NoError(t, store.Delete(ctx, s))

	_, err = store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, active, err = store.ActiveID(ctx, userID, "mines")
	require.NoError(t, err)
	assert.False(t, active)
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	s := newSession(uuid.New(), "mines")
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	got.Round = 99

	again, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Round, "mutating a loaded session must not leak into the store")
}

func TestMemoryStoreSaveResolvedClearsActiveIndex(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	userID := uuid.New()
	s := newSession(userID, "mines")
	require.NoError(t, store.Save(ctx, s))

	s.State = StateResolvedWin
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, StateResolvedWin, got.State)

	_, active, err := store.ActiveID(ctx, userID, "mines")
	require.NoError(t, err)
	assert.False(t, active, "a resolved session must not occupy the active slot")
}

func TestMemoryStoreMissing(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistrySerializesPerKey(t *testing.T) {
	reg := NewRegistry(NewMemoryStore())
	userID := uuid.New()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = reg.WithLock(userID, "mines", func() error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter, "all increments must run under the key lock")
}

func TestRegistryKeysAreIndependent(t *testing.T) {
	reg := NewRegistry(NewMemoryStore())
	userID := uuid.New()

	release := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = reg.WithLock(userID, "mines", func() error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	// A different game key must not block behind the held lock.
	done := make(chan struct{})
	go func() {
		_ = reg.WithLock(userID, "penalty", func() error { return nil })
		close(done)
	}()
	<-done
	close(release)
}

func TestSessionRevealed(t *testing.T) {
	s := newSession(uuid.New(), "mines")
	s.RevealedTiles = []int{3, 7}

	assert.True(t, s.Revealed(3))
	assert.True(t, s.Revealed(7))
	assert.False(t, s.Revealed(4))
}
