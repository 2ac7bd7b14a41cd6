package resettoken

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestStore() (*MemoryStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := NewMemoryStore()
	s.now = clock.Now
	return s, clock
}

func TestMemoryStore_ValidAfterSave(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore()

	require.NoError(t, s.Save(ctx, "ada@example.com", "tok-1", clock.t.Add(time.Hour)))

	valid, err := s.IsValid(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, valid)

	entry, err := s.Get(ctx, "tok-1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "ada@example.com", entry.Email)
	assert.False(t, entry.Used)
}

func TestMemoryStore_InvalidAfterMarkAsUsed(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore()
	require.NoError(t, s.Save(ctx, "ada@example.com", "tok-1", clock.t.Add(time.Hour)))

	ok, err := s.MarkAsUsed(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, ok)

	valid, _ := s.IsValid(ctx, "tok-1")
	assert.False(t, valid)
}

func TestMemoryStore_ExpiryBoundary(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore()
	expires := clock.t.Add(time.Minute)
	require.NoError(t, s.Save(ctx, "ada@example.com", "tok-1", expires))

	clock.t = expires
	valid, _ := s.IsValid(ctx, "tok-1")
	assert.True(t, valid, "token is still valid at the exact expiry instant")

	clock.t = expires.Add(time.Nanosecond)
	valid, _ = s.IsValid(ctx, "tok-1")
	assert.False(t, valid)
}

func TestMemoryStore_MissingToken(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	entry, err := s.Get(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, entry)

	valid, _ := s.IsValid(ctx, "nope")
	assert.False(t, valid)

	ok, _ := s.MarkAsUsed(ctx, "nope")
	assert.False(t, ok)
}

func TestMemoryStore_MarkAsUsedIgnoresExpiry(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore()
	require.NoError(t, s.Save(ctx, "ada@example.com", "tok-1", clock.t.Add(-time.Minute)))

	ok, _ := s.MarkAsUsed(ctx, "tok-1")
	assert.True(t, ok)
}

func TestMemoryStore_SaveOverwritesAndResetsUsed(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore()
	require.NoError(t, s.Save(ctx, "ada@example.com", "tok-1", clock.t.Add(time.Hour)))
	_, _ = s.MarkAsUsed(ctx, "tok-1")

	require.NoError(t, s.Save(ctx, "bob@example.com", "tok-1", clock.t.Add(time.Hour)))
	entry, _ := s.Get(ctx, "tok-1")
	assert.Equal(t, "bob@example.com", entry.Email)
	assert.False(t, entry.Used)
}

func TestMemoryStore_MultipleTokensPerEmailStayValid(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore()
	require.NoError(t, s.Save(ctx, "ada@example.com", "tok-1", clock.t.Add(time.Hour)))
	require.NoError(t, s.Save(ctx, "ada@example.com", "tok-2", clock.t.Add(time.Hour)))

	v1, _ := s.IsValid(ctx, "tok-1")
	v2, _ := s.IsValid(ctx, "tok-2")
	assert.True(t, v1)
	assert.True(t, v2)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore()
	require.NoError(t, s.Save(ctx, "ada@example.com", "tok-1", clock.t.Add(time.Hour)))

	entry, _ := s.Get(ctx, "tok-1")
	entry.Used = true

	valid, _ := s.IsValid(ctx, "tok-1")
	assert.True(t, valid)
}

func TestMemoryStore_Cleanup(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore()
	require.NoError(t, s.Save(ctx, "a@example.com", "live", clock.t.Add(time.Hour)))
	require.NoError(t, s.Save(ctx, "b@example.com", "expired", clock.t.Add(-time.Second)))
	require.NoError(t, s.Save(ctx, "c@example.com", "used", clock.t.Add(time.Hour)))
	_, _ = s.MarkAsUsed(ctx, "used")

	removed, err := s.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	all, _ := s.GetAll(ctx)
	require.Len(t, all, 1)
	assert.Equal(t, "live", all[0].Token)
}

func TestStartSweeper(t *testing.T) {
	s, clock := newTestStore()
	require.NoError(t, s.Save(context.Background(), "a@example.com", "expired", clock.t.Add(-time.Second)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartSweeper(ctx, s, 5*time.Millisecond, zap.NewNop())

	assert.Eventually(t, func() bool {
		all, _ := s.GetAll(context.Background())
		return len(all) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestRedisStore_UnreachableReturnsError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	s := NewRedisStore(client)

	valid, err := s.IsValid(context.Background(), "tok")
	assert.Error(t, err)
	assert.False(t, valid)
}

func TestDecodeToken(t *testing.T) {
	expires := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
	entry, err := decodeToken("tok", map[string]string{
		"email":   "ada@example.com",
		"expires": "1748782800000000000",
		"used":    "1",
	})
	require.NoError(t, err)
	assert.True(t, entry.Expires.Equal(expires))
	assert.True(t, entry.Used)

	_, err = decodeToken("tok", map[string]string{"expires": "soon"})
	assert.Error(t, err)
}
