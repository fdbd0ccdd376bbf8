package quota

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/notionrag/internal/config"
)

var day1 = time.Date(2026, 3, 14, 23, 59, 0, 0, time.Local)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func stores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	sqlStore, err := NewSQLStore(ctx, "sqlite3", filepath.Join(t.TempDir(), "usage.db"))
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	redisStore := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	all := map[string]Store{
		"json":   NewJSONStore(filepath.Join(t.TempDir(), "prompt_usage.json"), nil),
		"sqlite": sqlStore,
		"redis":  redisStore,
	}
	t.Cleanup(func() {
		for _, s := range all {
			_ = s.Close()
		}
	})
	return all
}

func TestLimiter_dailyLimit(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clk := &clock{t: day1}
			lim := NewLimiter(store, 3, WithClock(clk.now))

			u, err := lim.Usage(ctx, "ana@example.com")
			require.NoError(t, err)
			assert.Equal(t, 0, u.Used)
			assert.True(t, u.Allowed)

			for i := 0; i < 3; i++ {
				ok, err := lim.CheckAndRecord(ctx, "ana@example.com")
				require.NoError(t, err)
				assert.True(t, ok, "prompt %d should be allowed", i+1)
			}
			ok, err := lim.CheckAndRecord(ctx, "ana@example.com")
			require.NoError(t, err)
			assert.False(t, ok)

			u, err = lim.Usage(ctx, "ANA@example.com ")
			require.NoError(t, err)
			assert.Equal(t, 3, u.Used)
			assert.Equal(t, 0, u.Remaining)
			assert.False(t, u.Allowed)

			other, err := lim.Usage(ctx, "ben@example.com")
			require.NoError(t, err)
			assert.Equal(t, 0, other.Used)

			clk.t = day1.Add(2 * time.Minute)
			u, err = lim.Usage(ctx, "ana@example.com")
			require.NoError(t, err)
			assert.Equal(t, 0, u.Used, "counter resets on a new day")
			assert.True(t, u.Allowed)
		})
	}
}

func TestLimiter_incrementIgnoresLimit(t *testing.T) {
	ctx := context.Background()
	lim := NewLimiter(NewJSONStore(filepath.Join(t.TempDir(), "u.json"), nil), 1)
	_, err := lim.Increment(ctx, "ana")
	require.NoError(t, err)
	u, err := lim.Increment(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, 2, u.Used)
	assert.Equal(t, 0, u.Remaining)

	_, err = lim.Record(ctx, "ana")
	assert.ErrorIs(t, err, ErrLimitReached)
}

func TestLimiter_blankUser(t *testing.T) {
	lim := NewLimiter(NewJSONStore(filepath.Join(t.TempDir(), "u.json"), nil), 10)
	_, err := lim.Usage(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrNoUser)
	_, err = lim.CheckAndRecord(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoUser)
}

func TestLimiter_concurrentRecord(t *testing.T) {
	lim := NewLimiter(NewJSONStore(filepath.Join(t.TempDir(), "u.json"), nil), 5)
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := lim.CheckAndRecord(context.Background(), "ana")
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, allowed)
}

func TestJSONStore_legacyMigration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt_usage.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ana@example.com": {"prompts_used": 4}}`), 0644))

	store := NewJSONStore(path, nil)
	n, err := store.Count(context.Background(), "ana@example.com", "2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "prompts_used")
	assert.Contains(t, string(raw), `"2026-03-14": 4`)

	n, err = store.Increment(context.Background(), "ana@example.com", "2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestJSONStore_corruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt_usage.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	store := NewJSONStore(path, nil)

	n, err := store.Count(context.Background(), "ana", "2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = store.Increment(context.Background(), "ana", "2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRedisStore_expiry(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer store.Close()

	_, err := store.Increment(context.Background(), "ana", "2026-03-14")
	require.NoError(t, err)
	key := redisKey("ana", "2026-03-14")
	assert.Equal(t, redisTTL, mr.TTL(key))

	mr.FastForward(redisTTL + time.Second)
	n, err := store.Count(context.Background(), "ana", "2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewStore(ctx, config.QuotaConfig{Path: filepath.Join(dir, "u.json")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &JSONStore{}, s)

	s, err = NewStore(ctx, config.QuotaConfig{Backend: "sqlite", Path: filepath.Join(dir, "u.db")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, s)
	require.NoError(t, s.Close())

	mr := miniredis.RunT(t)
	s, err = NewStore(ctx, config.QuotaConfig{Backend: "redis", RedisAddr: mr.Addr()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)
	require.NoError(t, s.Close())

	_, err = NewStore(ctx, config.QuotaConfig{Backend: "postgres"}, nil)
	var missing *config.MissingSettingError
	assert.ErrorAs(t, err, &missing)

	_, err = NewStore(ctx, config.QuotaConfig{Backend: "etcd"}, nil)
	assert.Error(t, err)
}

func TestLimitMessage(t *testing.T) {
	assert.Equal(t,
		"You've used your 10 prompts for today.\n\nCome back tomorrow for more, your daily limit resets at midnight.",
		LimitMessage(10))
}

func TestLimiter_release(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			lim := NewLimiter(store, 2, WithClock((&clock{t: day1}).now))

			u, err := lim.Release(ctx, "ana")
			require.NoError(t, err)
			assert.Equal(t, 0, u.Used, "release never goes below zero")

			_, err = lim.Record(ctx, "ana")
			require.NoError(t, err)
			_, err = lim.Record(ctx, "ana")
			require.NoError(t, err)
			_, err = lim.Record(ctx, "ana")
			require.ErrorIs(t, err, ErrLimitReached)

			u, err = lim.Release(ctx, "Ana")
			require.NoError(t, err)
			assert.Equal(t, 1, u.Used)
			assert.True(t, u.Allowed)

			u, err = lim.Record(ctx, "ana")
			require.NoError(t, err)
			assert.Equal(t, 2, u.Used)
		})
	}
}
