package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempDB(t *testing.T) *SQLite {
	t.Helper()
	dir := t.TempDir()
	db, err := NewSQLite(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func tempRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	r, err := NewRedis(context.Background(), RedisOptions{Addr: mr.Addr(), Namespace: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r, mr
}

// backends runs fn once per backend so every behaviour is checked on all three.
func backends(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, tempDB(t)) })
	t.Run("redis", func(t *testing.T) {
		r, _ := tempRedis(t)
		fn(t, r)
	})
	t.Run("memory", func(t *testing.T) { fn(t, NewMemory()) })
}

func TestGetSetDelete(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, ok, err := s.Get(ctx, "users")
		require.NoError(t, err)
		assert.False(t, ok, "absent key must read as empty, not error")

		require.NoError(t, s.Set(ctx, "users", `[]`))
		v, ok, err := s.Get(ctx, "users")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `[]`, v)

		require.NoError(t, s.Set(ctx, "users", `[{"email":"a@b.c"}]`))
		v, _, _ = s.Get(ctx, "users")
		assert.Equal(t, `[{"email":"a@b.c"}]`, v)

		require.NoError(t, s.Delete(ctx, "users"))
		_, ok, err = s.Get(ctx, "users")
		require.NoError(t, err)
		assert.False(t, ok)

		// Deleting an absent key is not an error.
		assert.NoError(t, s.Delete(ctx, "users"))
	})
}

func TestKeysSorted(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for _, k := range []string{"users", "bookings", "currentUser", "equipment"} {
			require.NoError(t, s.Set(ctx, k, "x"))
		}
		keys, err := s.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"bookings", "currentUser", "equipment", "users"}, keys)
	})
}

func TestUpdateCommitsAllWrites(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "stale", "1"))

		err := s.Update(ctx, func(tx Tx) error {
			if err := tx.Set(ctx, "bookings", `[1]`); err != nil {
				return err
			}
			if err := tx.Set(ctx, "equipment", `[2]`); err != nil {
				return err
			}
			// Reads inside the transaction see its own writes.
			v, ok, err := tx.Get(ctx, "bookings")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `[1]`, v)
			return tx.Delete(ctx, "stale")
		})
		require.NoError(t, err)

		v, _, _ := s.Get(ctx, "bookings")
		assert.Equal(t, `[1]`, v)
		v, _, _ = s.Get(ctx, "equipment")
		assert.Equal(t, `[2]`, v)
		_, ok, _ := s.Get(ctx, "stale")
		assert.False(t, ok)
	})
}

func TestUpdateRollsBackOnError(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "equipment", "before"))

		boom := errors.New("boom")
		err := s.Update(ctx, func(tx Tx) error {
			if err := tx.Set(ctx, "bookings", "half"); err != nil {
				return err
			}
			if err := tx.Set(ctx, "equipment", "after"); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, ok, _ := s.Get(ctx, "bookings")
		assert.False(t, ok, "no write may survive a failed transaction")
		v, _, _ := s.Get(ctx, "equipment")
		assert.Equal(t, "before", v)
	})
}

// TestConcurrentIncrements checks that read-modify-write cycles in Update do
// not lose updates when several writers race.
func TestConcurrentIncrements(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		const writers = 4
		const perWriter = 5

		var wg sync.WaitGroup
		errs := make(chan error, writers*perWriter)
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < perWriter; i++ {
					errs <- incr(ctx, s)
				}
			}()
		}
		wg.Wait()
		close(errs)

		ok := 0
		for err := range errs {
			if err == nil {
				ok++
			} else {
				// Redis may give up after repeated conflicts; that is reported,
				// never silently lost.
				assert.ErrorIs(t, err, ErrConflict)
			}
		}

		v, _, err := s.Get(ctx, "counter")
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprint(ok), v)
	})
}

func incr(ctx context.Context, s Store) error {
	return s.Update(ctx, func(tx Tx) error {
		v, _, err := tx.Get(ctx, "counter")
		if err != nil {
			return err
		}
		n := 0
		if v != "" {
			fmt.Sscan(v, &n)
		}
		return tx.Set(ctx, "counter", fmt.Sprint(n+1))
	})
}

func TestRedisRereadKeepsWatch(t *testing.T) {
	r, _ := tempRedis(t)
	ctx := context.Background()
	require.NoError(t, r.Set(ctx, "equipment", "v1"))

	attempts := 0
	err := r.Update(ctx, func(tx Tx) error {
		attempts++
		first, _, err := tx.Get(ctx, "equipment")
		if err != nil {
			return err
		}
		if attempts == 1 {
			// Another writer commits between the two reads.
			require.NoError(t, r.Set(ctx, "equipment", "v2"))
		}
		if _, _, err := tx.Get(ctx, "equipment"); err != nil {
			return err
		}
		return tx.Set(ctx, "equipment", first+"+mine")
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	v, _, err := r.Get(ctx, "equipment")
	require.NoError(t, err)
	assert.Equal(t, "v2+mine", v)
}

func TestRedisNamespacing(t *testing.T) {
	r, mr := tempRedis(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "currentUser", "user@example.com"))
	got, err := mr.Get("test:kv:currentUser")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", got)

	// Keys outside the namespace are invisible.
	require.NoError(t, mr.Set("other:kv:users", "[]"))
	keys, err := r.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"currentUser"}, keys)
}

func TestNewRedisRejectsEmptyNamespace(t *testing.T) {
	_, err := NewRedis(context.Background(), RedisOptions{Addr: "localhost:6379"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "namespace cannot be empty")
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "agri.db")
	db, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Set(context.Background(), "users", `[{"email":"x@y.z"}]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	db.Close()

	db, err = NewSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	v, ok, err := db.Get(context.Background(), "users")
	if err != nil || !ok {
		t.Fatalf("get after reopen: ok=%v err=%v", ok, err)
	}
	if v != `[{"email":"x@y.z"}]` {
		t.Fatalf("unexpected value %q", v)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(ctx, Options{Backend: "SQLite", Path: filepath.Join(t.TempDir(), "a.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	s.Close()

	_, err = Open(ctx, Options{Backend: "etcd"})
	assert.ErrorContains(t, err, "unknown backend")
}
