package farm

import (
	"context"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"golang.org/x/crypto/bcrypt"

	"agri-smart/store"
)

func tempStore(t *testing.T) store.Store {
	t.Helper()
	kv, err := store.NewSQLite(filepath.Join(t.TempDir(), "farm.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { kv.Close() })
	return kv
}

func tempRedisStore(t *testing.T) store.Store {
	t.Helper()
	mr := miniredis.NewMiniRedis()
	if err := mr.Start(); err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	kv, err := store.NewRedis(context.Background(), store.RedisOptions{Addr: mr.Addr(), Namespace: "farm"})
	if err != nil {
		t.Fatalf("open redis store: %v", err)
	}
	t.Cleanup(func() { kv.Close() })
	return kv
}

// eachStore runs fn against a fresh manager on every backend.
func eachStore(t *testing.T, fn func(t *testing.T, m *Manager)) {
	for name, open := range map[string]func(*testing.T) store.Store{
		"sqlite": tempStore,
		"redis":  tempRedisStore,
		"memory": func(*testing.T) store.Store { return store.NewMemory() },
	} {
		t.Run(name, func(t *testing.T) { fn(t, managerOver(open(t))) })
	}
}

func newManager(t *testing.T) *Manager {
	t.Helper()
	return managerOver(tempStore(t))
}

func managerOver(kv store.Store) *Manager {
	return NewManager(kv, Options{
		Hasher:   BcryptHasher{Cost: bcrypt.MinCost},
		CostDays: 2,
		Rand:     rand.New(rand.NewPCG(1, 2)),
	})
}

// signedIn registers an account under sess, which signs it in.
func signedIn(t *testing.T, m *Manager, sess Session, email string) *Account {
	t.Helper()
	acct, err := m.Register(context.Background(), sess, "Test Farmer", email, "secret")
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return acct
}
