package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agri-smart/farm"
	"agri-smart/store"
)

func writeDump(t *testing.T, dump map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "localStorage.json")
	data, err := json.Marshal(dump)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestImportBrowserDump(t *testing.T) {
	db := filepath.Join(t.TempDir(), "agrismart.db")
	dump := writeDump(t, map[string]string{
		farm.KeyUsers:       `[{"id":1700000000000,"name":"Asha Devi","email":"asha@example.com","passwordHash":"c21","profile":{"farm":"","size":""}}]`,
		farm.KeyCurrentUser: "asha@example.com",
		farm.KeyBookings:    `[{"id":1700000000500,"item":"Rotavator","dates":"1-2 Apr","user":"asha@example.com","cost":1600}]`,
	})

	cmd := newCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--db", db, "--fresh", dump})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.Contains(t, out.String(), "Import complete! 3 keys")
	assert.Contains(t, out.String(), "Accounts                 1")
	assert.Contains(t, out.String(), "Equipment                0")

	kv, err := store.NewSQLite(db)
	require.NoError(t, err)
	defer kv.Close()
	_, ok, err := kv.Get(context.Background(), farm.KeyListings)
	require.NoError(t, err)
	assert.False(t, ok, "summary must not seed the catalog")
	mgr := farm.NewManager(kv, farm.Options{Hasher: farm.BcryptHasher{Cost: 4}})

	acct, err := mgr.Authenticate(context.Background(), farm.DefaultSession, "asha@example.com", "ab")
	require.NoError(t, err)
	assert.Equal(t, "Asha Devi", acct.Name)

	mine, err := mgr.BookingsFor(context.Background(), "asha@example.com")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, 1600.0, mine[0].Cost)
}

func TestImportCountsStoredEquipment(t *testing.T) {
	db := filepath.Join(t.TempDir(), "agrismart.db")
	dump := writeDump(t, map[string]string{
		farm.KeyListings: `[{"id":1,"name":"Rotavator","price":800,"location":"Haryana","status":"booked"}]`,
	})

	cmd := newCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--db", db, dump})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "Equipment                1")
}

func TestImportRejectsBadDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`["not","an","object"]`), 0o600))

	cmd := newCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--db", filepath.Join(t.TempDir(), "x.db"), path})
	assert.Error(t, cmd.ExecuteContext(context.Background()))
}
