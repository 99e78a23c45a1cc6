package store

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := tempDB(t)
	require.NoError(t, src.Set(ctx, "users", `[{"email":"a@b.c"}]`))
	require.NoError(t, src.Set(ctx, "currentUser", "a@b.c"))

	var buf bytes.Buffer
	n, err := Export(ctx, src, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var dump map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &dump))
	assert.Equal(t, "a@b.c", dump["currentUser"])

	dst := NewMemory()
	keys, err := Import(ctx, dst, &buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"currentUser", "users"}, keys)

	v, ok, _ := dst.Get(ctx, "users")
	assert.True(t, ok)
	assert.Equal(t, `[{"email":"a@b.c"}]`, v)
}

func TestImportRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	dst := NewMemory()

	_, err := Import(ctx, dst, strings.NewReader(`["not","an","object"]`))
	assert.ErrorContains(t, err, "decode snapshot")

	_, err = Import(ctx, dst, strings.NewReader(`{"": "x"}`))
	assert.ErrorContains(t, err, "empty key")

	keys, _ := dst.Keys(ctx)
	assert.Empty(t, keys)
}
