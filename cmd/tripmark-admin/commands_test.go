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

	"tripmark/internal/place"
	"tripmark/internal/slot"
	"tripmark/internal/store"
)

func run(t *testing.T, s slot.Slot, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	open := func(context.Context) (slot.Slot, func() error, error) {
		return s, func() error { return nil }, nil
	}
	cmd := newRootCmd(open, &out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAddListRemove(t *testing.T) {
	mem := slot.NewMemory()
	_, err := run(t, mem, "add", "Terelj", "47.98", "107.45", "--comment", "ger camp")
	require.NoError(t, err)
	_, err = run(t, mem, "add", "Terelj", "47.98", "107.45")
	require.NoError(t, err)

	out, err := run(t, mem, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Terelj")
	assert.Contains(t, out, "ger camp")
	assert.Len(t, store.New(mem).Load(context.Background()), 1)

	_, err = run(t, mem, "remove", "Terelj", "47.98", "107.45")
	require.NoError(t, err)
	assert.Empty(t, store.New(mem).Load(context.Background()))
}

func TestAddRejectsBadArgs(t *testing.T) {
	mem := slot.NewMemory()
	_, err := run(t, mem, "add", "X", "north", "1")
	assert.Error(t, err)
	_, err = run(t, mem, "add", " ", "1", "1")
	assert.ErrorIs(t, err, place.ErrEmptyName)
	_, err = run(t, mem, "add", "X", "1")
	assert.Error(t, err)
}

func TestExportImport(t *testing.T) {
	src := slot.NewMemory()
	_, err := run(t, src, "add", "A", "1", "2")
	require.NoError(t, err)
	_, err = run(t, src, "add", "B", "3", "4")
	require.NoError(t, err)

	out, err := run(t, src, "export")
	require.NoError(t, err)
	var recs []place.Record
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 2)

	file := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(file, []byte(out), 0o644))

	dst := slot.NewMemory()
	_, err = run(t, dst, "add", "A", "1", "2")
	require.NoError(t, err)
	out, err = run(t, dst, "import", file)
	require.NoError(t, err)
	assert.Equal(t, "imported 1 of 2\n", out)
	assert.Len(t, store.New(dst).Load(context.Background()), 2)
}

func TestLang(t *testing.T) {
	mem := slot.NewMemory()
	out, err := run(t, mem, "lang")
	require.NoError(t, err)
	assert.Equal(t, "mn\n", out)

	out, err = run(t, mem, "lang", "ja")
	require.NoError(t, err)
	assert.Equal(t, "ja\n", out)

	_, err = run(t, mem, "lang", "xx")
	assert.Error(t, err)
}
