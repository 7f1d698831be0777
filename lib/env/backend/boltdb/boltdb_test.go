package boltdb

import (
	"github.com/ValentinKolb/envstore/lib/common"
	"github.com/ValentinKolb/envstore/lib/env/backend"
	drivertesting "github.com/ValentinKolb/envstore/lib/env/backend/testing"
	"github.com/stretchr/testify/require"
	"path/filepath"
	"testing"
)

func Test(t *testing.T) {
	drivertesting.RunDriverTests(t, "Bolt", func(t *testing.T, size int, redundant bool) backend.IDriver {
		return NewDriver(Options{
			Path:      filepath.Join(t.TempDir(), "env.db"),
			Size:      size,
			Redundant: redundant,
		})
	})
}

func TestEmptySlot(t *testing.T) {
	d := NewDriver(Options{Path: filepath.Join(t.TempDir(), "env.db"), Size: 32, Redundant: true})
	require.NoError(t, d.Init())
	defer d.Close()

	err := d.Load(backend.SlotB, make([]byte, 32))
	require.True(t, common.IsCode(err, common.RetCBackendIoFailure))

	err = d.Patch(backend.SlotB, 4, []byte{0})
	require.True(t, common.IsCode(err, common.RetCBackendIoFailure))
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "env.db")
	buf := make([]byte, 32)
	buf[10] = 42

	d := NewDriver(Options{Path: path, Bucket: "firmware", Size: 32})
	require.NoError(t, d.Init())
	require.NoError(t, d.Save(backend.SlotA, buf))
	require.NoError(t, d.Close())

	d = NewDriver(Options{Path: path, Bucket: "firmware", Size: 32})
	require.NoError(t, d.Init())
	defer d.Close()

	got := make([]byte, 32)
	require.NoError(t, d.Load(backend.SlotA, got))
	require.Equal(t, buf, got)
}
