package block

import (
	"github.com/ValentinKolb/envstore/lib/common"
	"github.com/ValentinKolb/envstore/lib/env/backend"
	drivertesting "github.com/ValentinKolb/envstore/lib/env/backend/testing"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"os"
	"testing"
)

func Test(t *testing.T) {
	drivertesting.RunDriverTests(t, "Block", func(t *testing.T, size int, redundant bool) backend.IDriver {
		return NewDriver(Options{
			Fs:           afero.NewMemMapFs(),
			Path:         "/disk.img",
			BlockSize:    512,
			Size:         size,
			Offset:       512,
			OffsetRedund: 2048,
			Redundant:    redundant,
		})
	})
}

func TestTailOfLastBlockIsPreserved(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/disk.img", make([]byte, 1024), 0644))

	d := NewDriver(Options{Fs: fs, Path: "/disk.img", BlockSize: 512, Size: 100})
	require.NoError(t, d.Init())

	// something else lives behind the environment in the same block
	f, err := fs.OpenFile("/disk.img", os.O_RDWR, 0644)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte("partition table"), 200)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	buf := make([]byte, 100)
	for i := range buf {
		buf[i] = 0xAB
	}
	require.NoError(t, d.Save(backend.SlotA, buf))
	require.NoError(t, d.Patch(backend.SlotA, 4, []byte{0x00}))
	require.NoError(t, d.Close())

	data, err := afero.ReadFile(fs, "/disk.img")
	require.NoError(t, err)
	require.Equal(t, "partition table", string(data[200:215]))
	require.Equal(t, byte(0x00), data[4])
	require.Equal(t, byte(0xAB), data[99])
}

func TestOverwriteInPlace(t *testing.T) {
	d := NewDriver(Options{Fs: afero.NewMemMapFs(), Path: "/disk.img", BlockSize: 512, Size: 64})
	require.NoError(t, d.Init())
	defer d.Close()

	require.False(t, d.SupportsFeature(backend.FeatureNeedsErase))
	require.NoError(t, d.Save(backend.SlotA, make([]byte, 64)))
	buf := make([]byte, 64)
	buf[0] = 0xFF
	require.NoError(t, d.Save(backend.SlotA, buf))
}

func TestGeometryChecks(t *testing.T) {
	err := NewDriver(Options{Fs: afero.NewMemMapFs(), Path: "/d", BlockSize: 512, Size: 64, Offset: 100}).Init()
	require.True(t, common.IsCode(err, common.RetCBackendIoFailure))

	err = NewDriver(Options{Fs: afero.NewMemMapFs(), Path: "/d", BlockSize: 512, Size: 600, OffsetRedund: 512, Redundant: true}).Init()
	require.True(t, common.IsCode(err, common.RetCBackendIoFailure))
}
