package flash

import (
	"bytes"
	"github.com/ValentinKolb/envstore/lib/common"
	"github.com/ValentinKolb/envstore/lib/env/backend"
	drivertesting "github.com/ValentinKolb/envstore/lib/env/backend/testing"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"testing"
)

func Test(t *testing.T) {
	drivertesting.RunDriverTests(t, "Flash", func(t *testing.T, size int, redundant bool) backend.IDriver {
		return NewDriver(Options{
			Fs:           afero.NewMemMapFs(),
			Path:         "/flash.img",
			SectorSize:   256,
			Size:         size,
			Offset:       0,
			OffsetRedund: 1024,
			Redundant:    redundant,
		})
	})
}

func TestFreshImageIsErased(t *testing.T) {
	fs := afero.NewMemMapFs()
	d := NewDriver(Options{Fs: fs, Path: "/f.img", SectorSize: 128, Size: 100, Offset: 128, OffsetRedund: 256, Redundant: true})
	require.NoError(t, d.Init())
	defer d.Close()

	buf := make([]byte, 100)
	require.NoError(t, d.Load(backend.SlotB, buf))
	require.Equal(t, bytes.Repeat([]byte{0xFF}, 100), buf)

	stat, err := fs.Stat("/f.img")
	require.NoError(t, err)
	require.Equal(t, int64(384), stat.Size())
}

func TestGeometryChecks(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{name: "unaligned offset", opts: Options{SectorSize: 128, Size: 100, Offset: 10}},
		{name: "unaligned redundant offset", opts: Options{SectorSize: 128, Size: 100, OffsetRedund: 130, Redundant: true}},
		{name: "shared sector", opts: Options{SectorSize: 128, Size: 200, OffsetRedund: 128, Redundant: true}},
		{name: "zero sector size", opts: Options{Size: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Fs = afero.NewMemMapFs()
			tt.opts.Path = "/f.img"
			err := NewDriver(tt.opts).Init()
			require.True(t, common.IsCode(err, common.RetCBackendIoFailure), "unexpected error %v", err)
		})
	}
}

func TestFlagFlipWithoutErase(t *testing.T) {
	d := NewDriver(Options{Fs: afero.NewMemMapFs(), Path: "/f.img", SectorSize: 64, Size: 64})
	require.NoError(t, d.Init())

	buf := make([]byte, 64)
	buf[4] = 0x01
	require.NoError(t, d.Save(backend.SlotA, buf))

	// active -> obsolete clears a bit
	require.NoError(t, d.Patch(backend.SlotA, 4, []byte{0x00}))
	// obsolete -> active would need an erase
	err := d.Patch(backend.SlotA, 4, []byte{0x01})
	require.True(t, common.IsCode(err, common.RetCBackendIoFailure))
}

func TestUninitialized(t *testing.T) {
	d := NewDriver(Options{Fs: afero.NewMemMapFs(), Path: "/f.img", SectorSize: 64, Size: 64})
	err := d.Load(backend.SlotA, make([]byte, 64))
	require.True(t, common.IsCode(err, common.RetCBackendIoFailure))
	require.NoError(t, d.Close())
}
