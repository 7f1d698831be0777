package testing

import (
	"bytes"
	"testing"

	"github.com/ValentinKolb/envstore/lib/common"
	"github.com/ValentinKolb/envstore/lib/env/backend"
	"github.com/stretchr/testify/require"
)

// DriverFactory creates a fresh, not yet initialized driver for copies of size
// bytes. Drivers created with redundant=false only have slot A.
type DriverFactory func(t *testing.T, size int, redundant bool) backend.IDriver

// testSize is the copy size used by the suite. It is deliberately not a
// multiple of common sector sizes.
const testSize = 300

// RunDriverTests runs the conformance suite for an IDriver implementation.
func RunDriverTests(t *testing.T, name string, factory DriverFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, open(t, factory, true))
		})

		t.Run("SlotsAreIndependent", func(t *testing.T) {
			testSlotsAreIndependent(t, open(t, factory, true))
		})

		t.Run("NonRedundantHasNoSlotB", func(t *testing.T) {
			testNonRedundant(t, open(t, factory, false))
		})

		t.Run("BufferSize", func(t *testing.T) {
			testBufferSize(t, open(t, factory, true))
		})

		t.Run("Erase", func(t *testing.T) {
			testErase(t, open(t, factory, true))
		})

		t.Run("NeedsErase", func(t *testing.T) {
			testNeedsErase(t, open(t, factory, true))
		})

		t.Run("Patch", func(t *testing.T) {
			testPatch(t, open(t, factory, true))
		})

		t.Run("Info", func(t *testing.T) {
			testInfo(t, open(t, factory, true))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// open creates and initializes a driver that is closed when the test ends
func open(t *testing.T, factory DriverFactory, redundant bool) backend.IDriver {
	d := factory(t, testSize, redundant)
	require.NoError(t, d.Init())
	t.Cleanup(func() {
		_ = d.Close()
	})
	return d
}

// Checks if the driver supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, d backend.IDriver, feature backend.Feature) {
	if !d.SupportsFeature(feature) {
		t.Skipf("driver does not support %s", feature)
	}
}

// pattern returns a deterministic copy whose byte 4 is 0x01, like an active flag
func pattern(seed byte) []byte {
	buf := make([]byte, testSize)
	for i := range buf {
		buf[i] = seed + byte(i*7)
	}
	buf[4] = 0x01
	return buf
}

// prepare erases slot if the medium needs it
func prepare(t *testing.T, d backend.IDriver, slot backend.Slot) {
	if d.SupportsFeature(backend.FeatureNeedsErase) {
		require.NoError(t, d.Erase(slot))
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSaveLoad(t *testing.T, d backend.IDriver) {
	want := pattern(1)
	prepare(t, d, backend.SlotA)
	require.NoError(t, d.Save(backend.SlotA, want))

	got := make([]byte, testSize)
	require.NoError(t, d.Load(backend.SlotA, got))
	require.Equal(t, want, got)

	// Load must not alias the medium
	got[0] ^= 0xFF
	again := make([]byte, testSize)
	require.NoError(t, d.Load(backend.SlotA, again))
	require.Equal(t, want, again)
}

func testSlotsAreIndependent(t *testing.T, d backend.IDriver) {
	a, b := pattern(1), pattern(99)
	prepare(t, d, backend.SlotA)
	prepare(t, d, backend.SlotB)
	require.NoError(t, d.Save(backend.SlotA, a))
	require.NoError(t, d.Save(backend.SlotB, b))

	got := make([]byte, testSize)
	require.NoError(t, d.Load(backend.SlotA, got))
	require.Equal(t, a, got)
	require.NoError(t, d.Load(backend.SlotB, got))
	require.Equal(t, b, got)
}

func testNonRedundant(t *testing.T, d backend.IDriver) {
	require.False(t, d.SupportsFeature(backend.FeatureRedundant))

	err := d.Save(backend.SlotB, pattern(1))
	require.True(t, common.IsCode(err, common.RetCBackendIoFailure), "unexpected error %v", err)
	err = d.Load(backend.SlotB, make([]byte, testSize))
	require.True(t, common.IsCode(err, common.RetCBackendIoFailure), "unexpected error %v", err)
}

func testBufferSize(t *testing.T, d backend.IDriver) {
	err := d.Save(backend.SlotA, make([]byte, testSize-1))
	require.True(t, common.IsCode(err, common.RetCBackendIoFailure), "unexpected error %v", err)
	err = d.Load(backend.SlotA, make([]byte, testSize+1))
	require.True(t, common.IsCode(err, common.RetCBackendIoFailure), "unexpected error %v", err)
}

func testErase(t *testing.T, d backend.IDriver) {
	requireFeature(t, d, backend.FeatureErase)

	want := pattern(5)
	prepare(t, d, backend.SlotA)
	prepare(t, d, backend.SlotB)
	require.NoError(t, d.Save(backend.SlotA, want))
	require.NoError(t, d.Save(backend.SlotB, want))
	require.NoError(t, d.Erase(backend.SlotA))

	got := make([]byte, testSize)
	if err := d.Load(backend.SlotA, got); err == nil {
		require.NotEqual(t, want, got, "erased slot still holds the old copy")
	}

	// erasing A must not touch B
	require.NoError(t, d.Load(backend.SlotB, got))
	require.Equal(t, want, got)
}

func testNeedsErase(t *testing.T, d backend.IDriver) {
	requireFeature(t, d, backend.FeatureNeedsErase)

	require.NoError(t, d.Erase(backend.SlotA))
	require.NoError(t, d.Save(backend.SlotA, pattern(1)))

	// rewriting without erase must be refused rather than corrupt silently
	err := d.Save(backend.SlotA, pattern(2))
	require.True(t, common.IsCode(err, common.RetCBackendIoFailure), "unexpected error %v", err)

	require.NoError(t, d.Erase(backend.SlotA))
	require.NoError(t, d.Save(backend.SlotA, pattern(2)))
}

func testPatch(t *testing.T, d backend.IDriver) {
	requireFeature(t, d, backend.FeaturePatch)

	want := pattern(3)
	prepare(t, d, backend.SlotA)
	require.NoError(t, d.Save(backend.SlotA, want))

	// 0x01 -> 0x00 only clears a bit and works on every medium
	require.NoError(t, d.Patch(backend.SlotA, 4, []byte{0x00}))
	want[4] = 0x00

	got := make([]byte, testSize)
	require.NoError(t, d.Load(backend.SlotA, got))
	require.True(t, bytes.Equal(want, got), "patch changed more than one byte")

	err := d.Patch(backend.SlotA, testSize, []byte{0x00})
	require.True(t, common.IsCode(err, common.RetCBackendIoFailure), "unexpected error %v", err)
}

func testInfo(t *testing.T, d backend.IDriver) {
	info := d.GetInfo()
	require.NotEmpty(t, info.Location)
	require.Equal(t, testSize, info.Size)
	require.Len(t, info.Offsets, 2)
	require.Contains(t, info.SupportedFeatures, backend.FeatureRedundant)
}
