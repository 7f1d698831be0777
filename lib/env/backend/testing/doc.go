// Package testing provides a conformance suite for backend.IDriver
// implementations.
//
// Each driver package calls RunDriverTests from its own test file with a
// factory that creates fresh drivers. Tests that need an optional feature
// (erase, erase-before-write, in-place patch) are skipped for drivers that do
// not advertise it.
//
// Usage:
//
//	func Test(t *testing.T) {
//		drivertesting.RunDriverTests(t, "Flash", func(t *testing.T, size int, redundant bool) backend.IDriver {
//			return flash.NewDriver(flash.Options{Fs: afero.NewMemMapFs(), ...})
//		})
//	}
package testing
