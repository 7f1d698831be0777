// Package backend defines the narrow contract between the environment logic
// and a storage medium, and the registry that binds location tags to drivers.
//
// The package focuses on:
//   - IDriver: init, load, save and erase of raw copies, plus an optional
//     in-place patch used to flip a copy flag
//   - Feature flags so that the redundancy logic can adapt to erase-before-write
//     media without knowing the medium
//   - Registry: an explicit start-up time table of drivers, resolved by tag
//
// Drivers:
//
//	- mem:      RAM regions, used for tests and volatile setups. Supports
//	            power-cut injection to simulate interrupted writes.
//	- nowhere:  no storage at all; loads always fail so the defaults are used.
//	- flash:    NOR flash emulation on an image file (erase sets 0xFF,
//	            programming can only clear bits).
//	- block:    sector addressed block device or image file.
//	- boltdb:   copies stored as keys of a bbolt bucket.
//
// Driver conformance is checked by RunDriverTests in the
// "github.com/ValentinKolb/envstore/lib/env/backend/testing" package.
//
// Which location is current is decided outside this package; the registry only
// resolves tags and remembers which drivers failed to initialize.
package backend
