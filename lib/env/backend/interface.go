package backend

import (
	"fmt"
	"github.com/ValentinKolb/envstore/lib/common"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

// Location tags a storage medium. Exactly one driver is registered per tag.
type Location string

const (
	LocationNowhere Location = common.LocationNowhere
	LocationMem     Location = common.LocationMem
	LocationFlash   Location = common.LocationFlash
	LocationBlock   Location = common.LocationBlock
	LocationBolt    Location = common.LocationBolt
)

// Slot addresses one of the (at most two) copies on a medium.
type Slot int

const (
	SlotA Slot = 0 // primary copy
	SlotB Slot = 1 // redundant copy
)

// Slots lists both slots in resolution order.
var Slots = [2]Slot{SlotA, SlotB}

// Other returns the opposite slot.
func (s Slot) Other() Slot {
	if s == SlotA {
		return SlotB
	}
	return SlotA
}

func (s Slot) String() string {
	switch s {
	case SlotA:
		return "A"
	case SlotB:
		return "B"
	default:
		return fmt.Sprintf("Slot(%d)", int(s))
	}
}

// Feature represents driver capabilities as bit flags
type Feature uint64

const (
	FeatureErase      Feature = 1 << iota // Erase does something on this medium
	FeatureNeedsErase                     // Save requires a prior Erase of the slot
	FeaturePatch                          // Patch updates bytes in place without rewriting the copy
	FeatureRedundant                      // The medium is configured with a second slot
)

func (f Feature) String() string {
	switch f {
	case FeatureErase:
		return "Erase"
	case FeatureNeedsErase:
		return "NeedsErase"
	case FeaturePatch:
		return "Patch"
	case FeatureRedundant:
		return "Redundant"
	default:
		return "Unknown"
	}
}

// AllFeatures lists every defined feature
var AllFeatures = []Feature{FeatureErase, FeatureNeedsErase, FeaturePatch, FeatureRedundant}

// Info describes a configured driver.
type Info struct {
	Location          Location  `json:"location"`
	Description       string    `json:"description"`
	Size              int       `json:"size"`
	Offsets           []int64   `json:"offsets"`
	SupportedFeatures []Feature `json:"supported_features"`
}

// --------------------------------------------------------------------------
// Driver Interface
// --------------------------------------------------------------------------

// IDriver moves raw environment copies between memory and one storage medium.
// A driver owns no policy: it does not know about checksums, flags or which
// copy is authoritative. Every buffer passed to Load and Save has exactly the
// configured copy size.
//
// All failures are reported as *common.Error with code RetCBackendIoFailure,
// or RetCUnsupportedOperation for features the driver does not have.
type IDriver interface {

	// Init prepares the medium (open files, probe the device, check geometry).
	// It is called once before the first Load.
	Init() (err error)

	// Load reads the copy stored in slot into buf.
	Load(slot Slot, buf []byte) (err error)

	// Save writes buf as the copy in slot.
	// For media with FeatureNeedsErase the slot must have been erased first.
	Save(slot Slot, buf []byte) (err error)

	// Erase returns slot to the erased state of the medium.
	// Drivers without FeatureErase return nil without touching the medium.
	Erase(slot Slot) (err error)

	// Patch writes data at offset inside the copy in slot without rewriting the
	// rest of it. Only available with FeaturePatch.
	Patch(slot Slot, offset int, data []byte) (err error)

	// SupportsFeature checks if the driver supports the specified feature.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the driver and its configuration.
	GetInfo() (info Info)

	// Close releases the medium.
	Close() (err error)
}

// FeatureList returns the features supported by d, for Info structs.
func FeatureList(supported Feature) []Feature {
	var out []Feature
	for _, f := range AllFeatures {
		if supported&f == f {
			out = append(out, f)
		}
	}
	return out
}

// CheckSlot returns an error if slot is not usable on a medium with the given
// redundancy setting.
func CheckSlot(loc Location, slot Slot, redundant bool) error {
	switch {
	case slot == SlotA:
		return nil
	case slot == SlotB && redundant:
		return nil
	default:
		return common.Errorf(common.RetCBackendIoFailure, "%s: slot %s is not configured", loc, slot)
	}
}

// CheckBuf returns an error if buf does not have the configured copy size.
func CheckBuf(loc Location, buf []byte, size int) error {
	if len(buf) != size {
		return common.Errorf(common.RetCBackendIoFailure, "%s: buffer is %d bytes, copy size is %d", loc, len(buf), size)
	}
	return nil
}

// CheckPatch returns an error if data at offset does not fit into a copy.
func CheckPatch(loc Location, offset int, data []byte, size int) error {
	if offset < 0 || offset+len(data) > size {
		return common.Errorf(common.RetCBackendIoFailure, "%s: patch [%d..%d) outside of copy size %d", loc, offset, offset+len(data), size)
	}
	return nil
}
