package mem

import (
	"github.com/ValentinKolb/envstore/lib/common"
	"github.com/ValentinKolb/envstore/lib/env/backend"
)

// OpKind names a write operation recorded in the journal
type OpKind string

const (
	OpSave  OpKind = "save"
	OpPatch OpKind = "patch"
	OpErase OpKind = "erase"
)

// Op is one journaled write operation
type Op struct {
	Kind   OpKind
	Slot   backend.Slot
	Offset int
	Data   []byte
}

// Driver keeps the environment copies in RAM.
//
// Besides serving as a volatile backend it is the test double of the store:
// it journals every write and can simulate a power loss after a given number
// of written bytes.
type Driver struct {
	size      int
	redundant bool
	regions   [2][]byte

	initErr error
	budget  int // bytes that may still be written, -1 = unlimited
	journal []Op
}

// NewDriver creates a RAM medium holding one (or two, if redundant) zeroed
// copies of size bytes.
func NewDriver(size int, redundant bool) *Driver {
	d := &Driver{
		size:      size,
		redundant: redundant,
		budget:    -1,
	}
	d.regions[backend.SlotA] = make([]byte, size)
	if redundant {
		d.regions[backend.SlotB] = make([]byte, size)
	}
	return d
}

// --------------------------------------------------------------------------
// Test Helpers
// --------------------------------------------------------------------------

// FailInit makes the next Init calls return err.
func (d *Driver) FailInit(err error) {
	d.initErr = err
}

// CutPowerAfter lets n more bytes reach the medium; every write after that
// fails, leaving partially written data behind.
func (d *Driver) CutPowerAfter(n int) {
	d.budget = n
}

// RestorePower removes the write budget.
func (d *Driver) RestorePower() {
	d.budget = -1
}

// Region returns the live storage of slot (not a copy).
func (d *Driver) Region(slot backend.Slot) []byte {
	return d.regions[slot]
}

// Journal returns the write operations since the last ResetJournal.
func (d *Driver) Journal() []Op {
	return append([]Op(nil), d.journal...)
}

// ResetJournal clears the journal.
func (d *Driver) ResetJournal() {
	d.journal = nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see backend.IDriver)
// --------------------------------------------------------------------------

func (d *Driver) Init() error {
	if d.initErr != nil {
		return common.WrapError(common.RetCBackendIoFailure, d.initErr, "mem: init failed")
	}
	return nil
}

func (d *Driver) Load(slot backend.Slot, buf []byte) error {
	if err := backend.CheckSlot(backend.LocationMem, slot, d.redundant); err != nil {
		return err
	}
	if err := backend.CheckBuf(backend.LocationMem, buf, d.size); err != nil {
		return err
	}
	copy(buf, d.regions[slot])
	return nil
}

func (d *Driver) Save(slot backend.Slot, buf []byte) error {
	if err := backend.CheckSlot(backend.LocationMem, slot, d.redundant); err != nil {
		return err
	}
	if err := backend.CheckBuf(backend.LocationMem, buf, d.size); err != nil {
		return err
	}
	d.journal = append(d.journal, Op{Kind: OpSave, Slot: slot, Data: append([]byte(nil), buf...)})
	return d.write(slot, 0, buf)
}

func (d *Driver) Erase(slot backend.Slot) error {
	if err := backend.CheckSlot(backend.LocationMem, slot, d.redundant); err != nil {
		return err
	}
	d.journal = append(d.journal, Op{Kind: OpErase, Slot: slot})
	return d.write(slot, 0, make([]byte, d.size))
}

func (d *Driver) Patch(slot backend.Slot, offset int, data []byte) error {
	if err := backend.CheckSlot(backend.LocationMem, slot, d.redundant); err != nil {
		return err
	}
	if err := backend.CheckPatch(backend.LocationMem, offset, data, d.size); err != nil {
		return err
	}
	d.journal = append(d.journal, Op{Kind: OpPatch, Slot: slot, Offset: offset, Data: append([]byte(nil), data...)})
	return d.write(slot, offset, data)
}

func (d *Driver) SupportsFeature(feature backend.Feature) bool {
	return d.features()&feature == feature
}

func (d *Driver) GetInfo() backend.Info {
	offsets := []int64{0}
	if d.redundant {
		offsets = append(offsets, int64(d.size))
	}
	return backend.Info{
		Location:          backend.LocationMem,
		Description:       "volatile RAM regions",
		Size:              d.size,
		Offsets:           offsets,
		SupportedFeatures: backend.FeatureList(d.features()),
	}
}

func (d *Driver) Close() error {
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (d *Driver) features() backend.Feature {
	f := backend.FeatureErase | backend.FeaturePatch
	if d.redundant {
		f |= backend.FeatureRedundant
	}
	return f
}

// write copies data byte by byte so that a power cut leaves a partial write
func (d *Driver) write(slot backend.Slot, offset int, data []byte) error {
	region := d.regions[slot]
	for i, b := range data {
		if d.budget == 0 {
			return common.Errorf(common.RetCBackendIoFailure, "mem: power lost after %d of %d bytes", i, len(data))
		}
		region[offset+i] = b
		if d.budget > 0 {
			d.budget--
		}
	}
	return nil
}
