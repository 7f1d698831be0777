package flash

import (
	"bytes"
	"github.com/ValentinKolb/envstore/lib/common"
	"github.com/ValentinKolb/envstore/lib/env/backend"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"os"
)

// erased is the value of every byte after a sector erase
const erased byte = 0xFF

// Options configures a flash driver
type Options struct {
	Fs           afero.Fs // filesystem holding the image (nil = OS filesystem)
	Path         string   // image file emulating the chip
	SectorSize   int      // erase granularity
	Size         int      // size of one environment copy
	Offset       int64    // sector aligned offset of slot A
	OffsetRedund int64    // sector aligned offset of slot B
	Redundant    bool     // whether slot B exists
}

type driverImpl struct {
	opts Options
	span int64 // bytes covered by one copy, rounded up to whole sectors
	file afero.File
}

// NewDriver creates a NOR flash driver on an image file.
//
// The emulation follows NOR semantics: Erase sets all bytes of the sectors of a
// slot to 0xFF and programming can only clear bits. Save and Patch fail if they
// would have to set a bit, so the caller must erase before rewriting a copy.
// Flipping the copy flag from active (0x01) to obsolete (0x00) only clears a bit
// and works as an in-place patch.
func NewDriver(opts Options) backend.IDriver {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	return &driverImpl{opts: opts}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see backend.IDriver)
// --------------------------------------------------------------------------

func (d *driverImpl) Init() error {
	if d.opts.SectorSize <= 0 {
		return common.Errorf(common.RetCBackendIoFailure, "flash: invalid sector size %d", d.opts.SectorSize)
	}
	if d.opts.Size <= 0 {
		return common.Errorf(common.RetCBackendIoFailure, "flash: invalid copy size %d", d.opts.Size)
	}

	sector := int64(d.opts.SectorSize)
	d.span = (int64(d.opts.Size) + sector - 1) / sector * sector

	if d.opts.Offset%sector != 0 {
		return common.Errorf(common.RetCBackendIoFailure, "flash: offset 0x%x is not sector aligned", d.opts.Offset)
	}
	end := d.opts.Offset + d.span
	if d.opts.Redundant {
		if d.opts.OffsetRedund%sector != 0 {
			return common.Errorf(common.RetCBackendIoFailure, "flash: redundant offset 0x%x is not sector aligned", d.opts.OffsetRedund)
		}
		if d.opts.OffsetRedund < d.opts.Offset+d.span && d.opts.Offset < d.opts.OffsetRedund+d.span {
			return common.NewError(common.RetCBackendIoFailure, "flash: primary and redundant copies share a sector")
		}
		end = max(end, d.opts.OffsetRedund+d.span)
	}

	file, err := d.opts.Fs.OpenFile(d.opts.Path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return ioFailure(errors.Wrapf(err, "open image %s", d.opts.Path))
	}
	d.file = file

	// grow the image, new sectors come out of the factory erased
	stat, err := file.Stat()
	if err != nil {
		return ioFailure(errors.Wrap(err, "stat image"))
	}
	if stat.Size() < end {
		fill := bytes.Repeat([]byte{erased}, int(end-stat.Size()))
		if _, err := file.WriteAt(fill, stat.Size()); err != nil {
			return ioFailure(errors.Wrap(err, "grow image"))
		}
		if err := file.Sync(); err != nil {
			return ioFailure(errors.Wrap(err, "sync image"))
		}
	}
	return nil
}

func (d *driverImpl) Load(slot backend.Slot, buf []byte) error {
	if err := d.check(slot); err != nil {
		return err
	}
	if err := backend.CheckBuf(backend.LocationFlash, buf, d.opts.Size); err != nil {
		return err
	}
	if _, err := d.file.ReadAt(buf, d.offset(slot)); err != nil {
		return ioFailure(errors.Wrapf(err, "read slot %s", slot))
	}
	return nil
}

func (d *driverImpl) Save(slot backend.Slot, buf []byte) error {
	if err := d.check(slot); err != nil {
		return err
	}
	if err := backend.CheckBuf(backend.LocationFlash, buf, d.opts.Size); err != nil {
		return err
	}
	return d.program(slot, 0, buf)
}

func (d *driverImpl) Erase(slot backend.Slot) error {
	if err := d.check(slot); err != nil {
		return err
	}
	fill := bytes.Repeat([]byte{erased}, int(d.span))
	if _, err := d.file.WriteAt(fill, d.offset(slot)); err != nil {
		return ioFailure(errors.Wrapf(err, "erase slot %s", slot))
	}
	if err := d.file.Sync(); err != nil {
		return ioFailure(errors.Wrap(err, "sync image"))
	}
	return nil
}

func (d *driverImpl) Patch(slot backend.Slot, offset int, data []byte) error {
	if err := d.check(slot); err != nil {
		return err
	}
	if err := backend.CheckPatch(backend.LocationFlash, offset, data, d.opts.Size); err != nil {
		return err
	}
	return d.program(slot, offset, data)
}

func (d *driverImpl) SupportsFeature(feature backend.Feature) bool {
	return d.features()&feature == feature
}

func (d *driverImpl) GetInfo() backend.Info {
	offsets := []int64{d.opts.Offset}
	if d.opts.Redundant {
		offsets = append(offsets, d.opts.OffsetRedund)
	}
	return backend.Info{
		Location:          backend.LocationFlash,
		Description:       "NOR flash image " + d.opts.Path,
		Size:              d.opts.Size,
		Offsets:           offsets,
		SupportedFeatures: backend.FeatureList(d.features()),
	}
}

func (d *driverImpl) Close() error {
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	if err != nil {
		return ioFailure(errors.Wrap(err, "close image"))
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (d *driverImpl) features() backend.Feature {
	f := backend.FeatureErase | backend.FeatureNeedsErase | backend.FeaturePatch
	if d.opts.Redundant {
		f |= backend.FeatureRedundant
	}
	return f
}

func (d *driverImpl) check(slot backend.Slot) error {
	if d.file == nil {
		return common.NewError(common.RetCBackendIoFailure, "flash: driver is not initialized")
	}
	return backend.CheckSlot(backend.LocationFlash, slot, d.opts.Redundant)
}

func (d *driverImpl) offset(slot backend.Slot) int64 {
	if slot == backend.SlotB {
		return d.opts.OffsetRedund
	}
	return d.opts.Offset
}

// program writes data like a NOR chip would: bits can go from 1 to 0 only.
func (d *driverImpl) program(slot backend.Slot, offset int, data []byte) error {
	at := d.offset(slot) + int64(offset)

	current := make([]byte, len(data))
	if _, err := d.file.ReadAt(current, at); err != nil {
		return ioFailure(errors.Wrapf(err, "read back slot %s", slot))
	}
	for i := range data {
		if current[i]&data[i] != data[i] {
			return common.Errorf(common.RetCBackendIoFailure,
				"flash: programming slot %s at offset %d needs an erase (0x%02x -> 0x%02x)", slot, offset+i, current[i], data[i])
		}
	}

	if _, err := d.file.WriteAt(data, at); err != nil {
		return ioFailure(errors.Wrapf(err, "program slot %s", slot))
	}
	if err := d.file.Sync(); err != nil {
		return ioFailure(errors.Wrap(err, "sync image"))
	}
	return nil
}

func ioFailure(err error) error {
	return common.WrapError(common.RetCBackendIoFailure, err, "flash")
}
