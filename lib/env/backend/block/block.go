package block

import (
	"github.com/ValentinKolb/envstore/lib/common"
	"github.com/ValentinKolb/envstore/lib/env/backend"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"os"
)

// Options configures a block device driver
type Options struct {
	Fs           afero.Fs // filesystem holding the device (nil = OS filesystem)
	Path         string   // device node or image file
	BlockSize    int      // sector size
	Size         int      // size of one environment copy
	Offset       int64    // block aligned offset of slot A
	OffsetRedund int64    // block aligned offset of slot B
	Redundant    bool     // whether slot B exists
}

type driverImpl struct {
	opts Options
	span int64 // bytes covered by one copy, rounded up to whole blocks
	file afero.File
}

// NewDriver creates a driver for a sector addressed device.
//
// Writes always cover whole blocks: the tail of the last block of a copy is
// read back and written unchanged. Patches rewrite only the blocks they touch,
// so flipping the copy flag rewrites the first block of a copy. The medium
// overwrites in place, erase zero-fills a slot and is never required before a
// save.
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
	if d.opts.BlockSize <= 0 {
		return common.Errorf(common.RetCBackendIoFailure, "block: invalid block size %d", d.opts.BlockSize)
	}
	if d.opts.Size <= 0 {
		return common.Errorf(common.RetCBackendIoFailure, "block: invalid copy size %d", d.opts.Size)
	}

	bs := int64(d.opts.BlockSize)
	d.span = (int64(d.opts.Size) + bs - 1) / bs * bs

	if d.opts.Offset%bs != 0 {
		return common.Errorf(common.RetCBackendIoFailure, "block: offset 0x%x is not block aligned", d.opts.Offset)
	}
	end := d.opts.Offset + d.span
	if d.opts.Redundant {
		if d.opts.OffsetRedund%bs != 0 {
			return common.Errorf(common.RetCBackendIoFailure, "block: redundant offset 0x%x is not block aligned", d.opts.OffsetRedund)
		}
		if d.opts.OffsetRedund < d.opts.Offset+d.span && d.opts.Offset < d.opts.OffsetRedund+d.span {
			return common.NewError(common.RetCBackendIoFailure, "block: primary and redundant copies overlap")
		}
		end = max(end, d.opts.OffsetRedund+d.span)
	}

	file, err := d.opts.Fs.OpenFile(d.opts.Path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return ioFailure(errors.Wrapf(err, "open device %s", d.opts.Path))
	}
	d.file = file

	stat, err := file.Stat()
	if err != nil {
		return ioFailure(errors.Wrap(err, "stat device"))
	}
	if stat.Size() < end {
		if err := file.Truncate(end); err != nil {
			return ioFailure(errors.Wrap(err, "grow image"))
		}
	}
	return nil
}

func (d *driverImpl) Load(slot backend.Slot, buf []byte) error {
	if err := d.check(slot); err != nil {
		return err
	}
	if err := backend.CheckBuf(backend.LocationBlock, buf, d.opts.Size); err != nil {
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
	if err := backend.CheckBuf(backend.LocationBlock, buf, d.opts.Size); err != nil {
		return err
	}
	return d.writeBlocks(slot, 0, buf)
}

func (d *driverImpl) Erase(slot backend.Slot) error {
	if err := d.check(slot); err != nil {
		return err
	}
	if _, err := d.file.WriteAt(make([]byte, d.span), d.offset(slot)); err != nil {
		return ioFailure(errors.Wrapf(err, "erase slot %s", slot))
	}
	if err := d.file.Sync(); err != nil {
		return ioFailure(errors.Wrap(err, "sync device"))
	}
	return nil
}

func (d *driverImpl) Patch(slot backend.Slot, offset int, data []byte) error {
	if err := d.check(slot); err != nil {
		return err
	}
	if err := backend.CheckPatch(backend.LocationBlock, offset, data, d.opts.Size); err != nil {
		return err
	}
	return d.writeBlocks(slot, offset, data)
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
		Location:          backend.LocationBlock,
		Description:       "block device " + d.opts.Path,
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
		return ioFailure(errors.Wrap(err, "close device"))
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (d *driverImpl) features() backend.Feature {
	f := backend.FeatureErase | backend.FeaturePatch
	if d.opts.Redundant {
		f |= backend.FeatureRedundant
	}
	return f
}

func (d *driverImpl) check(slot backend.Slot) error {
	if d.file == nil {
		return common.NewError(common.RetCBackendIoFailure, "block: driver is not initialized")
	}
	return backend.CheckSlot(backend.LocationBlock, slot, d.opts.Redundant)
}

func (d *driverImpl) offset(slot backend.Slot) int64 {
	if slot == backend.SlotB {
		return d.opts.OffsetRedund
	}
	return d.opts.Offset
}

// writeBlocks writes data at offset inside slot as a sequence of whole blocks.
func (d *driverImpl) writeBlocks(slot backend.Slot, offset int, data []byte) error {
	bs := int64(d.opts.BlockSize)
	start := int64(offset) / bs * bs
	end := (int64(offset+len(data)) + bs - 1) / bs * bs
	base := d.offset(slot)

	blocks := make([]byte, end-start)
	if _, err := d.file.ReadAt(blocks, base+start); err != nil {
		return ioFailure(errors.Wrapf(err, "read blocks of slot %s", slot))
	}
	copy(blocks[int64(offset)-start:], data)

	if _, err := d.file.WriteAt(blocks, base+start); err != nil {
		return ioFailure(errors.Wrapf(err, "write blocks of slot %s", slot))
	}
	if err := d.file.Sync(); err != nil {
		return ioFailure(errors.Wrap(err, "sync device"))
	}
	return nil
}

func ioFailure(err error) error {
	return common.WrapError(common.RetCBackendIoFailure, err, "block")
}
