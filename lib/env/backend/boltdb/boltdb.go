package boltdb

import (
	"github.com/ValentinKolb/envstore/lib/common"
	"github.com/ValentinKolb/envstore/lib/env/backend"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
	"os"
	"path/filepath"
	"time"
)

const defaultBucket = "env"

// Options configures a bolt driver
type Options struct {
	Path      string        // database file
	Bucket    string        // bucket holding the copies ("" = "env")
	Size      int           // size of one environment copy
	Redundant bool          // whether slot B exists
	Timeout   time.Duration // how long to wait for the file lock (0 = 1s)
}

type driverImpl struct {
	opts Options
	db   *bolt.DB
}

// NewDriver creates a driver that keeps each copy as a value of a bbolt bucket
// (keys "A" and "B"). Every write is a bolt transaction, so a single Save or
// Patch is atomic on this medium; the two-copy protocol still applies on top.
func NewDriver(opts Options) backend.IDriver {
	if opts.Bucket == "" {
		opts.Bucket = defaultBucket
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second
	}
	return &driverImpl{opts: opts}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see backend.IDriver)
// --------------------------------------------------------------------------

func (d *driverImpl) Init() error {
	if d.opts.Size <= 0 {
		return common.Errorf(common.RetCBackendIoFailure, "bolt: invalid copy size %d", d.opts.Size)
	}
	if err := ensureDirectory(filepath.Dir(d.opts.Path)); err != nil {
		return ioFailure(errors.Wrap(err, "create database directory"))
	}

	db, err := bolt.Open(d.opts.Path, 0600, &bolt.Options{Timeout: d.opts.Timeout})
	if err != nil {
		return ioFailure(errors.Wrapf(err, "open database %s", d.opts.Path))
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(d.opts.Bucket))
		return err
	}); err != nil {
		_ = db.Close()
		return ioFailure(errors.Wrap(err, "failed to initialize bucket"))
	}

	d.db = db
	return nil
}

func (d *driverImpl) Load(slot backend.Slot, buf []byte) error {
	if err := d.check(slot); err != nil {
		return err
	}
	if err := backend.CheckBuf(backend.LocationBolt, buf, d.opts.Size); err != nil {
		return err
	}

	return d.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket([]byte(d.opts.Bucket)).Get(key(slot))
		if value == nil {
			return common.Errorf(common.RetCBackendIoFailure, "bolt: slot %s is empty", slot)
		}
		if len(value) != d.opts.Size {
			return common.Errorf(common.RetCBackendIoFailure, "bolt: slot %s holds %d bytes, copy size is %d", slot, len(value), d.opts.Size)
		}
		// value is only valid inside the transaction
		copy(buf, value)
		return nil
	})
}

func (d *driverImpl) Save(slot backend.Slot, buf []byte) error {
	if err := d.check(slot); err != nil {
		return err
	}
	if err := backend.CheckBuf(backend.LocationBolt, buf, d.opts.Size); err != nil {
		return err
	}

	value := append([]byte(nil), buf...)
	if err := d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(d.opts.Bucket)).Put(key(slot), value)
	}); err != nil {
		return ioFailure(errors.Wrapf(err, "failed to save slot %s", slot))
	}
	return nil
}

func (d *driverImpl) Erase(slot backend.Slot) error {
	if err := d.check(slot); err != nil {
		return err
	}
	if err := d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(d.opts.Bucket)).Delete(key(slot))
	}); err != nil {
		return ioFailure(errors.Wrapf(err, "failed to delete slot %s", slot))
	}
	return nil
}

func (d *driverImpl) Patch(slot backend.Slot, offset int, data []byte) error {
	if err := d.check(slot); err != nil {
		return err
	}
	if err := backend.CheckPatch(backend.LocationBolt, offset, data, d.opts.Size); err != nil {
		return err
	}

	return d.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(d.opts.Bucket))
		current := bucket.Get(key(slot))
		if len(current) != d.opts.Size {
			return common.Errorf(common.RetCBackendIoFailure, "bolt: slot %s is empty or damaged, cannot patch", slot)
		}
		value := append([]byte(nil), current...)
		copy(value[offset:], data)
		if err := bucket.Put(key(slot), value); err != nil {
			return ioFailure(errors.Wrapf(err, "failed to patch slot %s", slot))
		}
		return nil
	})
}

func (d *driverImpl) SupportsFeature(feature backend.Feature) bool {
	return d.features()&feature == feature
}

func (d *driverImpl) GetInfo() backend.Info {
	offsets := []int64{0}
	if d.opts.Redundant {
		offsets = append(offsets, 0)
	}
	return backend.Info{
		Location:          backend.LocationBolt,
		Description:       "bolt database " + d.opts.Path + " (bucket " + d.opts.Bucket + ")",
		Size:              d.opts.Size,
		Offsets:           offsets,
		SupportedFeatures: backend.FeatureList(d.features()),
	}
}

func (d *driverImpl) Close() error {
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	if err != nil {
		return ioFailure(errors.Wrap(err, "close database"))
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
	if d.db == nil {
		return common.NewError(common.RetCBackendIoFailure, "bolt: driver is not initialized")
	}
	return backend.CheckSlot(backend.LocationBolt, slot, d.opts.Redundant)
}

func key(slot backend.Slot) []byte {
	return []byte(slot.String())
}

func ensureDirectory(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0700)
	}
	return nil
}

func ioFailure(err error) error {
	return common.WrapError(common.RetCBackendIoFailure, err, "bolt")
}
