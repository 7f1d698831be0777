// Package nowhere provides the driver for setups without persistent storage.
// Every load fails, so the environment always starts from its defaults, and
// saving is not supported.
package nowhere

import (
	"github.com/ValentinKolb/envstore/lib/common"
	"github.com/ValentinKolb/envstore/lib/env/backend"
)

type driverImpl struct {
	size int
}

// NewDriver creates the storage-less driver
func NewDriver(size int) backend.IDriver {
	return &driverImpl{size: size}
}

func (d *driverImpl) Init() error {
	return nil
}

func (d *driverImpl) Load(slot backend.Slot, _ []byte) error {
	return common.Errorf(common.RetCBackendIoFailure, "nowhere: no storage behind slot %s", slot)
}

func (d *driverImpl) Save(backend.Slot, []byte) error {
	return common.NewError(common.RetCUnsupportedOperation, "nowhere: saving is not supported")
}

func (d *driverImpl) Erase(backend.Slot) error {
	return nil
}

func (d *driverImpl) Patch(backend.Slot, int, []byte) error {
	return common.NewError(common.RetCUnsupportedOperation, "nowhere: patching is not supported")
}

func (d *driverImpl) SupportsFeature(backend.Feature) bool {
	return false
}

func (d *driverImpl) GetInfo() backend.Info {
	return backend.Info{
		Location:    backend.LocationNowhere,
		Description: "no persistent storage",
		Size:        d.size,
	}
}

func (d *driverImpl) Close() error {
	return nil
}
