package backend

import (
	"errors"
	"github.com/ValentinKolb/envstore/lib/common"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"sort"
)

var Logger = logger.GetLogger("backend")

// registration is the registry entry of one location
type registration struct {
	driver      IDriver
	initialized bool
	initErr     error
}

// Registry binds location tags to drivers and tracks which of them came up.
// It is built once by the start-up routine and then only read.
type Registry struct {
	entries *xsync.MapOf[Location, *registration]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: xsync.NewMapOf[Location, *registration](),
	}
}

// Register adds driver under loc. A second driver for the same location is rejected.
func (r *Registry) Register(loc Location, driver IDriver) error {
	if driver == nil {
		return common.Errorf(common.RetCInternalError, "nil driver for location %s", loc)
	}
	if _, loaded := r.entries.LoadOrStore(loc, &registration{driver: driver}); loaded {
		return common.Errorf(common.RetCInternalError, "a driver for location %s is already registered", loc)
	}
	return nil
}

// Resolve returns the driver registered for loc.
func (r *Registry) Resolve(loc Location) (IDriver, error) {
	reg, ok := r.entries.Load(loc)
	if !ok {
		return nil, common.Errorf(common.RetCBackendUnsupported, "no driver registered for location %q", loc)
	}
	return reg.driver, nil
}

// InitSelected calls Init on the drivers of the given locations.
//
// An unknown location is a configuration error and aborts with
// RetCBackendUnsupported. A failing Init is not fatal: it is logged, returned in
// the failed map and the location reports not ready, so that loading from it
// behaves as if no valid copy existed.
func (r *Registry) InitSelected(locs ...Location) (failed map[Location]error, err error) {
	failed = make(map[Location]error)

	for _, loc := range locs {
		if _, ok := r.entries.Load(loc); !ok {
			return nil, common.Errorf(common.RetCBackendUnsupported, "no driver registered for location %q", loc)
		}
	}

	for _, loc := range locs {
		reg, _ := r.entries.Load(loc)
		if reg.initialized {
			if reg.initErr != nil {
				failed[loc] = reg.initErr
			}
			continue
		}

		reg.initialized = true
		if initErr := reg.driver.Init(); initErr != nil {
			reg.initErr = initErr
			failed[loc] = initErr
			Logger.Warningf("init of location %s failed: %v", loc, initErr)
			continue
		}
		Logger.Debugf("initialized location %s", loc)
	}

	return failed, nil
}

// Ready reports whether loc was initialized successfully.
func (r *Registry) Ready(loc Location) bool {
	reg, ok := r.entries.Load(loc)
	return ok && reg.initialized && reg.initErr == nil
}

// InitError returns the error of a failed Init of loc, or nil.
func (r *Registry) InitError(loc Location) error {
	reg, ok := r.entries.Load(loc)
	if !ok {
		return common.Errorf(common.RetCBackendUnsupported, "no driver registered for location %q", loc)
	}
	return reg.initErr
}

// Locations returns all registered locations in sorted order.
func (r *Registry) Locations() []Location {
	locs := make([]Location, 0, r.entries.Size())
	r.entries.Range(func(loc Location, _ *registration) bool {
		locs = append(locs, loc)
		return true
	})
	sort.Slice(locs, func(i, j int) bool { return locs[i] < locs[j] })
	return locs
}

// Close closes every registered driver and returns the joined errors.
func (r *Registry) Close() error {
	var errs []error
	for _, loc := range r.Locations() {
		reg, _ := r.entries.Load(loc)
		if err := reg.driver.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
