package env

import (
	"fmt"
	"github.com/ValentinKolb/envstore/lib/common"
	"github.com/ValentinKolb/envstore/lib/env/backend"
	"github.com/ValentinKolb/envstore/lib/env/blob"
	"github.com/ValentinKolb/envstore/lib/env/redund"
	"github.com/ValentinKolb/envstore/lib/env/table"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("env")

// Environment is the context object holding the live variable table and the
// persistence state. All operations of the store go through it; there is no
// package level instance.
//
// Thread-safety: Environment is not safe for concurrent use.
type Environment struct {
	conf      common.EnvConfig
	registry  *backend.Registry
	defaults  []blob.Record
	locations []backend.Location // load priority order

	managers map[backend.Location]*redund.Manager
	table    *table.Table

	loadedFrom backend.Location // empty if the defaults are in use
	target     backend.Location // save target, empty if none is usable
	useDefault bool
	ready      bool
}

// New creates an environment for conf. Every configured location must be
// registered in registry. If defaults is nil the builtin defaults merged with
// conf.Defaults are used.
func New(conf common.EnvConfig, registry *backend.Registry, defaults []blob.Record) (*Environment, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	layout := blob.Layout{Size: conf.Size, Redundant: conf.Redundant}
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	if defaults == nil {
		var err error
		if defaults, err = DefaultRecords(conf.Defaults); err != nil {
			return nil, err
		}
	}

	locations := make([]backend.Location, len(conf.Locations))
	for i, loc := range conf.Locations {
		locations[i] = backend.Location(loc)
		if _, err := registry.Resolve(locations[i]); err != nil {
			return nil, err
		}
	}

	return &Environment{
		conf:      conf,
		registry:  registry,
		defaults:  defaults,
		locations: locations,
		managers:  make(map[backend.Location]*redund.Manager),
	}, nil
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Init initializes the drivers of all configured locations. A location whose
// driver fails to initialize is skipped by Load and cannot be saved to.
func (e *Environment) Init() error {
	failed, err := e.registry.InitSelected(e.locations...)
	if err != nil {
		return err
	}

	for _, loc := range e.locations {
		if _, ok := failed[loc]; ok {
			continue
		}
		if _, ok := e.managers[loc]; ok {
			continue
		}

		driver, err := e.registry.Resolve(loc)
		if err != nil {
			return err
		}

		layout := blob.Layout{Size: e.conf.Size, Redundant: e.conf.Redundant}
		if layout.Redundant && !driver.SupportsFeature(backend.FeatureRedundant) {
			// e.g. "nowhere", which has no slots at all
			Logger.Debugf("location %s has no redundant slot, using a single copy", loc)
			layout.Redundant = false
		}

		m, err := redund.NewManager(loc, driver, layout)
		if err != nil {
			Logger.Warningf("location %s is not usable: %v", loc, err)
			continue
		}
		e.managers[loc] = m
	}
	return nil
}

// Close closes all drivers.
func (e *Environment) Close() error {
	return e.registry.Close()
}

// Load reads the environment from the first location (in priority order) that
// holds a valid copy. That location becomes the save target.
//
// If no location holds a valid copy the table is filled with the defaults and
// marked dirty, the first usable location becomes the save target and an
// error with code RetCNoValidCopy is returned. The environment is usable
// afterwards.
func (e *Environment) Load() error {
	for _, loc := range e.locations {
		m, ok := e.managers[loc]
		if !ok {
			continue
		}

		records, err := m.Load()
		if err != nil {
			Logger.Warningf("%v", err)
			continue
		}

		t, err := table.FromRecords(records)
		if err != nil {
			// decoded records always pass validation, keep going anyway
			Logger.Warningf("%s: %v", loc, err)
			continue
		}

		e.table = t
		e.loadedFrom = loc
		e.target = loc
		e.useDefault = false
		e.ready = true
		loadTotal(loc, "ok")
		Logger.Infof("environment loaded from %s (%s)", loc, m.State().Decision)
		return nil
	}

	t, err := table.FromRecords(e.defaults)
	if err != nil {
		return err
	}
	t.MarkDirty()

	e.table = t
	e.loadedFrom = ""
	e.target = e.firstUsable()
	e.useDefault = true
	e.ready = true
	loadTotal("", "default")
	Logger.Warningf("no valid environment found, using default environment")

	return common.NewError(common.RetCNoValidCopy, "no valid environment copy, using default environment")
}

// Reload discards all unsaved changes and loads the environment again.
func (e *Environment) Reload() error {
	return e.Load()
}

func (e *Environment) firstUsable() backend.Location {
	for _, loc := range e.locations {
		if _, ok := e.managers[loc]; ok {
			return loc
		}
	}
	return ""
}

// --------------------------------------------------------------------------
// Variable Operations
// --------------------------------------------------------------------------

// Get returns the value of name and whether it exists.
func (e *Environment) Get(name string) (string, bool) {
	if e.table == nil {
		return "", false
	}
	value, ok := e.table.Get(name)
	return string(value), ok
}

// Exists reports whether name is set.
func (e *Environment) Exists(name string) bool {
	return e.table != nil && e.table.Has(name)
}

// Set creates or overwrites name. An empty value deletes the variable.
func (e *Environment) Set(name, value string) error {
	if err := e.requireLoaded(); err != nil {
		return err
	}
	if value == "" {
		return e.Unset(name)
	}
	return e.table.Set(name, []byte(value))
}

// Unset deletes name. Deleting a missing variable is not an error.
func (e *Environment) Unset(name string) error {
	if err := e.requireLoaded(); err != nil {
		return err
	}
	if err := blob.ValidateName(name); err != nil {
		return err
	}
	e.table.Unset(name)
	return nil
}

// All returns all variables in table order.
func (e *Environment) All() []blob.Record {
	if e.table == nil {
		return nil
	}
	return e.table.All()
}

// Names returns all variable names sorted.
func (e *Environment) Names() []string {
	if e.table == nil {
		return nil
	}
	return e.table.Names()
}

// IsDirty reports whether the table has unsaved changes.
func (e *Environment) IsDirty() bool {
	return e.table != nil && e.table.IsDirty()
}

// SetDefault replaces the whole table with the default environment.
func (e *Environment) SetDefault() error {
	if err := e.requireLoaded(); err != nil {
		return err
	}
	if err := e.table.Replace(e.defaults); err != nil {
		return err
	}
	e.table.MarkDirty()
	e.useDefault = true
	Logger.Infof("resetting to default environment")
	return nil
}

// SetDefaultVars resets the named variables to their default values.
// Variables without a default are deleted.
func (e *Environment) SetDefaultVars(names ...string) error {
	if err := e.requireLoaded(); err != nil {
		return err
	}

	defaults := make(map[string][]byte, len(e.defaults))
	for _, r := range e.defaults {
		defaults[r.Name] = r.Value
	}

	next := e.table.Clone()
	for _, name := range names {
		if err := blob.ValidateName(name); err != nil {
			return err
		}
		if value, ok := defaults[name]; ok {
			if err := next.Set(name, value); err != nil {
				return err
			}
			continue
		}
		if next.Has(name) {
			Logger.Warningf("%s has no default value, deleting it", name)
		} else {
			Logger.Warningf("%s neither in the environment nor in the defaults", name)
		}
		next.Unset(name)
	}
	e.table = next
	return nil
}

func (e *Environment) requireLoaded() error {
	if e.table == nil {
		return common.NewError(common.RetCInternalError, "environment is not loaded")
	}
	return nil
}

// --------------------------------------------------------------------------
// Persistence
// --------------------------------------------------------------------------

// Select makes loc the save target.
func (e *Environment) Select(loc backend.Location) error {
	if !e.conf.HasLocation(string(loc)) {
		return common.Errorf(common.RetCBackendUnsupported, "location %s is not configured", loc)
	}
	if _, ok := e.managers[loc]; !ok {
		return e.notUsable(loc)
	}
	e.target = loc
	Logger.Infof("selected location %s", loc)
	return nil
}

// Target returns the current save target.
func (e *Environment) Target() backend.Location {
	return e.target
}

// Save writes the table to the save target and clears the dirty flag.
func (e *Environment) Save() error {
	if err := e.requireLoaded(); err != nil {
		return err
	}
	if e.target == "" {
		return common.NewError(common.RetCUnsupportedOperation, "no location available for saving the environment")
	}
	if e.target == backend.LocationNowhere {
		return common.NewError(common.RetCUnsupportedOperation, "environment location nowhere cannot be saved")
	}
	m, ok := e.managers[e.target]
	if !ok {
		return e.notUsable(e.target)
	}

	Logger.Infof("saving environment to %s", e.target)
	if err := m.Save(e.table.All()); err != nil {
		return err
	}
	e.table.ClearDirty()
	return nil
}

// Erase erases all copies on the save target. The in-memory table is kept and
// marked dirty; if it was loaded from the target it counts as invalid.
func (e *Environment) Erase() error {
	if e.target == "" {
		return common.NewError(common.RetCUnsupportedOperation, "no location available for erasing the environment")
	}
	m, ok := e.managers[e.target]
	if !ok {
		return e.notUsable(e.target)
	}

	Logger.Infof("erasing environment on %s", e.target)
	if err := m.Erase(); err != nil {
		return err
	}
	if e.loadedFrom == e.target {
		// the table no longer has a copy behind it
		e.loadedFrom = ""
	}
	if e.table != nil {
		e.table.MarkDirty()
	}
	return nil
}

func (e *Environment) notUsable(loc backend.Location) error {
	if initErr := e.registry.InitError(loc); initErr != nil {
		return common.WrapError(common.RetCBackendIoFailure, initErr, fmt.Sprintf("location %s failed to initialize", loc))
	}
	return common.Errorf(common.RetCBackendIoFailure, "location %s is not initialized", loc)
}
