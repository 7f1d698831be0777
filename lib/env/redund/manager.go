package redund

import (
	"fmt"
	"github.com/ValentinKolb/envstore/lib/common"
	"github.com/ValentinKolb/envstore/lib/env/backend"
	"github.com/ValentinKolb/envstore/lib/env/blob"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("redund")

// Manager owns the copies of the environment on one location. It decides
// which copy is authoritative on load and sequences the writes on save so that
// an interruption at any point leaves a valid copy behind.
//
// Thread-safety: Manager is not safe for concurrent use.
type Manager struct {
	loc    backend.Location
	driver backend.IDriver
	layout blob.Layout
	log    logger.ILogger

	decision Decision
	copies   [2]CopyState
	active   backend.Slot // the authoritative copy (OLD on the next save)
	repair   bool         // rewrite the inactive copy's flag before the next save
	loaded   bool         // copies and active reflect the medium
}

// State is a snapshot of the manager for diagnostics
type State struct {
	Location      backend.Location
	Redundant     bool
	Decision      Decision
	Copies        [2]CopyState
	Active        backend.Slot
	RepairPending bool
	Loaded        bool
}

// NewManager creates a manager for the copies of driver laid out as layout.
// Redundant layouts need a driver configured with two slots.
func NewManager(loc backend.Location, driver backend.IDriver, layout blob.Layout) (*Manager, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if layout.Redundant && !driver.SupportsFeature(backend.FeatureRedundant) {
		return nil, common.Errorf(common.RetCInternalError, "location %s has no redundant slot configured", loc)
	}

	return &Manager{
		loc:      loc,
		driver:   driver,
		layout:   layout,
		log:      common.WithLocation(Logger, string(loc)),
		decision: Decision{Rule: RuleNoValidCopy},
		// nothing known yet: the first save targets slot A
		active: backend.SlotB,
	}, nil
}

// Location returns the location the manager works on
func (m *Manager) Location() backend.Location {
	return m.loc
}

// Layout returns the copy layout
func (m *Manager) Layout() blob.Layout {
	return m.layout
}

// State returns a snapshot of the last load/save bookkeeping
func (m *Manager) State() State {
	return State{
		Location:      m.loc,
		Redundant:     m.layout.Redundant,
		Decision:      m.decision,
		Copies:        m.copies,
		Active:        m.active,
		RepairPending: m.repair,
		Loaded:        m.loaded,
	}
}

// --------------------------------------------------------------------------
// Load
// --------------------------------------------------------------------------

// Load reads all copies and returns the records of the authoritative one.
//
// Invalid copies are logged and skipped. If no copy is valid an error with
// code RetCNoValidCopy is returned and the next save writes slot A.
func (m *Manager) Load() ([]blob.Record, error) {
	m.loaded = true
	m.copies = [2]CopyState{}
	m.copies[backend.SlotA] = m.readCopy(backend.SlotA)

	if m.layout.Redundant {
		m.copies[backend.SlotB] = m.readCopy(backend.SlotB)
		m.decision = Resolve(m.copies[backend.SlotA], m.copies[backend.SlotB])
	} else if m.copies[backend.SlotA].Valid {
		m.decision = Decision{Rule: RuleSingleCopy, Slot: backend.SlotA, Found: true}
	} else {
		m.decision = Decision{Rule: RuleNoValidCopy}
	}

	metrics.GetOrCreateCounter(fmt.Sprintf(`envstore_resolution_total{location=%q,rule=%q}`, m.loc, m.decision.Rule)).Inc()

	if !m.decision.Found {
		m.active = backend.SlotB
		m.repair = false
		return nil, common.Errorf(common.RetCNoValidCopy, "%s: no valid environment copy", m.loc)
	}

	m.active = m.decision.Slot
	m.repair = m.decision.Inconsistent
	if m.decision.Inconsistent {
		m.log.Warningf("both copies are valid and flagged %s/%s, using copy A; flag of copy B is corrected on the next save",
			m.copies[backend.SlotA].Flag, m.copies[backend.SlotB].Flag)
	}
	m.log.Debugf("loaded %s", m.decision)

	return m.copies[m.active].records, nil
}

// readCopy loads and validates one slot
func (m *Manager) readCopy(slot backend.Slot) CopyState {
	raw := make([]byte, m.layout.Size)
	if err := m.driver.Load(slot, raw); err != nil {
		m.invalid(slot, err)
		return CopyState{Err: err}
	}

	b, err := m.layout.Unpack(raw)
	if err != nil {
		m.invalid(slot, err)
		return CopyState{Err: err}
	}

	records, err := b.Records()
	if err != nil {
		m.invalid(slot, err)
		return CopyState{Flag: b.Flag, Err: err}
	}

	if m.layout.Redundant && !b.Flag.Known() {
		common.WithLocation(m.log, string(m.loc), slot.String()).Warningf("flag %s, treating the copy as not active", b.Flag)
	}
	return CopyState{Valid: true, Flag: b.Flag, records: records}
}

func (m *Manager) invalid(slot backend.Slot, err error) {
	common.WithLocation(m.log, string(m.loc), slot.String()).Warningf("invalid copy: %v", err)
	metrics.GetOrCreateCounter(fmt.Sprintf(`envstore_copy_invalid_total{location=%q,slot=%q,reason=%q}`, m.loc, slot, common.CodeOf(err))).Inc()
}

// --------------------------------------------------------------------------
// Save
// --------------------------------------------------------------------------

// Save persists records.
//
// Redundant layouts write the new copy into the inactive slot first and only
// after that succeeded mark the previously authoritative copy obsolete. A power
// loss during the first write leaves the old copy valid and active; a power loss
// before the flag flip leaves two valid active copies, which resolve to A.
//
// A manager that never loaded reads the medium first, so the authoritative
// copy on it is never the one overwritten.
//
// Non-redundant layouts overwrite the single copy in place. An interrupted
// write can destroy the stored environment; this is the price of the single
// copy setup.
func (m *Manager) Save(records []blob.Record) (err error) {
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.GetOrCreateCounter(fmt.Sprintf(`envstore_save_total{location=%q,result=%q}`, m.loc, result)).Inc()
	}()

	payload, err := blob.Encode(records, m.layout.Capacity())
	if err != nil {
		return err
	}
	raw, err := m.layout.Pack(payload, blob.FlagActive)
	if err != nil {
		return err
	}

	if !m.layout.Redundant {
		m.loaded = true
		if err := m.writeCopy(backend.SlotA, raw); err != nil {
			m.copies[backend.SlotA] = CopyState{Err: err}
			return common.WrapError(common.RetCBackendIoFailure, err, fmt.Sprintf("%s: writing the environment failed", m.loc))
		}
		m.copies[backend.SlotA] = CopyState{Valid: true, Flag: blob.FlagActive}
		m.active = backend.SlotA
		return nil
	}

	if !m.loaded {
		m.log.Debugf("reading the copies before the first save")
		if _, err := m.Load(); err != nil && !common.IsCode(err, common.RetCNoValidCopy) {
			return err
		}
	}

	old := m.active
	target := old.Other()

	// corrective rewrite after an ambiguous load
	if m.repair && m.copies[target].Valid {
		m.log.Infof("marking copy %s obsolete", target)
		if err := m.writeFlag(target, blob.FlagObsolete); err != nil {
			return common.WrapError(common.RetCBackendIoFailure, err, fmt.Sprintf("%s: correcting the flag of copy %s failed", m.loc, target))
		}
		m.copies[target].Flag = blob.FlagObsolete
	}

	// step 1: the new copy goes into the inactive slot
	if err := m.writeCopy(target, raw); err != nil {
		m.copies[target] = CopyState{Err: err}
		return common.WrapError(common.RetCBackendIoFailure, err, fmt.Sprintf("%s: writing copy %s failed, copy %s is unchanged", m.loc, target, old))
	}
	m.copies[target] = CopyState{Valid: true, Flag: blob.FlagActive}

	// step 2: retire the old copy
	if m.copies[old].Valid {
		if err := m.writeFlag(old, blob.FlagObsolete); err != nil {
			m.active = target
			m.repair = true
			return common.WrapError(common.RetCBackendIoFailure, err, fmt.Sprintf("%s: copy %s written but copy %s is still flagged active", m.loc, target, old))
		}
		m.copies[old].Flag = blob.FlagObsolete
	}

	m.active = target
	m.repair = false
	m.log.Debugf("saved copy %s", target)
	return nil
}

// writeCopy erases slot if the medium requires it and writes raw
func (m *Manager) writeCopy(slot backend.Slot, raw []byte) error {
	if m.driver.SupportsFeature(backend.FeatureNeedsErase) {
		if err := m.driver.Erase(slot); err != nil {
			return err
		}
	}
	return m.driver.Save(slot, raw)
}

// writeFlag updates the flag byte of slot, in place if the medium allows it
func (m *Manager) writeFlag(slot backend.Slot, flag blob.Flag) error {
	if m.driver.SupportsFeature(backend.FeaturePatch) {
		return m.driver.Patch(slot, blob.FlagOffset, []byte{byte(flag)})
	}

	raw := make([]byte, m.layout.Size)
	if err := m.driver.Load(slot, raw); err != nil {
		return err
	}
	raw[blob.FlagOffset] = byte(flag)
	return m.writeCopy(slot, raw)
}

// --------------------------------------------------------------------------
// Erase
// --------------------------------------------------------------------------

// Erase erases every slot of the location. Afterwards no copy is valid.
func (m *Manager) Erase() error {
	if !m.driver.SupportsFeature(backend.FeatureErase) {
		return common.Errorf(common.RetCUnsupportedOperation, "%s: the medium cannot be erased", m.loc)
	}

	slots := []backend.Slot{backend.SlotA}
	if m.layout.Redundant {
		slots = append(slots, backend.SlotB)
	}
	for _, slot := range slots {
		if err := m.driver.Erase(slot); err != nil {
			return common.WrapError(common.RetCBackendIoFailure, err, fmt.Sprintf("%s: erasing copy %s failed", m.loc, slot))
		}
		m.copies[slot] = CopyState{Err: common.NewError(common.RetCNoValidCopy, "erased")}
	}

	m.active = backend.SlotB
	m.repair = false
	m.loaded = true
	m.decision = Decision{Rule: RuleNoValidCopy}
	return nil
}
