package env

import (
	"fmt"
	"github.com/ValentinKolb/envstore/lib/env/backend"
	"github.com/ValentinKolb/envstore/lib/env/blob"
	"strconv"
	"strings"
)

// Validity values reported by Info
const (
	ValidityInvalid   = "invalid"   // defaults in use
	ValidityValid     = "valid"     // loaded from copy A (or the single copy)
	ValidityRedundant = "redundant" // loaded from copy B
)

// LocationInfo describes one configured location.
type LocationInfo struct {
	Location backend.Location
	Ready    bool
	InitErr  error
	Driver   backend.Info
	Decision string // result of the last load, empty if never loaded
	Repair   bool   // a flag rewrite is pending
}

// Info is a snapshot of the environment state.
type Info struct {
	Valid      string
	Ready      bool
	UseDefault bool
	LoadedFrom backend.Location
	SaveTarget backend.Location
	CanPersist bool
	Redundant  bool
	Size       int // length of one copy
	Capacity   int // payload bytes available
	Used       int // payload bytes needed by the current table
	Dirty      bool
	Variables  int
	Locations  []LocationInfo
}

// Info returns the current state of the environment.
func (e *Environment) Info() Info {
	layout := blob.Layout{Size: e.conf.Size, Redundant: e.conf.Redundant}
	info := Info{
		Valid:      ValidityInvalid,
		Ready:      e.ready,
		UseDefault: e.useDefault,
		LoadedFrom: e.loadedFrom,
		SaveTarget: e.target,
		Redundant:  e.conf.Redundant,
		Size:       e.conf.Size,
		Capacity:   layout.Capacity(),
		Dirty:      e.IsDirty(),
	}

	if e.table != nil {
		info.Used = blob.EncodedSize(e.table.All())
		info.Variables = e.table.Len()
	}

	if m, ok := e.managers[e.loadedFrom]; ok && !e.useDefault {
		info.Valid = ValidityValid
		if st := m.State(); st.Redundant && st.Active == backend.SlotB {
			info.Valid = ValidityRedundant
		}
	}

	_, usable := e.managers[e.target]
	info.CanPersist = usable && e.target != backend.LocationNowhere

	for _, loc := range e.locations {
		li := LocationInfo{
			Location: loc,
			Ready:    e.registry.Ready(loc),
			InitErr:  e.registry.InitError(loc),
		}
		if driver, err := e.registry.Resolve(loc); err == nil {
			li.Driver = driver.GetInfo()
		}
		if m, ok := e.managers[loc]; ok {
			st := m.State()
			if st.Loaded {
				li.Decision = st.Decision.String()
			}
			li.Repair = st.RepairPending
		}
		info.Locations = append(info.Locations, li)
	}
	return info
}

// String formats the info like "env info" does, one "key = value" per line
func (i Info) String() string {
	var sb strings.Builder

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("%-18s = %s\n", name, value))
	}

	addField("env_valid", i.Valid)
	addField("env_ready", strconv.FormatBool(i.Ready))
	addField("env_use_default", strconv.FormatBool(i.UseDefault))
	addField("env_can_persist", strconv.FormatBool(i.CanPersist))
	addField("env_loaded_from", orNone(string(i.LoadedFrom)))
	addField("env_save_target", orNone(string(i.SaveTarget)))
	addField("env_redundant", strconv.FormatBool(i.Redundant))
	addField("env_size", strconv.Itoa(i.Size))
	addField("env_used", fmt.Sprintf("%d/%d", i.Used, i.Capacity))
	addField("env_variables", strconv.Itoa(i.Variables))
	addField("env_dirty", strconv.FormatBool(i.Dirty))

	for _, li := range i.Locations {
		sb.WriteString("\n")
		prefix := "loc." + string(li.Location)
		addField(prefix+".ready", strconv.FormatBool(li.Ready))
		if li.InitErr != nil {
			addField(prefix+".error", li.InitErr.Error())
		}
		if li.Driver.Description != "" {
			addField(prefix+".driver", li.Driver.Description)
		}
		if len(li.Driver.Offsets) > 0 {
			offsets := make([]string, len(li.Driver.Offsets))
			for j, off := range li.Driver.Offsets {
				offsets[j] = fmt.Sprintf("0x%x", off)
			}
			addField(prefix+".offsets", strings.Join(offsets, ", "))
		}
		if len(li.Driver.SupportedFeatures) > 0 {
			features := make([]string, len(li.Driver.SupportedFeatures))
			for j, f := range li.Driver.SupportedFeatures {
				features[j] = f.String()
			}
			addField(prefix+".features", strings.Join(features, ", "))
		}
		if li.Decision != "" {
			addField(prefix+".decision", li.Decision)
		}
		if li.Repair {
			addField(prefix+".repair", "pending")
		}
	}
	return sb.String()
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
