/*
Package env provides the environment context: the live name/value table of the
firmware environment together with everything needed to load it from and save
it to persistent storage.

An Environment is created explicitly and passed around; there is no global
instance.

	registry := backend.NewRegistry()
	_ = registry.Register(backend.LocationMem, mem.NewDriver(conf.Size, conf.Redundant))

	e, err := env.New(conf, registry, nil)
	if err != nil {
		return err
	}
	if err := e.Init(); err != nil {
		return err
	}
	if err := e.Load(); err != nil && !common.IsCode(err, common.RetCNoValidCopy) {
		return err
	}
	_ = e.Set("bootdelay", "5")
	err = e.Save()

# Loading

Locations are tried in the configured order. The first location holding a
valid copy provides the table and becomes the save target. Locations whose
driver failed to initialize are skipped. If no valid copy exists anywhere the
default environment (builtin values merged with the configured defaults) is
loaded, the table is marked dirty and Load returns RetCNoValidCopy. This is a
warning, the environment is fully usable.

# Saving

Save hands the table to the redundancy manager of the save target, which
writes the copies in a crash-safe order (see package redund). Select changes
the save target.

# Export and Import

Three formats are supported:

	text      name=value lines sorted by name, "\" escapes newlines
	binary    NUL separated records, extra NUL at the end
	checksum  CRC-32 (little-endian) + payload of the configured capacity

Import merges into the current table unless Clear is set and only touches the
table if the whole input could be parsed. Records with an empty value delete
the variable.
*/
package env
