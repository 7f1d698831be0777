package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Location names (kept as strings here, the backend package types them)
// --------------------------------------------------------------------------

const (
	LocationNowhere = "nowhere"
	LocationMem     = "mem"
	LocationFlash   = "flash"
	LocationBlock   = "block"
	LocationBolt    = "bolt"
)

// --------------------------------------------------------------------------
// Environment configuration struct
// --------------------------------------------------------------------------

// FlashConf configures the emulated NOR flash backend.
type FlashConf struct {
	// Path of the image file that emulates the flash chip
	Path string
	// SectorSize is the erase granularity in bytes
	SectorSize int
	// Offset of the primary copy in the image (must be sector aligned)
	Offset int64
	// OffsetRedund of the redundant copy (must be sector aligned)
	OffsetRedund int64
}

// BlockConf configures the block device backend.
type BlockConf struct {
	// Path of the device or image file
	Path string
	// BlockSize is the sector size in bytes
	BlockSize int
	// Offset of the primary copy (must be block aligned)
	Offset int64
	// OffsetRedund of the redundant copy (must be block aligned)
	OffsetRedund int64
}

// BoltConf configures the bbolt backend.
type BoltConf struct {
	// Path of the bolt database file
	Path string
	// Bucket holding the environment copies
	Bucket string
}

// EnvConfig holds all configuration parameters of the environment store.
type EnvConfig struct {
	// Size is the length L of one environment copy (header included)
	Size int
	// Redundant enables the two-copy fail-safe mode
	Redundant bool
	// Locations lists the backends in load priority order
	Locations []string

	// backend parameters
	Flash FlashConf
	Block BlockConf
	Bolt  BoltConf

	// Defaults are extra "name=value" entries merged into the default environment
	Defaults []string

	// Logging configuration
	LogLevel string
}

// DefaultEnvConfig returns a configuration with a redundant 16 KiB
// environment in RAM.
func DefaultEnvConfig() EnvConfig {
	return EnvConfig{
		Size:      16 * 1024,
		Redundant: true,
		Locations: []string{LocationMem},
		Flash: FlashConf{
			Path:         "flash.img",
			SectorSize:   64 * 1024,
			Offset:       0,
			OffsetRedund: 64 * 1024,
		},
		Block: BlockConf{
			Path:         "disk.img",
			BlockSize:    512,
			Offset:       0,
			OffsetRedund: 16 * 1024,
		},
		Bolt: BoltConf{
			Path:   "env.db",
			Bucket: "env",
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *EnvConfig) Validate() error {
	if c.Size <= 0 {
		return Errorf(RetCInternalError, "invalid environment size %d", c.Size)
	}
	if len(c.Locations) == 0 {
		return NewError(RetCInternalError, "no environment location configured")
	}
	seen := make(map[string]bool, len(c.Locations))
	for _, loc := range c.Locations {
		if seen[loc] {
			return Errorf(RetCInternalError, "location %s listed twice", loc)
		}
		seen[loc] = true
	}
	return nil
}

// HasLocation checks if the configuration lists the given location
func (c *EnvConfig) HasLocation(loc string) bool {
	for _, l := range c.Locations {
		if l == loc {
			return true
		}
	}
	return false
}

// String returns a formatted string representation of the configuration
func (c *EnvConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// Environment settings
	addSection("Environment")
	addField("Size", fmt.Sprintf("%d bytes", c.Size))
	addField("Redundant", strconv.FormatBool(c.Redundant))
	addField("Locations", strings.Join(c.Locations, ", "))

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	if c.HasLocation(LocationFlash) {
		addSection("Flash")
		addField("Image", c.Flash.Path)
		addField("Sector Size", fmt.Sprintf("%d bytes", c.Flash.SectorSize))
		addField("Offset", fmt.Sprintf("0x%x", c.Flash.Offset))
		if c.Redundant {
			addField("Offset Redund", fmt.Sprintf("0x%x", c.Flash.OffsetRedund))
		}
	}

	if c.HasLocation(LocationBlock) {
		addSection("Block Device")
		addField("Device", c.Block.Path)
		addField("Block Size", fmt.Sprintf("%d bytes", c.Block.BlockSize))
		addField("Offset", fmt.Sprintf("0x%x", c.Block.Offset))
		if c.Redundant {
			addField("Offset Redund", fmt.Sprintf("0x%x", c.Block.OffsetRedund))
		}
	}

	if c.HasLocation(LocationBolt) {
		addSection("Bolt")
		addField("Database", c.Bolt.Path)
		addField("Bucket", c.Bolt.Bucket)
	}

	if len(c.Defaults) > 0 {
		addSection("Extra Defaults")
		for i, d := range c.Defaults {
			addField(strconv.Itoa(i), d)
		}
	}

	return sb.String()
}
