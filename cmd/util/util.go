package util

import (
	"fmt"
	"github.com/ValentinKolb/envstore/lib/common"
	"github.com/ValentinKolb/envstore/lib/env"
	"github.com/ValentinKolb/envstore/lib/env/backend"
	"github.com/ValentinKolb/envstore/lib/env/backend/block"
	"github.com/ValentinKolb/envstore/lib/env/backend/boltdb"
	"github.com/ValentinKolb/envstore/lib/env/backend/flash"
	"github.com/ValentinKolb/envstore/lib/env/backend/mem"
	"github.com/ValentinKolb/envstore/lib/env/backend/nowhere"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// SetupEnvFlags adds the environment configuration flags to a command
func SetupEnvFlags(cmd *cobra.Command) {
	defaults := common.DefaultEnvConfig()
	flags := cmd.PersistentFlags()

	key := "config"
	flags.String(key, "", WrapString("Optional configuration file (any format viper understands, e.g. env.yaml). Flags and ENVSTORE_* variables take precedence"))

	key = "size"
	flags.Int(key, defaults.Size, WrapString("Size of one environment copy in bytes, header included"))

	key = "redundant"
	flags.Bool(key, defaults.Redundant, WrapString("Keep two copies with an active/obsolete flag so that an interrupted save never loses the environment"))

	key = "locations"
	flags.String(key, common.LocationFlash, WrapString("Comma-separated list of locations in load priority order (nowhere, mem, flash, block, bolt). The first location with a valid copy becomes the save target"))

	key = "flash-path"
	flags.String(key, defaults.Flash.Path, WrapString("(flash) Image file emulating the NOR flash chip"))

	key = "flash-sector-size"
	flags.Int(key, defaults.Flash.SectorSize, WrapString("(flash) Erase sector size in bytes"))

	key = "flash-offset"
	flags.Int64(key, defaults.Flash.Offset, WrapString("(flash) Sector aligned offset of the primary copy"))

	key = "flash-offset-redund"
	flags.Int64(key, defaults.Flash.OffsetRedund, WrapString("(flash) Sector aligned offset of the redundant copy"))

	key = "block-path"
	flags.String(key, defaults.Block.Path, WrapString("(block) Block device or image file"))

	key = "block-size"
	flags.Int(key, defaults.Block.BlockSize, WrapString("(block) Block size in bytes"))

	key = "block-offset"
	flags.Int64(key, defaults.Block.Offset, WrapString("(block) Block aligned offset of the primary copy"))

	key = "block-offset-redund"
	flags.Int64(key, defaults.Block.OffsetRedund, WrapString("(block) Block aligned offset of the redundant copy"))

	key = "bolt-path"
	flags.String(key, defaults.Bolt.Path, WrapString("(bolt) Database file"))

	key = "bolt-bucket"
	flags.String(key, defaults.Bolt.Bucket, WrapString("(bolt) Bucket holding the copies"))

	key = "defaults"
	flags.StringSlice(key, nil, WrapString("Additional name=value entries of the default environment, overriding the builtin ones"))

	key = "log-level"
	flags.String(key, defaults.LogLevel, WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// InitConfig initializes configuration from env files and environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("envstore")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper and reads the config file
// if one was given
func BindCommandFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if file := viper.GetString("config"); file != "" {
		viper.SetConfigFile(file)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", file, err)
		}
	}
	return nil
}

// GetEnvConfig reads the environment configuration from viper
func GetEnvConfig() (common.EnvConfig, error) {
	conf := common.EnvConfig{
		Size:      viper.GetInt("size"),
		Redundant: viper.GetBool("redundant"),
		Flash: common.FlashConf{
			Path:         viper.GetString("flash-path"),
			SectorSize:   viper.GetInt("flash-sector-size"),
			Offset:       viper.GetInt64("flash-offset"),
			OffsetRedund: viper.GetInt64("flash-offset-redund"),
		},
		Block: common.BlockConf{
			Path:         viper.GetString("block-path"),
			BlockSize:    viper.GetInt("block-size"),
			Offset:       viper.GetInt64("block-offset"),
			OffsetRedund: viper.GetInt64("block-offset-redund"),
		},
		Bolt: common.BoltConf{
			Path:   viper.GetString("bolt-path"),
			Bucket: viper.GetString("bolt-bucket"),
		},
		Defaults: viper.GetStringSlice("defaults"),
		LogLevel: viper.GetString("log-level"),
	}

	for _, loc := range strings.Split(viper.GetString("locations"), ",") {
		if loc = strings.TrimSpace(loc); loc != "" {
			conf.Locations = append(conf.Locations, loc)
		}
	}

	if err := conf.Validate(); err != nil {
		return conf, err
	}
	return conf, nil
}

// --------------------------------------------------------------------------
// Environment construction
// --------------------------------------------------------------------------

// BuildRegistry creates the drivers of all configured locations. File backed
// drivers work on fs.
func BuildRegistry(conf common.EnvConfig, fs afero.Fs) (*backend.Registry, error) {
	registry := backend.NewRegistry()

	for _, loc := range conf.Locations {
		var driver backend.IDriver
		switch loc {
		case common.LocationNowhere:
			driver = nowhere.NewDriver(conf.Size)
		case common.LocationMem:
			driver = mem.NewDriver(conf.Size, conf.Redundant)
		case common.LocationFlash:
			driver = flash.NewDriver(flash.Options{
				Fs:           fs,
				Path:         conf.Flash.Path,
				SectorSize:   conf.Flash.SectorSize,
				Size:         conf.Size,
				Offset:       conf.Flash.Offset,
				OffsetRedund: conf.Flash.OffsetRedund,
				Redundant:    conf.Redundant,
			})
		case common.LocationBlock:
			driver = block.NewDriver(block.Options{
				Fs:           fs,
				Path:         conf.Block.Path,
				BlockSize:    conf.Block.BlockSize,
				Size:         conf.Size,
				Offset:       conf.Block.Offset,
				OffsetRedund: conf.Block.OffsetRedund,
				Redundant:    conf.Redundant,
			})
		case common.LocationBolt:
			driver = boltdb.NewDriver(boltdb.Options{
				Path:      conf.Bolt.Path,
				Bucket:    conf.Bolt.Bucket,
				Size:      conf.Size,
				Redundant: conf.Redundant,
			})
		default:
			return nil, common.Errorf(common.RetCBackendUnsupported, "unknown location %q (expected one of: nowhere, mem, flash, block, bolt)", loc)
		}

		if err := registry.Register(backend.Location(loc), driver); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// OpenEnvironment builds, initializes and loads the environment described by
// conf. Falling back to the default environment is not an error here.
func OpenEnvironment(conf common.EnvConfig, fs afero.Fs) (*env.Environment, error) {
	registry, err := BuildRegistry(conf, fs)
	if err != nil {
		return nil, err
	}

	e, err := env.New(conf, registry, nil)
	if err != nil {
		_ = registry.Close()
		return nil, err
	}
	if err := e.Init(); err != nil {
		_ = e.Close()
		return nil, err
	}
	if err := e.Load(); err != nil && !common.IsCode(err, common.RetCNoValidCopy) {
		_ = e.Close()
		return nil, err
	}
	return e, nil
}
