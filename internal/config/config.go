// Package config is used to load the configuration file
package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/blacktop/il2dump/internal/metadata"
	"github.com/blacktop/il2dump/internal/utils"
	"github.com/blacktop/il2dump/pkg/il2cpp"
	"github.com/blacktop/il2dump/pkg/il2cpp/types"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Counts override the expected table sizes derived from the metadata file
type Counts struct {
	Images          int   `mapstructure:"images"`
	TypeDefinitions int   `mapstructure:"type-definitions"`
	Methods         int   `mapstructure:"methods"`
	MetadataUsages  int64 `mapstructure:"metadata-usages"`
}

// Config is the configuration struct
type Config struct {
	// Version forces the il2cpp schema version instead of the one in the metadata header
	Version types.Version `mapstructure:"version"`
	Counts  Counts        `mapstructure:"counts"`
	// DumpBase marks the binary as a memory dump loaded at this address
	DumpBase string `mapstructure:"dump-base"`
	Hint     string `mapstructure:"hint"`
	Arch     string `mapstructure:"arch"`

	dumpBase uint64
}

func (c *Config) verify() error {
	if c.DumpBase != "" {
		base, err := utils.ConvertStrToInt(c.DumpBase)
		if err != nil {
			return fmt.Errorf("invalid dump-base %q: %v", c.DumpBase, err)
		}
		c.dumpBase = base
	}
	if c.Counts.Images < 0 || c.Counts.TypeDefinitions < 0 || c.Counts.Methods < 0 || c.Counts.MetadataUsages < 0 {
		return fmt.Errorf("counts must not be negative")
	}
	return nil
}

// ForcedVersion returns the operator supplied schema version
func (c *Config) ForcedVersion() (types.Version, bool) {
	return c.Version, c.Version != 0
}

// Dumped returns the image base of a memory dump
func (c *Config) Dumped() (uint64, bool) {
	return c.dumpBase, c.DumpBase != ""
}

// Il2Cpp merges the metadata header with the configured overrides.
// A nil header requires a forced version.
func (c *Config) Il2Cpp(h *metadata.Header) (il2cpp.Config, error) {
	var conf il2cpp.Config
	if h != nil {
		conf.Version = h.Version
		conf.ExpectedImageCount = h.ImageCount()
		conf.ExpectedTypeDefinitionsCount = h.TypeDefinitionsCount
		conf.ExpectedMethodCount = h.MethodCount
		conf.MetadataUsagesCount = h.MetadataUsagesCount
	}
	if v, ok := c.ForcedVersion(); ok {
		conf.Version = v
	}
	if conf.Version == 0 {
		return conf, fmt.Errorf("config: no il2cpp version (pass --version or a metadata file)")
	}
	if c.Counts.Images > 0 {
		conf.ExpectedImageCount = c.Counts.Images
	}
	if c.Counts.TypeDefinitions > 0 {
		conf.ExpectedTypeDefinitionsCount = c.Counts.TypeDefinitions
	}
	if c.Counts.Methods > 0 {
		conf.ExpectedMethodCount = c.Counts.Methods
	}
	if c.Counts.MetadataUsages > 0 {
		conf.MetadataUsagesCount = c.Counts.MetadataUsages
	}
	return conf, nil
}

var versionType = reflect.TypeOf(types.Version(0))

// versionHook decodes schema versions from strings and from YAML numbers like 24.2
func versionHook(from, to reflect.Type, data any) (any, error) {
	if to != versionType {
		return data, nil
	}
	var s string
	switch v := data.(type) {
	case string:
		s = strings.TrimSpace(v)
	case float32, float64, int, int64, uint64:
		s = fmt.Sprint(v)
	default:
		return data, nil
	}
	if s == "" {
		return types.Version(0), nil
	}
	return types.ParseVersion(s)
}

// LoadConfig loads the configuration file
func LoadConfig() (*Config, error) {
	var c *Config

	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		versionHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := viper.Unmarshal(&c, hook); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %v", err)
	}
	if c == nil {
		c = &Config{}
	}

	if err := c.verify(); err != nil {
		return nil, fmt.Errorf("config: failed to verify: %v", err)
	}

	return c, nil
}
