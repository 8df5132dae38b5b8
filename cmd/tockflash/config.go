package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// attrConfig is one attribute table entry to program after flashing.
type attrConfig struct {
	Index int    `toml:"index"`
	Key   string `toml:"key"`
	Value string `toml:"value"`
}

// fileConfig is the tockflash config.toml key mapping.
type fileConfig struct {
	Port        string       `toml:"port"`
	Baud        int          `toml:"baud"`
	BaseAddress uint32       `toml:"base_address"`
	Attributes  []attrConfig `toml:"attributes"`
}

// defaultFileConfig returns the configuration used when no file is given.
func defaultFileConfig() fileConfig {
	return fileConfig{
		Baud:        115200,
		BaseAddress: 0x10000,
	}
}

// loadConfig reads a TOML config file, overlaying the defaults.
func loadConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()

	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return fileConfig{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fileConfig{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	for _, attr := range cfg.Attributes {
		if attr.Index < 0 || attr.Index > 16 {
			return fileConfig{}, fmt.Errorf("load config: attribute index %d out of range", attr.Index)
		}
		if len(attr.Key) == 0 || len(attr.Key) > 8 {
			return fileConfig{}, fmt.Errorf("load config: attribute key %q must be 1-8 characters", attr.Key)
		}
		if len(attr.Value) > 55 {
			return fileConfig{}, fmt.Errorf("load config: attribute value for %q exceeds 55 bytes", attr.Key)
		}
	}

	return cfg, nil
}
