package engine

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/patina/engine/core"
)

// DefaultProcessInterval paces the reload loop when the config does not
// set one.
const DefaultProcessInterval = 250 * time.Millisecond

type LibraryConfig struct {
	// Root directory of the asset library, holding library.json.
	Root string `toml:"root"`
	// Watch the root for file changes and reload touched assets.
	Watch bool `toml:"watch"`
}

type PassConfig struct {
	// The material asset the pass derives everything from.
	Material string `toml:"material"`
	// The texture unit the pass binds its shared texture array to.
	TextureUnit uint32 `toml:"texture_unit"`
	// The tag suffixed onto the pass's renamed globals.
	Instance uint32 `toml:"instance"`
}

type MeshConfig struct {
	// The mesh asset whose chunks the pass renders.
	Asset string `toml:"asset"`
	// Uniform scale baked into the chunk transforms. Zero means one.
	Scale float32 `toml:"scale"`
	// Euler rotation in radians, x then y then z.
	Rotation [3]float32 `toml:"rotation"`
	// Translation baked into the chunk transforms.
	Translation [3]float32 `toml:"translation"`
}

type RuntimeConfig struct {
	// The application name used in logs.
	Name     string `toml:"name"`
	LogLevel string `toml:"log_level"`
	// How often queued reloads are applied, in milliseconds.
	ProcessIntervalMS int           `toml:"process_interval_ms"`
	Library           LibraryConfig `toml:"library"`
	Passes            []PassConfig  `toml:"pass"`
	Meshes            []MeshConfig  `toml:"mesh"`
}

func (c *RuntimeConfig) ProcessInterval() time.Duration {
	if c.ProcessIntervalMS <= 0 {
		return DefaultProcessInterval
	}
	return time.Duration(c.ProcessIntervalMS) * time.Millisecond
}

// LoadRuntimeConfig reads a TOML runtime configuration.
func LoadRuntimeConfig(path string) (*RuntimeConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("failed to read runtime config %s: %v", path, err)
		core.LogError(err.Error())
		return nil, err
	}
	config := &RuntimeConfig{}
	if err := toml.Unmarshal(raw, config); err != nil {
		err = fmt.Errorf("malformed runtime config %s: %v", path, err)
		core.LogError(err.Error())
		return nil, err
	}
	if config.Library.Root == "" {
		err := fmt.Errorf("runtime config %s does not set library.root", path)
		core.LogError(err.Error())
		return nil, err
	}
	for i := range config.Passes {
		if config.Passes[i].Material == "" {
			err := fmt.Errorf("runtime config %s has a pass without a material", path)
			core.LogError(err.Error())
			return nil, err
		}
	}
	for i := range config.Meshes {
		if config.Meshes[i].Asset == "" {
			err := fmt.Errorf("runtime config %s has a mesh pass without an asset", path)
			core.LogError(err.Error())
			return nil, err
		}
		if config.Meshes[i].Scale == 0 {
			config.Meshes[i].Scale = 1
		}
	}
	if config.Name == "" {
		config.Name = "patina"
	}
	if config.LogLevel != "" {
		core.LogSetLevel(config.LogLevel)
	}
	return config, nil
}
