// Package config loads translation settings from JSON, YAML or TOML files
// and merges CLI flag overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"usd-scene-translator/internal/basis"
	"usd-scene-translator/internal/instancing"
	"usd-scene-translator/internal/sdfpath"
	"usd-scene-translator/internal/stage"
	"usd-scene-translator/internal/translate"
)

// Config holds every setting of a translation run.
type Config struct {
	// Import
	RootPath     string        `json:"root_path" yaml:"root_path" toml:"root_path"`
	Basis        basis.Policy  `json:"basis" yaml:"basis" toml:"basis"`
	UpAxis       *basis.UpAxis `json:"up_axis,omitempty" yaml:"up_axis,omitempty" toml:"up_axis,omitempty"`
	Scale        float64       `json:"scale" yaml:"scale" toml:"scale"`
	Time         *float64      `json:"time,omitempty" yaml:"time,omitempty" toml:"time,omitempty"`
	Interp       string        `json:"interpolation" yaml:"interpolation" toml:"interpolation"`
	Import       Import        `json:"import" yaml:"import" toml:"import"`
	Rebuild      bool          `json:"rebuild" yaml:"rebuild" toml:"rebuild"`
	Batching     bool          `json:"batching" yaml:"batching" toml:"batching"`
	MaxInstances int           `json:"max_instances" yaml:"max_instances" toml:"max_instances"`
	TextureDir   string        `json:"texture_dir" yaml:"texture_dir" toml:"texture_dir"`

	// Output
	OutputDir    string `json:"output_dir" yaml:"output_dir" toml:"output_dir"`
	OutputFormat string `json:"output_format" yaml:"output_format" toml:"output_format"`
	Workers      int    `json:"workers" yaml:"workers" toml:"workers"`
	LogLevel     string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat    string `json:"log_format" yaml:"log_format" toml:"log_format"`
}

// Import toggles the optional import phases.
type Import struct {
	Transforms     bool `json:"transforms" yaml:"transforms" toml:"transforms"`
	Meshes         bool `json:"meshes" yaml:"meshes" toml:"meshes"`
	Materials      bool `json:"materials" yaml:"materials" toml:"materials"`
	SceneInstances bool `json:"scene_instances" yaml:"scene_instances" toml:"scene_instances"`
	PointInstances bool `json:"point_instances" yaml:"point_instances" toml:"point_instances"`
	Skinning       bool `json:"skinning" yaml:"skinning" toml:"skinning"`
}

// Default returns the settings used when neither file nor flags say otherwise.
func Default() Config {
	return Config{
		RootPath: string(sdfpath.Root),
		Basis:    basis.Exact,
		Scale:    1,
		Interp:   stage.Linear.String(),
		Import: Import{
			Transforms:     true,
			Meshes:         true,
			Materials:      true,
			SceneInstances: true,
			PointInstances: true,
			Skinning:       true,
		},
		MaxInstances: instancing.DefaultMaxInstances,
		OutputFormat: ".hcl",
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// Load reads a config file. The format follows the extension: .json, .yaml,
// .yml or .toml. Fields not set in the file keep their Default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		return Config{}, fmt.Errorf("config: %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	OutputDir    string
	OutputFormat string
	TextureDir   string
	Basis        string
	Workers      int
	LogLevel     string
	LogFormat    string
}

// Resolve applies flags and fills empty fields. CLI flags take priority
// when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) error {
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.OutputFormat != "" {
		c.OutputFormat = flags.OutputFormat
	}
	if flags.TextureDir != "" {
		c.TextureDir = flags.TextureDir
	}
	if flags.Basis != "" {
		p, err := basis.ParsePolicy(flags.Basis)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		c.Basis = p
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.LogLevel != "" {
		c.LogLevel = flags.LogLevel
	}
	if flags.LogFormat != "" {
		c.LogFormat = flags.LogFormat
	}

	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.RootPath == "" {
		c.RootPath = string(sdfpath.Root)
	}
	if c.MaxInstances <= 0 {
		c.MaxInstances = instancing.DefaultMaxInstances
	}
	if !strings.HasPrefix(c.OutputFormat, ".") {
		c.OutputFormat = "." + c.OutputFormat
	}
	return c.Validate()
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if _, err := sdfpath.Parse(c.RootPath); err != nil {
		return fmt.Errorf("config: root_path: %w", err)
	}
	if c.Scale <= 0 {
		return fmt.Errorf("config: scale must be positive, got %g", c.Scale)
	}
	if _, err := stage.ParseInterpolation(c.Interp); err != nil {
		return fmt.Errorf("config: interpolation: %w", err)
	}
	return nil
}

// Interpolation returns the time-sample interpolation of the source graph.
func (c Config) Interpolation() stage.Interpolation {
	i, err := stage.ParseInterpolation(c.Interp)
	if err != nil {
		return stage.Linear
	}
	return i
}

// ImportOptions converts the settings into options for one import pass.
// textures may be nil.
func (c Config) ImportOptions(textures translate.TextureResolver) translate.Options {
	opts := translate.DefaultOptions()
	opts.RootPath = sdfpath.Path(c.RootPath)
	opts.Policy = c.Basis
	opts.UpAxis = c.UpAxis
	opts.Scale = c.Scale
	if c.Time != nil {
		opts.Time = stage.TimeCode(*c.Time)
	}
	opts.Transforms = c.Import.Transforms
	opts.Meshes = c.Import.Meshes
	opts.Materials = c.Import.Materials
	opts.SceneInstances = c.Import.SceneInstances
	opts.PointInstances = c.Import.PointInstances
	opts.Skinning = c.Import.Skinning
	opts.Rebuild = c.Rebuild
	opts.Batching = c.Batching
	opts.MaxInstances = c.MaxInstances
	opts.Textures = textures
	return opts
}

// ExportOptions converts the settings into options for an export pass that
// undoes the import.
func (c Config) ExportOptions(up basis.UpAxis) translate.ExportOptions {
	opts := translate.DefaultExportOptions()
	opts.RootPath = sdfpath.Path(c.RootPath)
	opts.Policy = c.Basis
	opts.UpAxis = up
	if c.UpAxis != nil {
		opts.UpAxis = *c.UpAxis
	}
	return opts
}
