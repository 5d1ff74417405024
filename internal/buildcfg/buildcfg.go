// Package buildcfg loads the build configuration of a hellovia app: which page
// to bundle, where to write the bundle and which sources the static check
// scans.
package buildcfg

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Mode selects development or production output.
type Mode string

const (
	Development Mode = "development"
	Production  Mode = "production"
)

// ErrInvalidMode is returned for a mode other than development or production.
var ErrInvalidMode = errors.New("buildcfg: mode must be development or production")

// Output names the bundle file.
type Output struct {
	Filename string `yaml:"filename"`
	Path     string `yaml:"path"`
}

// File returns the full path of the bundle.
func (o Output) File() string {
	return filepath.Join(o.Path, o.Filename)
}

// Lint configures the static check.
type Lint struct {
	Dir        string   `yaml:"dir"`
	Extensions []string `yaml:"extensions"`
	Exclude    []string `yaml:"exclude"`
}

// Config is the build configuration.
type Config struct {
	Mode   Mode   `yaml:"mode"`
	Entry  string `yaml:"entry"`
	Title  string `yaml:"title"`
	Hello  string `yaml:"hello"`
	Mount  string `yaml:"mount"`
	Output Output `yaml:"output"`
	// Datastar is a local copy of the Datastar client to inline into the
	// bundle. Empty loads the client from its CDN.
	Datastar string `yaml:"datastar"`
	Lint   Lint   `yaml:"lint"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Mode:  Production,
		Entry: "/",
		Title: "Hello",
		Mount: "root",
		Output: Output{
			Filename: "app.html",
			Path:     "dist",
		},
		Lint: Lint{
			Dir:        ".",
			Extensions: []string{".go"},
			Exclude:    []string{"vendor", "_examples", "testdata"},
		},
	}
}

// Dev reports whether c builds for development.
func (c Config) Dev() bool {
	return c.Mode == Development
}

// Validate checks c after defaults have been applied.
func (c Config) Validate() error {
	if c.Mode != Development && c.Mode != Production {
		return fmt.Errorf("%w: got %q", ErrInvalidMode, c.Mode)
	}
	if !strings.HasPrefix(c.Entry, "/") {
		return fmt.Errorf("buildcfg: entry %q must be a route starting with /", c.Entry)
	}
	if c.Output.Filename == "" || strings.ContainsRune(c.Output.Filename, os.PathSeparator) {
		return fmt.Errorf("buildcfg: output.filename %q must be a plain file name", c.Output.Filename)
	}
	for _, ext := range c.Lint.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("buildcfg: lint extension %q must start with a dot", ext)
		}
	}
	return nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("buildcfg: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads the file at path. An empty path returns the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("buildcfg: %w", err)
	}
	return Parse(data)
}
