// Package config holds the settings threaded through the clox pipeline.
//
// A Config is built once at startup (Default, optionally overlaid by a
// clox.yaml file and command-line flags) and is read-only afterwards. The
// evaluator and the IR lowering take it by pointer.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "clox.yaml"

// Truthiness selects how doubles convert to booleans.
type Truthiness string

const (
	// TruthNonZero treats a double as true when |x| >= Epsilon.
	TruthNonZero Truthiness = "nonzero"
	// TruthLegacyInverted treats a double as true when |x| < Epsilon.
	// It reproduces an older evaluator whose fixtures depend on it.
	TruthLegacyInverted Truthiness = "legacy-inverted"
)

// MissingReturn selects what happens when a non-void function body ends
// without executing a return statement.
type MissingReturn string

const (
	ReturnDefault MissingReturn = "default" // zero value of the result kind
	ReturnError   MissingReturn = "error"   // bind error "missing return"
)

// Epsilon is the tolerance used when testing doubles for zero.
const Epsilon = 1e-6

// Config is the clox configuration.
type Config struct {
	// AllowRedefine permits declaring a name twice in the same scope.
	AllowRedefine bool `yaml:"allow_redefine"`

	Truthiness    Truthiness    `yaml:"truthiness"`
	MissingReturn MissingReturn `yaml:"missing_return"`

	// MaxCallDepth bounds interpreter recursion. Zero means unbounded.
	MaxCallDepth int `yaml:"max_call_depth"`

	// VerifyIR runs the IR verifier after lowering and after each pass.
	VerifyIR bool `yaml:"verify_ir"`

	// Path is the file the configuration was loaded from, if any.
	Path string `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Truthiness:    TruthNonZero,
		MissingReturn: ReturnDefault,
		MaxCallDepth:  10000,
		VerifyIR:      true,
	}
}

// Load reads a YAML configuration from path, starting from Default.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cfg, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", abs, err)
	}
	cfg.Path = abs
	return cfg, nil
}

// LoadDefault loads FileName from dir if it exists, or returns Default.
func LoadDefault(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: stat %s: %w", path, err)
	}
	return Load(path)
}

// Decode reads a YAML document from r on top of Default and validates it.
// An empty document yields Default.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && err != io.EOF {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Truthiness {
	case TruthNonZero, TruthLegacyInverted:
	default:
		return fmt.Errorf("truthiness: unknown policy %q", c.Truthiness)
	}
	switch c.MissingReturn {
	case ReturnDefault, ReturnError:
	default:
		return fmt.Errorf("missing_return: unknown policy %q", c.MissingReturn)
	}
	if c.MaxCallDepth < 0 {
		return fmt.Errorf("max_call_depth: must not be negative, got %d", c.MaxCallDepth)
	}
	return nil
}

// Encode writes c as YAML to w.
func (c *Config) Encode(w io.Writer) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("config: encoder close: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// DoubleTruthy applies the configured truthiness policy to x.
func (c *Config) DoubleTruthy(x float64) bool {
	if x < 0 {
		x = -x
	}
	if c.Truthiness == TruthLegacyInverted {
		return x < Epsilon
	}
	return x >= Epsilon
}
