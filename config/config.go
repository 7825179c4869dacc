// Package config parses the communicate and processor-grid commands
// (spec.md §6 "External interfaces") and optionally loads a YAML overlay
// file, the way pthm-soup's config package loads its simulation config
// with gopkg.in/yaml.v3 — flags always win over the file, mirroring the
// teacher's Network.Init precedence ("takes the values provided by the
// flags if the zero value is present").
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Sentinel errors for the communicate command's token-level failures
// (spec.md §7).
var (
	ErrInvalidCommand = errors.New("config: unknown token or missing argument")
	ErrInvalidCutoff  = errors.New("config: cutoff must be >= 0")
	ErrInvalidGroup   = errors.New("config: unknown or non-first group")
)

// Style selects uniform vs per-species ghost cutoffs (spec.md §6
// "single"/"multi").
type Style int

const (
	StyleSingle Style = iota
	StyleMulti
)

func (s Style) String() string {
	if s == StyleMulti {
		return "multi"
	}
	return "single"
}

// Config is the parsed state of the communicate command plus the
// processor-grid command, with an optional YAML overlay.
type Config struct {
	Style      Style   `yaml:"style"`
	Group      string  `yaml:"group"`
	Cutoff     float64 `yaml:"cutoff"`
	Vel        bool    `yaml:"vel"`
	ProcGrid   [3]int  `yaml:"procgrid"`
	NumaNodes  int     `yaml:"numa_nodes"`
}

// Default returns the zero-configured state: single style, no extra
// cutoff, no velocity ghosts, auto-factored processor grid.
func Default() *Config {
	return &Config{Style: StyleSingle}
}

// Load reads an optional YAML overlay file and returns the resulting
// Config; if path is empty, Load returns Default(). Load never consults
// flags — callers apply flag overrides afterward by setting the returned
// Config's fields (and ApplyProcGrid), since flags are parsed
// independently of this package.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// ParseCommunicate applies the tokens of one communicate command
// (spec.md §6) to cfg, in place, following LAMMPS-style positional
// sub-command parsing: tokens are consumed left to right, each consuming
// its own argument.
func ParseCommunicate(tokens []string, cfg *Config) error {
	for i := 0; i < len(tokens); i++ {
		switch tokens[i] {
		case "single":
			cfg.Style = StyleSingle
		case "multi":
			cfg.Style = StyleMulti
		case "group":
			if i+1 >= len(tokens) {
				return fmt.Errorf("communicate group: %w", ErrInvalidCommand)
			}
			i++
			cfg.Group = tokens[i]
		case "cutoff":
			if i+1 >= len(tokens) {
				return fmt.Errorf("communicate cutoff: %w", ErrInvalidCommand)
			}
			i++
			v, err := strconv.ParseFloat(tokens[i], 64)
			if err != nil {
				return fmt.Errorf("communicate cutoff %q: %w", tokens[i], ErrInvalidCommand)
			}
			if v < 0 {
				return ErrInvalidCutoff
			}
			cfg.Cutoff = v
		case "vel":
			if i+1 >= len(tokens) {
				return fmt.Errorf("communicate vel: %w", ErrInvalidCommand)
			}
			i++
			switch tokens[i] {
			case "yes":
				cfg.Vel = true
			case "no":
				cfg.Vel = false
			default:
				return fmt.Errorf("communicate vel %q: %w", tokens[i], ErrInvalidCommand)
			}
		default:
			return fmt.Errorf("communicate %q: %w", tokens[i], ErrInvalidCommand)
		}
	}
	return nil
}

// ValidateGroup checks that group, if non-empty, matches firstGroup — the
// store's configured first group (spec.md §6 "must match the store's
// configured first group"). An empty group is always valid (no
// bordergroup optimization requested).
func ValidateGroup(group, firstGroup string) error {
	if group == "" {
		return nil
	}
	if group != firstGroup {
		return ErrInvalidGroup
	}
	return nil
}

// ApplyProcGrid parses the three processor-grid integers (spec.md §6
// "Processor-grid command"); any zero means "factor automatically". It
// does not itself validate px*py*pz == nprocs — that is the grid
// package's job (grid.ErrBadGrid) once the automatic dimensions are
// filled in.
func ApplyProcGrid(px, py, pz int, cfg *Config) {
	cfg.ProcGrid = [3]int{px, py, pz}
}
