// Package project handles the rook.toml manifest and content digests used as
// cache keys.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ManifestName is the file the driver looks for at the project root.
const ManifestName = "rook.toml"

// Package identifies the project.
type Package struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Build holds driver knobs.
type Build struct {
	MaxDiagnostics int `toml:"max_diagnostics"`
	Jobs           int `toml:"jobs"`
}

// Manifest is the parsed rook.toml.
type Manifest struct {
	Package Package `toml:"package"`
	Build   Build   `toml:"build"`

	// Dir is where the manifest was found; not part of the file.
	Dir string `toml:"-"`
}

// Defaults fills unset knobs.
func (m *Manifest) Defaults() {
	if m.Build.MaxDiagnostics == 0 {
		m.Build.MaxDiagnostics = 256
	}
}

// Load reads a manifest file.
func Load(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("project: parse %s: %w", path, err)
	}
	m.Dir = filepath.Dir(path)
	m.Defaults()
	return &m, nil
}

// Find walks up from dir looking for rook.toml. A missing manifest is not an
// error: the driver falls back to defaults.
func Find(dir string) (*Manifest, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	for {
		candidate := filepath.Join(abs, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return Load(candidate)
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			break
		}
		abs = parent
	}
	m := &Manifest{Dir: dir}
	m.Defaults()
	return m, nil
}
