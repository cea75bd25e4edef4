package project

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ManifestName)
	err := os.WriteFile(path, []byte(`
[package]
name = "demo"
version = "0.1.0"

[build]
max_diagnostics = 64
jobs = 2
`), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if m.Package.Name != "demo" || m.Package.Version != "0.1.0" {
		t.Errorf("bad package section: %+v", m.Package)
	}
	if m.Build.MaxDiagnostics != 64 || m.Build.Jobs != 2 {
		t.Errorf("bad build section: %+v", m.Build)
	}
	if m.Dir != dir {
		t.Errorf("Dir must record the manifest location, got %q", m.Dir)
	}
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	err := os.WriteFile(filepath.Join(root, ManifestName), []byte(`
[package]
name = "walkup"
`), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	m, err := Find(nested)
	if err != nil {
		t.Fatal(err)
	}
	if m.Package.Name != "walkup" {
		t.Errorf("expected the root manifest, got %+v", m)
	}
}

func TestFindDefaults(t *testing.T) {
	m, err := Find(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if m.Build.MaxDiagnostics == 0 {
		t.Error("missing manifest must fall back to defaults")
	}
}

func TestDigest(t *testing.T) {
	a := DigestBytes([]byte("hello"))
	b := DigestBytes([]byte("hello"))
	c := DigestBytes([]byte("world"))
	if a != b {
		t.Error("digest must be deterministic")
	}
	if a == c {
		t.Error("distinct content must produce distinct digests")
	}
	if len(a.Hex()) != 64 {
		t.Errorf("hex digest must be 64 chars, got %d", len(a.Hex()))
	}
}
