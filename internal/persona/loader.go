package persona

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/titanous/json5"
)

// IsDefinitionFile reports whether a file name looks like a persona definition.
func IsDefinitionFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".json" || ext == ".json5"
}

// LoadFile parses and validates one persona definition.
func LoadFile(path string) (*Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona: %w", err)
	}
	var p Persona
	if err := json5.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse persona %s: %w", filepath.Base(path), err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadDir loads every definition file in dir, in lexical file order.
// Broken or invalid files are logged and skipped; a duplicate id keeps the
// first definition. A missing directory is an error.
func LoadDir(dir string) ([]*Persona, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read personas dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsDefinitionFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	slices.Sort(names)

	slog.Info("loading persona definitions", "dir", dir, "files", len(names))

	seen := make(map[string]string, len(names))
	out := make([]*Persona, 0, len(names))
	for _, name := range names {
		p, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Error("skipping persona definition", "file", name, "error", err)
			continue
		}
		if first, dup := seen[p.ID]; dup {
			slog.Warn("duplicate persona id, keeping first", "id", p.ID, "file", name, "first", first)
			continue
		}
		seen[p.ID] = name
		out = append(out, p)
		slog.Info("persona loaded", "id", p.ID, "name", p.Name, "variations", len(p.NameVariations))
	}
	return out, nil
}

// EnsureTempDirs creates the per-persona temp file directories that are
// configured. Relative paths resolve against the working directory.
func EnsureTempDirs(personas []*Persona) error {
	for _, p := range personas {
		if p.TempFilesDir == "" {
			continue
		}
		dir, err := filepath.Abs(p.TempFilesDir)
		if err != nil {
			return fmt.Errorf("persona %s temp dir: %w", p.ID, err)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("persona %s temp dir: %w", p.ID, err)
		}
	}
	return nil
}
