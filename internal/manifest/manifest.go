// Package manifest reads the YAML list of assets the daemon preloads at
// boot and keeps warm.
package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/riftforge/assets/internal/format"
	"github.com/riftforge/assets/internal/source"
)

// Kind selects the asset format an entry loads under.
type Kind string

const (
	KindTable  Kind = "table"
	KindScript Kind = "script"
	KindText   Kind = "text"
	KindRaw    Kind = "raw"
)

// Backend names where an entry's bytes come from.
const (
	BackendDir   = "dir"
	BackendStore = "store"
)

// Entry is one asset to preload.
type Entry struct {
	Name     string `yaml:"name"`
	Kind     Kind   `yaml:"kind"`
	Source   string `yaml:"source,omitempty"`   // dir|store; empty = dir
	Encoding string `yaml:"encoding,omitempty"` // text entries only; empty = daemon default
	Reload   bool   `yaml:"reload,omitempty"`   // track for hot reload
}

type Manifest struct {
	Entries []Entry `yaml:"entries"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	m, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes and validates manifest bytes. Every entry must carry a
// clean relative name, a known kind and backend, and names must be unique;
// a manifest is rejected whole rather than preloading half of it.
func Parse(raw []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	seen := make(map[string]struct{}, len(m.Entries))
	for i := range m.Entries {
		e := &m.Entries[i]
		cleaned, err := source.CleanName(e.Name)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		e.Name = cleaned
		if _, dup := seen[e.Name]; dup {
			return nil, fmt.Errorf("entry %d: duplicate name %q", i, e.Name)
		}
		seen[e.Name] = struct{}{}

		switch e.Kind {
		case KindTable, KindScript, KindText, KindRaw:
		default:
			return nil, fmt.Errorf("entry %q: unknown kind %q", e.Name, e.Kind)
		}

		switch e.Source {
		case "":
			e.Source = BackendDir
		case BackendDir, BackendStore:
		default:
			return nil, fmt.Errorf("entry %q: unknown source %q", e.Name, e.Source)
		}

		if e.Encoding != "" {
			if e.Kind != KindText {
				return nil, fmt.Errorf("entry %q: encoding only applies to text entries", e.Name)
			}
			if _, err := format.NewText(e.Encoding); err != nil {
				return nil, fmt.Errorf("entry %q: %w", e.Name, err)
			}
		}
	}
	return &m, nil
}

// Reloadable returns the entries marked for hot reload tracking.
func (m *Manifest) Reloadable() []Entry {
	var out []Entry
	for _, e := range m.Entries {
		if e.Reload {
			out = append(out, e)
		}
	}
	return out
}

func (m *Manifest) Len() int { return len(m.Entries) }
