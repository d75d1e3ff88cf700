package threshold

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Table is an immutable set of specs keyed by (analysis, indicator).
type Table struct {
	version string
	specs   map[Key]Spec
}

// NewTable validates specs and builds a table from them.
func NewTable(version string, specs ...Spec) (*Table, error) {
	t := &Table{version: version, specs: make(map[Key]Spec, len(specs))}
	for _, s := range specs {
		s = s.withDefaults(version).Clone()
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := t.specs[s.Key()]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSpec, s.Key())
		}
		t.specs[s.Key()] = s
	}
	return t, nil
}

// Version returns the table version.
func (t *Table) Version() string { return t.version }

// Len returns the number of specs.
func (t *Table) Len() int { return len(t.specs) }

// Lookup returns a copy of the Spec stored under the given key.
func (t *Table) Lookup(a Analysis, indicator string) (Spec, error) {
	s, ok := t.specs[Key{Analysis: a, Indicator: indicator}]
	if !ok {
		return Spec{}, &UnknownIndicatorError{Key: Key{Analysis: a, Indicator: indicator}}
	}
	return s.Clone(), nil
}

// Specs returns every spec sorted by key.
func (t *Table) Specs() []Spec {
	out := make([]Spec, 0, len(t.specs))
	for _, s := range t.specs {
		out = append(out, s.Clone())
	}
	sortSpecs(out)
	return out
}

// SpecsFor returns the specs of one analysis sorted by indicator.
func (t *Table) SpecsFor(a Analysis) []Spec {
	var out []Spec
	for k, s := range t.specs {
		if k.Analysis == a {
			out = append(out, s.Clone())
		}
	}
	sortSpecs(out)
	return out
}

func sortSpecs(specs []Spec) {
	sort.Slice(specs, func(i, j int) bool {
		if specs[i].Analysis != specs[j].Analysis {
			return specs[i].Analysis < specs[j].Analysis
		}
		return specs[i].Indicator < specs[j].Indicator
	})
}

type document struct {
	Version string `yaml:"version"`
	Specs   []Spec `yaml:"specs"`
}

// Overlay returns a new table where each spec replaces the entry with the
// same key. Entries with new keys are added.
func (t *Table) Overlay(version string, specs ...Spec) (*Table, error) {
	merged := make(map[Key]Spec, len(t.specs)+len(specs))
	for k, s := range t.specs {
		merged[k] = s
	}
	seen := make(map[Key]struct{}, len(specs))
	for _, s := range specs {
		s = s.withDefaults(version)
		if _, dup := seen[s.Key()]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSpec, s.Key())
		}
		seen[s.Key()] = struct{}{}
		merged[s.Key()] = s
	}
	all := make([]Spec, 0, len(merged))
	for _, s := range merged {
		all = append(all, s)
	}
	return NewTable(version, all...)
}

// Load reads a YAML threshold document and overlays it onto the default
// table.
func Load(r io.Reader) (*Table, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode thresholds: %w", err)
	}
	version := doc.Version
	if version == "" {
		version = DefaultVersion
	}
	return Default().Overlay(version, doc.Specs...)
}

// LoadFile reads a threshold document from path. See Load.
func LoadFile(path string) (*Table, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read thresholds %s: %w", path, err)
	}
	return Load(bytes.NewReader(bs))
}
