package config

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Mapping is an ordered full-name → display-name table. Order matters: the
// leaderboard lists the whole team even at zero tasks, and ties are broken by
// the order contributors appear here.
type Mapping struct {
	keys []string
	m    map[string]string
}

func NewMapping(pairs [][2]string) *Mapping {
	mp := &Mapping{m: map[string]string{}}
	for _, p := range pairs {
		mp.add(p[0], p[1])
	}
	return mp
}

func (mp *Mapping) add(full, short string) {
	full = strings.TrimSpace(full)
	short = strings.TrimSpace(short)
	if full == "" || short == "" {
		return
	}
	if _, ok := mp.m[full]; !ok {
		mp.keys = append(mp.keys, full)
	}
	mp.m[full] = short
}

// Display returns the short name for a full name, or the full name unchanged
// when no mapping exists.
func (mp *Mapping) Display(full string) string {
	if mp == nil {
		return full
	}
	if short, ok := mp.m[full]; ok {
		return short
	}
	return full
}

func (mp *Mapping) Has(full string) bool {
	if mp == nil {
		return false
	}
	_, ok := mp.m[full]
	return ok
}

// Each calls fn for every entry in insertion order.
func (mp *Mapping) Each(fn func(full, short string)) {
	if mp == nil {
		return
	}
	for _, k := range mp.keys {
		fn(k, mp.m[k])
	}
}

func (mp *Mapping) Len() int {
	if mp == nil {
		return 0
	}
	return len(mp.keys)
}

// Merge returns a new mapping with other's entries appended; other wins on
// duplicate full names.
func (mp *Mapping) Merge(other *Mapping) *Mapping {
	out := NewMapping(nil)
	mp.Each(out.add)
	other.Each(out.add)
	return out
}

// ParseMapping parses the NAME_MAPPING env format:
// "Full Name:Short;Other Name:Other". Malformed pairs are skipped.
func ParseMapping(s string) *Mapping {
	mp := NewMapping(nil)
	for _, pair := range strings.Split(s, ";") {
		full, short, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		mp.add(full, short)
	}
	return mp
}

type mappingFile struct {
	Names []struct {
		Full  string `yaml:"full"`
		Short string `yaml:"short"`
	} `yaml:"names"`
}

// LoadMappingFile reads an ordered mapping from a YAML file:
//
//	names:
//	  - full: "Jan Kowalski"
//	    short: "Janek"
func LoadMappingFile(path string) (*Mapping, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f mappingFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	mp := NewMapping(nil)
	for _, n := range f.Names {
		mp.add(n.Full, n.Short)
	}
	return mp, nil
}
