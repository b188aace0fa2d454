// Package roster loads the list of team members whose workload is broken out
// in sprint reports.
package roster

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultPath = "conf/users.yml"

// Roster is an ordered, de-duplicated set of assignee names. It is built once
// at startup and never modified afterwards.
type Roster struct {
	names []string
}

type file struct {
	Users []entry `yaml:"users"`
}

// entry accepts both `- name: alice` and a bare `- alice`.
type entry struct {
	Name string `yaml:"name"`
}

func (e *entry) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		e.Name = value.Value
		return nil
	}
	type plain entry
	return value.Decode((*plain)(e))
}

// Load reads a roster file. An empty path falls back to ROSTER_FILE and then
// conf/users.yml. JSON files work too since JSON is valid YAML.
func Load(path string) (*Roster, error) {
	if path == "" {
		path = os.Getenv("ROSTER_FILE")
	}
	if path == "" {
		path = defaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster file %s: %w", path, err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse roster file %s: %w", path, err)
	}
	return r, nil
}

// Parse decodes roster YAML.
func Parse(data []byte) (*Roster, error) {
	var parsed file
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(parsed.Users))
	for _, u := range parsed.Users {
		names = append(names, u.Name)
	}
	return New(names...), nil
}

// New builds a roster from names, dropping blanks and duplicates while
// keeping first-seen order.
func New(names ...string) *Roster {
	seen := make(map[string]bool, len(names))
	r := &Roster{names: make([]string, 0, len(names))}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		r.names = append(r.names, n)
	}
	return r
}

// Names returns a copy of the roster in file order.
func (r *Roster) Names() []string {
	if r == nil {
		return nil
	}
	cp := make([]string, len(r.names))
	copy(cp, r.names)
	return cp
}

// Len returns the number of names.
func (r *Roster) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}

// Contains reports whether name is on the roster.
func (r *Roster) Contains(name string) bool {
	if r == nil {
		return false
	}
	for _, n := range r.names {
		if n == name {
			return true
		}
	}
	return false
}
