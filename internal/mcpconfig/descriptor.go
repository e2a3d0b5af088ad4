package mcpconfig

import (
	"maps"
	"slices"
	"sort"
)

// RedactedValue replaces env values in descriptors that leave the process.
const RedactedValue = "***"

// ServerDescriptor is the validated, expanded launch description of one
// tool server.
type ServerDescriptor struct {
	Name    string            `json:"name" yaml:"name"`
	Command string            `json:"command" yaml:"command"`
	Args    []string          `json:"args" yaml:"args"`
	Env     map[string]string `json:"env" yaml:"env"`
	Config  map[string]Value  `json:"config,omitempty" yaml:"config,omitempty"`
}

// Clone returns a deep copy of d. Empty collections stay non-nil.
func (d ServerDescriptor) Clone() ServerDescriptor {
	out := ServerDescriptor{
		Name:    d.Name,
		Command: d.Command,
		Args:    make([]string, len(d.Args)),
		Env:     make(map[string]string, len(d.Env)),
		Config:  make(map[string]Value, len(d.Config)),
	}
	copy(out.Args, d.Args)
	maps.Copy(out.Env, d.Env)
	for k, v := range d.Config {
		if list, ok := v.Strings(); ok {
			v = StringsValue(list)
		}
		out.Config[k] = v
	}
	return out
}

// Redacted returns a copy with every env value masked.
func (d ServerDescriptor) Redacted() ServerDescriptor {
	out := d.Clone()
	for k := range out.Env {
		out.Env[k] = RedactedValue
	}
	return out
}

// Environ returns the descriptor's env as sorted KEY=VALUE pairs.
func (d ServerDescriptor) Environ() []string {
	keys := slices.Collect(maps.Keys(d.Env))
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+d.Env[k])
	}
	return out
}

// Equal compares two descriptors field by field.
func (d ServerDescriptor) Equal(o ServerDescriptor) bool {
	if d.Name != o.Name || d.Command != o.Command {
		return false
	}
	if !slices.Equal(d.Args, o.Args) || !maps.Equal(d.Env, o.Env) {
		return false
	}
	return maps.EqualFunc(d.Config, o.Config, Value.Equal)
}

// ConfigNumber returns the numeric config option key, if set.
func (d ServerDescriptor) ConfigNumber(key string) (float64, bool) {
	v, ok := d.Config[key]
	if !ok {
		return 0, false
	}
	return v.Number()
}

// ConfigBool returns the boolean config option key, if set.
func (d ServerDescriptor) ConfigBool(key string) (bool, bool) {
	v, ok := d.Config[key]
	if !ok {
		return false, false
	}
	return v.Bool()
}

// Set is the immutable result of a successful load. Descriptors handed out
// by a Set are copies.
type Set struct {
	order  []string
	byName map[string]ServerDescriptor
}

func newSet(descs []ServerDescriptor) *Set {
	s := &Set{
		order:  make([]string, 0, len(descs)),
		byName: make(map[string]ServerDescriptor, len(descs)),
	}
	for _, d := range descs {
		s.order = append(s.order, d.Name)
		s.byName[d.Name] = d.Clone()
	}
	return s
}

// Len returns the number of descriptors.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Names returns server names in document order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.order)
}

// Get returns the descriptor called name.
func (s *Set) Get(name string) (ServerDescriptor, bool) {
	if s == nil {
		return ServerDescriptor{}, false
	}
	d, ok := s.byName[name]
	if !ok {
		return ServerDescriptor{}, false
	}
	return d.Clone(), true
}

// All returns every descriptor in document order.
func (s *Set) All() []ServerDescriptor {
	if s == nil {
		return nil
	}
	out := make([]ServerDescriptor, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.byName[name].Clone())
	}
	return out
}

// Redacted returns every descriptor in document order with env values masked.
func (s *Set) Redacted() []ServerDescriptor {
	all := s.All()
	for i := range all {
		all[i] = all[i].Redacted()
	}
	return all
}

// Equal reports whether both sets hold equal descriptors in the same order.
func (s *Set) Equal(o *Set) bool {
	if s.Len() != o.Len() {
		return false
	}
	if !slices.Equal(s.Names(), o.Names()) {
		return false
	}
	for _, name := range s.order {
		if !s.byName[name].Equal(o.byName[name]) {
			return false
		}
	}
	return true
}
