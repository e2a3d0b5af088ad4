package mcpconfig

import (
	"os"
	"strings"
)

// Environment is the ambient variable set placeholders are resolved against.
type Environment interface {
	Lookup(name string) (string, bool)
}

// MapEnvironment is an Environment backed by a map.
type MapEnvironment map[string]string

func (m MapEnvironment) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

type osEnvironment struct{}

func (osEnvironment) Lookup(name string) (string, bool) { return os.LookupEnv(name) }

// OSEnvironment resolves placeholders against the current process
// environment at lookup time.
func OSEnvironment() Environment { return osEnvironment{} }

// EnvironFromList builds an Environment from KEY=VALUE pairs such as those
// returned by os.Environ. Later pairs win; entries without "=" are ignored.
func EnvironFromList(pairs []string) MapEnvironment {
	m := make(MapEnvironment, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			continue
		}
		m[k] = v
	}
	return m
}
