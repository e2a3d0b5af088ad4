// Package mcpconfig loads MCP tool-server configuration documents.
//
// A document is a JSON or YAML object with one field holding named server
// entries:
//
//	{"servers": {"search": {"command": "npx", "args": ["-y", "search-mcp"],
//	  "env": {"API_KEY": "${SEARCH_API_KEY}"}, "config": {"calls_per_minute": 10}}}}
//
// Loading parses the document, validates every entry, then expands ${VAR}
// placeholders in env values against an ambient Environment. Every problem
// found is reported in one *LoadError; a partial Set is never returned.
package mcpconfig

import (
	"slices"
)

const (
	// DefaultRootKey is the top-level field holding server entries.
	DefaultRootKey = "servers"
	// AliasRootKey is accepted when DefaultRootKey is absent.
	AliasRootKey = "mcpServers"
)

// Option configures a Loader.
type Option func(*Loader)

// WithPolicy sets the policy for placeholders whose variable is unset.
func WithPolicy(p Policy) Option {
	return func(l *Loader) { l.policy = p }
}

// WithRootKey replaces the primary top-level field name. Aliases still apply.
func WithRootKey(key string) Option {
	return func(l *Loader) {
		if key != "" {
			l.rootKey = key
		}
	}
}

// WithRootAliases sets the fallback top-level field names tried, in order,
// when the primary one is absent.
func WithRootAliases(keys ...string) Option {
	return func(l *Loader) { l.aliases = slices.Clone(keys) }
}

// Loader turns document text into a validated descriptor Set. A Loader holds
// no state between calls and is safe for concurrent use.
type Loader struct {
	policy  Policy
	rootKey string
	aliases []string
}

// New returns a Loader with PolicyFail, root key "servers" and alias
// "mcpServers" unless overridden.
func New(opts ...Option) *Loader {
	l := &Loader{
		policy:  PolicyFail,
		rootKey: DefaultRootKey,
		aliases: []string{AliasRootKey},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Policy returns the loader's placeholder policy.
func (l *Loader) Policy() Policy { return l.policy }

// Load parses, validates and expands text. Placeholders resolve against env;
// a nil env has no variables. On failure the error is a *LoadError.
func (l *Loader) Load(text []byte, env Environment) (*Set, error) {
	if env == nil {
		env = MapEnvironment{}
	}

	entries, err := parseDocument(text, l.rootKeys())
	if err != nil {
		return nil, &LoadError{Errors: []error{err}}
	}

	parsed, errs := validateEntries(entries)
	if len(errs) > 0 {
		return nil, &LoadError{Errors: errs}
	}

	descs, errs := l.expand(parsed, env)
	if len(errs) > 0 {
		return nil, &LoadError{Errors: errs}
	}
	return newSet(descs), nil
}

// Load is New().Load.
func Load(text []byte, env Environment) (*Set, error) {
	return New().Load(text, env)
}

func (l *Loader) rootKeys() []string {
	keys := []string{l.rootKey}
	for _, k := range l.aliases {
		if k != "" && !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}
	return keys
}

func (l *Loader) expand(parsed []parsedEntry, env Environment) ([]ServerDescriptor, []error) {
	var (
		errs  []error
		descs = make([]ServerDescriptor, 0, len(parsed))
	)
	for _, p := range parsed {
		d := ServerDescriptor{
			Name:    p.name,
			Command: p.command,
			Args:    p.args,
			Env:     make(map[string]string, len(p.env)),
			Config:  p.config,
		}
		for _, ev := range p.env {
			value, missing := ev.tmpl.expand(env, l.policy)
			if l.policy == PolicyFail {
				for _, name := range missing {
					errs = append(errs, &UnresolvedPlaceholderError{Entry: p.name, Key: ev.key, Var: name})
				}
			}
			d.Env[ev.key] = value
		}
		descs = append(descs, d)
	}
	return descs, errs
}
