package mcpconfig

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry fields the loader understands. Anything else in an entry is ignored.
const (
	fieldName    = "name"
	fieldCommand = "command"
	fieldArgs    = "args"
	fieldEnv     = "env"
	fieldConfig  = "config"
)

// envVar is a validated env binding whose value still has to be expanded.
type envVar struct {
	key  string
	tmpl template
}

// parsedEntry is an entry that passed validation.
type parsedEntry struct {
	name    string
	command string
	args    []string
	env     []envVar
	config  map[string]Value
}

// validateEntries checks every entry and returns all problems at once.
// Parsed entries are only meaningful when no errors are returned.
func validateEntries(entries []rawEntry) ([]parsedEntry, []error) {
	var (
		errs   []error
		parsed = make([]parsedEntry, 0, len(entries))
		lines  = make(map[string][]int, len(entries))
	)
	for _, e := range entries {
		if e.key.Kind == yaml.ScalarNode {
			lines[e.name()] = append(lines[e.name()], e.line())
		}
	}

	reported := make(map[string]bool)
	for _, e := range entries {
		name := e.name()
		if e.key.Kind == yaml.ScalarNode && len(lines[name]) > 1 && !reported[name] {
			reported[name] = true
			errs = append(errs, &DuplicateNameError{Name: name, Lines: lines[name]})
		}
		p, entryErrs := validateEntry(e)
		if len(entryErrs) > 0 {
			errs = append(errs, entryErrs...)
			continue
		}
		parsed = append(parsed, p)
	}
	return parsed, errs
}

func validateEntry(e rawEntry) (parsedEntry, []error) {
	if e.key.Kind != yaml.ScalarNode {
		return parsedEntry{}, []error{&InvalidEntryError{
			Field:  fieldName,
			Reason: fmt.Sprintf("server name must be a string, got %s", describe(e.key)),
			Line:   e.key.Line,
		}}
	}
	name := e.name()
	if strings.TrimSpace(name) == "" {
		return parsedEntry{}, []error{&InvalidEntryError{
			Name:   name,
			Field:  fieldName,
			Reason: "server name is empty",
			Line:   e.line(),
		}}
	}
	if e.node.Kind != yaml.MappingNode {
		return parsedEntry{}, []error{&InvalidEntryError{
			Name:   name,
			Reason: fmt.Sprintf("entry must be an object, got %s", describe(e.node)),
			Line:   e.node.Line,
		}}
	}

	v := &entryValidator{name: name, entry: e.node}
	fields := v.fields()
	p := parsedEntry{
		name:    name,
		command: v.command(fields[fieldCommand]),
		args:    v.args(fields[fieldArgs]),
		env:     v.env(fields[fieldEnv]),
		config:  v.config(fields[fieldConfig]),
	}
	return p, v.errs
}

type entryValidator struct {
	name  string
	entry *yaml.Node
	errs  []error
}

func (v *entryValidator) fail(field string, line int, format string, args ...any) {
	v.errs = append(v.errs, &InvalidEntryError{
		Name:   v.name,
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
		Line:   line,
	})
}

// fields indexes the known fields of the entry, flagging repeats.
func (v *entryValidator) fields() map[string]*yaml.Node {
	out := make(map[string]*yaml.Node, 4)
	for i := 0; i+1 < len(v.entry.Content); i += 2 {
		k := deref(v.entry.Content[i])
		if k.Kind != yaml.ScalarNode {
			continue
		}
		switch k.Value {
		case fieldCommand, fieldArgs, fieldEnv, fieldConfig:
		default:
			continue
		}
		if _, dup := out[k.Value]; dup {
			v.fail(k.Value, k.Line, "field defined more than once")
			continue
		}
		out[k.Value] = deref(v.entry.Content[i+1])
	}
	return out
}

func (v *entryValidator) command(n *yaml.Node) string {
	switch {
	case n == nil:
		v.fail(fieldCommand, v.entry.Line, "command is required")
	case !isString(n):
		v.fail(fieldCommand, n.Line, "command must be a string, got %s", describe(n))
	case strings.TrimSpace(n.Value) == "":
		v.fail(fieldCommand, n.Line, "command is empty")
	default:
		return n.Value
	}
	return ""
}

func (v *entryValidator) args(n *yaml.Node) []string {
	out := []string{}
	if n == nil || isNull(n) {
		return out
	}
	if n.Kind != yaml.SequenceNode {
		v.fail(fieldArgs, n.Line, "args must be a list of strings, got %s", describe(n))
		return out
	}
	for i, item := range n.Content {
		item = deref(item)
		if !isString(item) {
			v.fail(fmt.Sprintf("%s[%d]", fieldArgs, i), item.Line, "argument must be a string, got %s", describe(item))
			continue
		}
		out = append(out, item.Value)
	}
	return out
}

func (v *entryValidator) env(n *yaml.Node) []envVar {
	if n == nil || isNull(n) {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		v.fail(fieldEnv, n.Line, "env must be an object of strings, got %s", describe(n))
		return nil
	}
	var (
		out  []envVar
		seen = make(map[string]bool)
	)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, val := deref(n.Content[i]), deref(n.Content[i+1])
		if !isString(k) || k.Value == "" {
			v.fail(fieldEnv, k.Line, "env variable names must be non-empty strings")
			continue
		}
		field := fieldEnv + "." + k.Value
		if seen[k.Value] {
			v.fail(field, k.Line, "variable defined more than once")
			continue
		}
		seen[k.Value] = true
		if !isString(val) {
			v.fail(field, val.Line, "value must be a string, got %s", describe(val))
			continue
		}
		tmpl, err := parseTemplate(val.Value)
		if err != nil {
			v.fail(field, val.Line, "%v", err)
			continue
		}
		out = append(out, envVar{key: k.Value, tmpl: tmpl})
	}
	return out
}

func (v *entryValidator) config(n *yaml.Node) map[string]Value {
	out := make(map[string]Value)
	if n == nil || isNull(n) {
		return out
	}
	if n.Kind != yaml.MappingNode {
		v.fail(fieldConfig, n.Line, "config must be an object, got %s", describe(n))
		return out
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, val := deref(n.Content[i]), deref(n.Content[i+1])
		if k.Kind != yaml.ScalarNode || k.Value == "" {
			v.fail(fieldConfig, k.Line, "config option names must be non-empty strings")
			continue
		}
		field := fieldConfig + "." + k.Value
		if _, dup := out[k.Value]; dup {
			v.fail(field, k.Line, "option defined more than once")
			continue
		}
		value, err := nodeValue(val)
		if err != nil {
			v.fail(field, val.Line, "%v", err)
			continue
		}
		out[k.Value] = value
	}
	return out
}

// nodeValue converts a config node into a Value without interpreting it.
func nodeValue(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!str":
			return StringValue(n.Value), nil
		case "!!int", "!!float":
			f, err := strconv.ParseFloat(n.Value, 64)
			if err != nil {
				// YAML-only forms such as 0x1F, 0o17 and .inf
				if n.Decode(&f) != nil {
					return Value{}, fmt.Errorf("invalid number %q", n.Value)
				}
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return Value{}, fmt.Errorf("number %q is not finite", n.Value)
			}
			return NumberValue(f), nil
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return Value{}, fmt.Errorf("invalid bool %q", n.Value)
			}
			return BoolValue(b), nil
		}
	case yaml.SequenceNode:
		list := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			item = deref(item)
			if !isString(item) {
				return Value{}, fmt.Errorf("list items must be strings, got %s", describe(item))
			}
			list = append(list, item.Value)
		}
		return StringsValue(list), nil
	}
	return Value{}, fmt.Errorf("unsupported value %s (want string, number, bool or list of strings)", describe(n))
}
