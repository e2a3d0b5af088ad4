package mcpconfig

import (
	"fmt"
	"strings"
)

// Policy decides what happens to a ${VAR} placeholder whose variable is not
// present in the ambient environment.
type Policy int

const (
	// PolicyFail rejects the load with UnresolvedPlaceholderError. A server
	// started without a credential it expects is worse than a startup error.
	PolicyFail Policy = iota
	// PolicyEmpty substitutes the empty string.
	PolicyEmpty
	// PolicyKeep leaves the ${VAR} token in place.
	PolicyKeep
)

func (p Policy) String() string {
	switch p {
	case PolicyFail:
		return "fail"
	case PolicyEmpty:
		return "empty"
	case PolicyKeep:
		return "keep"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy maps "fail", "empty" or "keep" to a Policy. An empty string
// selects PolicyFail.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail":
		return PolicyFail, nil
	case "empty":
		return PolicyEmpty, nil
	case "keep":
		return PolicyKeep, nil
	}
	return PolicyFail, fmt.Errorf("unknown placeholder policy %q (want fail, empty or keep)", s)
}

// segment is either literal text or a variable reference.
type segment struct {
	text string
	ref  bool
}

// template is a parsed env value.
type template []segment

// parseTemplate splits s into literal and ${VAR} segments. "$${" is a
// literal "${"; any other "$" is kept as written, so "$$" stays "$$".
func parseTemplate(s string) (template, error) {
	var (
		out template
		lit strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			out = append(out, segment{text: lit.String()})
			lit.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '$' || i+1 >= len(s) {
			lit.WriteByte(c)
			continue
		}
		switch s[i+1] {
		case '$':
			lit.WriteByte('$')
			if i+2 < len(s) && s[i+2] == '{' {
				i++
			}
		case '{':
			end := strings.IndexByte(s[i+2:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unterminated placeholder at offset %d", i)
			}
			name := s[i+2 : i+2+end]
			if !isIdentifier(name) {
				return nil, fmt.Errorf("invalid placeholder name %q at offset %d", name, i)
			}
			flush()
			out = append(out, segment{text: name, ref: true})
			i += 2 + end
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return out, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// expand substitutes every reference from env. Variables missing from env
// are handled by policy and returned in missing. Substituted values are
// not scanned again.
func (t template) expand(env Environment, policy Policy) (value string, missing []string) {
	var b strings.Builder
	for _, seg := range t {
		if !seg.ref {
			b.WriteString(seg.text)
			continue
		}
		if v, ok := env.Lookup(seg.text); ok {
			b.WriteString(v)
			continue
		}
		missing = append(missing, seg.text)
		if policy == PolicyKeep {
			b.WriteString("${" + seg.text + "}")
		}
	}
	return b.String(), missing
}
