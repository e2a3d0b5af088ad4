package mcpconfig

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// rawEntry is one named entry as it appears in the document, before any
// field is looked at.
type rawEntry struct {
	key  *yaml.Node
	node *yaml.Node
}

func (e rawEntry) name() string { return e.key.Value }

func (e rawEntry) line() int { return e.key.Line }

// parseDocument decodes text into a node tree and returns the entries found
// under the first of rootKeys present at the top level. JSON and YAML both
// end up as yaml nodes. A node tree is used rather than a map so duplicate
// names survive decoding and can be reported.
func parseDocument(text []byte, rootKeys []string) ([]rawEntry, error) {
	if len(bytes.TrimSpace(text)) == 0 {
		return nil, &MalformedDocumentError{Reason: "document is empty"}
	}

	root, err := decodeTree(text)
	if err != nil {
		return nil, &MalformedDocumentError{Reason: "cannot decode document", Err: err}
	}

	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil, &MalformedDocumentError{Reason: "document is empty"}
		}
		root = root.Content[0]
	}
	root = deref(root)
	if root.Kind != yaml.MappingNode {
		return nil, &MalformedDocumentError{
			Reason: fmt.Sprintf("root must be an object, got %s", describe(root)),
			Line:   root.Line,
		}
	}

	var (
		servers *yaml.Node
		found   string
	)
	for _, key := range rootKeys {
		v, err := lookupUnique(root, key)
		if err != nil {
			return nil, err
		}
		if v != nil {
			servers, found = v, key
			break
		}
	}
	if servers == nil {
		return nil, &MalformedDocumentError{
			Reason: fmt.Sprintf("missing %q field", rootKeys[0]),
			Line:   root.Line,
		}
	}
	servers = deref(servers)
	if servers.Kind != yaml.MappingNode {
		return nil, &MalformedDocumentError{
			Reason: fmt.Sprintf("%q must be an object, got %s", found, describe(servers)),
			Line:   servers.Line,
		}
	}

	entries := make([]rawEntry, 0, len(servers.Content)/2)
	for i := 0; i+1 < len(servers.Content); i += 2 {
		entries = append(entries, rawEntry{
			key:  deref(servers.Content[i]),
			node: deref(servers.Content[i+1]),
		})
	}
	return entries, nil
}

// lookupUnique returns the value of key in mapping m, or nil when absent.
func lookupUnique(m *yaml.Node, key string) (*yaml.Node, error) {
	var (
		val  *yaml.Node
		line int
	)
	for i := 0; i+1 < len(m.Content); i += 2 {
		k := m.Content[i]
		if k.Kind != yaml.ScalarNode || k.Value != key {
			continue
		}
		if val != nil {
			return nil, &MalformedDocumentError{
				Reason: fmt.Sprintf("%q defined more than once (first at line %d)", key, line),
				Line:   k.Line,
			}
		}
		val, line = m.Content[i+1], k.Line
	}
	return val, nil
}

func deref(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

func isString(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!str"
}

// describe names a node's shape for error messages.
func describe(n *yaml.Node) string {
	switch n.Kind {
	case yaml.MappingNode:
		return "object"
	case yaml.SequenceNode:
		return "list"
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!str":
			return "string"
		case "!!int", "!!float":
			return "number"
		case "!!bool":
			return "bool"
		case "!!null":
			return "null"
		}
		return n.ShortTag()
	}
	return "unknown"
}
