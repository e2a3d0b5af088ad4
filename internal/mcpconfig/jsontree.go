package mcpconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// decodeTree decodes text into a node tree. JSON objects are decoded as JSON
// so that escapes like \/ and long keys, which YAML rejects, still load.
// Everything else goes through yaml.v3.
func decodeTree(text []byte) (*yaml.Node, error) {
	if trimmed := bytes.TrimSpace(text); len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed) {
		return decodeJSON(text)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(text, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// jsonTree builds yaml nodes from a JSON token stream. Duplicate keys are
// kept, and each node carries the line its token starts on.
type jsonTree struct {
	dec        *json.Decoder
	text       []byte
	lineStarts []int
}

func decodeJSON(text []byte) (*yaml.Node, error) {
	t := &jsonTree{
		dec:        json.NewDecoder(bytes.NewReader(text)),
		text:       text,
		lineStarts: []int{0},
	}
	t.dec.UseNumber()
	for i, c := range text {
		if c == '\n' {
			t.lineStarts = append(t.lineStarts, i+1)
		}
	}

	root, err := t.value()
	if err != nil {
		return nil, err
	}
	return &yaml.Node{Kind: yaml.DocumentNode, Line: root.Line, Content: []*yaml.Node{root}}, nil
}

// next reads one token and the line it starts on.
func (t *jsonTree) next() (json.Token, int, error) {
	start := int(t.dec.InputOffset())
	for start < len(t.text) && strings.IndexByte(" \t\r\n:,", t.text[start]) >= 0 {
		start++
	}
	tok, err := t.dec.Token()
	return tok, sort.SearchInts(t.lineStarts, start+1), err
}

func (t *jsonTree) value() (*yaml.Node, error) {
	tok, line, err := t.next()
	if err != nil {
		return nil, err
	}

	switch v := tok.(type) {
	case json.Delim:
		var n *yaml.Node
		switch v {
		case '{':
			n = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Line: line}
		case '[':
			n = &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Line: line}
		default:
			return nil, fmt.Errorf("unexpected %q at line %d", v, line)
		}
		// Object keys come through as string tokens, so members are just
		// alternating values.
		for t.dec.More() {
			child, err := t.value()
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, child)
		}
		if _, err := t.dec.Token(); err != nil {
			return nil, err
		}
		return n, nil
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v, Style: yaml.DoubleQuotedStyle, Line: line}, nil
	case json.Number:
		tag := "!!int"
		if strings.ContainsAny(v.String(), ".eE") {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v.String(), Line: line}, nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v), Line: line}, nil
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null", Line: line}, nil
	}
	return nil, fmt.Errorf("unexpected token %v at line %d", tok, line)
}
