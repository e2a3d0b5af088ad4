package mcpconfig

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindInvalid Kind = iota
	KindString
	KindNumber
	KindBool
	KindStrings
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindStrings:
		return "strings"
	default:
		return "invalid"
	}
}

// Value is one entry of a server's free-form config block. The loader only
// checks that a value has one of the supported shapes; what it means is up to
// whoever launches the server.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	list []string
}

func StringValue(s string) Value    { return Value{kind: KindString, str: s} }
func NumberValue(n float64) Value   { return Value{kind: KindNumber, num: n} }
func BoolValue(b bool) Value        { return Value{kind: KindBool, b: b} }
func StringsValue(s []string) Value { return Value{kind: KindStrings, list: slices.Clone(s)} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

func (v Value) Number() (float64, bool) { return v.num, v.kind == KindNumber }

func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// Strings returns a copy of the sequence held by v.
func (v Value) Strings() ([]string, bool) {
	if v.kind != KindStrings {
		return nil, false
	}
	return slices.Clone(v.list), true
}

// Equal reports whether v and o hold the same variant and contents.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindStrings:
		return slices.Equal(v.list, o.list)
	}
	return true
}

// String renders the value for display.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindStrings:
		return "[" + strings.Join(v.list, ", ") + "]"
	}
	return "<invalid>"
}

func (v Value) interfaceValue() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindStrings:
		if v.list == nil {
			return []string{}
		}
		return v.list
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindInvalid {
		return nil, fmt.Errorf("marshaling invalid config value")
	}
	return json.Marshal(v.interfaceValue())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, ok := valueFromAny(raw)
	if !ok {
		return fmt.Errorf("unsupported config value %s", string(data))
	}
	*v = parsed
	return nil
}

func (v Value) MarshalYAML() (any, error) {
	if v.kind == KindInvalid {
		return nil, fmt.Errorf("marshaling invalid config value")
	}
	return v.interfaceValue(), nil
}

func valueFromAny(raw any) (Value, bool) {
	switch t := raw.(type) {
	case string:
		return StringValue(t), true
	case float64:
		return NumberValue(t), true
	case bool:
		return BoolValue(t), true
	case []any:
		list := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return Value{}, false
			}
			list = append(list, s)
		}
		return Value{kind: KindStrings, list: list}, true
	}
	return Value{}, false
}
