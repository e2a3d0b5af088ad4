package mcpconfig

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseTemplate(t *testing.T) {
	tests := []struct {
		in   string
		want template
	}{
		{"", nil},
		{"plain", template{{text: "plain"}}},
		{"${A}", template{{text: "A", ref: true}}},
		{"x-${A_1}-y", template{{text: "x-"}, {text: "A_1", ref: true}, {text: "-y"}}},
		{"$$", template{{text: "$$"}}},
		{"ab$$cd", template{{text: "ab$$cd"}}},
		{"$${A}", template{{text: "${A}"}}},
		{"x$$${A}", template{{text: "x$${A}"}}},
		{"cost $5", template{{text: "cost $5"}}},
		{"trailing $", template{{text: "trailing $"}}},
		{"${A}${B}", template{{text: "A", ref: true}, {text: "B", ref: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTemplate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTemplate_Errors(t *testing.T) {
	for _, in := range []string{"${", "${A", "${}", "${1A}", "${A-B}", "x ${ A }"} {
		_, err := parseTemplate(in)
		assert.Error(t, err, in)
	}
}

func TestTemplateExpand(t *testing.T) {
	tmpl, err := parseTemplate("${USER}@${HOST}:${PORT}")
	require.NoError(t, err)
	env := MapEnvironment{"USER": "me", "HOST": "example.com"}

	got, missing := tmpl.expand(env, PolicyFail)
	assert.Equal(t, "me@example.com:", got)
	assert.Equal(t, []string{"PORT"}, missing)

	got, _ = tmpl.expand(env, PolicyEmpty)
	assert.Equal(t, "me@example.com:", got)

	got, missing = tmpl.expand(env, PolicyKeep)
	assert.Equal(t, "me@example.com:${PORT}", got)
	assert.Equal(t, []string{"PORT"}, missing)
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{"": PolicyFail, "fail": PolicyFail, "EMPTY": PolicyEmpty, " keep ": PolicyKeep} {
		got, err := ParsePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParsePolicy("ignore")
	assert.Error(t, err)
	assert.Equal(t, "Policy(9)", Policy(9).String())
}

func TestEnvironFromList(t *testing.T) {
	env := EnvironFromList([]string{"A=1", "B=x=y", "broken", "=nokey", "A=2", "EMPTY="})
	assert.Equal(t, MapEnvironment{"A": "2", "B": "x=y", "EMPTY": ""}, env)

	t.Setenv("TOOLBELT_TEST_VAR", "from-os")
	v, ok := OSEnvironment().Lookup("TOOLBELT_TEST_VAR")
	assert.True(t, ok)
	assert.Equal(t, "from-os", v)
}

func TestValueJSON(t *testing.T) {
	cfg := map[string]Value{
		"rpm":     NumberValue(10),
		"region":  StringValue("eu"),
		"verbose": BoolValue(false),
		"tags":    StringsValue([]string{"a", "b"}),
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"rpm":10,"region":"eu","verbose":false,"tags":["a","b"]}`, string(data))

	var back map[string]Value
	require.NoError(t, json.Unmarshal(data, &back))
	for k, v := range cfg {
		assert.True(t, v.Equal(back[k]), k)
	}

	var bad Value
	assert.Error(t, json.Unmarshal([]byte(`{"nested":1}`), &bad))
	_, err = json.Marshal(Value{})
	assert.Error(t, err)
}

func TestValueYAML(t *testing.T) {
	out, err := yaml.Marshal(map[string]Value{"tags": StringsValue([]string{"x"})})
	require.NoError(t, err)
	assert.Equal(t, "tags:\n    - x\n", string(out))
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "2.5", NumberValue(2.5).String())
	assert.Equal(t, "true", BoolValue(true).String())
	assert.Equal(t, "[a, b]", StringsValue([]string{"a", "b"}).String())
	assert.Equal(t, KindStrings, StringsValue(nil).Kind())
	assert.False(t, StringValue("1").Equal(NumberValue(1)))
}
