package helm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		input    []Values
		expected Values
	}{
		{
			name: "later maps take precedence",
			input: []Values{
				{"replicas": 1},
				{"replicas": 2},
				{"replicas": 3},
			},
			expected: Values{"replicas": 3},
		},
		{
			name: "nested maps merge key by key",
			input: []Values{
				{"controller": Values{"nginxplus": false, "kind": "deployment"}},
				{"controller": map[string]any{"replicaCount": 2}},
			},
			expected: Values{"controller": Values{"nginxplus": false, "kind": "deployment", "replicaCount": 2}},
		},
		{
			name: "override wins over nested defaults",
			input: []Values{
				{"controller": Values{"nginxplus": false}},
				{"controller": Values{"nginxplus": true}},
			},
			expected: Values{"controller": Values{"nginxplus": true}},
		},
		{
			name: "scalar replaces map",
			input: []Values{
				{"service": Values{"type": "LoadBalancer"}},
				{"service": "none"},
			},
			expected: Values{"service": "none"},
		},
		{
			name:     "empty",
			input:    []Values{{}, nil},
			expected: Values{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, Merge(tt.input...))
		})
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	base := Values{"controller": Values{"nginxplus": false}}
	_ = Merge(base, Values{"controller": Values{"replicaCount": 3}})

	assert.Equal(t, Values{"controller": Values{"nginxplus": false}}, base)
}

func TestToMap(t *testing.T) {
	t.Parallel()

	v := Values{
		"controller": Values{
			"tolerations": []Values{{"key": "a"}},
			"extra":       []any{Values{"k": "v"}, "plain"},
		},
	}

	m := v.ToMap()
	controller, ok := m["controller"].(map[string]any)
	require.True(t, ok, "nested Values must become plain maps")

	tolerations, ok := controller["tolerations"].([]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"key": "a"}, tolerations[0])

	extra := controller["extra"].([]any)
	assert.Equal(t, map[string]any{"k": "v"}, extra[0])
	assert.Equal(t, "plain", extra[1])
}

func TestToYAMLAndFromYAML(t *testing.T) {
	t.Parallel()

	values := Values{
		"controller": Values{
			"nginxplus": false,
			"image":     Values{"tag": "4.0.1"},
		},
	}

	data, err := values.ToYAML()
	require.NoError(t, err)
	assert.Contains(t, string(data), "nginxplus: false")
	assert.Contains(t, string(data), "tag: 4.0.1")

	parsed, err := FromYAML(data)
	require.NoError(t, err)
	controller := parsed["controller"].(map[string]any)
	assert.Equal(t, false, controller["nginxplus"])
}

func TestFromYAML(t *testing.T) {
	t.Parallel()

	empty, err := FromYAML(nil)
	require.NoError(t, err)
	assert.Equal(t, Values{}, empty)

	_, err = FromYAML([]byte("controller: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML values")
}
