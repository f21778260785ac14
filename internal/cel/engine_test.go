package cel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	assert.NotNil(t, engine)
}

func TestCompileAndEvaluate(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	tests := []struct {
		name       string
		expr       string
		attributes map[string]interface{}
		roles      []string
		want       bool
	}{
		{
			name:       "attribute equality",
			expr:       `attributes.department == "engineering"`,
			attributes: map[string]interface{}{"department": "engineering"},
			want:       true,
		},
		{
			name:       "attribute mismatch",
			expr:       `attributes.department == "engineering"`,
			attributes: map[string]interface{}{"department": "sales"},
			want:       false,
		},
		{
			name:  "role membership via hasRole",
			expr:  `hasRole(roles, "manager")`,
			roles: []string{"employee", "manager"},
			want:  true,
		},
		{
			name:  "role absent",
			expr:  `hasRole(roles, "admin")`,
			roles: []string{"employee"},
			want:  false,
		},
		{
			name:  "role membership via in operator",
			expr:  `"employee" in roles`,
			roles: []string{"employee"},
			want:  true,
		},
		{
			name:       "compound condition",
			expr:       `attributes.clearance >= 3 && hasRole(roles, "analyst")`,
			attributes: map[string]interface{}{"clearance": 4},
			roles:      []string{"analyst"},
			want:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := engine.Compile(tt.expr)
			require.NoError(t, err)

			got, err := engine.EvaluateBool(prog, tt.attributes, tt.roles)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompile_Invalid(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	_, err = engine.Compile(`attributes.department ==`)
	assert.Error(t, err)
}

func TestEvaluateBool_NonBoolResult(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	prog, err := engine.Compile(`attributes.department`)
	require.NoError(t, err)

	_, err = engine.EvaluateBool(prog, map[string]interface{}{"department": "eng"}, nil)
	assert.Error(t, err)
}

func TestEvaluateBool_NilInputs(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	prog, err := engine.Compile(`hasRole(roles, "admin")`)
	require.NoError(t, err)

	got, err := engine.EvaluateBool(prog, nil, nil)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestCompile_CachesPrograms(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	p1, err := engine.Compile(`hasRole(roles, "admin")`)
	require.NoError(t, err)
	p2, err := engine.Compile(`hasRole(roles, "admin")`)
	require.NoError(t, err)

	assert.Equal(t, p1, p2)
}
