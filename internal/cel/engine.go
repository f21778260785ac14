// Package cel provides CEL expression compilation and evaluation for
// derived-role conditions
package cel

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	celtypes "github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

// Engine compiles and evaluates boolean CEL expressions over a subject's
// account attributes and base roles
type Engine struct {
	env      *cel.Env
	programs sync.Map // map[string]cel.Program - compiled program cache
}

// NewEngine creates a CEL engine exposing the account evaluation variables:
//
//	attributes  map of realm-provided account attributes
//	roles       list of roles granted by the realm
//	hasRole(roles, r)  membership helper
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("attributes", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("roles", cel.ListType(cel.StringType)),
		cel.Function("hasRole",
			cel.Overload("hasRole_list_string",
				[]*cel.Type{cel.ListType(cel.StringType), cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(hasRoleImpl),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{env: env}, nil
}

// Compile compiles a CEL expression and caches the result
func (e *Engine) Compile(expr string) (cel.Program, error) {
	if prog, ok := e.programs.Load(expr); ok {
		return prog.(cel.Program), nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compilation failed: %w", issues.Err())
	}

	prog, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("CEL program creation failed: %w", err)
	}

	e.programs.Store(expr, prog)
	return prog, nil
}

// EvaluateBool evaluates a compiled program against the given attributes
// and roles. A non-boolean result is an error.
func (e *Engine) EvaluateBool(prog cel.Program, attributes map[string]interface{}, roles []string) (bool, error) {
	if attributes == nil {
		attributes = map[string]interface{}{}
	}
	if roles == nil {
		roles = []string{}
	}

	out, _, err := prog.Eval(map[string]interface{}{
		"attributes": attributes,
		"roles":      roles,
	})
	if err != nil {
		return false, fmt.Errorf("CEL evaluation failed: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression returned %T, expected bool", out.Value())
	}
	return result, nil
}

func hasRoleImpl(roles, role ref.Val) ref.Val {
	list, ok := roles.(traits.Lister)
	if !ok {
		return celtypes.False
	}
	it := list.Iterator()
	for it.HasNext() == celtypes.True {
		if it.Next().Equal(role) == celtypes.True {
			return celtypes.True
		}
	}
	return celtypes.False
}
