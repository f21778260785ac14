package realm

import (
	"fmt"

	"github.com/secctx/go-core/internal/cel"
	"github.com/secctx/go-core/pkg/types"
)

// DerivedRole grants an additional role when its condition holds for the
// authenticated account. ParentRoles, when set, restrict the rule to
// accounts already holding at least one of the listed roles.
type DerivedRole struct {
	Name        string   `yaml:"name"`
	ParentRoles []string `yaml:"parent_roles,omitempty"`
	Condition   string   `yaml:"condition"`
}

// ResolveDerivedRoles returns the account's roles extended with every
// derived role whose condition evaluates to true. The input account is not
// modified; already held roles are never duplicated.
func ResolveDerivedRoles(engine *cel.Engine, acct *types.Account, rules []DerivedRole) ([]string, error) {
	roles := append([]string(nil), acct.Roles...)
	if len(rules) == 0 {
		return roles, nil
	}

	held := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		held[r] = struct{}{}
	}

	for _, rule := range rules {
		if _, ok := held[rule.Name]; ok {
			continue
		}
		if !matchesParent(held, rule.ParentRoles) {
			continue
		}

		prog, err := engine.Compile(rule.Condition)
		if err != nil {
			return nil, fmt.Errorf("derived role %q: %w", rule.Name, err)
		}
		granted, err := engine.EvaluateBool(prog, acct.Attributes, acct.Roles)
		if err != nil {
			return nil, fmt.Errorf("derived role %q: %w", rule.Name, err)
		}
		if granted {
			roles = append(roles, rule.Name)
			held[rule.Name] = struct{}{}
		}
	}
	return roles, nil
}

func matchesParent(held map[string]struct{}, parents []string) bool {
	if len(parents) == 0 {
		return true
	}
	for _, p := range parents {
		if _, ok := held[p]; ok {
			return true
		}
	}
	return false
}
