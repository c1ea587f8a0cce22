package permission

import (
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// Enforcer answers role → permission questions. Role membership itself comes
// from the admin roster, so only the policy table lives in casbin.
type Enforcer struct {
	enforcer *casbin.Enforcer
	mu       sync.RWMutex
	logger   logger.Interface
}

func NewEnforcer(log logger.Interface) (*Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	e := &Enforcer{enforcer: enforcer, logger: log}
	if err := e.loadDefaults(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Enforcer) loadDefaults() error {
	for _, p := range defaultPolicies {
		if _, err := e.enforcer.AddPolicy(p.role.String(), p.perm.Resource, p.perm.Action); err != nil {
			return fmt.Errorf("failed to add policy %v: %w", p, err)
		}
	}
	for _, g := range defaultInheritance {
		if _, err := e.enforcer.AddGroupingPolicy(g[0], g[1]); err != nil {
			return fmt.Errorf("failed to add role inheritance %v: %w", g, err)
		}
	}
	return nil
}

// Enforce reports whether role may perform action on resource.
func (e *Enforcer) Enforce(role, resource, action string) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	allowed, err := e.enforcer.Enforce(role, resource, action)
	if err != nil {
		e.logger.Errorw("permission check failed", "error", err, "role", role, "resource", resource, "action", action)
		return false, fmt.Errorf("permission check failed: %w", err)
	}
	return allowed, nil
}

func (e *Enforcer) PermissionsForRole(role string) ([][]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	perms, err := e.enforcer.GetImplicitPermissionsForUser(role)
	if err != nil {
		return nil, fmt.Errorf("failed to get permissions for role: %w", err)
	}
	return perms, nil
}
