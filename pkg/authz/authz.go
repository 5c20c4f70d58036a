package authz

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/angelmondragon/workboard-backend/pkg/auth"
	"github.com/angelmondragon/workboard-backend/pkg/config"
	"github.com/angelmondragon/workboard-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/workboard-backend/pkg/errors"
	"github.com/angelmondragon/workboard-backend/pkg/logger"
)

const actionWildcard = "*"

// DefaultModel is a role based model: the member role is the subject and a
// policy row grants one action (or every action) on one object.
const DefaultModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && (r.act == p.act || p.act == "*")
`

// DefaultPolicies grants board access per member role when no policy file
// is configured.
func DefaultPolicies() [][]string {
	board := enums.PermissionSubjectWorkboard
	return [][]string{
		{string(enums.MemberRoleOwner), board, actionWildcard},
		{string(enums.MemberRoleAdmin), board, actionWildcard},
		{string(enums.MemberRoleManager), board, actionWildcard},
		{string(enums.MemberRoleTechnician), board, string(enums.ActionRead)},
		{string(enums.MemberRoleTechnician), board, string(enums.ActionUpdate)},
		{string(enums.MemberRoleViewer), board, string(enums.ActionRead)},
	}
}

// Authorizer decides whether a principal may perform an action on the board.
type Authorizer interface {
	Authorize(ctx context.Context, principal auth.Principal, action enums.PermissionAction) error
}

// Service enforces board permissions with casbin.
type Service struct {
	enforcer *casbin.Enforcer
	logg     *logger.Logger
	mu       sync.RWMutex
}

// NewService builds the enforcer from the configured model/policy files, or
// from the built-in model and role policies when none are set.
func NewService(cfg config.AuthzConfig, logg *logger.Logger) (*Service, error) {
	var (
		enf *casbin.Enforcer
		err error
	)
	modelPath := strings.TrimSpace(cfg.ModelPath)
	policyPath := strings.TrimSpace(cfg.PolicyPath)

	switch {
	case modelPath != "" && policyPath != "":
		enf, err = casbin.NewEnforcer(modelPath, fileadapter.NewAdapter(policyPath))
		if err != nil {
			return nil, fmt.Errorf("authz: failed to initialize enforcer: %w", err)
		}
		if err := enf.LoadPolicy(); err != nil {
			return nil, fmt.Errorf("authz: failed to load policies: %w", err)
		}
	case modelPath == "" && policyPath == "":
		m, mErr := model.NewModelFromString(DefaultModel)
		if mErr != nil {
			return nil, fmt.Errorf("authz: parse default model: %w", mErr)
		}
		enf, err = casbin.NewEnforcer(m)
		if err != nil {
			return nil, fmt.Errorf("authz: failed to initialize enforcer: %w", err)
		}
		if _, err := enf.AddPolicies(DefaultPolicies()); err != nil {
			return nil, fmt.Errorf("authz: load default policies: %w", err)
		}
	default:
		return nil, fmt.Errorf("authz: model path and policy path must be set together")
	}

	return &Service{enforcer: enf, logg: logg.Named("authz")}, nil
}

// Check evaluates a request without returning an authorization error.
func (s *Service) Check(role enums.MemberRole, action enums.PermissionAction) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ok, err := s.enforcer.Enforce(string(role), enums.PermissionSubjectWorkboard, string(action))
	if err != nil {
		return false, fmt.Errorf("authz: enforce failed: %w", err)
	}
	return ok, nil
}

// Authorize returns a FORBIDDEN error if the principal's role does not hold
// action on the board.
func (s *Service) Authorize(ctx context.Context, principal auth.Principal, action enums.PermissionAction) error {
	if !action.IsValid() {
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unknown permission action %q", action))
	}
	if !principal.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient permissions")
	}
	allowed, err := s.Check(principal.Role, action)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "authorization check failed")
	}
	if !allowed {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"role":   principal.Role,
				"action": action,
			}), "authz denied request")
		}
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient permissions").
			WithDetails(map[string]any{"action": action})
	}
	return nil
}

// ReloadPolicy reloads policy rows from the configured adapter.
func (s *Service) ReloadPolicy(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enforcer.LoadPolicy(); err != nil {
		return fmt.Errorf("authz: reload policy failed: %w", err)
	}
	if s.logg != nil {
		s.logg.Info(ctx, "authz policy reloaded")
	}
	return nil
}
