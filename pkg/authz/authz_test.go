package authz

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/workboard-backend/pkg/auth"
	"github.com/angelmondragon/workboard-backend/pkg/config"
	"github.com/angelmondragon/workboard-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/workboard-backend/pkg/errors"
)

func principal(role enums.MemberRole) auth.Principal {
	return auth.Principal{UserID: uuid.New(), OrganizationID: uuid.New(), Role: role}
}

func TestDefaultPolicyMatrix(t *testing.T) {
	svc, err := NewService(config.AuthzConfig{}, nil)
	require.NoError(t, err)

	cases := []struct {
		role   enums.MemberRole
		action enums.PermissionAction
		allow  bool
	}{
		{enums.MemberRoleOwner, enums.ActionDelete, true},
		{enums.MemberRoleAdmin, enums.ActionCreate, true},
		{enums.MemberRoleManager, enums.ActionUpdate, true},
		{enums.MemberRoleTechnician, enums.ActionRead, true},
		{enums.MemberRoleTechnician, enums.ActionUpdate, true},
		{enums.MemberRoleTechnician, enums.ActionDelete, false},
		{enums.MemberRoleViewer, enums.ActionRead, true},
		{enums.MemberRoleViewer, enums.ActionCreate, false},
	}
	for _, tc := range cases {
		err := svc.Authorize(context.Background(), principal(tc.role), tc.action)
		if tc.allow {
			require.NoError(t, err, "%s %s", tc.role, tc.action)
			continue
		}
		require.Error(t, err, "%s %s", tc.role, tc.action)
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	}
}

func TestAuthorizeRejectsUnknownRole(t *testing.T) {
	svc, err := NewService(config.AuthzConfig{}, nil)
	require.NoError(t, err)

	err = svc.Authorize(context.Background(), principal("intern"), enums.ActionRead)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestNewServiceFromFiles(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.conf")
	policyPath := filepath.Join(dir, "policy.csv")
	require.NoError(t, os.WriteFile(modelPath, []byte(DefaultModel), 0o644))
	require.NoError(t, os.WriteFile(policyPath, []byte("p, viewer, workboard, *\n"), 0o644))

	svc, err := NewService(config.AuthzConfig{ModelPath: modelPath, PolicyPath: policyPath}, nil)
	require.NoError(t, err)

	require.NoError(t, svc.Authorize(context.Background(), principal(enums.MemberRoleViewer), enums.ActionDelete))
	require.Error(t, svc.Authorize(context.Background(), principal(enums.MemberRoleOwner), enums.ActionRead))
	require.NoError(t, svc.ReloadPolicy(context.Background()))
}

func TestNewServiceRequiresBothPaths(t *testing.T) {
	_, err := NewService(config.AuthzConfig{ModelPath: "model.conf"}, nil)
	require.Error(t, err)
}
