// internal/models/roles_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role       UserRole
		permission Permission
		want       bool
	}{
		{RoleCitizen, PermissionUpdateReportStatus, false},
		{RoleCitizen, PermissionViewStatistics, false},
		{RoleLGAOfficial, PermissionUpdateReportStatus, true},
		{RoleLGAOfficial, PermissionAssignReports, false},
		{RoleLGAOfficial, PermissionReviewProposals, false},
		{RoleStateOfficial, PermissionAssignReports, true},
		{RoleStateOfficial, PermissionManageServices, true},
		{RoleStateOfficial, PermissionReviewProposals, false},
		{RoleStateOfficial, PermissionManageUsers, false},
		{RoleAssembly, PermissionReviewProposals, true},
		{RoleAssembly, PermissionUpdateReportStatus, false},
		{RoleGovtHouse, PermissionReviewProposals, true},
		{RoleGovtHouse, PermissionViewAllReports, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.role.HasPermission(tt.permission),
			"%s / %s", tt.role, tt.permission)
	}
}

func TestAdminHasEveryPermission(t *testing.T) {
	permissions := []Permission{
		PermissionUpdateReportStatus,
		PermissionAssignReports,
		PermissionViewAllReports,
		PermissionViewStatistics,
		PermissionReviewProposals,
		PermissionProcessServiceReqs,
		PermissionManageServices,
		PermissionSendBulkSMS,
		PermissionManageUsers,
		PermissionViewAuditLog,
	}
	for _, p := range permissions {
		assert.True(t, RoleAdmin.HasPermission(p), string(p))
	}
}

func TestCanManageUser(t *testing.T) {
	assert.True(t, RoleAdmin.CanManageUser(RoleCitizen))
	assert.True(t, RoleAdmin.CanManageUser(RoleStateOfficial))
	assert.False(t, RoleAdmin.CanManageUser(RoleAdmin))
	assert.False(t, RoleStateOfficial.CanManageUser(RoleCitizen))
	assert.False(t, RoleCitizen.CanManageUser(RoleCitizen))
}

func TestIsHigherOrEqual(t *testing.T) {
	assert.True(t, RoleAdmin.IsHigherOrEqual(RoleStateOfficial))
	assert.True(t, RoleStateOfficial.IsHigherOrEqual(RoleLGAOfficial))
	assert.True(t, RoleAssembly.IsHigherOrEqual(RoleGovtHouse))
	assert.True(t, RoleGovtHouse.IsHigherOrEqual(RoleAssembly))
	assert.False(t, RoleCitizen.IsHigherOrEqual(RoleLGAOfficial))
	assert.False(t, RoleCitizen.IsHigherOrEqual("NO_SUCH_ROLE"))
}

func TestRoleFromString(t *testing.T) {
	assert.Equal(t, RoleAdmin, RoleFromString("ADMIN"))
	assert.Equal(t, RoleLGAOfficial, RoleFromString("LGA_OFFICIAL"))
	// Unknown input degrades to the least privileged role.
	assert.Equal(t, RoleCitizen, RoleFromString("SUPERUSER"))
	assert.Equal(t, RoleCitizen, RoleFromString(""))
	assert.Equal(t, RoleCitizen, RoleFromString("admin"))
}

func TestIsValid(t *testing.T) {
	for _, role := range AllRoles() {
		assert.True(t, role.IsValid(), string(role))
	}
	assert.False(t, UserRole("MAYOR").IsValid())
}
