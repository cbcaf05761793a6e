// internal/models/roles.go
package models

// UserRole is the role a user holds on the platform.
type UserRole string

const (
	RoleCitizen       UserRole = "CITIZEN"
	RoleLGAOfficial   UserRole = "LGA_OFFICIAL"
	RoleStateOfficial UserRole = "STATE_OFFICIAL"
	RoleGovtHouse     UserRole = "GOVT_HOUSE"
	RoleAssembly      UserRole = "ASSEMBLY"
	RoleAdmin         UserRole = "ADMIN"
)

// Permission names a single guarded capability.
type Permission string

const (
	PermissionUpdateReportStatus   Permission = "reports.update_status"
	PermissionAssignReports        Permission = "reports.assign"
	PermissionViewAllReports       Permission = "reports.view_all"
	PermissionViewStatistics       Permission = "reports.view_statistics"
	PermissionReviewProposals      Permission = "proposals.review"
	PermissionProcessServiceReqs   Permission = "services.process_requests"
	PermissionManageServices       Permission = "services.manage"
	PermissionSendBulkSMS          Permission = "messaging.send_sms"
	PermissionManageUsers          Permission = "users.manage"
	PermissionViewAuditLog         Permission = "audit.view"
)

// rolePermissions maps each role to what it may do. Admin is handled
// separately: it holds every permission.
var rolePermissions = map[UserRole][]Permission{
	RoleCitizen: {},
	RoleLGAOfficial: {
		PermissionUpdateReportStatus,
		PermissionViewStatistics,
		PermissionProcessServiceReqs,
	},
	RoleStateOfficial: {
		PermissionUpdateReportStatus,
		PermissionAssignReports,
		PermissionViewAllReports,
		PermissionViewStatistics,
		PermissionProcessServiceReqs,
		PermissionManageServices,
		PermissionSendBulkSMS,
	},
	RoleGovtHouse: {
		PermissionViewAllReports,
		PermissionViewStatistics,
		PermissionReviewProposals,
	},
	RoleAssembly: {
		PermissionViewAllReports,
		PermissionViewStatistics,
		PermissionReviewProposals,
	},
}

var roleHierarchy = map[UserRole]int{
	RoleCitizen:       0,
	RoleLGAOfficial:   1,
	RoleAssembly:      2,
	RoleGovtHouse:     2,
	RoleStateOfficial: 3,
	RoleAdmin:         4,
}

func (r UserRole) IsValid() bool {
	_, ok := roleHierarchy[r]
	return ok
}

func (r UserRole) String() string {
	return string(r)
}

// HasPermission reports whether the role holds the given permission.
func (r UserRole) HasPermission(p Permission) bool {
	if r == RoleAdmin {
		return true
	}
	for _, held := range rolePermissions[r] {
		if held == p {
			return true
		}
	}
	return false
}

// IsHigherOrEqual compares role levels in the hierarchy.
func (r UserRole) IsHigherOrEqual(target UserRole) bool {
	current, ok1 := roleHierarchy[r]
	required, ok2 := roleHierarchy[target]
	if !ok1 || !ok2 {
		return false
	}
	return current >= required
}

// CanManageUser reports whether this role may administer users of the target
// role. Only admins manage other users, and never other admins.
func (r UserRole) CanManageUser(target UserRole) bool {
	return r == RoleAdmin && target != RoleAdmin
}

func AllRoles() []UserRole {
	return []UserRole{
		RoleCitizen,
		RoleLGAOfficial,
		RoleStateOfficial,
		RoleGovtHouse,
		RoleAssembly,
		RoleAdmin,
	}
}

// RoleFromString converts a string to a UserRole. Unknown strings map to
// CITIZEN, the least privileged role.
func RoleFromString(role string) UserRole {
	r := UserRole(role)
	if r.IsValid() {
		return r
	}
	return RoleCitizen
}
