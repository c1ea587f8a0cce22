package permission

import "github.com/orris-inc/gatekeeper/internal/domain/admin"

// super_admin inherits every admin permission.
var defaultInheritance = [][2]string{
	{admin.RoleSuperAdmin.String(), admin.RoleAdmin.String()},
}

var defaultPolicies = []struct {
	role admin.Role
	perm admin.Permission
}{
	{admin.RoleAdmin, admin.PermDecideAdmission},
	{admin.RoleAdmin, admin.PermTriageTickets},
	{admin.RoleAdmin, admin.PermViewStats},
	{admin.RoleSuperAdmin, admin.PermManageRoster},
	{admin.RoleSuperAdmin, admin.PermExportMembers},
}
