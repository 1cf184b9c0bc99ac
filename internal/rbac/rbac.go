package rbac

import (
	"errors"
	"strings"

	"github.com/ncecere/attendance/backend/internal/db"
)

type RoleRank int

var roleOrder = map[db.UserRole]RoleRank{
	db.UserRoleAdmin:    3,
	db.UserRoleManager:  2,
	db.UserRoleEmployee: 1,
}

// ParseRole converts a case-insensitive string to UserRole.
func ParseRole(value string) (db.UserRole, bool) {
	role := db.UserRole(strings.ToLower(strings.TrimSpace(value)))
	if !role.Valid() {
		return "", false
	}
	return role, true
}

// AtLeast returns true if current role is >= required role.
func AtLeast(current, required db.UserRole) bool {
	return roleOrder[current] >= roleOrder[required] && roleOrder[current] > 0
}

var ErrForbidden = errors.New("forbidden")

type Permission string

const (
	PermSelfAttendance    Permission = "attendance:self"
	PermAttendanceReadAll Permission = "attendance:read_all"
	PermAttendanceEdit    Permission = "attendance:edit"
	PermKPIRead           Permission = "kpi:read"
	PermActivityRead      Permission = "activity:read"
	PermReportsExport     Permission = "reports:export"
	PermUsersManage       Permission = "users:manage"
)

// minimumRole lists the lowest role holding each permission.
var minimumRole = map[Permission]db.UserRole{
	PermSelfAttendance:    db.UserRoleEmployee,
	PermAttendanceReadAll: db.UserRoleManager,
	PermKPIRead:           db.UserRoleManager,
	PermReportsExport:     db.UserRoleManager,
	PermAttendanceEdit:    db.UserRoleAdmin,
	PermActivityRead:      db.UserRoleAdmin,
	PermUsersManage:       db.UserRoleAdmin,
}

// Allowed reports whether role holds perm. Unknown permissions are denied.
func Allowed(role db.UserRole, perm Permission) bool {
	required, ok := minimumRole[perm]
	if !ok {
		return false
	}
	return AtLeast(role, required)
}

// Ensure returns ErrForbidden unless role holds perm.
func Ensure(role db.UserRole, perm Permission) error {
	if !Allowed(role, perm) {
		return ErrForbidden
	}
	return nil
}

// Permissions lists every permission role holds, in a stable order.
func Permissions(role db.UserRole) []Permission {
	all := []Permission{
		PermSelfAttendance,
		PermAttendanceReadAll,
		PermAttendanceEdit,
		PermKPIRead,
		PermActivityRead,
		PermReportsExport,
		PermUsersManage,
	}
	out := make([]Permission, 0, len(all))
	for _, p := range all {
		if Allowed(role, p) {
			out = append(out, p)
		}
	}
	return out
}
