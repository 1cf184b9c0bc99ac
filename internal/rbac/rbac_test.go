package rbac

import (
	"testing"

	"github.com/ncecere/attendance/backend/internal/db"
)

func TestParseRole(t *testing.T) {
	if role, ok := ParseRole(" Manager "); !ok || role != db.UserRoleManager {
		t.Fatalf("expected manager, got %q %v", role, ok)
	}
	if _, ok := ParseRole("owner"); ok {
		t.Fatalf("owner should not parse")
	}
}

func TestAtLeast(t *testing.T) {
	if !AtLeast(db.UserRoleAdmin, db.UserRoleManager) {
		t.Fatalf("admin should outrank manager")
	}
	if AtLeast(db.UserRoleEmployee, db.UserRoleManager) {
		t.Fatalf("employee should not reach manager")
	}
	if AtLeast(db.UserRole("ghost"), db.UserRole("ghost")) {
		t.Fatalf("unknown roles should never pass")
	}
}

func TestPermissionTable(t *testing.T) {
	cases := []struct {
		role    db.UserRole
		perm    Permission
		allowed bool
	}{
		{db.UserRoleEmployee, PermSelfAttendance, true},
		{db.UserRoleEmployee, PermKPIRead, false},
		{db.UserRoleManager, PermAttendanceReadAll, true},
		{db.UserRoleManager, PermReportsExport, true},
		{db.UserRoleManager, PermUsersManage, false},
		{db.UserRoleManager, PermAttendanceEdit, false},
		{db.UserRoleAdmin, PermActivityRead, true},
		{db.UserRoleAdmin, Permission("unknown"), false},
	}
	for _, tc := range cases {
		if got := Allowed(tc.role, tc.perm); got != tc.allowed {
			t.Fatalf("%s/%s: expected %v, got %v", tc.role, tc.perm, tc.allowed, got)
		}
	}
	if err := Ensure(db.UserRoleEmployee, PermUsersManage); err != ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if got := len(Permissions(db.UserRoleAdmin)); got != 7 {
		t.Fatalf("admin should hold every permission, got %d", got)
	}
	if got := Permissions(db.UserRoleEmployee); len(got) != 1 || got[0] != PermSelfAttendance {
		t.Fatalf("unexpected employee permissions %v", got)
	}
}
