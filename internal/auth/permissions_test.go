package auth

import "testing"

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleViewer, PermRunRead, true},
		{RoleViewer, PermRunWatch, true},
		{RoleViewer, PermRunDelete, false},
		{RoleAdmin, PermRunRead, true},
		{RoleAdmin, PermRunWatch, true},
		{RoleAdmin, PermRunDelete, true},
		{RoleViewer, PermAuditRead, false},
		{RoleAdmin, PermAuditRead, true},
		{Role("unknown"), PermRunRead, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.perm), func(t *testing.T) {
			if got := HasPermission(tt.role, tt.perm); got != tt.want {
				t.Errorf("HasPermission(%s, %s) = %v, want %v", tt.role, tt.perm, got, tt.want)
			}
		})
	}
}

func TestIsValidRole(t *testing.T) {
	for _, r := range ValidRoles {
		if !IsValidRole(r) {
			t.Errorf("IsValidRole(%q) = false", r)
		}
	}
	if IsValidRole("owner") {
		t.Error(`IsValidRole("owner") = true, want false`)
	}
}
