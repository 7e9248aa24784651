package service

import (
	"errors"
	"sort"
	"testing"

	"github.com/bincms/bincms/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testSetup(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(&models.Role{}, &models.Permission{}, &models.RolePermission{}, &models.Menu{}, &models.Member{})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedPermission(t *testing.T, db *gorm.DB, code string) models.Permission {
	t.Helper()
	perm := models.Permission{
		PermCode:  code,
		PermName:  code,
		PermGroup: models.PermGroupMenu,
		UseYn:     models.FlagYes,
	}
	if err := db.Create(&perm).Error; err != nil {
		t.Fatalf("seed permission %s: %v", code, err)
	}
	return perm
}

func TestCreateRole(t *testing.T) {
	db := testSetup(t)
	seedPermission(t, db, "MENU_DASHBOARD")
	seedPermission(t, db, "MENU_POST")
	svc := NewRoleService(db)

	role, err := svc.CreateRole("tester", CreateRoleInput{
		RoleCode:        "EDITOR",
		RoleName:        "Editor",
		SortOrder:       10,
		PermissionCodes: []string{"MENU_DASHBOARD", "MENU_POST"},
	})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if role.UseYn != models.FlagYes {
		t.Errorf("new role UseYn = %q, want %q", role.UseYn, models.FlagYes)
	}
	if role.Audit.CreatedBy != "tester" {
		t.Errorf("CreatedBy = %q, want tester", role.Audit.CreatedBy)
	}

	codes, err := svc.ResolvePermissions("EDITOR")
	if err != nil {
		t.Fatalf("ResolvePermissions: %v", err)
	}
	sort.Strings(codes)
	want := []string{"MENU_DASHBOARD", "MENU_POST"}
	if len(codes) != len(want) {
		t.Fatalf("resolved %v, want %v", codes, want)
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("resolved %v, want %v", codes, want)
			break
		}
	}
}

func TestCreateRole_DuplicateCode(t *testing.T) {
	db := testSetup(t)
	svc := NewRoleService(db)

	if _, err := svc.CreateRole("tester", CreateRoleInput{RoleCode: "EDITOR", RoleName: "Editor"}); err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	_, err := svc.CreateRole("tester", CreateRoleInput{RoleCode: "EDITOR", RoleName: "Other"})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want ConflictError", err)
	}
}

func TestCreateRole_UnknownPermissionRollsBack(t *testing.T) {
	db := testSetup(t)
	seedPermission(t, db, "MENU_DASHBOARD")
	svc := NewRoleService(db)

	_, err := svc.CreateRole("tester", CreateRoleInput{
		RoleCode:        "EDITOR",
		RoleName:        "Editor",
		PermissionCodes: []string{"MENU_DASHBOARD", "NO_SUCH_PERM"},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	// The whole create must have been rolled back.
	var count int64
	db.Model(&models.Role{}).Where("role_code = ?", "EDITOR").Count(&count)
	if count != 0 {
		t.Error("role persisted despite failed grant assignment")
	}
	db.Model(&models.RolePermission{}).Count(&count)
	if count != 0 {
		t.Error("partial grants persisted despite rollback")
	}
}

func TestResolvePermissions_EmptyAndUnknownRole(t *testing.T) {
	db := testSetup(t)
	svc := NewRoleService(db)

	if _, err := svc.CreateRole("tester", CreateRoleInput{RoleCode: "EMPTY", RoleName: "Empty"}); err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	codes, err := svc.ResolvePermissions("EMPTY")
	if err != nil {
		t.Fatalf("ResolvePermissions: %v", err)
	}
	if codes == nil || len(codes) != 0 {
		t.Errorf("codes = %#v, want empty non-nil slice", codes)
	}

	codes, err = svc.ResolvePermissions("NO_SUCH_ROLE")
	if err != nil {
		t.Fatalf("ResolvePermissions unknown role: %v", err)
	}
	if len(codes) != 0 {
		t.Errorf("unknown role resolved %v, want empty", codes)
	}
}

func TestUpdateRole_GrantReplacement(t *testing.T) {
	db := testSetup(t)
	seedPermission(t, db, "MENU_DASHBOARD")
	seedPermission(t, db, "MENU_POST")
	seedPermission(t, db, "DATA_READ")
	svc := NewRoleService(db)

	role, err := svc.CreateRole("tester", CreateRoleInput{
		RoleCode:        "EDITOR",
		RoleName:        "Editor",
		PermissionCodes: []string{"MENU_DASHBOARD", "MENU_POST"},
	})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}

	// Nil PermissionCodes leaves the grant set untouched.
	updated, err := svc.UpdateRole("tester", role.ID, UpdateRoleInput{RoleName: "Renamed"})
	if err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	if updated.RoleName != "Renamed" {
		t.Errorf("RoleName = %q, want Renamed", updated.RoleName)
	}
	if len(updated.PermissionCodes) != 2 {
		t.Errorf("grants after nil update = %v, want 2 entries", updated.PermissionCodes)
	}

	// A non-nil set replaces the grants wholesale.
	replacement := []string{"DATA_READ"}
	updated, err = svc.UpdateRole("tester", role.ID, UpdateRoleInput{RoleName: "Renamed", PermissionCodes: &replacement})
	if err != nil {
		t.Fatalf("UpdateRole replace: %v", err)
	}
	if len(updated.PermissionCodes) != 1 || updated.PermissionCodes[0] != "DATA_READ" {
		t.Errorf("grants after replace = %v, want [DATA_READ]", updated.PermissionCodes)
	}

	// An explicit empty set clears everything.
	empty := []string{}
	updated, err = svc.UpdateRole("tester", role.ID, UpdateRoleInput{RoleName: "Renamed", PermissionCodes: &empty})
	if err != nil {
		t.Fatalf("UpdateRole clear: %v", err)
	}
	if len(updated.PermissionCodes) != 0 {
		t.Errorf("grants after clear = %v, want none", updated.PermissionCodes)
	}
}

func TestDeactivateRole_ProtectedRejected(t *testing.T) {
	db := testSetup(t)
	svc := NewRoleService(db)

	role, err := svc.CreateRole("tester", CreateRoleInput{RoleCode: models.RoleCodeSystemAdmin, RoleName: "System Admin"})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	_, err = svc.DeactivateRole("tester", role.ID)
	var policy *PolicyError
	if !errors.As(err, &policy) {
		t.Fatalf("err = %v, want PolicyError", err)
	}

	// Activation of a protected role is always allowed.
	if _, err := svc.ActivateRole("tester", role.ID); err != nil {
		t.Fatalf("ActivateRole: %v", err)
	}
}

func TestDeleteRole(t *testing.T) {
	db := testSetup(t)
	seedPermission(t, db, "MENU_DASHBOARD")
	svc := NewRoleService(db)

	role, err := svc.CreateRole("tester", CreateRoleInput{
		RoleCode:        "EDITOR",
		RoleName:        "Editor",
		PermissionCodes: []string{"MENU_DASHBOARD"},
	})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if err := svc.DeleteRole(role.ID); err != nil {
		t.Fatalf("DeleteRole: %v", err)
	}

	var count int64
	db.Model(&models.RolePermission{}).Where("role_id = ?", role.ID).Count(&count)
	if count != 0 {
		t.Error("grants survived role deletion")
	}
	if _, err := svc.GetRole(role.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRole after delete = %v, want ErrNotFound", err)
	}
}

func TestDeleteRole_ProtectedRejected(t *testing.T) {
	db := testSetup(t)
	svc := NewRoleService(db)

	role, err := svc.CreateRole("tester", CreateRoleInput{RoleCode: models.RoleCodeUser, RoleName: "User"})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	err = svc.DeleteRole(role.ID)
	var policy *PolicyError
	if !errors.As(err, &policy) {
		t.Fatalf("err = %v, want PolicyError", err)
	}
}

func TestDeleteRole_ReferencedByMember(t *testing.T) {
	db := testSetup(t)
	svc := NewRoleService(db)

	role, err := svc.CreateRole("tester", CreateRoleInput{RoleCode: "EDITOR", RoleName: "Editor"})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	member := models.Member{LoginID: "alice", Password: "x", Name: "Alice", RoleID: role.ID}
	if err := db.Create(&member).Error; err != nil {
		t.Fatalf("create member: %v", err)
	}

	err = svc.DeleteRole(role.ID)
	var policy *PolicyError
	if !errors.As(err, &policy) {
		t.Fatalf("err = %v, want PolicyError", err)
	}
	if _, err := svc.GetRole(role.ID); err != nil {
		t.Errorf("role must survive rejected delete: %v", err)
	}
}

func TestListAdminRoles_ExcludesUserAndInactive(t *testing.T) {
	db := testSetup(t)
	svc := NewRoleService(db)

	for _, in := range []CreateRoleInput{
		{RoleCode: models.RoleCodeUser, RoleName: "User", SortOrder: 4},
		{RoleCode: models.RoleCodeSystemAdmin, RoleName: "System Admin", SortOrder: 1},
		{RoleCode: "EDITOR", RoleName: "Editor", SortOrder: 2},
	} {
		if _, err := svc.CreateRole("tester", in); err != nil {
			t.Fatalf("CreateRole %s: %v", in.RoleCode, err)
		}
	}
	editor, err := svc.GetRoleByCode("EDITOR")
	if err != nil {
		t.Fatalf("GetRoleByCode: %v", err)
	}
	if _, err := svc.DeactivateRole("tester", editor.ID); err != nil {
		t.Fatalf("DeactivateRole: %v", err)
	}

	roles, err := svc.ListAdminRoles()
	if err != nil {
		t.Fatalf("ListAdminRoles: %v", err)
	}
	if len(roles) != 1 || roles[0].RoleCode != models.RoleCodeSystemAdmin {
		t.Errorf("admin roles = %+v, want only SYSTEM_ADMIN", roles)
	}
}
