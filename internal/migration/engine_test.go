package migration

import (
	"log/slog"
	"testing"

	"github.com/bincms/bincms/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return db
}

// createLegacySchema builds the pre-migration member table: a free-text role
// column and no role_id.
func createLegacySchema(t *testing.T, db *gorm.DB) {
	t.Helper()
	err := db.Exec(`
		CREATE TABLE tb_members (
			id integer PRIMARY KEY AUTOINCREMENT,
			lgn_id varchar(50),
			password varchar(100),
			name varchar(50),
			email varchar(100),
			role varchar(30),
			created_at datetime,
			updated_at datetime,
			created_by varchar(50),
			updated_by varchar(50)
		)`).Error
	if err != nil {
		t.Fatalf("create legacy table: %v", err)
	}
}

func insertLegacyMember(t *testing.T, db *gorm.DB, loginID string, role interface{}) {
	t.Helper()
	err := db.Exec("INSERT INTO tb_members (lgn_id, password, name, role) VALUES (?, ?, ?, ?)",
		loginID, "x", loginID, role).Error
	if err != nil {
		t.Fatalf("insert legacy member %s: %v", loginID, err)
	}
}

func roleIDByCode(t *testing.T, db *gorm.DB, code string) uint {
	t.Helper()
	var role models.Role
	if err := db.Where("role_code = ?", code).First(&role).Error; err != nil {
		t.Fatalf("lookup role %s: %v", code, err)
	}
	return role.ID
}

func memberRoleID(t *testing.T, db *gorm.DB, loginID string) uint {
	t.Helper()
	var roleID uint
	err := db.Raw("SELECT role_id FROM tb_members WHERE lgn_id = ?", loginID).Scan(&roleID).Error
	if err != nil {
		t.Fatalf("read role_id for %s: %v", loginID, err)
	}
	return roleID
}

func TestRun_FreshInstall(t *testing.T) {
	db := testDB(t)
	engine := New(db, slog.Default(), "admin")

	if got := engine.Run(); got != StatusFresh {
		t.Fatalf("status = %s, want %s", got, StatusFresh)
	}
	if db.Migrator().HasTable("tb_roles") {
		t.Error("fresh install must not create role tables")
	}
}

func TestRun_LegacyMigration(t *testing.T) {
	db := testDB(t)
	createLegacySchema(t, db)
	insertLegacyMember(t, db, "admin", "SYSTEM_ADMIN")
	insertLegacyMember(t, db, "alice", "USER")
	insertLegacyMember(t, db, "bob", "WIBBLE") // unknown legacy code
	insertLegacyMember(t, db, "carol", nil)    // no legacy value at all

	engine := New(db, slog.Default(), "admin")
	if got := engine.Run(); got != StatusCompleted {
		t.Fatalf("status = %s, want %s", got, StatusCompleted)
	}

	if db.Migrator().HasColumn("tb_members", "role") {
		t.Error("legacy role column still present after migration")
	}

	var roleCount int64
	db.Model(&models.Role{}).Count(&roleCount)
	if roleCount != 4 {
		t.Errorf("role count = %d, want 4", roleCount)
	}

	adminID := roleIDByCode(t, db, models.RoleCodeSystemAdmin)
	userID := roleIDByCode(t, db, models.RoleCodeUser)

	if got := memberRoleID(t, db, "admin"); got != adminID {
		t.Errorf("admin role_id = %d, want SYSTEM_ADMIN id %d", got, adminID)
	}
	if got := memberRoleID(t, db, "alice"); got != userID {
		t.Errorf("alice role_id = %d, want USER id %d", got, userID)
	}
	// Unmatched and missing legacy values both fall back to USER.
	if got := memberRoleID(t, db, "bob"); got != userID {
		t.Errorf("bob role_id = %d, want USER id %d", got, userID)
	}
	if got := memberRoleID(t, db, "carol"); got != userID {
		t.Errorf("carol role_id = %d, want USER id %d", got, userID)
	}
}

func TestRun_Idempotent(t *testing.T) {
	db := testDB(t)
	createLegacySchema(t, db)
	insertLegacyMember(t, db, "admin", "SYSTEM_ADMIN")

	engine := New(db, slog.Default(), "admin")
	if got := engine.Run(); got != StatusCompleted {
		t.Fatalf("first run status = %s, want %s", got, StatusCompleted)
	}
	adminRoleID := memberRoleID(t, db, "admin")

	// Second run must take the already-migrated path and change nothing.
	if got := engine.Run(); got != StatusCompleted {
		t.Fatalf("second run status = %s, want %s", got, StatusCompleted)
	}

	var roleCount int64
	db.Model(&models.Role{}).Count(&roleCount)
	if roleCount != 4 {
		t.Errorf("role count after second run = %d, want 4", roleCount)
	}
	if got := memberRoleID(t, db, "admin"); got != adminRoleID {
		t.Errorf("admin role_id changed on second run: %d -> %d", adminRoleID, got)
	}
}

func TestRun_OrphanRepair(t *testing.T) {
	db := testDB(t)
	if err := db.AutoMigrate(&models.Role{}, &models.Permission{}, &models.RolePermission{}, &models.Member{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	roles := []models.Role{
		{RoleCode: models.RoleCodeUser, RoleName: "User", SortOrder: 4, UseYn: models.FlagYes},
		{RoleCode: models.RoleCodeSystemAdmin, RoleName: "System Admin", SortOrder: 1, UseYn: models.FlagYes},
	}
	for i := range roles {
		if err := db.Create(&roles[i]).Error; err != nil {
			t.Fatalf("create role: %v", err)
		}
	}

	// role_id = 0 and a dangling reference are both orphans.
	db.Exec("INSERT INTO tb_members (lgn_id, password, name, role_id) VALUES ('admin', 'x', 'admin', 0)")
	db.Exec("INSERT INTO tb_members (lgn_id, password, name, role_id) VALUES ('bob', 'x', 'bob', 9999)")

	engine := New(db, slog.Default(), "admin")
	if got := engine.Run(); got != StatusCompleted {
		t.Fatalf("status = %s, want %s", got, StatusCompleted)
	}

	adminID := roleIDByCode(t, db, models.RoleCodeSystemAdmin)
	userID := roleIDByCode(t, db, models.RoleCodeUser)

	if got := memberRoleID(t, db, "admin"); got != adminID {
		t.Errorf("admin role_id = %d, want SYSTEM_ADMIN id %d", got, adminID)
	}
	if got := memberRoleID(t, db, "bob"); got != userID {
		t.Errorf("bob role_id = %d, want USER id %d", got, userID)
	}
}

func TestRun_OrphanRepair_ConfiguredAdminLogin(t *testing.T) {
	db := testDB(t)
	if err := db.AutoMigrate(&models.Role{}, &models.Permission{}, &models.RolePermission{}, &models.Member{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	roles := []models.Role{
		{RoleCode: models.RoleCodeUser, RoleName: "User", SortOrder: 4, UseYn: models.FlagYes},
		{RoleCode: models.RoleCodeSystemAdmin, RoleName: "System Admin", SortOrder: 1, UseYn: models.FlagYes},
	}
	for i := range roles {
		if err := db.Create(&roles[i]).Error; err != nil {
			t.Fatalf("create role: %v", err)
		}
	}

	db.Exec("INSERT INTO tb_members (lgn_id, password, name, role_id) VALUES ('root', 'x', 'root', 0)")
	db.Exec("INSERT INTO tb_members (lgn_id, password, name, role_id) VALUES ('admin', 'x', 'admin', 0)")

	// The repair follows the configured admin login, not a fixed name.
	engine := New(db, slog.Default(), "root")
	if got := engine.Run(); got != StatusCompleted {
		t.Fatalf("status = %s, want %s", got, StatusCompleted)
	}

	adminID := roleIDByCode(t, db, models.RoleCodeSystemAdmin)
	userID := roleIDByCode(t, db, models.RoleCodeUser)

	if got := memberRoleID(t, db, "root"); got != adminID {
		t.Errorf("root role_id = %d, want SYSTEM_ADMIN id %d", got, adminID)
	}
	if got := memberRoleID(t, db, "admin"); got != userID {
		t.Errorf("admin role_id = %d, want USER id %d", got, userID)
	}
}

func TestRun_ResumesAfterPartialCompletion(t *testing.T) {
	db := testDB(t)
	createLegacySchema(t, db)
	insertLegacyMember(t, db, "alice", "USER")

	// Simulate a crash after the role tables were created but before the
	// member table was touched.
	if err := db.AutoMigrate(&models.Role{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	seedRole := models.Role{RoleCode: models.RoleCodeUser, RoleName: "User", SortOrder: 4, UseYn: models.FlagYes}
	if err := db.Create(&seedRole).Error; err != nil {
		t.Fatalf("create role: %v", err)
	}

	engine := New(db, slog.Default(), "admin")
	if got := engine.Run(); got != StatusCompleted {
		t.Fatalf("status = %s, want %s", got, StatusCompleted)
	}

	// The pre-existing USER row must have been reused, not duplicated.
	var userCount int64
	db.Model(&models.Role{}).Where("role_code = ?", models.RoleCodeUser).Count(&userCount)
	if userCount != 1 {
		t.Errorf("USER role count = %d, want 1", userCount)
	}
	if got := memberRoleID(t, db, "alice"); got != seedRole.ID {
		t.Errorf("alice role_id = %d, want pre-existing USER id %d", got, seedRole.ID)
	}
	if db.Migrator().HasColumn("tb_members", "role") {
		t.Error("legacy role column still present after resumed migration")
	}
}
