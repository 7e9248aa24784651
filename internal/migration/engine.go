package migration

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/bincms/bincms/internal/models"
	"gorm.io/gorm"
)

const (
	memberTable  = "tb_members"
	legacyColumn = "role"    // pre-migration free-text role column
	roleColumn   = "role_id" // normalized foreign key column
	// ForeignKeyName is the fixed, predictable name of the members→roles
	// constraint. Any differently-named constraint on the same column is
	// replaced with this one.
	ForeignKeyName = "fk_members_role"
)

// Status reports the outcome of the last engine run, exposed through the
// health endpoint so operators can tell a completed migration from a stuck
// one.
type Status string

const (
	// StatusPending means the engine has not run yet.
	StatusPending Status = "pending"
	// StatusFresh means the member table did not exist; nothing to migrate.
	StatusFresh Status = "fresh"
	// StatusCompleted means the schema is fully normalized.
	StatusCompleted Status = "completed"
	// StatusFailed means the run aborted mid-sequence. Startup continues in
	// legacy-compatible mode; the next boot retries from wherever it stopped.
	StatusFailed Status = "failed"
)

// Engine converts the legacy member.role string column into a role_id foreign
// key against the normalized role tables. Every step checks existence before
// acting, so the whole procedure runs on every boot and resumes cleanly after
// a crash mid-sequence. It must run before AutoMigrate and before any other
// component touches the database, on a single instance at a time.
type Engine struct {
	db         *gorm.DB
	log        *slog.Logger
	adminLogin string
	status     Status
}

// New creates an engine. adminLogin is the provisioned admin login id; orphan
// repair reassigns that member to SYSTEM_ADMIN instead of USER.
func New(db *gorm.DB, log *slog.Logger, adminLogin string) *Engine {
	if adminLogin == "" {
		adminLogin = "admin"
	}
	return &Engine{db: db, log: log, adminLogin: adminLogin, status: StatusPending}
}

// Status returns the outcome of the last Run.
func (e *Engine) Status() Status { return e.status }

// Run executes the migration state machine. Errors are logged and swallowed:
// a migration defect must not prevent the process from starting, and every
// step is idempotent so the next boot picks up where this one stopped.
func (e *Engine) Run() Status {
	m := e.db.Migrator()

	if !m.HasTable(memberTable) {
		e.log.Info("role migration: member table not found, fresh install, skipping")
		e.status = StatusFresh
		return e.status
	}

	if !m.HasColumn(&models.Member{}, legacyColumn) {
		e.log.Info("role migration: legacy role column absent, already migrated")
		// Completed runs may still carry orphaned or misnamed references.
		if err := e.ensureForeignKey(); err != nil {
			e.log.Warn("role migration: foreign key ensure failed", "error", err)
			e.status = StatusFailed
			return e.status
		}
		e.status = StatusCompleted
		return e.status
	}

	e.log.Info("role migration: legacy role column found, starting migration")
	if err := e.migrate(); err != nil {
		e.log.Error("role migration failed, continuing startup in legacy-compatible mode", "error", err)
		e.status = StatusFailed
		return e.status
	}

	e.log.Info("role migration completed")
	e.status = StatusCompleted
	return e.status
}

// migrate runs the full legacy-column sequence. Each sub-step is individually
// guarded by an existence check; nothing is ever rolled back because partial
// completion is a recoverable state.
func (e *Engine) migrate() error {
	m := e.db.Migrator()

	// Normalized tables.
	for _, model := range []interface{}{&models.Role{}, &models.Permission{}, &models.RolePermission{}} {
		if !m.HasTable(model) {
			if err := m.CreateTable(model); err != nil {
				return fmt.Errorf("create table: %w", err)
			}
			e.log.Info("role migration: created table", "table", tableName(e.db, model))
		}
	}

	// Baseline roles, so every legacy string has a row to map onto.
	baseline := []models.Role{
		{RoleCode: models.RoleCodeUser, RoleName: "User", Description: "Regular user role", SortOrder: 4},
		{RoleCode: models.RoleCodeSystemAdmin, RoleName: "System Admin", Description: "System administrator with all permissions", SortOrder: 1},
		{RoleCode: models.RoleCodeOperationAdmin, RoleName: "Operation Admin", Description: "Operation administrator without system menus", SortOrder: 2},
		{RoleCode: models.RoleCodeGeneralAdmin, RoleName: "General Admin", Description: "General administrator with basic menus only", SortOrder: 3},
	}
	for _, role := range baseline {
		if err := e.insertRoleIfAbsent(role); err != nil {
			return err
		}
	}

	// Nullable reference column; tightened after the backfill.
	if !m.HasColumn(&models.Member{}, roleColumn) {
		if err := e.db.Exec("ALTER TABLE tb_members ADD COLUMN role_id bigint").Error; err != nil {
			return fmt.Errorf("add role_id column: %w", err)
		}
		e.log.Info("role migration: added role_id column")
	}

	// Backfill references where the legacy string matches a known role code.
	res := e.db.Exec(`
		UPDATE tb_members SET role_id = (SELECT id FROM tb_roles r WHERE r.role_code = tb_members.role)
		WHERE role_id IS NULL AND role IS NOT NULL
		  AND EXISTS (SELECT 1 FROM tb_roles r WHERE r.role_code = tb_members.role)`)
	if res.Error != nil {
		return fmt.Errorf("backfill role_id: %w", res.Error)
	}
	e.log.Info("role migration: backfilled role references", "rows", res.RowsAffected)

	// Everything still unset, including unrecognized legacy values, falls
	// back to USER.
	userID, err := e.roleID(models.RoleCodeUser)
	if err != nil {
		return err
	}
	res = e.db.Exec("UPDATE tb_members SET role_id = ? WHERE role_id IS NULL", userID)
	if res.Error != nil {
		return fmt.Errorf("fallback role_id: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		e.log.Info("role migration: defaulted members to USER role", "rows", res.RowsAffected)
	}

	// Best effort: a concurrent insert can make this fail, which is not worth
	// aborting the migration over.
	if err := e.setRoleColumnNotNull(); err != nil {
		e.log.Warn("role migration: could not set role_id NOT NULL", "error", err)
	}

	if !m.HasConstraint(&models.Member{}, ForeignKeyName) {
		if err := e.addForeignKey(); err != nil {
			e.log.Warn("role migration: could not add foreign key", "error", err)
		}
	}

	// Plain DDL, not the gorm migrator: the sqlite migrator drops columns by
	// rebuilding the table and cannot handle a legacy table it did not create.
	// Both postgres and the bundled sqlite support DROP COLUMN directly.
	e.log.Info("role migration: dropping legacy role column")
	if err := e.db.Exec("ALTER TABLE tb_members DROP COLUMN role").Error; err != nil {
		return fmt.Errorf("drop legacy role column: %w", err)
	}

	return nil
}

// ensureForeignKey is the idempotent safety net for databases where the
// legacy column is already gone: it repairs orphaned role references and
// guarantees the foreign key exists under its fixed name.
func (e *Engine) ensureForeignKey() error {
	m := e.db.Migrator()
	if !m.HasColumn(&models.Member{}, roleColumn) || !m.HasTable(&models.Role{}) {
		return nil
	}

	if err := e.repairOrphans(); err != nil {
		return err
	}

	if !m.HasConstraint(&models.Member{}, ForeignKeyName) {
		if err := e.dropStrayForeignKeys(); err != nil {
			e.log.Warn("role migration: could not drop stray foreign keys", "error", err)
		}
		if err := e.addForeignKey(); err != nil {
			e.log.Warn("role migration: could not add foreign key", "error", err)
		}
	}
	return nil
}

type orphanRow struct {
	ID     uint
	LgnID  string
	RoleID *uint
}

// repairOrphans reassigns members whose role_id is null, zero, or dangling.
// The provisioned admin login keeps SYSTEM_ADMIN; everyone else becomes USER.
func (e *Engine) repairOrphans() error {
	var orphans []orphanRow
	err := e.db.Raw(`
		SELECT m.id AS id, m.lgn_id AS lgn_id, m.role_id AS role_id
		FROM tb_members m LEFT JOIN tb_roles r ON m.role_id = r.id
		WHERE r.id IS NULL OR m.role_id = 0`).Scan(&orphans).Error
	if err != nil {
		return fmt.Errorf("orphan scan: %w", err)
	}
	if len(orphans) == 0 {
		return nil
	}

	e.log.Warn("role migration: found members with invalid role reference", "count", len(orphans))
	for _, o := range orphans {
		e.log.Warn("role migration: orphan member", "member_id", o.ID, "login_id", o.LgnID, "role_id", o.RoleID)
	}

	const orphanCond = "(role_id IS NULL OR role_id = 0 OR role_id NOT IN (SELECT id FROM tb_roles))"

	adminID, err := e.roleID(models.RoleCodeSystemAdmin)
	if err == nil {
		res := e.db.Exec("UPDATE tb_members SET role_id = ? WHERE "+orphanCond+" AND lgn_id = ?", adminID, e.adminLogin)
		if res.Error != nil {
			return fmt.Errorf("repair admin orphan: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			e.log.Info("role migration: reassigned admin members to SYSTEM_ADMIN", "rows", res.RowsAffected)
		}
	}

	userID, err := e.roleID(models.RoleCodeUser)
	if err != nil {
		return err
	}
	res := e.db.Exec("UPDATE tb_members SET role_id = ? WHERE "+orphanCond, userID)
	if res.Error != nil {
		return fmt.Errorf("repair orphans: %w", res.Error)
	}
	e.log.Info("role migration: repaired orphan members", "rows", res.RowsAffected, "role_id", userID)
	return nil
}

func (e *Engine) insertRoleIfAbsent(role models.Role) error {
	var existing models.Role
	err := e.db.Where("role_code = ?", role.RoleCode).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("lookup role %s: %w", role.RoleCode, err)
	}
	role.UseYn = models.FlagYes
	role.Audit.StampCreate("migration")
	if err := e.db.Create(&role).Error; err != nil {
		return fmt.Errorf("insert role %s: %w", role.RoleCode, err)
	}
	e.log.Info("role migration: created role", "code", role.RoleCode)
	return nil
}

func (e *Engine) roleID(code string) (uint, error) {
	var role models.Role
	if err := e.db.Where("role_code = ?", code).First(&role).Error; err != nil {
		return 0, fmt.Errorf("lookup role %s: %w", code, err)
	}
	return role.ID, nil
}

// setRoleColumnNotNull tightens role_id to NOT NULL where the dialect allows
// altering column nullability in place.
func (e *Engine) setRoleColumnNotNull() error {
	switch e.db.Dialector.Name() {
	case "postgres":
		return e.db.Exec("ALTER TABLE tb_members ALTER COLUMN role_id SET NOT NULL").Error
	default:
		// SQLite cannot alter nullability without a table rebuild; the
		// application-level model already requires the field.
		e.log.Debug("role migration: NOT NULL tighten unsupported on this dialect", "dialect", e.db.Dialector.Name())
		return nil
	}
}

// addForeignKey creates the members→roles constraint under its fixed name.
func (e *Engine) addForeignKey() error {
	switch e.db.Dialector.Name() {
	case "postgres":
		err := e.db.Exec("ALTER TABLE tb_members ADD CONSTRAINT " + ForeignKeyName +
			" FOREIGN KEY (role_id) REFERENCES tb_roles(id)").Error
		if err != nil {
			return err
		}
		e.log.Info("role migration: added foreign key", "constraint", ForeignKeyName)
		return nil
	default:
		// SQLite cannot add constraints to an existing table.
		e.log.Debug("role migration: foreign key unsupported on this dialect", "dialect", e.db.Dialector.Name())
		return nil
	}
}

// dropStrayForeignKeys removes any differently-named foreign key on
// tb_members.role_id so the fixed-name constraint can take its place.
func (e *Engine) dropStrayForeignKeys() error {
	if e.db.Dialector.Name() != "postgres" {
		return nil
	}
	var names []string
	err := e.db.Raw(`
		SELECT tc.constraint_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu ON kcu.constraint_name = tc.constraint_name
		WHERE tc.table_name = 'tb_members' AND tc.constraint_type = 'FOREIGN KEY' AND kcu.column_name = 'role_id'`).
		Scan(&names).Error
	if err != nil {
		return err
	}
	for _, name := range names {
		if name == ForeignKeyName {
			continue
		}
		if err := e.db.Exec("ALTER TABLE tb_members DROP CONSTRAINT " + name).Error; err != nil {
			return err
		}
		e.log.Info("role migration: dropped stray foreign key", "constraint", name)
	}
	return nil
}

func tableName(db *gorm.DB, model interface{}) string {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return fmt.Sprintf("%T", model)
	}
	return stmt.Table
}
