// Package seed provisions the baseline roles, permissions, admin account and
// admin menu tree on every startup. Every insertion is guarded by an existence
// check on a natural identifier (role code, permission code, menu URL or name
// for URL-less grouping nodes), so the whole routine is additive and
// idempotent: deploying code that introduces a new permission or menu
// provisions it into already-live databases without a separate migration.
package seed

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/bincms/bincms/internal/auth"
	"github.com/bincms/bincms/internal/models"
	"gorm.io/gorm"
)

// Actor stamped into audit columns for seeded rows.
const Actor = "system"

type permissionSeed struct {
	Code        string
	Name        string
	Group       string
	Description string
	SortOrder   int
}

var permissions = []permissionSeed{
	{"MENU_DASHBOARD", "Dashboard access", models.PermGroupMenu, "Access to the dashboard menu", 1},
	{"MENU_POST", "Post management access", models.PermGroupMenu, "Access to the post management menu", 2},
	{"MENU_STATISTICS", "Statistics access", models.PermGroupMenu, "Access to the statistics menu", 3},
	{"MENU_USER", "User management access", models.PermGroupMenu, "Access to the user management menu", 4},
	{"MENU_CONTENT", "Content management access", models.PermGroupMenu, "Access to the content management menu", 11},
	{"MENU_POPUP", "Popup management access", models.PermGroupMenu, "Access to the popup management menu", 12},
	{"MENU_INTERIOR", "Interior management access", models.PermGroupMenu, "Access to the interior management menu", 13},
	{"MENU_SYSTEM_MENU", "Menu management access", models.PermGroupSystem, "Access to system > menu management", 5},
	{"MENU_SYSTEM_ADMIN", "Admin member management access", models.PermGroupSystem, "Access to system > admin member management", 6},
	{"MENU_SYSTEM_IP", "IP management access", models.PermGroupSystem, "Access to system > IP management", 7},
	{"MENU_SYSTEM_CODE", "Common code management access", models.PermGroupSystem, "Access to system > common code management", 8},
	{"MENU_SYSTEM_BOARD", "Board settings access", models.PermGroupSystem, "Access to system > board settings", 9},
	{"MENU_SYSTEM_ROLE", "Role management access", models.PermGroupSystem, "Access to system > role management", 10},
	{"DATA_READ", "Read data", models.PermGroupData, "Permission to read data", 1},
	{"DATA_WRITE", "Create and update data", models.PermGroupData, "Permission to create and update data", 2},
	{"DATA_DELETE", "Delete data", models.PermGroupData, "Permission to delete data", 3},
}

var roles = []models.Role{
	{RoleCode: models.RoleCodeSystemAdmin, RoleName: "System Admin", Description: "System administrator with all permissions", SortOrder: 1},
	{RoleCode: models.RoleCodeOperationAdmin, RoleName: "Operation Admin", Description: "Operation administrator without system menus", SortOrder: 2},
	{RoleCode: models.RoleCodeGeneralAdmin, RoleName: "General Admin", Description: "General administrator with basic menus only", SortOrder: 3},
	{RoleCode: models.RoleCodeUser, RoleName: "User", Description: "Regular user role", SortOrder: 4},
}

// grants maps each role to its permission codes. SYSTEM_ADMIN is granted
// everything in the permission catalog and is omitted here. New admin-feature
// permissions join SYSTEM_ADMIN and OPERATION_ADMIN only, never GENERAL_ADMIN
// or USER.
var grants = map[string][]string{
	models.RoleCodeOperationAdmin: {
		"MENU_DASHBOARD", "MENU_POST", "MENU_STATISTICS", "MENU_USER",
		"MENU_CONTENT", "MENU_POPUP", "MENU_INTERIOR",
		"DATA_READ", "DATA_WRITE", "DATA_DELETE",
	},
	models.RoleCodeGeneralAdmin: {
		"MENU_DASHBOARD", "MENU_POST", "MENU_STATISTICS",
		"DATA_READ", "DATA_WRITE",
	},
}

// Run provisions all baseline data. Safe to call on every boot.
func Run(db *gorm.DB, adminLoginID, adminPassword string) error {
	if err := seedPermissions(db); err != nil {
		return fmt.Errorf("seed permissions: %w", err)
	}
	if err := seedRoles(db); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	if err := seedGrants(db); err != nil {
		return fmt.Errorf("seed grants: %w", err)
	}
	if err := seedAdminAccount(db, adminLoginID, adminPassword); err != nil {
		return fmt.Errorf("seed admin account: %w", err)
	}
	if err := seedAdminMenus(db); err != nil {
		return fmt.Errorf("seed menus: %w", err)
	}
	return nil
}

// EnsureAdmin provisions the baseline roles and the admin account only, for
// out-of-band provisioning via the create-admin command. Run covers the same
// ground on every server start.
func EnsureAdmin(db *gorm.DB, loginID, password string) error {
	if err := seedRoles(db); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	if err := seedAdminAccount(db, loginID, password); err != nil {
		return fmt.Errorf("seed admin account: %w", err)
	}
	return nil
}

func seedPermissions(db *gorm.DB) error {
	for _, p := range permissions {
		var existing models.Permission
		err := db.Where("perm_code = ?", p.Code).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		perm := models.Permission{
			PermCode:    p.Code,
			PermName:    p.Name,
			PermGroup:   p.Group,
			Description: p.Description,
			SortOrder:   p.SortOrder,
			UseYn:       models.FlagYes,
		}
		perm.Audit.StampCreate(Actor)
		if err := db.Create(&perm).Error; err != nil {
			return err
		}
		slog.Info("Seeded permission", "code", p.Code)
	}
	return nil
}

func seedRoles(db *gorm.DB) error {
	for _, r := range roles {
		var existing models.Role
		err := db.Where("role_code = ?", r.RoleCode).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		role := r
		role.UseYn = models.FlagYes
		role.Audit.StampCreate(Actor)
		if err := db.Create(&role).Error; err != nil {
			return err
		}
		slog.Info("Seeded role", "code", role.RoleCode)
	}
	return nil
}

func seedGrants(db *gorm.DB) error {
	// SYSTEM_ADMIN holds the full catalog.
	all := make([]string, 0, len(permissions))
	for _, p := range permissions {
		all = append(all, p.Code)
	}
	if err := ensureGrants(db, models.RoleCodeSystemAdmin, all); err != nil {
		return err
	}
	for roleCode, permCodes := range grants {
		if err := ensureGrants(db, roleCode, permCodes); err != nil {
			return err
		}
	}
	return nil
}

func ensureGrants(db *gorm.DB, roleCode string, permCodes []string) error {
	var role models.Role
	if err := db.Where("role_code = ?", roleCode).First(&role).Error; err != nil {
		return fmt.Errorf("role %s: %w", roleCode, err)
	}
	for _, code := range permCodes {
		var perm models.Permission
		if err := db.Where("perm_code = ?", code).First(&perm).Error; err != nil {
			return fmt.Errorf("permission %s: %w", code, err)
		}
		var count int64
		err := db.Model(&models.RolePermission{}).
			Where("role_id = ? AND perm_id = ?", role.ID, perm.ID).Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&models.RolePermission{RoleID: role.ID, PermID: perm.ID}).Error; err != nil {
			return err
		}
		slog.Info("Seeded permission grant", "role", roleCode, "permission", code)
	}
	return nil
}

func seedAdminAccount(db *gorm.DB, loginID, password string) error {
	var count int64
	if err := db.Model(&models.Member{}).Where("lgn_id = ?", loginID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	var role models.Role
	if err := db.Where("role_code = ?", models.RoleCodeSystemAdmin).First(&role).Error; err != nil {
		return fmt.Errorf("role %s: %w", models.RoleCodeSystemAdmin, err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	admin := models.Member{
		LoginID:  loginID,
		Password: hash,
		Name:     "Administrator",
		RoleID:   role.ID,
	}
	admin.Audit.StampCreate(Actor)
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	slog.Info("Seeded admin account", "login_id", loginID)
	return nil
}

type menuSeed struct {
	Name        string
	URL         string // empty for grouping nodes keyed by name
	SortOrder   int
	Icon        string
	Description string
	Children    []menuSeed
}

var adminMenus = []menuSeed{
	{Name: "Dashboard", URL: "/admin", SortOrder: 1, Icon: "DashboardOutlined", Description: "Admin dashboard"},
	{Name: "Posts", URL: "/admin/posts", SortOrder: 2, Icon: "FileTextOutlined", Description: "Post management", Children: []menuSeed{
		{Name: "Notices", URL: "/admin/posts/notice", SortOrder: 1, Icon: "FileTextOutlined", Description: "Notice management"},
		{Name: "FAQ", URL: "/admin/posts/faq", SortOrder: 2, Icon: "FileTextOutlined", Description: "FAQ management"},
		{Name: "Free Board", URL: "/admin/posts/free", SortOrder: 3, Icon: "FileTextOutlined", Description: "Free board management"},
		{Name: "Inquiries", URL: "/admin/posts/qna", SortOrder: 4, Icon: "FileTextOutlined", Description: "Inquiry management"},
	}},
	{Name: "Statistics", URL: "/admin/statistics", SortOrder: 3, Icon: "BarChartOutlined", Description: "Statistics"},
	{Name: "Contents", URL: "/admin/contents", SortOrder: 3, Icon: "FileTextOutlined", Description: "Content management"},
	{Name: "Interior", URL: "", SortOrder: 3, Icon: "PictureOutlined", Description: "Interior management", Children: []menuSeed{
		{Name: "On-site Work", URL: "/admin/interiors/onsite", SortOrder: 1, Icon: "PictureOutlined", Description: "On-site work management"},
		{Name: "Self-install Tips", URL: "/admin/interiors/self-tip", SortOrder: 2, Icon: "PictureOutlined", Description: "Self-install tip management"},
		{Name: "Interior Stories", URL: "/admin/interiors/story", SortOrder: 3, Icon: "PictureOutlined", Description: "Interior story management"},
	}},
	{Name: "Popups", URL: "/admin/popups", SortOrder: 4, Icon: "NotificationOutlined", Description: "Popup management"},
	{Name: "Users", URL: "/admin/users", SortOrder: 4, Icon: "UserOutlined", Description: "User management"},
	{Name: "System", URL: "", SortOrder: 5, Icon: "SettingOutlined", Description: "System management", Children: []menuSeed{
		{Name: "Menus", URL: "/admin/system/menus", SortOrder: 1, Icon: "MenuOutlined", Description: "Menu management"},
		{Name: "Admin Members", URL: "/admin/system/admins", SortOrder: 2, Icon: "UserSwitchOutlined", Description: "Admin member management"},
		{Name: "IP Access", URL: "/admin/system/ips", SortOrder: 3, Icon: "GlobalOutlined", Description: "IP management"},
		{Name: "Common Codes", URL: "/admin/system/codes", SortOrder: 4, Icon: "CodeOutlined", Description: "Common code management"},
		{Name: "Board Settings", URL: "/admin/system/boards", SortOrder: 5, Icon: "LayoutOutlined", Description: "Board settings"},
		{Name: "Roles", URL: "/admin/system/roles", SortOrder: 6, Icon: "SafetyCertificateOutlined", Description: "Role and permission management"},
	}},
}

func seedAdminMenus(db *gorm.DB) error {
	for _, m := range adminMenus {
		parent, err := ensureMenu(db, m, nil, 1)
		if err != nil {
			return err
		}
		for _, child := range m.Children {
			if _, err := ensureMenu(db, child, &parent.ID, 2); err != nil {
				return err
			}
		}
	}
	return nil
}

// ensureMenu inserts a menu if absent, keyed on URL, or on name for grouping
// nodes without one. Pre-existing rows are never updated.
func ensureMenu(db *gorm.DB, m menuSeed, parentID *uint, depth int) (*models.Menu, error) {
	var existing models.Menu
	var err error
	if m.URL != "" {
		err = db.Where("menu_type = ? AND menu_url = ?", models.MenuTypeAdmin, m.URL).First(&existing).Error
	} else {
		err = db.Where("menu_type = ? AND menu_url IS NULL AND menu_name = ?", models.MenuTypeAdmin, m.Name).First(&existing).Error
	}
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	menu := models.Menu{
		MenuType:    models.MenuTypeAdmin,
		MenuName:    m.Name,
		ParentID:    parentID,
		Depth:       depth,
		SortOrder:   m.SortOrder,
		Icon:        m.Icon,
		Description: m.Description,
		UseYn:       models.FlagYes,
	}
	if m.URL != "" {
		url := m.URL
		menu.MenuURL = &url
	}
	menu.Audit.StampCreate(Actor)
	if err := db.Create(&menu).Error; err != nil {
		return nil, err
	}
	slog.Info("Seeded menu", "name", m.Name, "url", m.URL)
	return &menu, nil
}
