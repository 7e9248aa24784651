package service

import (
	"errors"
	"fmt"

	"github.com/bincms/bincms/internal/models"
	"gorm.io/gorm"
)

// RoleService implements role/permission administration and permission
// resolution over the normalized RBAC tables.
type RoleService struct {
	db *gorm.DB
}

func NewRoleService(db *gorm.DB) *RoleService {
	return &RoleService{db: db}
}

// RoleDetail is a role together with its granted permission codes.
type RoleDetail struct {
	models.Role
	PermissionCodes []string `json:"permission_codes"`
}

// CreateRoleInput carries the fields for a new role.
type CreateRoleInput struct {
	RoleCode        string
	RoleName        string
	Description     string
	SortOrder       int
	PermissionCodes []string
}

// UpdateRoleInput carries the mutable fields of a role. A nil PermissionCodes
// leaves the existing grants untouched; a non-nil value (even empty) replaces
// the whole grant set.
type UpdateRoleInput struct {
	RoleName        string
	Description     string
	SortOrder       int
	PermissionCodes *[]string
}

// ResolvePermissions returns the permission codes granted to a role. A role
// with no grants (or an unknown code) resolves to an empty set, not an error.
func (s *RoleService) ResolvePermissions(roleCode string) ([]string, error) {
	var codes []string
	err := s.db.Table("tb_role_permissions AS rp").
		Joins("JOIN tb_roles r ON r.id = rp.role_id").
		Joins("JOIN tb_permissions p ON p.id = rp.perm_id").
		Where("r.role_code = ?", roleCode).
		Order("p.sort_order ASC, p.id ASC").
		Pluck("p.perm_code", &codes).Error
	if err != nil {
		return nil, fmt.Errorf("resolve permissions for %s: %w", roleCode, err)
	}
	if codes == nil {
		codes = []string{}
	}
	return codes, nil
}

// ListRoles returns all roles with their permission codes.
func (s *RoleService) ListRoles() ([]RoleDetail, error) {
	var roles []models.Role
	if err := s.db.Order("sort_order ASC, id ASC").Find(&roles).Error; err != nil {
		return nil, err
	}
	details := make([]RoleDetail, 0, len(roles))
	for _, role := range roles {
		codes, err := s.ResolvePermissions(role.RoleCode)
		if err != nil {
			return nil, err
		}
		details = append(details, RoleDetail{Role: role, PermissionCodes: codes})
	}
	return details, nil
}

// ListActiveRoles returns the roles currently selectable.
func (s *RoleService) ListActiveRoles() ([]models.Role, error) {
	var roles []models.Role
	err := s.db.Where("use_yn = ?", models.FlagYes).
		Order("sort_order ASC, id ASC").Find(&roles).Error
	return roles, err
}

// ListAdminRoles returns the active roles excluding USER, for admin-account
// assignment pickers.
func (s *RoleService) ListAdminRoles() ([]models.Role, error) {
	var roles []models.Role
	err := s.db.Where("use_yn = ? AND role_code <> ?", models.FlagYes, models.RoleCodeUser).
		Order("sort_order ASC, id ASC").Find(&roles).Error
	return roles, err
}

// GetRole returns one role with its permission codes.
func (s *RoleService) GetRole(id uint) (*RoleDetail, error) {
	var role models.Role
	if err := s.db.First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("role %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	codes, err := s.ResolvePermissions(role.RoleCode)
	if err != nil {
		return nil, err
	}
	return &RoleDetail{Role: role, PermissionCodes: codes}, nil
}

// GetRoleByCode returns one role by its unique code.
func (s *RoleService) GetRoleByCode(code string) (*models.Role, error) {
	var role models.Role
	if err := s.db.Where("role_code = ?", code).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("role %s: %w", code, ErrNotFound)
		}
		return nil, err
	}
	return &role, nil
}

// CreateRole creates a role and its initial grant set in one transaction.
// Unknown permission codes fail the whole call; grants are never partially
// applied.
func (s *RoleService) CreateRole(actor string, in CreateRoleInput) (*RoleDetail, error) {
	var exists int64
	if err := s.db.Model(&models.Role{}).Where("role_code = ?", in.RoleCode).Count(&exists).Error; err != nil {
		return nil, err
	}
	if exists > 0 {
		return nil, &ConflictError{Message: fmt.Sprintf("role code %s already exists", in.RoleCode)}
	}

	role := models.Role{
		RoleCode:    in.RoleCode,
		RoleName:    in.RoleName,
		Description: in.Description,
		SortOrder:   in.SortOrder,
		UseYn:       models.FlagYes,
	}
	role.Audit.StampCreate(actor)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&role).Error; err != nil {
			return err
		}
		return assignPermissions(tx, role.ID, in.PermissionCodes)
	})
	if err != nil {
		return nil, err
	}
	return s.GetRole(role.ID)
}

// UpdateRole mutates display fields and, when PermissionCodes is non-nil,
// replaces the entire grant set in the same transaction.
func (s *RoleService) UpdateRole(actor string, id uint, in UpdateRoleInput) (*RoleDetail, error) {
	var role models.Role
	if err := s.db.First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("role %d: %w", id, ErrNotFound)
		}
		return nil, err
	}

	role.RoleName = in.RoleName
	role.Description = in.Description
	role.SortOrder = in.SortOrder
	role.Audit.StampUpdate(actor)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&role).Error; err != nil {
			return err
		}
		if in.PermissionCodes == nil {
			return nil
		}
		if err := tx.Where("role_id = ?", role.ID).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}
		return assignPermissions(tx, role.ID, *in.PermissionCodes)
	})
	if err != nil {
		return nil, err
	}
	return s.GetRole(role.ID)
}

// assignPermissions inserts one grant row per code. Permission codes are never
// auto-created: an unknown code aborts the enclosing transaction so a typo'd
// grant cannot silently become a no-op.
func assignPermissions(tx *gorm.DB, roleID uint, codes []string) error {
	for _, code := range codes {
		var perm models.Permission
		if err := tx.Where("perm_code = ?", code).First(&perm).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("permission %s: %w", code, ErrNotFound)
			}
			return err
		}
		rp := models.RolePermission{RoleID: roleID, PermID: perm.ID}
		if err := tx.Create(&rp).Error; err != nil {
			return err
		}
	}
	return nil
}

// ActivateRole makes a role selectable again.
func (s *RoleService) ActivateRole(actor string, id uint) (*RoleDetail, error) {
	return s.setActive(actor, id, models.FlagYes)
}

// DeactivateRole hides a role from selection. Protected roles are refused.
func (s *RoleService) DeactivateRole(actor string, id uint) (*RoleDetail, error) {
	return s.setActive(actor, id, models.FlagNo)
}

func (s *RoleService) setActive(actor string, id uint, flag string) (*RoleDetail, error) {
	var role models.Role
	if err := s.db.First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("role %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	if flag == models.FlagNo && role.Protected() {
		return nil, &PolicyError{Message: fmt.Sprintf("role %s cannot be deactivated", role.RoleCode)}
	}
	role.UseYn = flag
	role.Audit.StampUpdate(actor)
	if err := s.db.Save(&role).Error; err != nil {
		return nil, err
	}
	return s.GetRole(role.ID)
}

// DeleteRole hard-deletes a role and its grants. Protected roles and roles
// still referenced by members are refused.
func (s *RoleService) DeleteRole(id uint) error {
	var role models.Role
	if err := s.db.First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("role %d: %w", id, ErrNotFound)
		}
		return err
	}
	if role.Protected() {
		return &PolicyError{Message: fmt.Sprintf("role %s cannot be deleted", role.RoleCode)}
	}

	var referenced int64
	if err := s.db.Model(&models.Member{}).Where("role_id = ?", id).Count(&referenced).Error; err != nil {
		return err
	}
	if referenced > 0 {
		return &PolicyError{Message: fmt.Sprintf("role %s is still assigned to %d member(s)", role.RoleCode, referenced)}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Role{}, id).Error
	})
}

// ListPermissions returns all active permissions ordered for display.
func (s *RoleService) ListPermissions() ([]models.Permission, error) {
	var perms []models.Permission
	err := s.db.Where("use_yn = ?", models.FlagYes).
		Order("perm_group ASC, sort_order ASC, id ASC").Find(&perms).Error
	return perms, err
}
