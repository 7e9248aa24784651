package models

// RolePermission links one role to one permission. The (role, permission) pair
// is unique; grant sets are always replaced as a whole, never edited in place.
type RolePermission struct {
	ID         uint       `gorm:"primarykey" json:"id"`
	RoleID     uint       `gorm:"not null;index;uniqueIndex:uk_role_perm" json:"role_id"`
	PermID     uint       `gorm:"column:perm_id;not null;index;uniqueIndex:uk_role_perm" json:"perm_id"`
	Role       Role       `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	Permission Permission `gorm:"foreignKey:PermID" json:"permission,omitempty"`
}

func (RolePermission) TableName() string { return "tb_role_permissions" }
