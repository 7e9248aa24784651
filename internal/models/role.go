package models

// Baseline role codes. USER and SYSTEM_ADMIN are protected: they can never be
// deactivated or deleted.
const (
	RoleCodeUser           = "USER"
	RoleCodeSystemAdmin    = "SYSTEM_ADMIN"
	RoleCodeOperationAdmin = "OPERATION_ADMIN"
	RoleCodeGeneralAdmin   = "GENERAL_ADMIN"
)

// Use-flag values for the use_yn columns carried over from the live schema.
const (
	FlagYes = "Y"
	FlagNo  = "N"
)

// Role represents a named bundle of permissions assignable to members
type Role struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	RoleCode    string `gorm:"column:role_code;size:30;uniqueIndex;not null" json:"role_code"`
	RoleName    string `gorm:"column:role_name;size:50;not null" json:"role_name"`
	Description string `gorm:"size:200" json:"description"`
	SortOrder   int    `gorm:"not null;default:0" json:"sort_order"`
	UseYn       string `gorm:"column:use_yn;size:1;not null;default:Y" json:"use_yn"`
	Audit       Audit  `gorm:"embedded" json:"audit"`
}

// TableName keeps the tb_ prefix used by the deployed schema
func (Role) TableName() string { return "tb_roles" }

// Active reports whether the role is selectable.
func (r *Role) Active() bool { return r.UseYn == FlagYes }

// Protected reports whether the role is exempt from deactivation and deletion.
func (r *Role) Protected() bool {
	return r.RoleCode == RoleCodeUser || r.RoleCode == RoleCodeSystemAdmin
}
