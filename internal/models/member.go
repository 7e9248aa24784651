package models

// Member represents an account holding exactly one role. Only the role
// reference matters to the RBAC core; before the schema migration ran, the
// role was a free-text column on this table instead of a foreign key.
type Member struct {
	ID       uint    `gorm:"primarykey" json:"id"`
	LoginID  string  `gorm:"column:lgn_id;size:50;uniqueIndex;not null" json:"login_id"`
	Password string  `gorm:"size:100;not null" json:"-"`
	Name     string  `gorm:"size:50;not null" json:"name"`
	Email    *string `gorm:"size:100" json:"email"`
	RoleID   uint    `gorm:"not null" json:"role_id"`
	Role     Role    `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	Audit    Audit   `gorm:"embedded" json:"audit"`
}

func (Member) TableName() string { return "tb_members" }
