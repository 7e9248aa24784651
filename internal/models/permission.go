package models

// Permission groups used to bucket permissions in the admin UI.
const (
	PermGroupMenu   = "MENU"
	PermGroupSystem = "SYSTEM"
	PermGroupData   = "DATA"
)

// Permission represents an atomic grantable capability identified by a unique code
type Permission struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	PermCode    string `gorm:"column:perm_code;size:50;uniqueIndex;not null" json:"perm_code"`
	PermName    string `gorm:"column:perm_name;size:100;not null" json:"perm_name"`
	PermGroup   string `gorm:"column:perm_group;size:30;not null" json:"perm_group"`
	Description string `gorm:"size:200" json:"description"`
	SortOrder   int    `gorm:"not null;default:0" json:"sort_order"`
	UseYn       string `gorm:"column:use_yn;size:1;not null;default:Y" json:"use_yn"`
	Audit       Audit  `gorm:"embedded" json:"audit"`
}

func (Permission) TableName() string { return "tb_permissions" }

// Active reports whether the permission is selectable.
func (p *Permission) Active() bool { return p.UseYn == FlagYes }
