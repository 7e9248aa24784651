package models

// MenuType distinguishes disjoint menu trees.
type MenuType string

const (
	MenuTypeAdmin MenuType = "ADMIN"
	MenuTypeUser  MenuType = "USER"
)

// Menu represents a navigation entry. A nil MenuURL marks a pure grouping node
// with no navigable target. Depth is 1 for roots and parent depth + 1 for
// children; a parent and child always share the same MenuType.
type Menu struct {
	ID          uint     `gorm:"primarykey" json:"id"`
	MenuType    MenuType `gorm:"column:menu_type;size:20;not null;index" json:"menu_type"`
	MenuName    string   `gorm:"column:menu_name;size:50;not null" json:"menu_name"`
	MenuURL     *string  `gorm:"column:menu_url;size:200" json:"menu_url"`
	ParentID    *uint    `gorm:"column:parent_id;index" json:"parent_id"`
	Depth       int      `gorm:"not null;default:1" json:"depth"`
	SortOrder   int      `gorm:"not null;default:0" json:"sort_order"`
	Icon        string   `gorm:"size:50" json:"icon"`
	Description string   `gorm:"size:200" json:"description"`
	UseYn       string   `gorm:"column:use_yn;size:1;not null;default:Y" json:"use_yn"`
	Audit       Audit    `gorm:"embedded" json:"audit"`
}

func (Menu) TableName() string { return "tb_menus" }

// Active reports whether the menu is visible in active-only listings.
func (m *Menu) Active() bool { return m.UseYn == FlagYes }
