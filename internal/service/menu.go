package service

import (
	"errors"
	"fmt"

	"github.com/bincms/bincms/internal/models"
	"gorm.io/gorm"
)

// MenuService implements menu administration and hierarchical tree assembly.
type MenuService struct {
	db *gorm.DB
}

func NewMenuService(db *gorm.DB) *MenuService {
	return &MenuService{db: db}
}

// MenuNode is a menu row with its ordered children, for client rendering.
type MenuNode struct {
	models.Menu
	Children []*MenuNode `json:"children"`
}

// CreateMenuInput carries the fields for a new menu entry. Depth is derived
// from the parent, never supplied by the caller.
type CreateMenuInput struct {
	MenuType    models.MenuType
	MenuName    string
	MenuURL     *string
	ParentID    *uint
	SortOrder   int
	Icon        string
	Description string
}

// UpdateMenuInput carries the mutable display fields of a menu.
type UpdateMenuInput struct {
	MenuName    string
	MenuURL     *string
	SortOrder   int
	Icon        string
	Description string
}

// CreateMenu creates a menu entry. A child must reference an existing parent
// of the same menu type and gets depth = parent depth + 1; roots get depth 1.
func (s *MenuService) CreateMenu(actor string, in CreateMenuInput) (*models.Menu, error) {
	depth := 1
	if in.ParentID != nil {
		var parent models.Menu
		if err := s.db.First(&parent, *in.ParentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("parent menu %d: %w", *in.ParentID, ErrNotFound)
			}
			return nil, err
		}
		if parent.MenuType != in.MenuType {
			return nil, &ValidationError{Message: "parent menu has a different menu type"}
		}
		depth = parent.Depth + 1
	}

	menu := models.Menu{
		MenuType:    in.MenuType,
		MenuName:    in.MenuName,
		MenuURL:     in.MenuURL,
		ParentID:    in.ParentID,
		Depth:       depth,
		SortOrder:   in.SortOrder,
		Icon:        in.Icon,
		Description: in.Description,
		UseYn:       models.FlagYes,
	}
	menu.Audit.StampCreate(actor)

	if err := s.db.Create(&menu).Error; err != nil {
		return nil, err
	}
	return &menu, nil
}

// MenusByType returns the menu forest for one menu type. With includeInactive
// false only active rows are loaded, so the subtree under an inactive parent
// disappears from the result.
func (s *MenuService) MenusByType(menuType models.MenuType, includeInactive bool) ([]*MenuNode, error) {
	q := s.db.Where("menu_type = ?", menuType)
	if !includeInactive {
		q = q.Where("use_yn = ?", models.FlagYes)
	}
	var menus []models.Menu
	if err := q.Order("sort_order ASC, id ASC").Find(&menus).Error; err != nil {
		return nil, err
	}
	return BuildMenuTree(menus), nil
}

// ListMenus returns every menu as a flat list.
func (s *MenuService) ListMenus() ([]models.Menu, error) {
	var menus []models.Menu
	err := s.db.Order("menu_type ASC, sort_order ASC, id ASC").Find(&menus).Error
	return menus, err
}

// GetMenu returns one menu row.
func (s *MenuService) GetMenu(id uint) (*models.Menu, error) {
	var menu models.Menu
	if err := s.db.First(&menu, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("menu %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &menu, nil
}

// UpdateMenu mutates the display fields of a menu.
func (s *MenuService) UpdateMenu(actor string, id uint, in UpdateMenuInput) (*models.Menu, error) {
	menu, err := s.GetMenu(id)
	if err != nil {
		return nil, err
	}
	menu.MenuName = in.MenuName
	menu.MenuURL = in.MenuURL
	menu.SortOrder = in.SortOrder
	menu.Icon = in.Icon
	menu.Description = in.Description
	menu.Audit.StampUpdate(actor)
	if err := s.db.Save(menu).Error; err != nil {
		return nil, err
	}
	return menu, nil
}

// DeleteMenu soft-deactivates a menu. A menu that still has children is
// refused regardless of their active state.
func (s *MenuService) DeleteMenu(actor string, id uint) error {
	menu, err := s.GetMenu(id)
	if err != nil {
		return err
	}
	var children int64
	if err := s.db.Model(&models.Menu{}).Where("parent_id = ?", id).Count(&children).Error; err != nil {
		return err
	}
	if children > 0 {
		return &PolicyError{Message: fmt.Sprintf("menu %s has %d child menu(s)", menu.MenuName, children)}
	}
	menu.UseYn = models.FlagNo
	menu.Audit.StampUpdate(actor)
	return s.db.Save(menu).Error
}

// ActivateMenu makes a menu visible again.
func (s *MenuService) ActivateMenu(actor string, id uint) error {
	menu, err := s.GetMenu(id)
	if err != nil {
		return err
	}
	menu.UseYn = models.FlagYes
	menu.Audit.StampUpdate(actor)
	return s.db.Save(menu).Error
}

// BuildMenuTree assembles a flat, pre-sorted menu list into a forest. The
// input ordering is preserved at every level; the builder does no sorting of
// its own. A node whose parent is not in the input (e.g. filtered out as
// inactive) is silently omitted from the forest.
func BuildMenuTree(menus []models.Menu) []*MenuNode {
	index := make(map[uint]*MenuNode, len(menus))
	nodes := make([]*MenuNode, 0, len(menus))
	for i := range menus {
		node := &MenuNode{Menu: menus[i], Children: []*MenuNode{}}
		index[menus[i].ID] = node
		nodes = append(nodes, node)
	}

	roots := make([]*MenuNode, 0, len(nodes))
	for _, node := range nodes {
		if node.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		if parent, ok := index[*node.ParentID]; ok {
			parent.Children = append(parent.Children, node)
		}
	}
	return roots
}
