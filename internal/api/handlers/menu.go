package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/bincms/bincms/internal/audit"
	"github.com/bincms/bincms/internal/models"
	"github.com/bincms/bincms/internal/service"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type MenuHandler struct {
	svc *service.MenuService
	db  *gorm.DB
}

func NewMenuHandler(svc *service.MenuService, db *gorm.DB) *MenuHandler {
	return &MenuHandler{svc: svc, db: db}
}

// CreateMenuRequest is the payload for creating a menu. A null menu_url marks
// a grouping node; depth is derived from the parent.
type CreateMenuRequest struct {
	MenuType    models.MenuType `json:"menu_type" binding:"required"`
	MenuName    string          `json:"menu_name" binding:"required"`
	MenuURL     *string         `json:"menu_url"`
	ParentID    *uint           `json:"parent_id"`
	SortOrder   int             `json:"sort_order"`
	Icon        string          `json:"icon"`
	Description string          `json:"description"`
}

// UpdateMenuRequest is the payload for updating a menu's display fields.
type UpdateMenuRequest struct {
	MenuName    string  `json:"menu_name" binding:"required"`
	MenuURL     *string `json:"menu_url"`
	SortOrder   int     `json:"sort_order"`
	Icon        string  `json:"icon"`
	Description string  `json:"description"`
}

func menuParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid menu id"})
		return 0, false
	}
	return uint(id), true
}

// CreateMenu godoc
// @Summary Create a menu entry
// @Tags menus
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param menu body CreateMenuRequest true "Menu details"
// @Success 201 {object} models.Menu
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /menus [post]
func (h *MenuHandler) CreateMenu(c *gin.Context) {
	var req CreateMenuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	menu, err := h.svc.CreateMenu(actor(c), service.CreateMenuInput{
		MenuType:    req.MenuType,
		MenuName:    req.MenuName,
		MenuURL:     req.MenuURL,
		ParentID:    req.ParentID,
		SortOrder:   req.SortOrder,
		Icon:        req.Icon,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	_ = audit.LogAction(h.db, actor(c), audit.ActionCreateMenu, fmt.Sprintf("menu:%d", menu.ID), req)
	c.JSON(http.StatusCreated, menu)
}

// MenusByType godoc
// @Summary Get the menu tree for one menu type
// @Tags menus
// @Security BearerAuth
// @Produce json
// @Param menuType path string true "Menu type (ADMIN or USER)"
// @Param includeInactive query bool false "Include inactive menus"
// @Success 200 {array} service.MenuNode
// @Router /menus/type/{menuType} [get]
func (h *MenuHandler) MenusByType(c *gin.Context) {
	menuType := models.MenuType(c.Param("menuType"))
	includeInactive := c.Query("includeInactive") == "true"

	tree, err := h.svc.MenusByType(menuType, includeInactive)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, tree)
}

// ListMenus godoc
// @Summary List every menu as a flat list
// @Tags menus
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Menu
// @Router /menus [get]
func (h *MenuHandler) ListMenus(c *gin.Context) {
	menus, err := h.svc.ListMenus()
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, menus)
}

// GetMenu godoc
// @Summary Get a menu by ID
// @Tags menus
// @Security BearerAuth
// @Produce json
// @Param id path int true "Menu ID"
// @Success 200 {object} models.Menu
// @Failure 404 {object} ErrorResponse
// @Router /menus/{id} [get]
func (h *MenuHandler) GetMenu(c *gin.Context) {
	id, ok := menuParam(c)
	if !ok {
		return
	}
	menu, err := h.svc.GetMenu(id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, menu)
}

// UpdateMenu godoc
// @Summary Update a menu's display fields
// @Tags menus
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Menu ID"
// @Param menu body UpdateMenuRequest true "Menu details"
// @Success 200 {object} models.Menu
// @Failure 404 {object} ErrorResponse
// @Router /menus/{id} [put]
func (h *MenuHandler) UpdateMenu(c *gin.Context) {
	id, ok := menuParam(c)
	if !ok {
		return
	}
	var req UpdateMenuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	menu, err := h.svc.UpdateMenu(actor(c), id, service.UpdateMenuInput{
		MenuName:    req.MenuName,
		MenuURL:     req.MenuURL,
		SortOrder:   req.SortOrder,
		Icon:        req.Icon,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	_ = audit.LogAction(h.db, actor(c), audit.ActionUpdateMenu, fmt.Sprintf("menu:%d", id), req)
	c.JSON(http.StatusOK, menu)
}

// DeleteMenu godoc
// @Summary Soft-deactivate a childless menu
// @Tags menus
// @Security BearerAuth
// @Param id path int true "Menu ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /menus/{id} [delete]
func (h *MenuHandler) DeleteMenu(c *gin.Context) {
	id, ok := menuParam(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteMenu(actor(c), id); err != nil {
		handleServiceError(c, err)
		return
	}
	_ = audit.LogAction(h.db, actor(c), audit.ActionDeleteMenu, fmt.Sprintf("menu:%d", id), nil)
	c.Status(http.StatusNoContent)
}

// ActivateMenu godoc
// @Summary Activate a menu
// @Tags menus
// @Security BearerAuth
// @Param id path int true "Menu ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /menus/{id}/activate [patch]
func (h *MenuHandler) ActivateMenu(c *gin.Context) {
	id, ok := menuParam(c)
	if !ok {
		return
	}
	if err := h.svc.ActivateMenu(actor(c), id); err != nil {
		handleServiceError(c, err)
		return
	}
	_ = audit.LogAction(h.db, actor(c), audit.ActionActivateMenu, fmt.Sprintf("menu:%d", id), nil)
	c.Status(http.StatusNoContent)
}
