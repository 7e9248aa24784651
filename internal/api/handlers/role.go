package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/bincms/bincms/internal/audit"
	"github.com/bincms/bincms/internal/service"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RoleHandler struct {
	svc *service.RoleService
	db  *gorm.DB
}

func NewRoleHandler(svc *service.RoleService, db *gorm.DB) *RoleHandler {
	return &RoleHandler{svc: svc, db: db}
}

// CreateRoleRequest is the payload for creating a role.
type CreateRoleRequest struct {
	RoleCode        string   `json:"role_code" binding:"required"`
	RoleName        string   `json:"role_name" binding:"required"`
	Description     string   `json:"description"`
	SortOrder       int      `json:"sort_order"`
	PermissionCodes []string `json:"permission_codes"`
}

// UpdateRoleRequest is the payload for updating a role. A null
// permission_codes leaves the grant set untouched; an empty array revokes
// every grant.
type UpdateRoleRequest struct {
	RoleName        string    `json:"role_name" binding:"required"`
	Description     string    `json:"description"`
	SortOrder       int       `json:"sort_order"`
	PermissionCodes *[]string `json:"permission_codes"`
}

func roleParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid role id"})
		return 0, false
	}
	return uint(id), true
}

// ListRoles godoc
// @Summary List all roles with their permission codes
// @Tags roles
// @Security BearerAuth
// @Produce json
// @Success 200 {array} service.RoleDetail
// @Router /admin/roles [get]
func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.svc.ListRoles()
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, roles)
}

// ListAdminRoles godoc
// @Summary List active roles excluding USER
// @Tags roles
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Role
// @Router /admin/roles/admin [get]
func (h *RoleHandler) ListAdminRoles(c *gin.Context) {
	roles, err := h.svc.ListAdminRoles()
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, roles)
}

// GetRole godoc
// @Summary Get a role by ID
// @Tags roles
// @Security BearerAuth
// @Produce json
// @Param id path int true "Role ID"
// @Success 200 {object} service.RoleDetail
// @Failure 404 {object} ErrorResponse
// @Router /admin/roles/{id} [get]
func (h *RoleHandler) GetRole(c *gin.Context) {
	id, ok := roleParam(c)
	if !ok {
		return
	}
	role, err := h.svc.GetRole(id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, role)
}

// CreateRole godoc
// @Summary Create a role with an initial grant set
// @Tags roles
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param role body CreateRoleRequest true "Role details"
// @Success 201 {object} service.RoleDetail
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /admin/roles [post]
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	role, err := h.svc.CreateRole(actor(c), service.CreateRoleInput{
		RoleCode:        req.RoleCode,
		RoleName:        req.RoleName,
		Description:     req.Description,
		SortOrder:       req.SortOrder,
		PermissionCodes: req.PermissionCodes,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	_ = audit.LogAction(h.db, actor(c), audit.ActionCreateRole, fmt.Sprintf("role:%d", role.ID), req)
	c.JSON(http.StatusCreated, role)
}

// UpdateRole godoc
// @Summary Update a role and optionally replace its grant set
// @Tags roles
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Role ID"
// @Param role body UpdateRoleRequest true "Role details"
// @Success 200 {object} service.RoleDetail
// @Failure 404 {object} ErrorResponse
// @Router /admin/roles/{id} [put]
func (h *RoleHandler) UpdateRole(c *gin.Context) {
	id, ok := roleParam(c)
	if !ok {
		return
	}
	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	role, err := h.svc.UpdateRole(actor(c), id, service.UpdateRoleInput{
		RoleName:        req.RoleName,
		Description:     req.Description,
		SortOrder:       req.SortOrder,
		PermissionCodes: req.PermissionCodes,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	_ = audit.LogAction(h.db, actor(c), audit.ActionUpdateRole, fmt.Sprintf("role:%d", id), req)
	c.JSON(http.StatusOK, role)
}

// DeleteRole godoc
// @Summary Delete a role and its grants
// @Tags roles
// @Security BearerAuth
// @Param id path int true "Role ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /admin/roles/{id} [delete]
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	id, ok := roleParam(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteRole(id); err != nil {
		handleServiceError(c, err)
		return
	}
	_ = audit.LogAction(h.db, actor(c), audit.ActionDeleteRole, fmt.Sprintf("role:%d", id), nil)
	c.Status(http.StatusNoContent)
}

// ActivateRole godoc
// @Summary Activate a role
// @Tags roles
// @Security BearerAuth
// @Param id path int true "Role ID"
// @Success 200 {object} service.RoleDetail
// @Failure 404 {object} ErrorResponse
// @Router /admin/roles/{id}/activate [patch]
func (h *RoleHandler) ActivateRole(c *gin.Context) {
	id, ok := roleParam(c)
	if !ok {
		return
	}
	role, err := h.svc.ActivateRole(actor(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	_ = audit.LogAction(h.db, actor(c), audit.ActionActivateRole, fmt.Sprintf("role:%d", id), nil)
	c.JSON(http.StatusOK, role)
}

// DeactivateRole godoc
// @Summary Deactivate a role
// @Tags roles
// @Security BearerAuth
// @Param id path int true "Role ID"
// @Success 200 {object} service.RoleDetail
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /admin/roles/{id}/deactivate [patch]
func (h *RoleHandler) DeactivateRole(c *gin.Context) {
	id, ok := roleParam(c)
	if !ok {
		return
	}
	role, err := h.svc.DeactivateRole(actor(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	_ = audit.LogAction(h.db, actor(c), audit.ActionDeactivateRole, fmt.Sprintf("role:%d", id), nil)
	c.JSON(http.StatusOK, role)
}

// ListPermissions godoc
// @Summary List all active permissions
// @Tags roles
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Permission
// @Router /admin/roles/permissions [get]
func (h *RoleHandler) ListPermissions(c *gin.Context) {
	perms, err := h.svc.ListPermissions()
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, perms)
}

// ResolvePermissions godoc
// @Summary Resolve the permission codes granted to a role code
// @Tags roles
// @Security BearerAuth
// @Produce json
// @Param code path string true "Role code"
// @Success 200 {array} string
// @Router /admin/roles/code/{code}/permissions [get]
func (h *RoleHandler) ResolvePermissions(c *gin.Context) {
	codes, err := h.svc.ResolvePermissions(c.Param("code"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, codes)
}
