package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/bincms/bincms/internal/audit"
	"github.com/bincms/bincms/internal/auth"
	"github.com/bincms/bincms/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// LoginRequest represents a login request
type LoginRequest struct {
	LoginID  string `json:"login_id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Token  string         `json:"token"`
	Member *models.Member `json:"member"`
}

// Login godoc
// @Summary Authenticate a member and issue a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Credentials"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/login [post]
func Login(db *gorm.DB, provider auth.TokenProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}

		var member models.Member
		err := db.Preload("Role").Where("lgn_id = ?", req.LoginID).First(&member).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				slog.Warn("Login attempt with unknown login id", "login_id", req.LoginID)
				_ = audit.LogAction(db, req.LoginID, audit.ActionLoginFailed, "member", nil)
				c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
				return
			}
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
			return
		}

		if !auth.VerifyPassword(member.Password, req.Password) {
			slog.Warn("Login attempt with incorrect password", "login_id", req.LoginID)
			_ = audit.LogAction(db, req.LoginID, audit.ActionLoginFailed, "member", nil)
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
			return
		}

		token, err := provider.Issue(auth.Principal{
			MemberID: member.ID,
			LoginID:  member.LoginID,
			RoleCode: member.Role.RoleCode,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to issue token"})
			return
		}

		slog.Info("Member logged in", "member_id", member.ID, "login_id", member.LoginID)
		_ = audit.LogAction(db, member.LoginID, audit.ActionLogin, "member", nil)
		c.JSON(http.StatusOK, LoginResponse{Token: token, Member: &member})
	}
}
