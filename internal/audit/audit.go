package audit

import (
	"encoding/json"
	"time"

	"github.com/bincms/bincms/internal/models"
	"gorm.io/gorm"
)

// LogAction records an audit log entry. The actor is the identifier resolved
// at the request boundary, never ambient state.
func LogAction(db *gorm.DB, actor, action, resource string, details interface{}) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	entry := models.AuditLog{
		Actor:       actor,
		Action:      action,
		Resource:    resource,
		DetailsJSON: string(detailsJSON),
		Timestamp:   time.Now(),
	}

	return db.Create(&entry).Error
}

// Audit actions constants
const (
	ActionCreateRole     = "create_role"
	ActionUpdateRole     = "update_role"
	ActionDeleteRole     = "delete_role"
	ActionActivateRole   = "activate_role"
	ActionDeactivateRole = "deactivate_role"
	ActionCreateMenu     = "create_menu"
	ActionUpdateMenu     = "update_menu"
	ActionDeleteMenu     = "delete_menu"
	ActionActivateMenu   = "activate_menu"
	ActionLogin          = "login"
	ActionLoginFailed    = "login_failed"
)
