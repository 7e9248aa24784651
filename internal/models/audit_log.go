package models

import "time"

// AuditLog represents a record of admin actions for compliance
type AuditLog struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Actor       string    `gorm:"size:50;not null;index" json:"actor"`
	Action      string    `gorm:"not null" json:"action"`        // e.g., "create_role", "delete_menu"
	Resource    string    `gorm:"not null" json:"resource"`      // e.g., "role:3", "menu:12"
	DetailsJSON string    `gorm:"type:text" json:"details_json"` // Additional context in JSON
	Timestamp   time.Time `gorm:"not null;index" json:"timestamp"`
}

func (AuditLog) TableName() string { return "tb_audit_logs" }
