package models

import "time"

// Audit carries the created/modified timestamps and actor identifiers shared by
// every administrable entity. It is embedded by value; the timestamps are
// maintained by GORM, the actor fields are stamped explicitly on the write path
// with the identifier resolved at the request boundary.
type Audit struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `gorm:"size:50" json:"created_by"`
	UpdatedBy string    `gorm:"size:50" json:"updated_by"`
}

// StampCreate records the actor for a newly created row.
func (a *Audit) StampCreate(actor string) {
	a.CreatedBy = actor
	a.UpdatedBy = actor
}

// StampUpdate records the actor for a mutation of an existing row.
func (a *Audit) StampUpdate(actor string) {
	a.UpdatedBy = actor
}
