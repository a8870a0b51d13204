package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Obra represents a construction project: the top-level unit of work that
// sessions, reports and budget items are scoped to.
type Obra struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Code        string    `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	City        string    `gorm:"size:100" json:"city,omitempty"`
	Status      string    `gorm:"size:50;not null;default:'active';index" json:"status"` // active, paused, finished

	CreatedBy string    `gorm:"size:255" json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Sessions []Session `gorm:"foreignKey:ObraID" json:"sessions,omitempty"`
	Reports  []Report  `gorm:"foreignKey:ObraID" json:"reports,omitempty"`
}

func (Obra) TableName() string {
	return "obras"
}

func (o *Obra) BeforeCreate(tx *gorm.DB) (err error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return
}
