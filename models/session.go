package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session kinds. A "medicao" session batches progress-measurement quantities;
// an "aditivo" session batches contract-additive additions and suppressions.
const (
	SessionKindMedicao = "medicao"
	SessionKindAditivo = "aditivo"
)

// Session statuses. Only blocked (finalized) aditivo sessions contribute to
// computed quantity adjustments.
const (
	SessionStatusOpen    = "open"
	SessionStatusBlocked = "blocked"
)

// Session is a numbered, lockable batch of item-quantity submissions for an
// obra. Sequence is assigned at creation and unique per (obra, kind).
type Session struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ObraID   uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_obra_kind_sequence" json:"obra_id"`
	Obra     *Obra     `gorm:"foreignKey:ObraID" json:"obra,omitempty"`
	Kind     string    `gorm:"size:20;not null;uniqueIndex:idx_obra_kind_sequence" json:"kind"`
	Sequence int       `gorm:"not null;uniqueIndex:idx_obra_kind_sequence" json:"sequence"`
	Status   string    `gorm:"size:20;not null;default:'open'" json:"status"`

	CreatedBy string    `gorm:"size:255" json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Items are owned exclusively by the session; deletion removes them
	// before the session row.
	Items []SessionItem `gorm:"foreignKey:SessionID" json:"items,omitempty"`
}

func (Session) TableName() string {
	return "sessions"
}

func (s *Session) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}

// SessionItem is one item-quantity entry inside a session, keyed by
// (session, item_code). Repeated submission for the same code overwrites.
type SessionItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_session_item_code" json:"session_id"`
	ItemCode  string    `gorm:"size:50;not null;uniqueIndex:idx_session_item_code" json:"item_code"`
	Qtd       float64   `gorm:"type:decimal(15,4);not null;default:0" json:"qtd"`
	Pct       float64   `gorm:"type:decimal(8,4);not null;default:0" json:"pct"`
	Total     float64   `gorm:"type:decimal(15,2);not null;default:0" json:"total"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SessionItem) TableName() string {
	return "session_items"
}

func (si *SessionItem) BeforeCreate(tx *gorm.DB) (err error) {
	if si.ID == uuid.Nil {
		si.ID = uuid.New()
	}
	return
}
