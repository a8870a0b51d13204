package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Report statuses follow the RDO approval workflow.
const (
	ReportStatusDraft     = "draft"
	ReportStatusPending   = "pending_approval"
	ReportStatusApproved  = "approved"
	ReportStatusRejected  = "rejected"
	ReportStatusCompleted = "completed"
)

// Report is an RDO (daily/periodic works report) for an obra. It is the sole
// foreign key audit entries are queried by.
type Report struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ObraID     uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_obra_report_number" json:"obra_id"`
	Obra       *Obra     `gorm:"foreignKey:ObraID" json:"obra,omitempty"`
	Number     int       `gorm:"not null;uniqueIndex:idx_obra_report_number" json:"number"`
	ReportDate time.Time `gorm:"not null;index" json:"report_date"`
	Status     string    `gorm:"size:30;not null;default:'draft';index" json:"status"`

	CreatedBy string    `gorm:"size:255" json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []ReportItem `gorm:"foreignKey:ReportID" json:"items,omitempty"`
}

func (Report) TableName() string {
	return "reports"
}

func (r *Report) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}

// ReportItem is one execution record: the quantity of a budget item executed
// in the period a report covers. Accumulated totals are derived from these
// rows, never stored.
type ReportItem struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ObraID   uuid.UUID `gorm:"type:uuid;not null;index" json:"obra_id"`
	ReportID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_report_item_code" json:"report_id"`
	ItemCode string    `gorm:"size:50;not null;uniqueIndex:idx_report_item_code" json:"item_code"`

	PlannedQty  float64 `gorm:"type:decimal(15,4);not null;default:0" json:"planned_qty"`
	ExecutedQty float64 `gorm:"type:decimal(15,4);not null;default:0" json:"executed_qty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ReportItem) TableName() string {
	return "report_items"
}

func (ri *ReportItem) BeforeCreate(tx *gorm.DB) (err error) {
	if ri.ID == uuid.Nil {
		ri.ID = uuid.New()
	}
	return
}
