package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Audit action tags recorded against a report.
const (
	AuditActionCreate         = "create"
	AuditActionEdit           = "edit"
	AuditActionSubmitApproval = "submit_approval"
	AuditActionApprove        = "approve"
	AuditActionReject         = "reject"
	AuditActionSignInspector  = "sign_inspector"
	AuditActionSignContractor = "sign_contractor"
	AuditActionGeneratePDF    = "generate_pdf"
	AuditActionDownloadPDF    = "download_pdf"
	AuditActionShare          = "share"
	AuditActionReopen         = "reopen"
)

// AuditLog is an immutable record of a lifecycle action taken against a
// report. Rows are append-only: nothing updates or deletes them in normal
// operation. ActorID is nullable so system actions can be recorded.
type AuditLog struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ObraID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"obra_id"`
	ReportID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"report_id"`
	Action    string         `gorm:"size:30;not null;index" json:"action"`
	Details   datatypes.JSON `gorm:"type:jsonb" json:"details,omitempty"`
	ActorID   *uuid.UUID     `gorm:"type:uuid" json:"actor_id,omitempty"`
	ActorName string         `gorm:"size:255" json:"actor_name,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}
