package entity

import "time"

// ImportAudit records one spreadsheet import from upload to confirmation.
type ImportAudit struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	SessionID   string     `json:"session_id" gorm:"size:36;not null;index"`
	FileName    string     `json:"file_name" gorm:"size:256;not null"`
	ArchiveKey  string     `json:"archive_key,omitempty" gorm:"size:512"`
	BatchUUID   string     `json:"batch_uuid" gorm:"size:64;not null;uniqueIndex"`
	TotalRows   int        `json:"total_rows" gorm:"default:0"`
	OKRows      int        `json:"ok_rows" gorm:"default:0"`
	ErrorRows   int        `json:"error_rows" gorm:"default:0"`
	Status      string     `json:"status" gorm:"size:20;not null;default:validated"` // validated/confirmed
	LastError   string     `json:"last_error,omitempty" gorm:"type:text"`
	UploadedBy  string     `json:"uploaded_by,omitempty" gorm:"size:64"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (ImportAudit) TableName() string {
	return "whp_import_audits"
}

// Audit statuses.
const (
	AuditStatusValidated = "validated"
	AuditStatusConfirmed = "confirmed"
)
