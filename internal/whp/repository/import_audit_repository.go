package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/bitfantasy/whp/internal/whp/entity"
)

// ImportAuditRepository stores the history of spreadsheet imports.
type ImportAuditRepository struct {
	db *gorm.DB
}

// NewImportAuditRepository creates the repository.
func NewImportAuditRepository(db *gorm.DB) *ImportAuditRepository {
	return &ImportAuditRepository{db: db}
}

// AutoMigrate creates or updates the audit table.
func (r *ImportAuditRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&entity.ImportAudit{})
}

// Create inserts a validated batch.
func (r *ImportAuditRepository) Create(ctx context.Context, audit *entity.ImportAudit) error {
	return r.db.WithContext(ctx).Create(audit).Error
}

// FindByBatchUUID returns the audit of one batch.
func (r *ImportAuditRepository) FindByBatchUUID(ctx context.Context, batchUUID string) (*entity.ImportAudit, error) {
	var audit entity.ImportAudit
	err := r.db.WithContext(ctx).Where("batch_uuid = ?", batchUUID).First(&audit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &audit, nil
}

// MarkConfirmed records a successful confirm.
func (r *ImportAuditRepository) MarkConfirmed(ctx context.Context, batchUUID string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&entity.ImportAudit{}).
		Where("batch_uuid = ?", batchUUID).
		Updates(map[string]interface{}{
			"status":       entity.AuditStatusConfirmed,
			"confirmed_at": at,
			"last_error":   "",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordFailure keeps the message of the last failed confirm.
func (r *ImportAuditRepository) RecordFailure(ctx context.Context, batchUUID, message string) error {
	return r.db.WithContext(ctx).Model(&entity.ImportAudit{}).
		Where("batch_uuid = ?", batchUUID).
		Update("last_error", message).Error
}

// ListRecent returns the newest audits first.
func (r *ImportAuditRepository) ListRecent(ctx context.Context, limit int) ([]entity.ImportAudit, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var audits []entity.ImportAudit
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&audits).Error
	return audits, err
}
