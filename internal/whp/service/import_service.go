package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bitfantasy/whp/internal/shared/whpapi"
	"github.com/bitfantasy/whp/internal/whp/entity"
	"github.com/bitfantasy/whp/internal/whp/events"
	"github.com/bitfantasy/whp/internal/whp/importer"
	"github.com/bitfantasy/whp/internal/whp/preview"
	"github.com/bitfantasy/whp/internal/whp/repository"
)

// User-facing import messages.
const (
	MsgUnreadableFile  = "เกิดข้อผิดพลาดในการอ่านไฟล์ Excel กรุณาตรวจสอบรูปแบบไฟล์"
	MsgNoFile          = "กรุณาเลือกไฟล์ Excel"
	MsgNoBatch         = "ไม่พบ Batch UUID"
	MsgConfirmed       = "ยืนยันการนำเข้าข้อมูลสำเร็จ"
	MsgConfirmFallback = "เกิดข้อผิดพลาดในการยืนยันข้อมูล"
	MsgUploadFallback  = "เกิดข้อผิดพลาดในการตรวจสอบข้อมูล"
	MsgBusy            = "กำลังดำเนินการ กรุณารอสักครู่"
)

// ErrFileTooLarge is returned for uploads above the configured limit.
var ErrFileTooLarge = errors.New("file too large")

// BatchClient is the part of the remote API the import uses.
type BatchClient interface {
	UploadBatch(ctx context.Context, fileName string, data []byte) (*entity.ImportBatch, error)
	ConfirmBatch(ctx context.Context, batchUUID string) (*whpapi.Result, error)
}

// ImportOptions configures ImportService.
type ImportOptions struct {
	MaxFileSize int64
	// Archive, Audit and Events are optional.
	Archive Archive
	Audit   *repository.ImportAuditRepository
	Events  *events.Hub
}

// ImportService drives one import pipeline per browser session. Pipelines
// live in the session store between requests; the per-session lock covers
// load-modify-save and is never held across a remote call.
type ImportService struct {
	sessions    repository.SessionStore
	remote      BatchClient
	archive     Archive
	audit       *repository.ImportAuditRepository
	events      *events.Hub
	maxFileSize int64
	locks       *keyedMutex
	logger      *zap.Logger
	now         func() time.Time
}

// NewImportService creates the service.
func NewImportService(sessions repository.SessionStore, remote BatchClient, opts ImportOptions, logger *zap.Logger) *ImportService {
	return &ImportService{
		sessions:    sessions,
		remote:      remote,
		archive:     opts.Archive,
		audit:       opts.Audit,
		events:      opts.Events,
		maxFileSize: opts.MaxFileSize,
		locks:       newKeyedMutex(),
		logger:      logger,
		now:         time.Now,
	}
}

// MaxFileSize returns the upload limit in bytes; 0 means unlimited.
func (s *ImportService) MaxFileSize() int64 { return s.maxFileSize }

func (s *ImportService) load(ctx context.Context, sessionID string) (*importer.Pipeline, error) {
	snap, err := s.sessions.Load(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return importer.NewPipeline(), nil
	}
	if err != nil {
		return nil, err
	}
	return importer.Restore(*snap)
}

func (s *ImportService) save(ctx context.Context, sessionID string, p *importer.Pipeline) error {
	return s.sessions.Save(ctx, sessionID, p.Snapshot())
}

// update runs fn on the session pipeline under the session lock and saves
// the result even when fn fails, so state transitions caused by a failure
// are kept.
func (s *ImportService) update(ctx context.Context, sessionID string, fn func(p *importer.Pipeline) error) (*importer.Pipeline, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	p, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load import session: %w", err)
	}
	fnErr := fn(p)
	if err := s.save(ctx, sessionID, p); err != nil {
		return nil, fmt.Errorf("save import session: %w", err)
	}
	if s.events != nil {
		s.events.PublishImportState(sessionID, events.ImportState{
			State:    p.State(),
			Busy:     p.Busy(),
			FileName: p.FileName(),
		})
	}
	return p, fnErr
}

// Pipeline returns the current pipeline of a session.
func (s *ImportService) Pipeline(ctx context.Context, sessionID string) (*importer.Pipeline, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()
	return s.load(ctx, sessionID)
}

// ParseFile reads a selected spreadsheet into the preview. Any earlier
// file, preview and batch of the session are dropped. An unreadable file
// leaves the session without a file.
func (s *ImportService) ParseFile(ctx context.Context, sessionID, fileName string, data []byte) ([]entity.ImportedRecord, error) {
	if s.maxFileSize > 0 && int64(len(data)) > s.maxFileSize {
		return nil, fmt.Errorf("%w: %s exceeds %s", ErrFileTooLarge,
			humanize.IBytes(uint64(len(data))), humanize.IBytes(uint64(s.maxFileSize)))
	}

	var records []entity.ImportedRecord
	_, err := s.update(ctx, sessionID, func(p *importer.Pipeline) error {
		var err error
		records, err = p.Parse(fileName, data)
		return err
	})
	if err != nil {
		s.logger.Warn("import parse failed", zap.String("session_id", sessionID), zap.String("file", fileName), zap.Error(err))
		return nil, err
	}
	s.logger.Info("import file parsed", zap.String("session_id", sessionID), zap.String("file", fileName), zap.Int("rows", len(records)))
	return records, nil
}

// Upload sends the parsed file for remote validation and merges the
// returned rows into the preview.
func (s *ImportService) Upload(ctx context.Context, sessionID, uploadedBy string) (*entity.ImportBatch, error) {
	var up importer.Upload
	if _, err := s.update(ctx, sessionID, func(p *importer.Pipeline) error {
		var err error
		up, err = p.BeginUpload()
		return err
	}); err != nil {
		return nil, err
	}

	archiveKey := s.archiveFile(ctx, sessionID, up.FileName, up.Data)

	batch, remoteErr := s.remote.UploadBatch(ctx, up.FileName, up.Data)

	// The outcome is recorded even when the caller has gone away.
	ctx = context.WithoutCancel(ctx)
	p, err := s.update(ctx, sessionID, func(p *importer.Pipeline) error {
		return p.FinishUpload(up.Token, batch, remoteErr)
	})
	if errors.Is(err, importer.ErrStaleSelection) {
		s.logger.Info("upload result discarded", zap.String("session_id", sessionID))
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if remoteErr != nil {
		s.logger.Warn("import upload failed", zap.String("session_id", sessionID), zap.Error(remoteErr))
		return nil, fmt.Errorf("%w: %w", ErrRemote, remoteErr)
	}
	if batch == nil {
		s.logger.Warn("import upload returned no batch", zap.String("session_id", sessionID))
		return nil, fmt.Errorf("%w: no batch in response", ErrRemote)
	}

	stored := p.Batch()
	s.recordUpload(ctx, sessionID, up.FileName, archiveKey, uploadedBy, stored)
	s.logger.Info("import batch validated",
		zap.String("session_id", sessionID),
		zap.String("batch_uuid", stored.BatchUUID),
		zap.Int("rows", stored.TotalRows),
	)
	return stored, nil
}

// Confirm commits the validated batch. A failure keeps batch and preview
// so the confirm can be retried.
func (s *ImportService) Confirm(ctx context.Context, sessionID string) error {
	var conf importer.Confirm
	if _, err := s.update(ctx, sessionID, func(p *importer.Pipeline) error {
		var err error
		conf, err = p.BeginConfirm()
		return err
	}); err != nil {
		return err
	}

	_, remoteErr := s.remote.ConfirmBatch(ctx, conf.BatchUUID)

	ctx = context.WithoutCancel(ctx)
	if _, err := s.update(ctx, sessionID, func(p *importer.Pipeline) error {
		return p.FinishConfirm(conf.Token, remoteErr)
	}); err != nil {
		if errors.Is(err, importer.ErrStaleSelection) {
			s.logger.Info("confirm result discarded", zap.String("session_id", sessionID))
		}
		return err
	}

	if remoteErr != nil {
		s.logger.Warn("import confirm failed",
			zap.String("session_id", sessionID),
			zap.String("batch_uuid", conf.BatchUUID),
			zap.Error(remoteErr),
		)
		if s.audit != nil {
			if err := s.audit.RecordFailure(ctx, conf.BatchUUID, whpapi.MessageOr(remoteErr, remoteErr.Error())); err != nil {
				s.logger.Warn("audit update failed", zap.String("batch_uuid", conf.BatchUUID), zap.Error(err))
			}
		}
		return fmt.Errorf("%w: %w", ErrRemote, remoteErr)
	}

	if s.audit != nil {
		if err := s.audit.MarkConfirmed(ctx, conf.BatchUUID, s.now()); err != nil {
			s.logger.Warn("audit update failed", zap.String("batch_uuid", conf.BatchUUID), zap.Error(err))
		}
	}
	s.logger.Info("import batch confirmed", zap.String("session_id", sessionID), zap.String("batch_uuid", conf.BatchUUID))
	return nil
}

// Reset discards the session's import from any state. A pending upload or
// confirm result is discarded when it arrives.
func (s *ImportService) Reset(ctx context.Context, sessionID string) error {
	_, err := s.update(ctx, sessionID, func(p *importer.Pipeline) error {
		p.Reset()
		return nil
	})
	return err
}

// Preview projects the session preview through table.
func (s *ImportService) Preview(ctx context.Context, sessionID string, table *preview.Table) (preview.View, *importer.Pipeline, error) {
	p, err := s.Pipeline(ctx, sessionID)
	if err != nil {
		return preview.View{}, nil, err
	}
	return table.View(p.Preview()), p, nil
}

// History lists recent imports. It returns nil without an audit store.
func (s *ImportService) History(ctx context.Context, limit int) ([]entity.ImportAudit, error) {
	if s.audit == nil {
		return nil, nil
	}
	return s.audit.ListRecent(ctx, limit)
}

func (s *ImportService) archiveFile(ctx context.Context, sessionID, fileName string, data []byte) string {
	if s.archive == nil {
		return ""
	}
	key := ArchiveKey(s.now(), fileName)
	if err := s.archive.Put(ctx, key, data); err != nil {
		s.logger.Warn("archive upload failed", zap.String("session_id", sessionID), zap.String("key", key), zap.Error(err))
		return ""
	}
	return key
}

func (s *ImportService) recordUpload(ctx context.Context, sessionID, fileName, archiveKey, uploadedBy string, batch *entity.ImportBatch) {
	if s.audit == nil || batch == nil || batch.BatchUUID == "" {
		return
	}
	ok, failed := batch.Counts()
	audit := &entity.ImportAudit{
		ID:         uuid.New().String(),
		SessionID:  sessionID,
		FileName:   fileName,
		ArchiveKey: archiveKey,
		BatchUUID:  batch.BatchUUID,
		TotalRows:  batch.TotalRows,
		OKRows:     ok,
		ErrorRows:  failed,
		Status:     entity.AuditStatusValidated,
		UploadedBy: uploadedBy,
	}
	if err := s.audit.Create(ctx, audit); err != nil {
		s.logger.Warn("audit create failed", zap.String("batch_uuid", batch.BatchUUID), zap.Error(err))
	}
}
