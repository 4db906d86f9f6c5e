package service

import (
	"github.com/bitfantasy/whp/internal/config"
	"github.com/bitfantasy/whp/internal/shared/whpapi"
	"github.com/bitfantasy/whp/internal/whp/events"
	"github.com/bitfantasy/whp/internal/whp/form"
	"github.com/bitfantasy/whp/internal/whp/repository"
	"go.uber.org/zap"
)

// Services groups the whp services.
type Services struct {
	Form   *FormService
	Import *ImportService
	Report *ReportService
	Events *events.Hub
}

// NewServices wires the services to the remote client and the stores.
// archive may be nil.
func NewServices(repos *repository.Repositories, client *whpapi.Client, catalog *form.Catalog, archive *MinIOArchive, cfg *config.Config, logger *zap.Logger) *Services {
	hub := events.NewHub(logger.Named("events"))
	opts := ImportOptions{
		MaxFileSize: cfg.Import.MaxFileSize,
		Audit:       repos.Audit,
		Events:      hub,
	}
	if archive != nil {
		opts.Archive = archive
	}

	return &Services{
		Form:   NewFormService(catalog, client, logger.Named("form")),
		Import: NewImportService(repos.Sessions, client, opts, logger.Named("import")),
		Report: NewReportService(client),
		Events: hub,
	}
}
