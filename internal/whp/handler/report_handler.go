package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/whp/internal/shared/whpapi"
	"github.com/bitfantasy/whp/internal/whp/service"
)

const msgReportsUnavailable = "ไม่สามารถดึงข้อมูลรายงานได้"

type ReportHandler struct {
	svc *service.ReportService
}

func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// List GET /whp/reports?round_year_month=YYYY-MM
func (h *ReportHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), c.Query("round_year_month"))
	if err != nil {
		remoteError(c, err)
		return
	}
	Success(c, list)
}

// Get GET /whp/reports/:id
func (h *ReportHandler) Get(c *gin.Context) {
	report, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		remoteError(c, err)
		return
	}
	Success(c, report)
}

// Periods GET /whp/periods
func (h *ReportHandler) Periods(c *gin.Context) {
	periods, err := h.svc.Periods(c.Request.Context())
	if err != nil {
		remoteError(c, err)
		return
	}
	Success(c, periods)
}

// remoteError maps a remote failure onto the envelope. A remote 404 stays
// a 404; everything else is a bad gateway.
func remoteError(c *gin.Context, err error) {
	var apiErr *whpapi.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		NotFound(c, whpapi.MessageOr(err, "ไม่พบข้อมูล"))
		return
	}
	BadGateway(c, whpapi.MessageOr(err, msgReportsUnavailable))
}
