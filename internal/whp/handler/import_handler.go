package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/whp/internal/config"
	"github.com/bitfantasy/whp/internal/shared/whpapi"
	"github.com/bitfantasy/whp/internal/whp/entity"
	"github.com/bitfantasy/whp/internal/whp/events"
	"github.com/bitfantasy/whp/internal/whp/importer"
	"github.com/bitfantasy/whp/internal/whp/preview"
	"github.com/bitfantasy/whp/internal/whp/render"
	"github.com/bitfantasy/whp/internal/whp/service"
)

const (
	defaultImportPath = "/whp/import"

	msgStaleSelection = "มีการเปลี่ยนไฟล์ระหว่างดำเนินการ กรุณาลองใหม่"
	msgInvalidState   = "ไม่สามารถดำเนินการได้ในขั้นตอนนี้"
	msgFileTooLarge   = "ไฟล์มีขนาดใหญ่เกินกำหนด (สูงสุด %s)"
	msgReset          = "ยกเลิกการนำเข้าข้อมูลแล้ว"
)

const heartbeatInterval = 30 * time.Second

type ImportHandler struct {
	svc      *service.ImportService
	events   *events.Hub
	renderer *render.Renderer
	sessions sessionCookies
	pageSize int
	basePath string
}

func NewImportHandler(svc *service.ImportService, hub *events.Hub, renderer *render.Renderer, sessions sessionCookies, cfg config.ImportConfig) *ImportHandler {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = defaultImportPath
	}
	return &ImportHandler{
		svc:      svc,
		events:   hub,
		renderer: renderer,
		sessions: sessions,
		pageSize: cfg.PageSize,
		basePath: basePath,
	}
}

// ImportState is the JSON view of a session's import.
type ImportState struct {
	State    string              `json:"state"`
	FileName string              `json:"file_name,omitempty"`
	Busy     bool                `json:"busy"`
	Batch    *entity.ImportBatch `json:"batch,omitempty"`
	Table    preview.View        `json:"table"`
}

// Page GET /whp/import
func (h *ImportHandler) Page(c *gin.Context) {
	if !wantsHTML(c) {
		h.reply(c, 0, "success")
		return
	}
	h.renderPage(c, http.StatusOK, "")
}

// File POST /whp/import/file
func (h *ImportHandler) File(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.reply(c, CodeBadRequest, service.MsgNoFile)
		return
	}
	defer file.Close()

	r := io.Reader(file)
	if limit := h.svc.MaxFileSize(); limit > 0 {
		r = io.LimitReader(file, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		h.reply(c, CodeBadRequest, service.MsgUnreadableFile)
		return
	}

	if _, err := h.svc.ParseFile(c.Request.Context(), h.sessions.id(c), header.Filename, data); err != nil {
		code, msg := h.importError(err, service.MsgUnreadableFile)
		h.reply(c, code, msg)
		return
	}
	h.reply(c, 0, "success")
}

// Upload POST /whp/import/upload
func (h *ImportHandler) Upload(c *gin.Context) {
	uploadedBy := c.GetString("username")
	if uploadedBy == "" {
		uploadedBy = GetUserID(c)
	}
	if _, err := h.svc.Upload(c.Request.Context(), h.sessions.id(c), uploadedBy); err != nil {
		code, msg := h.importError(err, service.MsgUploadFallback)
		h.reply(c, code, msg)
		return
	}
	h.reply(c, 0, "success")
}

// Confirm POST /whp/import/confirm
func (h *ImportHandler) Confirm(c *gin.Context) {
	if err := h.svc.Confirm(c.Request.Context(), h.sessions.id(c)); err != nil {
		code, msg := h.importError(err, service.MsgConfirmFallback)
		h.reply(c, code, msg)
		return
	}
	h.reply(c, 0, service.MsgConfirmed)
}

// Reset POST /whp/import/reset
func (h *ImportHandler) Reset(c *gin.Context) {
	if err := h.svc.Reset(c.Request.Context(), h.sessions.id(c)); err != nil {
		InternalError(c, err.Error())
		return
	}
	h.reply(c, 0, msgReset)
}

// Preview GET /whp/import/preview?page=&page_size=&sort=&desc=
func (h *ImportHandler) Preview(c *gin.Context) {
	view, _, err := h.svc.Preview(c.Request.Context(), h.sessions.id(c), h.table(c))
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, view)
}

// Template GET /whp/import/template
func (h *ImportHandler) Template(c *gin.Context) {
	f, err := importer.GenerateTemplate()
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+importer.TemplateFileName+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write template: "+err.Error())
	}
}

// History GET /whp/import/history?limit=
func (h *ImportHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	items, err := h.svc.History(c.Request.Context(), limit)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	if items == nil {
		items = []entity.ImportAudit{}
	}
	Success(c, gin.H{"items": items})
}

// Events GET /whp/import/events
// Streams the import state of the session as server-sent events, starting
// with the current state.
func (h *ImportHandler) Events(c *gin.Context) {
	if h.events == nil {
		NotFound(c, "event stream disabled")
		return
	}
	sessionID := h.sessions.id(c)
	p, err := h.svc.Pipeline(c.Request.Context(), sessionID)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	client := h.events.Subscribe(sessionID)
	defer h.events.Unsubscribe(client)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	// The stream outlives the server write timeout.
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})
	c.Status(http.StatusOK)

	initial, _ := json.Marshal(events.ImportState{State: p.State(), Busy: p.Busy(), FileName: p.FileName()})
	writeEvent(c, events.Event{Type: events.EventImportState, Data: string(initial)})

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			return
		case ev, ok := <-client.Events:
			if !ok {
				return
			}
			writeEvent(c, ev)
		case <-heartbeat.C:
			_, _ = c.Writer.WriteString(": keepalive\n\n")
			c.Writer.Flush()
		}
	}
}

func writeEvent(c *gin.Context, ev events.Event) {
	_, _ = fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", ev.Type, ev.Data)
	c.Writer.Flush()
}

// table builds the preview table from the query. Page numbers are 1-based.
func (h *ImportHandler) table(c *gin.Context) *preview.Table {
	t := preview.New(h.pageSize)
	if n, err := strconv.Atoi(c.Query("page_size")); err == nil && n > 0 && n <= 100 {
		t.SetPageSize(n)
	}
	desc := c.Query("desc") == "1" || c.Query("desc") == "true"
	t.SetSort(c.Query("sort"), desc)
	if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 0 {
		t.PageIndex = p - 1
	}
	return t
}

func (h *ImportHandler) state(c *gin.Context) (ImportState, error) {
	view, p, err := h.svc.Preview(c.Request.Context(), h.sessions.id(c), h.table(c))
	if err != nil {
		return ImportState{}, err
	}
	return ImportState{
		State:    p.State(),
		FileName: p.FileName(),
		Busy:     p.Busy(),
		Batch:    p.Batch(),
		Table:    view,
	}, nil
}

// reply answers an import action: the page for browsers, the envelope with
// the current import state otherwise. code 0 means success.
func (h *ImportHandler) reply(c *gin.Context, code int, message string) {
	status := http.StatusOK
	if code != 0 {
		status = code / 100
	}
	if wantsHTML(c) {
		h.renderPage(c, status, message)
		return
	}

	st, err := h.state(c)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	if code != 0 {
		ErrorWithData(c, code, message, st)
		return
	}
	SuccessMessage(c, message, st)
}

func (h *ImportHandler) renderPage(c *gin.Context, status int, message string) {
	st, err := h.state(c)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	var buf bytes.Buffer
	err = h.renderer.RenderImport(&buf, render.ImportPage{
		BasePath:   h.basePath,
		Message:    message,
		Busy:       st.Busy,
		FileName:   st.FileName,
		CanUpload:  st.State == importer.StateParsed,
		CanConfirm: st.State == importer.StateValidated,
		Batch:      st.Batch,
		Table:      st.Table,
	})
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

func (h *ImportHandler) importError(err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, service.ErrFileTooLarge):
		return CodeTooLarge, sprintfSize(msgFileTooLarge, h.svc.MaxFileSize())
	case errors.Is(err, importer.ErrUnreadableWorkbook):
		return CodeBadRequest, service.MsgUnreadableFile
	case errors.Is(err, importer.ErrNoFile):
		return CodeBadRequest, service.MsgNoFile
	case errors.Is(err, importer.ErrNoBatch):
		return CodeBadRequest, service.MsgNoBatch
	case errors.Is(err, importer.ErrBusy):
		return CodeConflict, service.MsgBusy
	case errors.Is(err, importer.ErrStaleSelection):
		return CodeConflict, msgStaleSelection
	case errors.Is(err, importer.ErrInvalidState):
		return CodeConflict, msgInvalidState
	case errors.Is(err, service.ErrRemote):
		return CodeBadGateway, whpapi.MessageOr(err, fallback)
	default:
		return CodeInternal, fallback
	}
}

func sprintfSize(format string, n int64) string {
	return fmt.Sprintf(format, humanize.IBytes(uint64(n)))
}
