package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/whp/internal/whp/form"
	"github.com/bitfantasy/whp/internal/whp/render"
	"github.com/bitfantasy/whp/internal/whp/service"
)

const msgSubmitInProgress = "กำลังบันทึกข้อมูล กรุณารอสักครู่"

type FormHandler struct {
	svc      *service.FormService
	renderer *render.Renderer
	sessions sessionCookies
}

func NewFormHandler(svc *service.FormService, renderer *render.Renderer, sessions sessionCookies) *FormHandler {
	return &FormHandler{svc: svc, renderer: renderer, sessions: sessions}
}

// ChangeRequest is one incremental field change. State is the form state
// the client currently holds.
type ChangeRequest struct {
	Field string          `json:"field" binding:"required"`
	Value json.RawMessage `json:"value"`
	State form.State      `json:"state"`
}

// SubmitRequest is the JSON body of a submit.
type SubmitRequest struct {
	Values form.Values `json:"values"`
}

// Get GET /forms/:form
func (h *FormHandler) Get(c *gin.Context) {
	schema, err := h.svc.Schema(c.Param("form"))
	if err != nil {
		NotFound(c, "ไม่พบแบบฟอร์ม")
		return
	}
	if c.Query("format") == "json" {
		Success(c, schema)
		return
	}
	h.renderForm(c, http.StatusOK, schema, form.State{}, "")
}

// Change POST /forms/:form/change
func (h *FormHandler) Change(c *gin.Context) {
	var req ChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	state, err := h.svc.Change(c.Param("form"), req.State, req.Field, req.Value)
	switch {
	case errors.Is(err, form.ErrUnknownForm):
		NotFound(c, "ไม่พบแบบฟอร์ม")
		return
	case err != nil:
		BadRequest(c, err.Error())
		return
	}
	Success(c, state)
}

// Submit POST /forms/:form
//
// A form-encoded post re-renders the page with the outcome; a JSON post
// gets the envelope.
func (h *FormHandler) Submit(c *gin.Context) {
	schema, err := h.svc.Schema(c.Param("form"))
	if err != nil {
		NotFound(c, "ไม่พบแบบฟอร์ม")
		return
	}

	htmlPost := !strings.HasPrefix(c.ContentType(), gin.MIMEJSON)
	var values form.Values
	if htmlPost {
		if err := c.Request.ParseForm(); err != nil {
			BadRequest(c, "invalid form: "+err.Error())
			return
		}
		values = render.DecodeForm(schema, c.Request.PostForm)
	} else {
		var req SubmitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "invalid request: "+err.Error())
			return
		}
		values = req.Values
	}

	sessionID := GetUserID(c)
	if sessionID == "" {
		sessionID = h.sessions.id(c)
	}

	res, err := h.svc.Submit(c.Request.Context(), sessionID, schema.Name, values)
	switch {
	case err == nil:
		if htmlPost {
			h.renderForm(c, http.StatusOK, schema, form.State{}, res.Message)
			return
		}
		SuccessMessage(c, res.Message, res)
	case errors.Is(err, form.ErrSubmitInProgress):
		Conflict(c, msgSubmitInProgress)
	case errors.Is(err, form.ErrInvalid):
		if htmlPost {
			h.renderForm(c, http.StatusUnprocessableEntity, schema, res.State, "")
			return
		}
		ErrorWithData(c, CodeUnprocessable, render.Banner, res.State)
	case errors.Is(err, service.ErrRemote):
		if htmlPost {
			h.renderForm(c, http.StatusBadGateway, schema, res.State, res.Title+": "+res.Message)
			return
		}
		ErrorWithData(c, CodeBadGateway, res.Message, res)
	default:
		InternalError(c, err.Error())
	}
}

func (h *FormHandler) renderForm(c *gin.Context, status int, schema *form.Schema, state form.State, notice string) {
	var buf bytes.Buffer
	err := h.renderer.RenderForm(&buf, schema, state, render.Options{
		Action:    "/forms/" + schema.Name,
		ChangeURL: "/forms/" + schema.Name + "/change",
		Notice:    notice,
	})
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}
