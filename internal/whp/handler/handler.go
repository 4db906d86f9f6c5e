package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bitfantasy/whp/internal/config"
	"github.com/bitfantasy/whp/internal/whp/render"
	"github.com/bitfantasy/whp/internal/whp/service"
)

// SessionCookie identifies the browser session that owns form submits and
// import pipelines.
const SessionCookie = "whp_session"

// Handlers groups the whp handlers.
type Handlers struct {
	Form   *FormHandler
	Report *ReportHandler
	Import *ImportHandler
}

// NewHandlers creates the handlers.
func NewHandlers(svc *service.Services, renderer *render.Renderer, cfg *config.Config) *Handlers {
	sessions := sessionCookies{secure: cfg.Server.SecureCookies, maxAge: int(cfg.Import.SessionTTL.Seconds())}
	return &Handlers{
		Form:   NewFormHandler(svc.Form, renderer, sessions),
		Report: NewReportHandler(svc.Report),
		Import: NewImportHandler(svc.Import, svc.Events, renderer, sessions, cfg.Import),
	}
}

// Register mounts every whp route on r. auth guards the report and import
// routes. The forms run behind optionalAuth so registration works without a
// token while the other forms forward the caller's token.
func (h *Handlers) Register(r gin.IRouter, auth, optionalAuth gin.HandlerFunc) {
	forms := r.Group("/forms")
	if optionalAuth != nil {
		forms.Use(optionalAuth)
	}
	{
		forms.GET("/:form", h.Form.Get)
		forms.POST("/:form/change", h.Form.Change)
		forms.POST("/:form", h.Form.Submit)
	}

	whp := r.Group("/whp")
	if auth != nil {
		whp.Use(auth)
	}
	{
		whp.GET("/reports", h.Report.List)
		whp.GET("/reports/:id", h.Report.Get)
		whp.GET("/periods", h.Report.Periods)

		imp := whp.Group("/import")
		imp.GET("", h.Import.Page)
		imp.POST("/file", h.Import.File)
		imp.POST("/upload", h.Import.Upload)
		imp.POST("/confirm", h.Import.Confirm)
		imp.POST("/reset", h.Import.Reset)
		imp.GET("/preview", h.Import.Preview)
		imp.GET("/template", h.Import.Template)
		imp.GET("/history", h.Import.History)
		imp.GET("/events", h.Import.Events)
	}
}

// Response is the JSON envelope of every API answer.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// SuccessMessage answers 200 with a user-facing message.
func SuccessMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// Error answers with code; the HTTP status is code/100.
func Error(c *gin.Context, code int, message string) {
	ErrorWithData(c, code, message, nil)
}

// ErrorWithData is Error with a payload, e.g. the error map of a rejected
// form.
func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = http.StatusInternalServerError
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, CodeBadRequest, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, CodeNotFound, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, CodeConflict, message)
}

func BadGateway(c *gin.Context, message string) {
	Error(c, CodeBadGateway, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, CodeInternal, message)
}

// Envelope codes.
const (
	CodeBadRequest    = 40000
	CodeNotFound      = 40400
	CodeConflict      = 40900
	CodeTooLarge      = 41300
	CodeUnprocessable = 42200
	CodeInternal      = 50000
	CodeBadGateway    = 50200
)

// GetUserID returns the authenticated user id, if any.
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// wantsHTML reports whether the client prefers an HTML page over JSON.
func wantsHTML(c *gin.Context) bool {
	if c.Query("format") == "json" {
		return false
	}
	return c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML
}

type sessionCookies struct {
	secure bool
	maxAge int
}

// id returns the session id of the request, issuing a new cookie when the
// browser has none.
func (s sessionCookies) id(c *gin.Context) string {
	if v := c.GetString(SessionCookie); v != "" {
		return v
	}
	id, err := c.Cookie(SessionCookie)
	if err != nil || id == "" {
		id = uuid.New().String()
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookie, id, s.maxAge, "/", "", s.secure, true)
	}
	c.Set(SessionCookie, id)
	return id
}
