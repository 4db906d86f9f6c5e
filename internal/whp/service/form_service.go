package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/bitfantasy/whp/internal/shared/whpapi"
	"github.com/bitfantasy/whp/internal/whp/entity"
	"github.com/bitfantasy/whp/internal/whp/form"
	"github.com/bitfantasy/whp/internal/whp/render"
)

var (
	// ErrUnknownField is returned for a change to a field the form lacks.
	ErrUnknownField = errors.New("unknown form field")
	// ErrNotSubmittable is returned for a form without a remote action.
	ErrNotSubmittable = errors.New("form cannot be submitted")
	// ErrRemote wraps failures of the remote API.
	ErrRemote = errors.New("remote request failed")
)

// FormClient is the part of the remote API the forms submit to.
type FormClient interface {
	CreateHealthCheckReport(ctx context.Context, report entity.HealthCheckReport) (*whpapi.Result, error)
	Register(ctx context.Context, reg entity.Registration) (*whpapi.Result, error)
	CreateUser(ctx context.Context, user entity.NewUser) (*whpapi.Result, error)
}

// formAction binds a form to its remote call and user-facing messages.
type formAction struct {
	success      string
	failureTitle string
	fallback     string
	submit       func(ctx context.Context, c FormClient, v form.Values) (*whpapi.Result, error)
}

var formActions = map[string]formAction{
	"health": {
		success:      "บันทึกข้อมูลสุขภาพสำเร็จ",
		failureTitle: "บันทึกข้อมูลไม่สำเร็จ",
		fallback:     "เกิดข้อผิดพลาดในการบันทึกข้อมูล",
		submit: func(ctx context.Context, c FormClient, v form.Values) (*whpapi.Result, error) {
			return c.CreateHealthCheckReport(ctx, HealthReportFromValues(v))
		},
	},
	"register": {
		success:      "ลงทะเบียนสำเร็จ",
		failureTitle: "ลงทะเบียนไม่สำเร็จ",
		fallback:     "เกิดข้อผิดพลาดในการลงทะเบียน",
		submit: func(ctx context.Context, c FormClient, v form.Values) (*whpapi.Result, error) {
			return c.Register(ctx, RegistrationFromValues(v))
		},
	},
	"add-user": {
		success:      "เพิ่มผู้ใช้งานสำเร็จ",
		failureTitle: "เพิ่มผู้ใช้งานไม่สำเร็จ",
		fallback:     "เกิดข้อผิดพลาดในการเพิ่มผู้ใช้งาน",
		submit: func(ctx context.Context, c FormClient, v form.Values) (*whpapi.Result, error) {
			return c.CreateUser(ctx, NewUserFromValues(v))
		},
	},
}

// SubmitResult is the outcome of a submit. Message is meant for the user:
// the success text, the remote reason, or a fixed fallback.
type SubmitResult struct {
	State   form.State      `json:"state"`
	Title   string          `json:"title,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// FormService runs the form engine for HTTP requests.
type FormService struct {
	catalog  *form.Catalog
	client   FormClient
	logger   *zap.Logger
	inflight sync.Map
}

// NewFormService creates the service.
func NewFormService(catalog *form.Catalog, client FormClient, logger *zap.Logger) *FormService {
	return &FormService{catalog: catalog, client: client, logger: logger}
}

// Schema returns the named form.
func (s *FormService) Schema(name string) (*form.Schema, error) {
	return s.catalog.Get(name)
}

// Change applies one field change to the state the client sent back and
// returns the new state.
func (s *FormService) Change(name string, prev form.State, field string, raw json.RawMessage) (form.State, error) {
	schema, err := s.catalog.Get(name)
	if err != nil {
		return form.State{}, err
	}
	fd, ok := schema.Field(field)
	if !ok {
		return form.State{}, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if fd.Disabled {
		return form.State{}, fmt.Errorf("%w: %s is read-only", ErrUnknownField, field)
	}
	value, err := render.DecodeValue(fd, raw)
	if err != nil {
		return form.State{}, err
	}

	engine := form.NewEngine(schema, s.catalog.Rules(), form.WithValues(prev.Values), form.WithErrors(prev.Errors))
	engine.OnFieldChange(field, value)
	return engine.Snapshot(), nil
}

// Submit validates values and sends the normalized payload to the remote
// API. Only one submit per session and form runs at a time; a concurrent
// one gets form.ErrSubmitInProgress.
//
// Validation failures return form.ErrInvalid with the error map in the
// result. Remote failures return ErrRemote with the values preserved.
func (s *FormService) Submit(ctx context.Context, sessionID, name string, values form.Values) (*SubmitResult, error) {
	schema, err := s.catalog.Get(name)
	if err != nil {
		return nil, err
	}
	action, ok := formActions[schema.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotSubmittable, name)
	}

	key := sessionID + "/" + schema.Name
	if _, busy := s.inflight.LoadOrStore(key, struct{}{}); busy {
		return nil, form.ErrSubmitInProgress
	}
	defer s.inflight.Delete(key)

	engine := form.NewEngine(schema, s.catalog.Rules())
	for _, f := range schema.Fields() {
		// disabled fields are derived, never taken from the client
		if f.Disabled {
			continue
		}
		if v, ok := values[f.Name]; ok {
			engine.OnFieldChange(f.Name, v)
		}
	}

	var remote *whpapi.Result
	err = engine.Submit(ctx, func(ctx context.Context, v form.Values) error {
		var err error
		remote, err = action.submit(ctx, s.client, v)
		return err
	})

	result := &SubmitResult{State: engine.Snapshot()}
	switch {
	case err == nil:
		result.Message = action.success
		if remote != nil {
			result.Data = remote.Data
		}
		s.logger.Info("form submitted", zap.String("form", schema.Name), zap.String("session_id", sessionID))
		return result, nil
	case errors.Is(err, form.ErrInvalid):
		return result, err
	default:
		result.Title = action.failureTitle
		result.Message = whpapi.MessageOr(err, action.fallback)
		s.logger.Warn("form submit failed",
			zap.String("form", schema.Name),
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return result, fmt.Errorf("%w: %w", ErrRemote, err)
	}
}
